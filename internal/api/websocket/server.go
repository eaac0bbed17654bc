package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/fortuna/felicitas/internal/refresh"
	"github.com/fortuna/felicitas/internal/snapshot"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development (TODO: restrict in production)
	},
}

// Server pushes snapshot and refresh-job events to websocket
// subscribers. It satisfies both service.Notifier and refresh.Reporter.
type Server struct {
	server *http.Server
	hub    *Hub
}

// NewServer creates a new WebSocket server
func NewServer() *Server {
	return &Server{hub: NewHub()}
}

// Hub exposes the client hub, mainly for tests.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the websocket routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/jackpots", s.handleJackpots)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start starts the hub and the WebSocket server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	log.Printf("WebSocket server listening on %s", addr)
	return s.server.ListenAndServe()
}

// handleJackpots upgrades the connection and subscribes it to the hub
func (s *Server) handleJackpots(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// handleHealth returns WebSocket server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// OnSnapshot broadcasts a completed acquisition run to all clients.
func (s *Server) OnSnapshot(snap *snapshot.Snapshot, changes []snapshot.Change) {
	s.publish(map[string]interface{}{
		"type":     "snapshot",
		"snapshot": snap,
		"changes":  changes,
	})
}

// OnJobQueued broadcasts a queued refresh job.
func (s *Server) OnJobQueued(job *refresh.Job) { s.jobEvent("refresh_queued", job, nil) }

// OnJobStart broadcasts a started refresh job.
func (s *Server) OnJobStart(job *refresh.Job) { s.jobEvent("refresh_started", job, nil) }

// OnJobComplete broadcasts a completed refresh job.
func (s *Server) OnJobComplete(job *refresh.Job) { s.jobEvent("refresh_completed", job, nil) }

// OnJobError broadcasts a failed refresh job.
func (s *Server) OnJobError(job *refresh.Job, err error) { s.jobEvent("refresh_failed", job, err) }

func (s *Server) jobEvent(kind string, job *refresh.Job, err error) {
	event := map[string]interface{}{
		"type": kind,
		"job":  job,
	}
	if err != nil {
		event["error"] = err.Error()
	}
	s.publish(event)
}

func (s *Server) publish(event map[string]interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] encoding event: %v", err)
		return
	}
	s.hub.Broadcast(data)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
