package rest

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fortuna/felicitas/internal/refresh"
	"github.com/fortuna/felicitas/internal/service"
)

// Server represents the REST API server
type Server struct {
	addr    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server
func NewServer(addr string, snapshots *service.SnapshotService, games *service.GameService, stats *service.StatsService, refreshSvc *refresh.Service) *Server {
	handler := NewHandler(snapshots, games, stats)
	refreshHandler := NewRefreshHandler(refreshSvc)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware)

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Snapshots
	api.HandleFunc("/snapshot", handler.GetSnapshot).Methods("GET")
	api.HandleFunc("/snapshot/history", handler.GetSnapshotHistory).Methods("GET")
	api.HandleFunc("/snapshot/{snapshotID}", handler.GetSnapshotByID).Methods("GET")

	// Games
	api.HandleFunc("/games", handler.GetGames).Methods("GET")
	api.HandleFunc("/games/{gameKey}", handler.GetGame).Methods("GET")

	// Source and run statistics
	api.HandleFunc("/stats/sources", handler.GetSourceStats).Methods("GET")
	api.HandleFunc("/stats/runs", handler.GetRecentRuns).Methods("GET")

	// Refresh operations
	api.HandleFunc("/refresh", refreshHandler.HandleRefreshRequest).Methods("POST")
	api.HandleFunc("/refresh/status", refreshHandler.HandleRefreshStatus).Methods("GET")
	api.HandleFunc("/refresh/{jobID}", refreshHandler.HandleRefreshJob).Methods("GET")

	return &Server{
		addr:    addr,
		handler: handler,
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}
}

// Router exposes the configured routes, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.server.Handler
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
