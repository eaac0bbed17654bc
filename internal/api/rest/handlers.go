package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/felicitas/internal/service"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	snapshotService *service.SnapshotService
	gameService     *service.GameService
	statsService    *service.StatsService
}

// NewHandler creates a new handler
func NewHandler(snapshots *service.SnapshotService, games *service.GameService, stats *service.StatsService) *Handler {
	return &Handler{
		snapshotService: snapshots,
		gameService:     games,
		statsService:    stats,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "felicitas",
		"version": "1.0.0",
	})
}

// GetSnapshot returns the freshest jackpot snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshotService.Latest(r.Context())
	if err != nil {
		respondError(w, http.StatusNotFound, "No snapshot available", err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// GetSnapshotHistory returns metadata for recent stored snapshots
func (h *Handler) GetSnapshotHistory(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 20 // default
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	rows, err := h.snapshotService.History(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Snapshot history unavailable", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": rows,
		"count":     len(rows),
	})
}

// GetSnapshotByID returns one stored snapshot document
func (h *Handler) GetSnapshotByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	snapshotID, err := strconv.Atoi(vars["snapshotID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid snapshot ID", err)
		return
	}

	snap, err := h.snapshotService.Snapshot(r.Context(), snapshotID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Snapshot not found", err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

// GetGames returns the configured game catalog
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	games := h.gameService.ListGames()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// GetGame returns one game with its latest result and history
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	gameKey := vars["gameKey"]

	detail, err := h.gameService.GetGame(r.Context(), gameKey)
	if err != nil {
		respondError(w, http.StatusNotFound, "Game not found", err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// GetSourceStats returns per-source success rates over a window
func (h *Handler) GetSourceStats(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		parsed, err := time.ParseDuration(windowStr)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid window (use a duration like 72h)", err)
			return
		}
		window = parsed
	}

	report, err := h.statsService.SourceStats(r.Context(), window)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Source stats unavailable", err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetRecentRuns returns recent acquisition runs
func (h *Handler) GetRecentRuns(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 20 // default
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	runs, err := h.statsService.RecentRuns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "Run history unavailable", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
