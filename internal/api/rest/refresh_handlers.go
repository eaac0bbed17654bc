package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fortuna/felicitas/internal/refresh"
)

// RefreshHandler proxies API calls to the refresh service.
type RefreshHandler struct {
	service *refresh.Service
}

// NewRefreshHandler wires the REST layer to the refresh service.
func NewRefreshHandler(service *refresh.Service) *RefreshHandler {
	return &RefreshHandler{service: service}
}

type apiRefreshRequest struct {
	Game  string   `json:"game"`
	Games []string `json:"games"`
}

// HandleRefreshRequest handles POST /api/v1/refresh. An empty body queues
// a full-catalog refresh.
func (h *RefreshHandler) HandleRefreshRequest(w http.ResponseWriter, r *http.Request) {
	var req apiRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	refreshReq := refresh.Request{}
	if len(req.Games) > 0 {
		refreshReq.GameKeys = append(refreshReq.GameKeys, req.Games...)
	}
	if req.Game != "" {
		refreshReq.GameKeys = append(refreshReq.GameKeys, req.Game)
	}

	job, err := h.service.Enqueue(r.Context(), refreshReq)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to enqueue refresh job", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job": job,
	})
}

// HandleRefreshStatus handles GET /api/v1/refresh/status
func (h *RefreshHandler) HandleRefreshStatus(w http.ResponseWriter, r *http.Request) {
	summary := h.service.GetStatus()

	response := map[string]interface{}{
		"status":      "idle",
		"recent_jobs": []*refresh.Job{},
	}

	if summary.ActiveJob != nil {
		response["status"] = string(summary.ActiveJob.Status)
		response["active_job"] = summary.ActiveJob
	}
	if len(summary.History) > 0 {
		response["recent_jobs"] = summary.History
	}

	respondJSON(w, http.StatusOK, response)
}

// HandleRefreshJob handles GET /api/v1/refresh/{jobID}
func (h *RefreshHandler) HandleRefreshJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["jobID"]

	job, err := h.service.Get(jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job": job,
	})
}
