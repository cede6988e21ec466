package handlers

import (
	"net/http"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the process running?
//   - Readiness probe: Is the pipeline accepting work?
type HealthHandler struct {
	pipeline Pipeline
}

// NewHealthHandler creates a new health handler.
//
// The pipeline may be nil, in which case readiness reports unhealthy.
func NewHealthHandler(p Pipeline) *HealthHandler {
	return &HealthHandler{pipeline: p}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "photobridge",
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 503 when no pipeline is attached.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("pipeline not initialized"))
		return
	}

	s := h.pipeline.Stats()
	writeJSON(w, http.StatusOK, healthyResponse(map[string]int{
		"download_queue": s.DownloadQueue,
		"upload_queue":   s.UploadQueue,
	}))
}
