package handlers

import (
	"net/http"

	"github.com/marmos91/photobridge/pkg/pipeline"
)

// ServiceInfo is static information reported by the status endpoint.
type ServiceInfo struct {
	Version       string `json:"version"`
	AlbumID       string `json:"album_id,omitempty"`
	AlbumShareURL string `json:"album_share_url,omitempty"`
}

// StatusResponse is the payload of GET /v1/status.
type StatusResponse struct {
	Service ServiceInfo    `json:"service"`
	Stats   pipeline.Stats `json:"stats"`
}

// StatusHandler reports pipeline state.
type StatusHandler struct {
	pipeline Pipeline
	info     ServiceInfo
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(p Pipeline, info ServiceInfo) *StatusHandler {
	return &StatusHandler{pipeline: p, info: info}
}

// Get handles GET /v1/status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(StatusResponse{
		Service: h.info,
		Stats:   h.pipeline.Stats(),
	}))
}
