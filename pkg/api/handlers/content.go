package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// Pipeline is the part of the pipeline driven by the control API.
type Pipeline interface {
	EnqueueContent(ref pipeline.ContentReference) error
	RunDownloadCycle(ctx context.Context) (pipeline.DownloadCycleResult, error)
	RunUploadCycle(ctx context.Context) (pipeline.UploadCycleResult, error)
	Stats() pipeline.Stats
}

// ContentRequest is the body of POST /v1/content: an already-parsed
// reference to media held by the messaging source.
type ContentRequest struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Provider    string `json:"provider,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// ContentAccepted is the payload returned for an accepted reference.
type ContentAccepted struct {
	RequestID string `json:"request_id"`
	ID        string `json:"id"`
	Name      string `json:"name"`
}

// ContentHandler accepts content references.
type ContentHandler struct {
	pipeline Pipeline
}

// NewContentHandler creates a content handler.
func NewContentHandler(p Pipeline) *ContentHandler {
	return &ContentHandler{pipeline: p}
}

// Enqueue handles POST /v1/content.
//
// Responses:
//   - 202 Accepted: queued for download
//   - 400 Bad Request: malformed body
//   - 409 Conflict: the id was accepted recently
//   - 422 Unprocessable Entity: kind, provider or destination rejected
//   - 503 Service Unavailable: the pipeline is shutting down
func (h *ContentHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	ref := pipeline.ContentReference{
		ID:          req.ID,
		Kind:        pipeline.MediaKind(req.Kind),
		Provider:    req.Provider,
		Destination: req.Destination,
	}

	if err := h.pipeline.EnqueueContent(ref); err != nil {
		status := enqueueStatus(err)
		logger.DebugCtx(r.Context(), "Content reference rejected",
			logger.KeySourceID, req.ID,
			logger.KeyKind, req.Kind,
			logger.KeyStatus, status,
			logger.KeyError, err)
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, okResponse(ContentAccepted{
		RequestID: middleware.GetReqID(r.Context()),
		ID:        ref.ID,
		Name:      ref.ItemName(),
	}))
}

func enqueueStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrPipelineClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrInvalidItem):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrUnsupportedKind),
		errors.Is(err, pipeline.ErrUnsupportedProvider),
		errors.Is(err, pipeline.ErrNoDestination):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
