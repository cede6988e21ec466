package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/pipeline"
)

// CycleHandler triggers pipeline cycles on demand.
type CycleHandler struct {
	pipeline Pipeline
}

// NewCycleHandler creates a cycle handler.
func NewCycleHandler(p Pipeline) *CycleHandler {
	return &CycleHandler{pipeline: p}
}

// Run handles POST /v1/cycles/{name}, where name is "download" or "upload".
// The request blocks until the cycle finishes and returns its result.
// A cycle that is already running yields 409 Conflict.
func (h *CycleHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	lc := logger.FromContext(r.Context()).WithCycle(name)
	ctx := r.Context()
	if lc != nil {
		ctx = logger.WithContext(ctx, lc)
	}

	var (
		result any
		err    error
	)
	switch name {
	case "download":
		result, err = h.pipeline.RunDownloadCycle(ctx)
	case "upload":
		result, err = h.pipeline.RunUploadCycle(ctx)
	default:
		writeError(w, http.StatusNotFound, "unknown cycle: "+name)
		return
	}

	switch {
	case errors.Is(err, pipeline.ErrCycleBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cycle interrupted: "+err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.InfoCtx(ctx, "Cycle triggered via API")
		writeJSON(w, http.StatusOK, okResponse(result))
	}
}
