package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/photobridge/internal/logger"
	"github.com/marmos91/photobridge/pkg/api/handlers"
	apiMiddleware "github.com/marmos91/photobridge/pkg/api/middleware"
)

// requestTimeout bounds every route except cycle triggers, which run for
// as long as the cycle does.
const requestTimeout = 30 * time.Second

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware (incoming X-Request-Id or a fresh uuid)
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - POST /v1/content - Enqueue a content reference
//   - GET /v1/status - Queue depths, buffers and counters
//   - POST /v1/cycles/{name} - Run a download or upload cycle now
func NewRouter(p handlers.Pipeline, token string, info handlers.ServiceInfo) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(apiMiddleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(p)
	r.Route("/health", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	contentHandler := handlers.NewContentHandler(p)
	statusHandler := handlers.NewStatusHandler(p, info)
	cycleHandler := handlers.NewCycleHandler(p)

	r.Route("/v1", func(r chi.Router) {
		r.Use(apiMiddleware.BearerToken(token))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Post("/content", contentHandler.Enqueue)
			r.Get("/status", statusHandler.Get)
		})

		r.Post("/cycles/{name}", cycleHandler.Run)
	})

	return r
}

// requestLogger logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger.DebugCtx(r.Context(), "API request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.InfoCtx(r.Context(), "API request completed",
			"method", r.Method,
			"path", r.URL.Path,
			logger.KeyStatus, ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start),
		)
	})
}
