package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/pkg/api/handlers"
)

// Deps are the collaborators served by the API.
type Deps struct {
	// State is the client and session registry. Required.
	State handlers.StateRegistry

	// Store is checked by the readiness probe. Optional.
	Store handlers.Healthchecker

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter creates the chi router with middleware and routes.
//
// Routes:
//   - GET    /health                          liveness probe
//   - GET    /health/ready                    readiness probe (client store)
//   - GET    /metrics                         Prometheus metrics
//   - GET    /api/v1/clients                  list clients
//   - GET    /api/v1/clients/{id}             get a client
//   - DELETE /api/v1/clients/{id}             evict a client
//   - GET    /api/v1/clients/{id}/sessions    list a client's sessions
//   - GET    /api/v1/sessions                 list all sessions
//   - GET    /api/v1/grace                    grace period status
//   - POST   /api/v1/grace/end                force-end the grace period
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.Store)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	clientHandler := handlers.NewClientHandler(deps.State)
	sessionHandler := handlers.NewSessionHandler(deps.State)
	graceHandler := handlers.NewGraceHandler(deps.State)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", clientHandler.List)
			r.Get("/{id}", clientHandler.Get)
			r.Delete("/{id}", clientHandler.Evict)
			r.Get("/{id}/sessions", clientHandler.Sessions)
		})
		r.Get("/sessions", sessionHandler.List)
		r.Get("/grace", graceHandler.Status)
		r.Post("/grace/end", graceHandler.End)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestID tags every request with a UUID, reusing an incoming
// X-Request-Id header when present. The id is stored where chi's
// middleware.GetReqID finds it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.KeyRequestID, reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			logger.KeyRequestID, reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, float64(time.Since(start).Microseconds())/1000,
		)
	})
}
