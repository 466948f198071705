package handlers

import (
	"context"
	"net/http"
	"time"
)

// Healthchecker is implemented by persistent stores that can report
// whether they are usable.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	store     Healthchecker
	startedAt time.Time
}

// NewHealthHandler creates a health handler. store may be nil when
// persistence is disabled.
func NewHealthHandler(store Healthchecker) *HealthHandler {
	return &HealthHandler{store: store, startedAt: time.Now()}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "nfs4state",
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	}))
}

// Readiness handles GET /health/ready. It returns 503 when the client
// store fails its health check.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"store": "disabled"}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.store.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"store":   "healthy",
		"latency": time.Since(start).String(),
	}))
}
