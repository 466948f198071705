package handlers

import (
	"fmt"
	"net/http"
	"time"
)

// GraceStatusResponse describes the reclaim grace period.
type GraceStatusResponse struct {
	Active           bool    `json:"active"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	TotalDuration    string  `json:"total_duration,omitempty"`
	ExpectedClients  int     `json:"expected_clients"`
	ReclaimedClients int     `json:"reclaimed_clients"`
	StartedAt        string  `json:"started_at,omitempty"`
	Message          string  `json:"message"`
}

// GraceHandler serves the grace period endpoints.
type GraceHandler struct {
	registry StateRegistry
}

// NewGraceHandler creates a grace period handler.
func NewGraceHandler(registry StateRegistry) *GraceHandler {
	return &GraceHandler{registry: registry}
}

// Status handles GET /api/v1/grace.
func (h *GraceHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.registry.Grace().Status()
	if !st.Active {
		WriteJSONOK(w, GraceStatusResponse{Message: "No grace period active"})
		return
	}

	WriteJSONOK(w, GraceStatusResponse{
		Active:           true,
		RemainingSeconds: st.Remaining.Seconds(),
		TotalDuration:    st.Duration.String(),
		ExpectedClients:  st.ExpectedClients,
		ReclaimedClients: st.ReclaimedClients,
		StartedAt:        st.StartedAt.UTC().Format(time.RFC3339),
		Message: fmt.Sprintf("Grace period active: %d of %d clients reclaimed",
			st.ReclaimedClients, st.ExpectedClients),
	})
}

// End handles POST /api/v1/grace/end.
func (h *GraceHandler) End(w http.ResponseWriter, r *http.Request) {
	g := h.registry.Grace()
	if !g.InGrace() {
		Conflict(w, "No grace period active")
		return
	}
	g.ForceEnd()
	WriteNoContent(w)
}
