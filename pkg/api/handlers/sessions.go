package handlers

import (
	"net/http"
	"slices"
	"strings"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
)

// SessionResponse describes a session.
type SessionResponse struct {
	state.SessionInfo
	ClientIDHex string `json:"client_id_hex"`
}

func sessionsToResponse(sessions []*state.Session) []SessionResponse {
	slices.SortFunc(sessions, func(a, b *state.Session) int {
		return strings.Compare(a.ID().String(), b.ID().String())
	})

	out := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		info := s.Info()
		out[i] = SessionResponse{SessionInfo: info, ClientIDHex: FormatClientID(info.ClientID)}
	}
	return out
}

// SessionHandler serves the session listing.
type SessionHandler struct {
	registry StateRegistry
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(registry StateRegistry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, sessionsToResponse(h.registry.ListSessions()))
}
