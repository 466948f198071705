package handlers

import (
	"cmp"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
)

// StateRegistry is the part of the state manager the admin API reads and
// mutates.
type StateRegistry interface {
	ListClients() []*state.Client
	GetClientByServerID(id uint64) (*state.Client, error)
	EvictClient(id uint64) error
	ListSessions() []*state.Session
	Grace() *state.GracePeriod
}

// ClientResponse describes a client. ClientIDHex is the form accepted by
// the {id} path parameter.
type ClientResponse struct {
	state.ClientInfo
	ClientIDHex    string `json:"client_id_hex"`
	LeaseRemaining string `json:"lease_remaining"`
}

func clientToResponse(c *state.Client) ClientResponse {
	info := c.Info()
	remaining := max(time.Until(info.LeaseExpiry), 0)
	return ClientResponse{
		ClientInfo:     info,
		ClientIDHex:    FormatClientID(info.ClientID),
		LeaseRemaining: remaining.Round(time.Second).String(),
	}
}

// FormatClientID renders a client id as 16 hex digits.
func FormatClientID(id uint64) string {
	return fmt.Sprintf("%016x", id)
}

// ParseClientID parses a hex client id, with or without a 0x prefix.
func ParseClientID(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return 0, errors.New("empty client id")
	}
	return strconv.ParseUint(s, 16, 64)
}

// ClientHandler serves the client endpoints.
type ClientHandler struct {
	registry StateRegistry
}

// NewClientHandler creates a client handler.
func NewClientHandler(registry StateRegistry) *ClientHandler {
	return &ClientHandler{registry: registry}
}

// List handles GET /api/v1/clients.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients := h.registry.ListClients()
	slices.SortFunc(clients, func(a, b *state.Client) int {
		return cmp.Compare(a.ID(), b.ID())
	})

	response := make([]ClientResponse, len(clients))
	for i, c := range clients {
		response[i] = clientToResponse(c)
	}
	WriteJSONOK(w, response)
}

// Get handles GET /api/v1/clients/{id}.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.clientFromPath(w, r)
	if !ok {
		return
	}
	WriteJSONOK(w, clientToResponse(c))
}

// Evict handles DELETE /api/v1/clients/{id}. The client and every
// session and stateid it owns are removed.
func (h *ClientHandler) Evict(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.registry.EvictClient(id); err != nil {
		if errors.Is(err, state.ErrStaleClientID) {
			NotFound(w, "Client not found")
			return
		}
		logger.Error("Client eviction failed", logger.KeyClientID, id, logger.KeyError, err)
		InternalServerError(w, "Failed to evict client")
		return
	}

	logger.Info("Client evicted via API", logger.KeyClientID, id)
	WriteNoContent(w)
}

// Sessions handles GET /api/v1/clients/{id}/sessions.
func (h *ClientHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.clientFromPath(w, r)
	if !ok {
		return
	}
	WriteJSONOK(w, sessionsToResponse(c.Sessions()))
}

func (h *ClientHandler) clientFromPath(w http.ResponseWriter, r *http.Request) (*state.Client, bool) {
	id, ok := clientIDFromPath(w, r)
	if !ok {
		return nil, false
	}

	c, err := h.registry.GetClientByServerID(id)
	if err != nil {
		NotFound(w, "Client not found")
		return nil, false
	}
	return c, true
}

func clientIDFromPath(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := ParseClientID(chi.URLParam(r, "id"))
	if err != nil {
		BadRequest(w, "Invalid client id: expected hex")
		return 0, false
	}
	return id, true
}
