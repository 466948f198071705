package apiclient

import (
	"context"
	"net/url"
	"time"
)

// ClientInfo is a registered NFSv4.1 client as reported by the API.
type ClientInfo struct {
	ClientID        uint64    `json:"client_id"`
	ClientIDHex     string    `json:"client_id_hex"`
	Owner           string    `json:"owner"`
	Principal       string    `json:"principal,omitempty"`
	Addr            string    `json:"addr,omitempty"`
	Confirmed       bool      `json:"confirmed"`
	CreatedAt       time.Time `json:"created_at"`
	LeaseExpiry     time.Time `json:"lease_expiry"`
	LeaseRemaining  string    `json:"lease_remaining"`
	Sessions        int       `json:"sessions"`
	States          int       `json:"states"`
	ReclaimComplete bool      `json:"reclaim_complete"`
}

// SessionInfo is a session as reported by the API.
type SessionInfo struct {
	SessionID         string    `json:"session_id"`
	ClientID          uint64    `json:"client_id"`
	ClientIDHex       string    `json:"client_id_hex"`
	CreatedAt         time.Time `json:"created_at"`
	Slots             uint32    `json:"slots"`
	SlotsInUse        int       `json:"slots_in_use"`
	TargetHighestSlot uint32    `json:"target_highest_slot"`
}

// ListClients returns every registered client.
func (c *Client) ListClients(ctx context.Context) ([]ClientInfo, error) {
	return listResources[ClientInfo](ctx, c, "/api/v1/clients")
}

// GetClient returns one client by hex id.
func (c *Client) GetClient(ctx context.Context, clientID string) (*ClientInfo, error) {
	return getResource[ClientInfo](ctx, c, resourcePath("/api/v1/clients/%s", url.PathEscape(clientID)))
}

// EvictClient removes a client and everything it owns.
func (c *Client) EvictClient(ctx context.Context, clientID string) error {
	return c.delete(ctx, resourcePath("/api/v1/clients/%s", url.PathEscape(clientID)))
}

// ListClientSessions returns the sessions of one client.
func (c *Client) ListClientSessions(ctx context.Context, clientID string) ([]SessionInfo, error) {
	return listResources[SessionInfo](ctx, c, resourcePath("/api/v1/clients/%s/sessions", url.PathEscape(clientID)))
}

// ListSessions returns every live session.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	return listResources[SessionInfo](ctx, c, "/api/v1/sessions")
}
