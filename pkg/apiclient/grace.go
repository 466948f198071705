package apiclient

import "context"

// GraceStatusResponse is the grace period status reported by the API.
type GraceStatusResponse struct {
	Active           bool    `json:"active"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	TotalDuration    string  `json:"total_duration,omitempty"`
	ExpectedClients  int     `json:"expected_clients"`
	ReclaimedClients int     `json:"reclaimed_clients"`
	StartedAt        string  `json:"started_at,omitempty"`
	Message          string  `json:"message"`
}

// GraceStatus returns the current grace period status.
func (c *Client) GraceStatus(ctx context.Context) (*GraceStatusResponse, error) {
	return getResource[GraceStatusResponse](ctx, c, "/api/v1/grace")
}

// ForceEndGrace ends the grace period immediately.
func (c *Client) ForceEndGrace(ctx context.Context) error {
	return c.post(ctx, "/api/v1/grace/end", nil, nil)
}

// Health checks the server's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}
