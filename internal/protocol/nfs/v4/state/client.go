package state

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// Client is one client identity established by EXCHANGE_ID.
//
// A Client exclusively owns its sessions and states. Sessions and states
// refer back to the client by id only.
type Client struct {
	id        uint64
	owner     string
	verifier  []byte
	principal string
	addr      string
	createdAt time.Time

	// leaseExpiry holds the lease deadline in Unix nanoseconds. It is written
	// by request handlers and read by the lease reaper.
	leaseExpiry atomic.Int64
	confirmed   atomic.Bool
	removed     atomic.Bool

	mu       sync.Mutex
	sessions map[types.SessionId4]*Session
	states   map[[types.NFS4_OTHER_SIZE]byte]*State

	// CREATE_SESSION sequencing (RFC 8881 Section 18.36.4).
	createSeq        uint32
	lastCreateResult *types.CreateSessionRes

	reclaimComplete bool
}

// NewClient creates an unconfirmed client record.
func NewClient(id uint64, owner string, verifier []byte, principal, addr string) *Client {
	return &Client{
		id:        id,
		owner:     owner,
		verifier:  bytes.Clone(verifier),
		principal: principal,
		addr:      addr,
		createdAt: time.Now(),
		sessions:  make(map[types.SessionId4]*Session),
		states:    make(map[[types.NFS4_OTHER_SIZE]byte]*State),
		createSeq: 1,
	}
}

// ID returns the server-assigned client id.
func (c *Client) ID() uint64 { return c.id }

// Owner returns the client-supplied owner string.
func (c *Client) Owner() string { return c.owner }

// Verifier returns a copy of the client-supplied verifier.
func (c *Client) Verifier() []byte { return bytes.Clone(c.verifier) }

// Principal returns the authenticated principal that created the client.
func (c *Client) Principal() string { return c.principal }

// Addr returns the network address the client identified from.
func (c *Client) Addr() string { return c.addr }

// CreatedAt returns when the record was created.
func (c *Client) CreatedAt() time.Time { return c.createdAt }

// IsConfirmed reports whether the client completed CREATE_SESSION.
func (c *Client) IsConfirmed() bool { return c.confirmed.Load() }

func (c *Client) confirm() { c.confirmed.Store(true) }

// LeaseExpiry returns the current lease deadline.
func (c *Client) LeaseExpiry() time.Time {
	return time.Unix(0, c.leaseExpiry.Load())
}

func (c *Client) renewLease(now time.Time, d time.Duration) {
	c.leaseExpiry.Store(now.Add(d).UnixNano())
}

func (c *Client) leaseExpired(now time.Time) bool {
	return now.UnixNano() > c.leaseExpiry.Load()
}

// ============================================================================
// Owned sessions
// ============================================================================

// HasSession reports whether the session still belongs to this client.
func (c *Client) HasSession(id types.SessionId4) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[id]
	return ok
}

// SessionCount returns the number of live sessions owned by the client.
// Sessions already evicted from the session cache are not counted.
func (c *Client) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sessions {
		if !s.Evicted() {
			n++
		}
	}
	return n
}

// Sessions returns a snapshot of the client's sessions.
func (c *Client) Sessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	return out
}

func (c *Client) addSession(s *Session) {
	c.mu.Lock()
	c.sessions[s.ID()] = s
	c.mu.Unlock()
}

func (c *Client) removeSession(id types.SessionId4) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if ok {
		delete(c.sessions, id)
	}
	return s, ok
}

// pruneEvictedSessions drops sessions the cache has evicted and returns
// the number still live.
func (c *Client) pruneEvictedSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.sessions {
		if s.Evicted() {
			delete(c.sessions, id)
		}
	}
	return len(c.sessions)
}

// detachSessions removes and returns every session of the client.
func (c *Client) detachSessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Session, 0, len(c.sessions))
	for id, s := range c.sessions {
		out = append(out, s)
		delete(c.sessions, id)
	}
	return out
}

// ============================================================================
// Owned states
// ============================================================================

// State looks up one of the client's states by its opaque identifier.
func (c *Client) State(other [types.NFS4_OTHER_SIZE]byte) (*State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[other]
	return s, ok
}

// StateCount returns the number of states owned by the client.
func (c *Client) StateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

func (c *Client) addState(s *State) {
	c.mu.Lock()
	c.states[s.Other()] = s
	c.mu.Unlock()
}

func (c *Client) removeState(other [types.NFS4_OTHER_SIZE]byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.states[other]; !ok {
		return false
	}
	delete(c.states, other)
	return true
}

// ============================================================================
// Admin snapshot
// ============================================================================

// ClientInfo is a point-in-time description of a client for the admin API.
type ClientInfo struct {
	ClientID        uint64    `json:"client_id"`
	Owner           string    `json:"owner"`
	Principal       string    `json:"principal,omitempty"`
	Addr            string    `json:"addr,omitempty"`
	Confirmed       bool      `json:"confirmed"`
	CreatedAt       time.Time `json:"created_at"`
	LeaseExpiry     time.Time `json:"lease_expiry"`
	Sessions        int       `json:"sessions"`
	States          int       `json:"states"`
	ReclaimComplete bool      `json:"reclaim_complete"`
}

// Info returns a snapshot of the client for reporting.
func (c *Client) Info() ClientInfo {
	c.mu.Lock()
	sessions, states, reclaimed := len(c.sessions), len(c.states), c.reclaimComplete
	c.mu.Unlock()

	return ClientInfo{
		ClientID:        c.id,
		Owner:           c.owner,
		Principal:       c.principal,
		Addr:            c.addr,
		Confirmed:       c.IsConfirmed(),
		CreatedAt:       c.createdAt,
		LeaseExpiry:     c.LeaseExpiry(),
		Sessions:        sessions,
		States:          states,
		ReclaimComplete: reclaimed,
	}
}
