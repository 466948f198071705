package state

import (
	"bytes"
	"context"
	"time"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// ============================================================================
// Channel limits
// ============================================================================

// ChannelLimits are the server-side caps applied to CREATE_SESSION channel
// attributes.
type ChannelLimits struct {
	MaxRequestSize        uint32
	MaxResponseSize       uint32
	MaxResponseSizeCached uint32
	MaxOperations         uint32
}

// DefaultChannelLimits returns the caps used by the server.
func DefaultChannelLimits() ChannelLimits {
	return ChannelLimits{
		MaxRequestSize:        1 << 20,
		MaxResponseSize:       1 << 20,
		MaxResponseSizeCached: 64 << 10,
		MaxOperations:         types.MaxCompoundOps,
	}
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// negotiateChannelAttrs caps the client's request by the server limits.
func negotiateChannelAttrs(req types.ChannelAttrs, limits ChannelLimits, maxSlots uint32) types.ChannelAttrs {
	return types.ChannelAttrs{
		HeaderPadSize:         0,
		MaxRequestSize:        clampU32(req.MaxRequestSize, 1024, limits.MaxRequestSize),
		MaxResponseSize:       clampU32(req.MaxResponseSize, 1024, limits.MaxResponseSize),
		MaxResponseSizeCached: clampU32(req.MaxResponseSizeCached, 0, limits.MaxResponseSizeCached),
		MaxOperations:         clampU32(req.MaxOperations, 2, limits.MaxOperations),
		MaxRequests:           clampU32(req.MaxRequests, MinSlots, maxSlots),
	}
}

// ============================================================================
// EXCHANGE_ID
// ============================================================================

// ExchangeIDResult is what EXCHANGE_ID reports back to the client.
type ExchangeIDResult struct {
	Client     *Client
	SequenceID uint32
	Confirmed  bool
}

// ExchangeID establishes or looks up the client identity for owner.
//
//   - unknown owner: a new unconfirmed client is created and indexed.
//   - same owner and verifier: the existing record is returned.
//   - same owner, new verifier: the client rebooted; the old record and
//     everything it owns is removed and a new unconfirmed client replaces it.
func (sm *StateManager) ExchangeID(owner []byte, verifier types.Verifier4, principal, addr string) *ExchangeIDResult {
	key := string(owner)

	sm.mu.Lock()
	existing := sm.clientsByOwner[key]
	if existing != nil && bytes.Equal(existing.verifier, verifier[:]) {
		sm.mu.Unlock()

		existing.mu.Lock()
		seq := existing.createSeq
		existing.mu.Unlock()

		logger.Debug("EXCHANGE_ID: existing client",
			logger.KeyClientID, existing.id,
			logger.KeyOwner, key)
		return &ExchangeIDResult{Client: existing, SequenceID: seq, Confirmed: existing.IsConfirmed()}
	}

	var replaced bool
	if existing != nil {
		replaced = sm.removeClientLocked(existing, ReasonClientReboot)
	}

	c := NewClient(sm.NewClientID(), key, verifier[:], principal, addr)
	sm.addClientLocked(c)
	sm.mu.Unlock()

	if replaced {
		sm.finishRemoval(existing, ReasonClientReboot)
	}
	sm.metrics.recordClientCreated()

	logger.Debug("EXCHANGE_ID: new client",
		logger.KeyClientID, c.id,
		logger.KeyOwner, key,
		"rebooted", existing != nil)

	return &ExchangeIDResult{Client: c, SequenceID: c.createSeq}
}

// ============================================================================
// CREATE_SESSION
// ============================================================================

// CreateSession creates a session for clientID.
//
// seqID must be the client's next CREATE_SESSION sequence id; a replay of
// the previous one returns the cached result, any other value is
// SEQ_MISORDERED. The first successful call confirms the client.
func (sm *StateManager) CreateSession(clientID uint64, seqID uint32, fore, back types.ChannelAttrs, flags uint32) (*types.CreateSessionRes, error) {
	c, err := sm.GetClientByServerID(clientID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	switch {
	case seqID == c.createSeq-1 && c.lastCreateResult != nil:
		res := *c.lastCreateResult
		c.mu.Unlock()
		logger.Debug("CREATE_SESSION replay", logger.KeyClientID, clientID, logger.KeySeqID, seqID)
		return &res, nil
	case seqID != c.createSeq:
		c.mu.Unlock()
		return nil, ErrSeqMisordered
	}
	c.mu.Unlock()

	// Persistent sessions and back channels are not offered.
	flags &^= types.CREATE_SESSION4_FLAG_PERSIST | types.CREATE_SESSION4_FLAG_CONN_BACK_CHAN
	foreAttrs := negotiateChannelAttrs(fore, DefaultChannelLimits(), sm.maxSlots)
	s := NewSession(clientID, foreAttrs, back, flags)

	sm.mu.Lock()
	if sm.clientsByID[clientID] != c {
		sm.mu.Unlock()
		return nil, ErrStaleClientID
	}
	c.mu.Lock()
	if seqID != c.createSeq {
		// A concurrent CREATE_SESSION with the same seqid won.
		c.mu.Unlock()
		sm.mu.Unlock()
		return nil, ErrDelay
	}
	c.sessions[s.id] = s
	res := &types.CreateSessionRes{
		SessionID:   s.id,
		SequenceID:  seqID,
		Flags:       flags,
		ForeChannel: foreAttrs,
		BackChannel: back,
	}
	cached := *res
	c.lastCreateResult = &cached
	c.createSeq++
	c.mu.Unlock()
	sm.sessions.put(s)
	sm.mu.Unlock()

	sm.metrics.recordSessionCreated()
	sm.RenewLease(c)

	if !c.IsConfirmed() {
		c.confirm()
		sm.persistClient(c)
	}

	logger.Debug("Session created",
		logger.KeyClientID, clientID,
		logger.KeySessionID, s.id.String(),
		"slots", foreAttrs.MaxRequests)

	return res, nil
}

func (sm *StateManager) persistClient(c *Client) {
	if sm.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rec := &ClientRecord{
		Owner:       c.owner,
		ClientID:    c.id,
		Verifier:    c.Verifier(),
		Principal:   c.principal,
		Addr:        c.addr,
		ConfirmedAt: time.Now(),
	}
	if err := sm.store.PutClient(ctx, rec); err != nil {
		logger.Warn("Failed to persist client",
			logger.KeyClientID, c.id,
			logger.KeyError, err)
	}
}

// ============================================================================
// DESTROY_SESSION / DESTROY_CLIENTID
// ============================================================================

// DestroySession removes a session from its client and from the cache.
func (sm *StateManager) DestroySession(id types.SessionId4) error {
	sm.mu.Lock()
	s, ok := sm.sessions.get(id)
	if !ok {
		sm.mu.Unlock()
		return ErrBadSession
	}
	if c, ok := sm.clientsByID[s.clientID]; ok {
		c.removeSession(id)
	}
	sm.dropSessionLocked(s, ReasonClientRequest)
	sm.mu.Unlock()

	logger.Debug("Session destroyed",
		logger.KeySessionID, id.String(),
		logger.KeyClientID, s.clientID)
	return nil
}

// DestroyClientID removes a client that no longer owns sessions.
func (sm *StateManager) DestroyClientID(clientID uint64) error {
	sm.mu.Lock()
	c, ok := sm.clientsByID[clientID]
	if !ok {
		sm.mu.Unlock()
		return ErrStaleClientID
	}
	if c.pruneEvictedSessions() > 0 {
		sm.mu.Unlock()
		return ErrClientIDBusy
	}
	sm.removeClientLocked(c, ReasonClientRequest)
	sm.mu.Unlock()

	sm.finishRemoval(c, ReasonClientRequest)
	return nil
}

// EvictClient forcibly removes a client and everything it owns.
func (sm *StateManager) EvictClient(clientID uint64) error {
	c, err := sm.GetClientByServerID(clientID)
	if err != nil {
		return err
	}
	sm.removeClient(c, ReasonAdminEvict)
	return nil
}

// ============================================================================
// RECLAIM_COMPLETE
// ============================================================================

// ReclaimComplete records that c finished reclaiming state.
func (sm *StateManager) ReclaimComplete(c *Client) error {
	c.mu.Lock()
	if c.reclaimComplete {
		c.mu.Unlock()
		return ErrCompleteAlready
	}
	c.reclaimComplete = true
	c.mu.Unlock()

	sm.grace.Reclaimed(c.owner)
	return nil
}

// NeedsReclaim reports whether c held state before the restart and has
// not yet sent RECLAIM_COMPLETE while the grace period is active.
func (sm *StateManager) NeedsReclaim(c *Client) bool {
	if !sm.grace.InGrace() || !sm.grace.Expected(c.owner) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.reclaimComplete
}
