package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// DefaultLeaseDuration is the lease granted to clients (RFC 8881 Section 8.3).
const DefaultLeaseDuration = 90 * time.Second

const storeTimeout = 5 * time.Second

// Config configures a StateManager.
type Config struct {
	// LeaseDuration is the client lease. Defaults to DefaultLeaseDuration.
	LeaseDuration time.Duration

	// GracePeriod is the reclaim window after a restart. Zero disables it.
	GracePeriod time.Duration

	// SessionCacheSize bounds the session cache. Defaults to DefaultSessionCacheSize.
	SessionCacheSize int

	// SessionTTLFactor sets how many leases an idle session survives.
	// Defaults to DefaultSessionTTLFactor.
	SessionTTLFactor int

	// MaxSlots caps the fore channel slot table. Defaults to DefaultMaxSlots.
	MaxSlots uint32

	// Store persists confirmed clients. Optional.
	Store ClientStore

	// Registerer receives the Prometheus metrics. Optional.
	Registerer prometheus.Registerer
}

// StateManager is the process-wide registry of clients, sessions and state.
//
// A single RWMutex guards every index so that a client is either fully
// indexed or not indexed at all. Lock order: sm.mu, then Client.mu. Slot
// tables have their own locks and are never taken while holding sm.mu.
type StateManager struct {
	mu sync.RWMutex

	clientsByID       map[uint64]*Client
	clientsByOwner    map[string]*Client
	clientsByVerifier map[string]*Client

	sessions *sessionCache

	leaseDuration time.Duration
	maxSlots      uint32

	// bootEpoch is the high 32 bits of every client id issued by this
	// server instance.
	bootEpoch     uint32
	nextClientSeq atomic.Uint32

	grace *GracePeriod
	store ClientStore

	metrics         *SessionMetrics
	sequenceMetrics *SequenceMetrics

	now     func() time.Time
	closing atomic.Bool

	reaperMu     sync.Mutex
	reaperCancel context.CancelFunc
	reaperDone   chan struct{}
}

// NewStateManager creates an empty registry.
func NewStateManager(cfg Config) *StateManager {
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = DefaultLeaseDuration
	}
	if cfg.SessionCacheSize <= 0 {
		cfg.SessionCacheSize = DefaultSessionCacheSize
	}
	if cfg.SessionTTLFactor <= 0 {
		cfg.SessionTTLFactor = DefaultSessionTTLFactor
	}
	if cfg.MaxSlots == 0 || cfg.MaxSlots > DefaultMaxSlots {
		cfg.MaxSlots = DefaultMaxSlots
	}

	sm := &StateManager{
		clientsByID:       make(map[uint64]*Client),
		clientsByOwner:    make(map[string]*Client),
		clientsByVerifier: make(map[string]*Client),
		leaseDuration:     cfg.LeaseDuration,
		maxSlots:          cfg.MaxSlots,
		bootEpoch:         uint32(time.Now().Unix()),
		store:             cfg.Store,
		metrics:           NewSessionMetrics(cfg.Registerer),
		sequenceMetrics:   NewSequenceMetrics(cfg.Registerer),
		now:               time.Now,
	}
	sm.sessions = newSessionCache(cfg.SessionCacheSize,
		time.Duration(cfg.SessionTTLFactor)*cfg.LeaseDuration, sm.onSessionEvicted)
	sm.grace = NewGracePeriod(cfg.GracePeriod, sm.pruneStore)

	return sm
}

// LeaseDuration returns the configured lease.
func (sm *StateManager) LeaseDuration() time.Duration { return sm.leaseDuration }

// BootEpoch returns the epoch used as the high half of client ids.
func (sm *StateManager) BootEpoch() uint32 { return sm.bootEpoch }

// SequenceMetrics returns the SEQUENCE metrics shared with the handlers.
func (sm *StateManager) SequenceMetrics() *SequenceMetrics { return sm.sequenceMetrics }

// Grace returns the grace period tracker.
func (sm *StateManager) Grace() *GracePeriod { return sm.grace }

// NewClientID issues a client id: boot epoch in the high 32 bits, a
// monotonic counter in the low 32 bits.
func (sm *StateManager) NewClientID() uint64 {
	return uint64(sm.bootEpoch)<<32 | uint64(sm.nextClientSeq.Add(1))
}

// ============================================================================
// Client indexes
// ============================================================================

// AddClient indexes c by server id, owner and verifier in one step.
func (sm *StateManager) AddClient(c *Client) {
	sm.mu.Lock()
	sm.addClientLocked(c)
	sm.mu.Unlock()

	sm.metrics.recordClientCreated()

	logger.Debug("Client added",
		logger.KeyClientID, c.id,
		logger.KeyOwner, c.owner)
}

// addClientLocked starts the lease before c becomes visible, so the reaper
// never sees a freshly indexed client as expired.
func (sm *StateManager) addClientLocked(c *Client) {
	c.renewLease(sm.now(), sm.leaseDuration)
	sm.clientsByID[c.id] = c
	sm.clientsByOwner[c.owner] = c
	if len(c.verifier) > 0 {
		sm.clientsByVerifier[string(c.verifier)] = c
	}
}

// RemoveClient drops every session of c from the session cache, then
// removes c from every index. In-flight requests still holding c fail
// their next registry lookup.
func (sm *StateManager) RemoveClient(c *Client) {
	sm.removeClient(c, ReasonClientRequest)
}

func (sm *StateManager) removeClient(c *Client, reason string) {
	sm.mu.Lock()
	indexed := sm.removeClientLocked(c, reason)
	sm.mu.Unlock()

	if indexed {
		sm.finishRemoval(c, reason)
	}
}

// removeClientLocked removes c from the cache and indexes. It reports
// whether c was still registered under its id.
func (sm *StateManager) removeClientLocked(c *Client, reason string) bool {
	for _, s := range c.detachSessions() {
		sm.dropSessionLocked(s, reason)
	}

	indexed := sm.clientsByID[c.id] == c
	if indexed {
		delete(sm.clientsByID, c.id)
	}
	if sm.clientsByOwner[c.owner] == c {
		delete(sm.clientsByOwner, c.owner)
	}
	if len(c.verifier) > 0 && sm.clientsByVerifier[string(c.verifier)] == c {
		delete(sm.clientsByVerifier, string(c.verifier))
	}
	return indexed
}

// finishRemoval runs the side effects of a removal outside sm.mu.
func (sm *StateManager) finishRemoval(c *Client, reason string) {
	c.removed.Store(true)
	sm.metrics.recordClientRemoved(reason)

	logger.Info("Client removed",
		logger.KeyClientID, c.id,
		logger.KeyOwner, c.owner,
		logger.KeyReason, reason)

	if sm.store == nil || !c.IsConfirmed() || reason == ReasonClientReboot {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := sm.store.DeleteClient(ctx, c.owner); err != nil {
		logger.Warn("Failed to delete persisted client",
			logger.KeyClientID, c.id,
			logger.KeyError, err)
	}
}

// GetClientByServerID looks up a client by its server-assigned id.
func (sm *StateManager) GetClientByServerID(id uint64) (*Client, error) {
	sm.mu.RLock()
	c, ok := sm.clientsByID[id]
	sm.mu.RUnlock()

	if !ok {
		return nil, newStateError(types.NFS4ERR_STALE_CLIENTID, "client %#x not found", id)
	}
	return c, nil
}

// GetClientByStateID resolves the client embedded in a stateid. Any lookup
// failure is reported as BAD_STATEID to the presenter of the stateid.
func (sm *StateManager) GetClientByStateID(sid types.Stateid4) (*Client, error) {
	c, err := sm.GetClientByServerID(ClientIDFromOther(sid.Other))
	if err != nil {
		return nil, newStateError(types.NFS4ERR_BAD_STATEID, "bad stateid %s: %v", sid, err)
	}
	return c, nil
}

// GetClientByVerifier looks up a client by verifier content.
func (sm *StateManager) GetClientByVerifier(verifier []byte) (*Client, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	c, ok := sm.clientsByVerifier[string(verifier)]
	return c, ok
}

// RegisterVerifier indexes c under verifier, replacing any previous entry.
func (sm *StateManager) RegisterVerifier(verifier []byte, c *Client) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.clientsByVerifier[string(verifier)] = c
}

// ClientByOwner looks up a client by owner string.
func (sm *StateManager) ClientByOwner(owner string) (*Client, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	c, ok := sm.clientsByOwner[owner]
	return c, ok
}

// ListClients returns a snapshot of all clients. The slice is owned by the
// caller and unaffected by later registry changes.
func (sm *StateManager) ListClients() []*Client {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]*Client, 0, len(sm.clientsByID))
	for _, c := range sm.clientsByID {
		out = append(out, c)
	}
	return out
}

// ============================================================================
// Sessions
// ============================================================================

// SessionByID looks up a live session. Sessions idle past the cache
// lifetime are not found.
func (sm *StateManager) SessionByID(id types.SessionId4) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions.get(id)
}

// BindSession inserts a session into the session cache.
func (sm *StateManager) BindSession(id types.SessionId4, s *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions.lru.Add(id, s)
}

// TouchSession restarts the idle timer of a session still in the cache.
func (sm *StateManager) TouchSession(s *Session) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if s.Evicted() {
		return
	}
	sm.sessions.put(s)
	// The sweeper may have evicted s between the check and the put.
	if s.Evicted() {
		sm.sessions.remove(s.ID())
	}
}

// ListSessions returns a snapshot of the cached sessions.
func (sm *StateManager) ListSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions.values()
}

// dropSessionLocked marks a session destroyed and removes it from the cache.
func (sm *StateManager) dropSessionLocked(s *Session, reason string) {
	if s.evicted.CompareAndSwap(false, true) {
		sm.metrics.recordSessionDestroyed(reason, time.Since(s.createdAt).Seconds())
	}
	sm.sessions.remove(s.ID())
}

// onSessionEvicted runs under the cache lock for every entry leaving the
// cache. Explicit removals have already marked the session.
func (sm *StateManager) onSessionEvicted(s *Session) {
	if !s.evicted.CompareAndSwap(false, true) || sm.closing.Load() {
		return
	}
	sm.metrics.recordSessionDestroyed(ReasonIdleEvict, time.Since(s.createdAt).Seconds())
	logger.Debug("Session evicted from cache",
		logger.KeySessionID, s.id.String(),
		logger.KeyClientID, s.clientID)
}

// ============================================================================
// Leases and states
// ============================================================================

// RenewLease extends the lease of c to now + lease duration.
func (sm *StateManager) RenewLease(c *Client) {
	c.renewLease(sm.now(), sm.leaseDuration)
}

// UpdateLeaseTime renews the lease of the client owning the state named by
// sid. The client and the state must exist and the state must be
// confirmed; otherwise BAD_STATEID is returned and no lease changes.
func (sm *StateManager) UpdateLeaseTime(sid types.Stateid4) error {
	c, err := sm.GetClientByStateID(sid)
	if err != nil {
		return err
	}
	st, ok := c.State(sid.Other)
	if !ok {
		return newStateError(types.NFS4ERR_BAD_STATEID, "no state for stateid %s", sid)
	}
	if !st.IsConfirmed() {
		return newStateError(types.NFS4ERR_BAD_STATEID, "stateid %s not confirmed", sid)
	}
	sm.RenewLease(c)
	return nil
}

// CreateState creates a state owned by c. During the grace period only
// reclaims by clients known before the restart are allowed.
func (sm *StateManager) CreateState(c *Client, initialSeqid uint32, reclaim bool) (*State, error) {
	if err := sm.grace.Check(reclaim); err != nil {
		return nil, err
	}
	if reclaim && !sm.grace.Expected(c.owner) {
		return nil, ErrNoGrace
	}
	if c.removed.Load() {
		return nil, ErrStaleClientID
	}

	st := NewState(c.id, initialSeqid)
	c.addState(st)

	logger.Debug("State created",
		logger.KeyClientID, c.id,
		logger.KeyStateid, st.Stateid().String())
	return st, nil
}

// LookupState resolves a stateid to its owning client and state.
func (sm *StateManager) LookupState(sid types.Stateid4) (*Client, *State, error) {
	c, err := sm.GetClientByStateID(sid)
	if err != nil {
		return nil, nil, err
	}
	st, ok := c.State(sid.Other)
	if !ok {
		return nil, nil, newStateError(types.NFS4ERR_BAD_STATEID, "no state for stateid %s", sid)
	}
	return c, st, nil
}

// ConfirmState latches the state named by sid as confirmed, which makes
// it eligible for lease renewal through UpdateLeaseTime.
func (sm *StateManager) ConfirmState(sid types.Stateid4) error {
	_, st, err := sm.LookupState(sid)
	if err != nil {
		return err
	}
	st.Confirm()
	return nil
}

// BumpState increments the seqid of the state named by sid and returns
// the new stateid.
func (sm *StateManager) BumpState(sid types.Stateid4) (types.Stateid4, error) {
	_, st, err := sm.LookupState(sid)
	if err != nil {
		return types.Stateid4{}, err
	}
	st.Bump()
	return st.Stateid(), nil
}

// TestStateid reports the status TEST_STATEID gives for sid. Special
// stateids never name testable state. A zero seqid matches the current
// seqid of the state.
func (sm *StateManager) TestStateid(sid types.Stateid4) uint32 {
	if sid.Other == otherAllZeros || sid.Other == otherAllOnes {
		return types.NFS4ERR_BAD_STATEID
	}
	_, st, err := sm.LookupState(sid)
	if err != nil {
		return StatusOf(err)
	}
	cur := st.Seqid()
	switch {
	case sid.Seqid == 0 || sid.Seqid == cur:
		return types.NFS4_OK
	case sid.Seqid < cur:
		return types.NFS4ERR_OLD_STATEID
	default:
		return types.NFS4ERR_BAD_STATEID
	}
}

// ReleaseState removes the state named by sid from its client.
func (sm *StateManager) ReleaseState(sid types.Stateid4) error {
	c, err := sm.GetClientByStateID(sid)
	if err != nil {
		return err
	}
	if !c.removeState(sid.Other) {
		return newStateError(types.NFS4ERR_BAD_STATEID, "no state for stateid %s", sid)
	}
	return nil
}

// ============================================================================
// Lifecycle
// ============================================================================

// Recover loads the clients persisted by a previous instance and starts
// the grace period for them.
func (sm *StateManager) Recover(ctx context.Context) error {
	if sm.store == nil {
		return nil
	}
	recs, err := sm.store.ListClients(ctx)
	if err != nil {
		return err
	}

	owners := make([]string, 0, len(recs))
	for _, r := range recs {
		owners = append(owners, r.Owner)
	}
	sm.grace.Start(owners)
	return nil
}

// pruneStore drops persisted records of clients that did not come back
// before the grace period ended.
func (sm *StateManager) pruneStore() {
	if sm.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	recs, err := sm.store.ListClients(ctx)
	if err != nil {
		logger.Warn("Failed to list persisted clients", logger.KeyError, err)
		return
	}
	for _, r := range recs {
		if c, ok := sm.ClientByOwner(r.Owner); ok && c.IsConfirmed() {
			continue
		}
		if err := sm.store.DeleteClient(ctx, r.Owner); err != nil {
			logger.Warn("Failed to prune persisted client",
				logger.KeyOwner, r.Owner,
				logger.KeyError, err)
		}
	}
}

// Shutdown stops the reaper and the grace timer and releases every
// session. The manager must not be used afterwards.
func (sm *StateManager) Shutdown() {
	sm.StopReaper()
	sm.grace.Stop()

	sm.closing.Store(true)
	sm.mu.Lock()
	sm.sessions.purge()
	sm.mu.Unlock()
}
