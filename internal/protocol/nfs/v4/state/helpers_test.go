package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

func newTestManager(t *testing.T, cfg Config) *StateManager {
	t.Helper()
	sm := NewStateManager(cfg)
	t.Cleanup(sm.Shutdown)
	return sm
}

// newConfirmedClient runs EXCHANGE_ID + CREATE_SESSION and returns the
// confirmed client and its session.
func newConfirmedClient(t *testing.T, sm *StateManager, owner string) (*Client, *Session) {
	t.Helper()

	var verifier types.Verifier4
	copy(verifier[:], owner)
	res := sm.ExchangeID([]byte(owner), verifier, "", "127.0.0.1:1234")

	cs, err := sm.CreateSession(res.Client.ID(), res.SequenceID, types.ChannelAttrs{MaxRequests: 8}, types.ChannelAttrs{}, 0)
	require.NoError(t, err)

	s, ok := sm.SessionByID(cs.SessionID)
	require.True(t, ok)
	return res.Client, s
}

func requireStatus(t *testing.T, err error, status uint32) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, types.StatusName(status), types.StatusName(StatusOf(err)), "error: %v", err)
}

// memStore is an in-memory ClientStore.
type memStore struct {
	mu   sync.Mutex
	recs map[string]*ClientRecord
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]*ClientRecord)}
}

func (m *memStore) PutClient(_ context.Context, rec *ClientRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.recs[rec.Owner] = &cp
	return nil
}

func (m *memStore) DeleteClient(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, owner)
	return nil
}

func (m *memStore) ListClients(_ context.Context) ([]*ClientRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ClientRecord, 0, len(m.recs))
	for _, r := range m.recs {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) has(owner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recs[owner]
	return ok
}

// fakeClock is a settable clock for lease tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
