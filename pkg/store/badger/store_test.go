package badger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
)

func newTestStore(t *testing.T) *ClientStore {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestClientStore_PutGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &state.ClientRecord{
		Owner:       "linux-client-1",
		ClientID:    0x0000000100000001,
		Verifier:    []byte{1, 2, 3, 4, 5, 6, 7, 8},
		Addr:        "10.0.0.1:800",
		ConfirmedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.PutClient(ctx, rec))

	got, err := s.GetClient(ctx, rec.Owner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ClientID, got.ClientID)
	assert.Equal(t, rec.Verifier, got.Verifier)
	assert.True(t, rec.ConfirmedAt.Equal(got.ConfirmedAt))

	require.NoError(t, s.DeleteClient(ctx, rec.Owner))
	got, err = s.GetClient(ctx, rec.Owner)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is not an error.
	require.NoError(t, s.DeleteClient(ctx, rec.Owner))
}

func TestClientStore_PutReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutClient(ctx, &state.ClientRecord{Owner: "a", ClientID: 1}))
	require.NoError(t, s.PutClient(ctx, &state.ClientRecord{Owner: "a", ClientID: 2}))

	recs, err := s.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(2), recs[0].ClientID)
}

func TestClientStore_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, owner := range []string{"c", "a", "b"} {
		require.NoError(t, s.PutClient(ctx, &state.ClientRecord{Owner: owner}))
	}

	recs, err := s.ListClients(ctx)
	require.NoError(t, err)
	owners := make([]string, 0, len(recs))
	for _, r := range recs {
		owners = append(owners, r.Owner)
	}
	sort.Strings(owners)
	assert.Equal(t, []string{"a", "b", "c"}, owners)
}

func TestClientStore_RejectsEmptyOwner(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.PutClient(context.Background(), &state.ClientRecord{}))
}

func TestClientStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.PutClient(ctx, &state.ClientRecord{Owner: "a"}), context.Canceled)
	_, err := s.ListClients(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Healthcheck(ctx), context.Canceled)
}

func TestClientStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.PutClient(ctx, &state.ClientRecord{Owner: "persisted", ClientID: 7}))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetClient(ctx, "persisted")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(7), got.ClientID)
}

func TestClientStore_DrivesGracePeriod(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutClient(ctx, &state.ClientRecord{Owner: "returning"}))

	sm := state.NewStateManager(state.Config{GracePeriod: time.Minute, Store: s})
	defer sm.Shutdown()

	require.NoError(t, sm.Recover(ctx))
	assert.True(t, sm.Grace().InGrace())
	assert.True(t, sm.Grace().Expected("returning"))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
