package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/handlers"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
	"github.com/marmos91/nfs4state/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.API.Enabled = false
	cfg.Store.Enabled = true
	cfg.Store.Path = t.TempDir()
	cfg.State.GracePeriod = time.Minute
	return cfg
}

func compound(t *testing.T, srv *Server, ops ...types.Op) *handlers.CompoundResponse {
	t.Helper()
	ctx := handlers.NewCompoundContext(context.Background(), "10.1.1.1:800")
	resp, err := srv.CompoundHandler().ProcessCompound(ctx, nil, ops)
	require.NoError(t, err)
	require.Equal(t, types.StatusName(types.NFS4_OK), types.StatusName(resp.Status))
	return resp
}

// mount runs EXCHANGE_ID and CREATE_SESSION for owner.
func mount(t *testing.T, srv *Server, owner string) types.SessionId4 {
	t.Helper()

	resp := compound(t, srv, types.Op{OpCode: types.OP_EXCHANGE_ID, Args: &types.ExchangeIdArgs{
		OwnerID:  []byte(owner),
		Verifier: types.Verifier4{7},
	}})
	var eid types.ExchangeIdRes
	require.NoError(t, types.DecodeResult(resp.Results[0].Data[4:], &eid))

	resp = compound(t, srv, types.Op{OpCode: types.OP_CREATE_SESSION, Args: &types.CreateSessionArgs{
		ClientID:    eid.ClientID,
		SequenceID:  eid.SequenceID,
		ForeChannel: types.ChannelAttrs{MaxRequests: 4, MaxOperations: 8},
	}})
	var cs types.CreateSessionRes
	require.NoError(t, types.DecodeResult(resp.Results[0].Data[4:], &cs))
	return cs.SessionID
}

func TestServer_CompoundPath(t *testing.T) {
	srv, err := New(testConfig(t), "")
	require.NoError(t, err)
	defer srv.Close()

	sid := mount(t, srv, "host-a")
	compound(t, srv, types.Op{OpCode: types.OP_SEQUENCE, Args: &types.SequenceArgs{
		SessionID: sid, SequenceID: 1,
	}})

	require.Len(t, srv.StateManager().ListClients(), 1)
	assert.Nil(t, srv.API(), "API disabled in config")
}

func TestServer_RestartStartsGracePeriod(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(cfg, "")
	require.NoError(t, err)
	mount(t, first, "host-a")
	mount(t, first, "host-b")
	first.Close()

	second, err := New(cfg, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- second.Serve(ctx) }()

	grace := second.StateManager().Grace()
	require.Eventually(t, grace.InGrace, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, grace.Status().ExpectedClients)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_WithoutStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Enabled = false
	cfg.Metrics.Enabled = false

	srv, err := New(cfg, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, srv.Serve(ctx))
	assert.False(t, srv.StateManager().Grace().InGrace())
}
