package handlers

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// opCounter is a data-plane operation stub that counts its executions.
const opCounter = types.OP_GETATTR

func newTestHandler(t *testing.T) (*Handler, *atomic.Int32) {
	t.Helper()
	return newTestHandlerWithConfig(t, state.Config{})
}

func newTestHandlerWithConfig(t *testing.T, cfg state.Config) (*Handler, *atomic.Int32) {
	t.Helper()
	cfg.Registerer = prometheus.NewRegistry()
	sm := state.NewStateManager(cfg)
	t.Cleanup(sm.Shutdown)

	h := NewHandler(sm)
	var calls atomic.Int32
	h.RegisterOp(opCounter, func(ctx *CompoundContext, _ any) *types.CompoundResult {
		calls.Add(1)
		return statusResult(opCounter, types.NFS4_OK)
	})
	return h, &calls
}

func newCtx() *CompoundContext {
	return NewCompoundContext(context.Background(), "192.168.1.10:900")
}

func run(t *testing.T, h *Handler, ops ...types.Op) *CompoundResponse {
	t.Helper()
	return runCtx(t, h, newCtx(), ops...)
}

func runCtx(t *testing.T, h *Handler, ctx *CompoundContext, ops ...types.Op) *CompoundResponse {
	t.Helper()
	resp, err := h.ProcessCompound(ctx, []byte("test"), ops)
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

// setupSession runs EXCHANGE_ID and CREATE_SESSION through the COMPOUND
// loop and returns the client id and session id.
func setupSession(t *testing.T, h *Handler, owner string) (uint64, types.SessionId4) {
	t.Helper()

	resp := run(t, h, types.Op{OpCode: types.OP_EXCHANGE_ID, Args: &types.ExchangeIdArgs{
		OwnerID:  []byte(owner),
		Verifier: types.Verifier4{1},
	}})
	requireOK(t, resp)
	var eid types.ExchangeIdRes
	decodeBody(t, resp.Results[0], &eid)

	resp = run(t, h, types.Op{OpCode: types.OP_CREATE_SESSION, Args: &types.CreateSessionArgs{
		ClientID:    eid.ClientID,
		SequenceID:  eid.SequenceID,
		ForeChannel: types.ChannelAttrs{MaxRequests: 8, MaxOperations: 16},
	}})
	requireOK(t, resp)
	var cs types.CreateSessionRes
	decodeBody(t, resp.Results[0], &cs)

	return eid.ClientID, cs.SessionID
}

func seqOp(sid types.SessionId4, slot, seq uint32, cache bool) types.Op {
	return types.Op{OpCode: types.OP_SEQUENCE, Args: &types.SequenceArgs{
		SessionID:     sid,
		SequenceID:    seq,
		SlotID:        slot,
		HighestSlotID: slot,
		CacheThis:     cache,
	}}
}

func counterOp() types.Op {
	return types.Op{OpCode: opCounter}
}

func requireOK(t *testing.T, resp *CompoundResponse) {
	t.Helper()
	require.Equal(t, types.StatusName(types.NFS4_OK), types.StatusName(resp.Status))
}

func requireStatus(t *testing.T, want, got uint32) {
	t.Helper()
	require.Equal(t, types.StatusName(want), types.StatusName(got))
}

// decodeBody decodes the body that follows the status word of a result.
func decodeBody(t *testing.T, res types.CompoundResult, v any) {
	t.Helper()
	require.GreaterOrEqual(t, len(res.Data), 4)
	require.NoError(t, types.DecodeResult(res.Data[4:], v))
}
