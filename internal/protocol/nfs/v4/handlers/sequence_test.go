package handlers

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

func TestSequence_Proceed(t *testing.T) {
	h, calls := newTestHandler(t)
	clientID, sid := setupSession(t, h, "client-a")

	ctx := newCtx()
	resp := runCtx(t, h, ctx, seqOp(sid, 3, 1, false), counterOp())
	requireOK(t, resp)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, int32(1), calls.Load())

	var res types.SequenceRes
	decodeBody(t, resp.Results[0], &res)
	assert.Equal(t, sid, res.SessionID)
	assert.Equal(t, uint32(1), res.SequenceID, "seqid is echoed, not incremented")
	assert.Equal(t, uint32(3), res.SlotID)
	assert.Equal(t, uint32(7), res.HighestSlotID)
	assert.Equal(t, uint32(7), res.TargetHighestSlotID)
	assert.Zero(t, res.StatusFlags)

	require.NotNil(t, ctx.Session)
	require.NotNil(t, ctx.Client)
	assert.Equal(t, sid, ctx.Session.ID())
	assert.Equal(t, clientID, ctx.Client.ID())
	require.NotNil(t, ctx.Sequence)
	assert.Equal(t, uint32(3), ctx.Sequence.SlotID)
}

func TestSequence_ReplayReturnsCachedResults(t *testing.T) {
	h, calls := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	first := run(t, h, seqOp(sid, 0, 1, true), counterOp())
	requireOK(t, first)

	replay := run(t, h, seqOp(sid, 0, 1, true), counterOp())
	assert.True(t, replay.Replay)
	assert.Equal(t, first.Results, replay.Results)
	assert.Equal(t, first.Status, replay.Status)
	assert.Equal(t, int32(1), calls.Load(), "replayed ops must not execute")

	m := h.StateManager.SequenceMetrics()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SequenceTotal.WithLabelValues("replay")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReplayHitsTotal))
}

func TestSequence_ReplayOfFailedCompound(t *testing.T) {
	h, _ := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	first := run(t, h, seqOp(sid, 0, 1, true), types.Op{OpCode: types.OP_WRITE})
	requireStatus(t, types.NFS4ERR_NOTSUPP, first.Status)

	replay := run(t, h, seqOp(sid, 0, 1, true), counterOp())
	assert.True(t, replay.Replay)
	requireStatus(t, types.NFS4ERR_NOTSUPP, replay.Status)
	assert.Equal(t, first.Results, replay.Results)
}

func TestSequence_RetryUncached(t *testing.T) {
	h, calls := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	requireOK(t, run(t, h, seqOp(sid, 0, 1, false), counterOp()))

	resp := run(t, h, seqOp(sid, 0, 1, false), counterOp())
	requireStatus(t, types.NFS4ERR_RETRY_UNCACHED_REP, resp.Status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSequence_Misordered(t *testing.T) {
	h, _ := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	requireOK(t, run(t, h, seqOp(sid, 0, 1, false)))

	for _, seq := range []uint32{3, 0, 100} {
		resp := run(t, h, seqOp(sid, 0, seq, false))
		requireStatus(t, types.NFS4ERR_SEQ_MISORDERED, resp.Status)
	}
	requireOK(t, run(t, h, seqOp(sid, 0, 2, false)))
}

func TestSequence_BadSlot(t *testing.T) {
	h, _ := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	resp := run(t, h, seqOp(sid, 8, 1, false))
	requireStatus(t, types.NFS4ERR_BADSLOT, resp.Status)
}

func TestSequence_NotFirst(t *testing.T) {
	h, _ := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	t.Run("after SEQUENCE", func(t *testing.T) {
		resp := run(t, h, seqOp(sid, 0, 1, false), seqOp(sid, 1, 1, false))
		requireStatus(t, types.NFS4ERR_SEQUENCE_POS, resp.Status)
		require.Len(t, resp.Results, 2)
		requireStatus(t, types.NFS4ERR_SEQUENCE_POS, resp.Results[1].Status)
	})

	t.Run("after exempt op", func(t *testing.T) {
		resp := run(t, h,
			types.Op{OpCode: types.OP_EXCHANGE_ID, Args: &types.ExchangeIdArgs{OwnerID: []byte("other")}},
			seqOp(sid, 2, 1, false))
		requireStatus(t, types.NFS4ERR_SEQUENCE_POS, resp.Status)
		_, found := h.StateManager.ClientByOwner("other")
		assert.False(t, found)
	})

	t.Run("invalid session", func(t *testing.T) {
		resp := run(t, h, seqOp(sid, 0, 2, false), seqOp(types.SessionId4{}, 0, 1, false))
		requireStatus(t, types.NFS4ERR_SEQUENCE_POS, resp.Status)
	})
}

func TestSequence_BadSession(t *testing.T) {
	h, calls := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	resp := run(t, h, seqOp(types.SessionId4{0xde, 0xad}, 0, 1, false), counterOp())
	requireStatus(t, types.NFS4ERR_BADSESSION, resp.Status)
	require.Len(t, resp.Results, 1)

	requireOK(t, run(t, h, types.Op{OpCode: types.OP_DESTROY_SESSION, Args: &types.DestroySessionArgs{SessionID: sid}}))
	resp = run(t, h, seqOp(sid, 0, 1, false), counterOp())
	requireStatus(t, types.NFS4ERR_BADSESSION, resp.Status)
	assert.Zero(t, calls.Load())
}

func TestSequence_BadSessionAfterClientEvicted(t *testing.T) {
	h, _ := newTestHandler(t)
	clientID, sid := setupSession(t, h, "client-a")

	require.NoError(t, h.StateManager.EvictClient(clientID))
	resp := run(t, h, seqOp(sid, 0, 1, false))
	requireStatus(t, types.NFS4ERR_BADSESSION, resp.Status)
}

func TestSequence_RenewsLease(t *testing.T) {
	h, _ := newTestHandler(t)
	clientID, sid := setupSession(t, h, "client-a")

	c, err := h.StateManager.GetClientByServerID(clientID)
	require.NoError(t, err)
	before := c.LeaseExpiry()

	time.Sleep(5 * time.Millisecond)
	requireOK(t, run(t, h, seqOp(sid, 0, 1, false)))
	assert.True(t, c.LeaseExpiry().After(before))
}

func TestSequence_SkipSlotTracking(t *testing.T) {
	h, calls := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	for range 3 {
		ctx := newCtx()
		ctx.SkipSlotTracking = true
		requireOK(t, runCtx(t, h, ctx, seqOp(sid, 0, 1, true), counterOp()))
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestSequence_ConcurrentSameSlot(t *testing.T) {
	h, calls := newTestHandler(t)
	_, sid := setupSession(t, h, "client-a")

	block := make(chan struct{})
	const slow = types.OP_LOOKUP
	h.RegisterOp(slow, func(*CompoundContext, any) *types.CompoundResult {
		<-block
		return statusResult(slow, types.NFS4_OK)
	})

	done := make(chan *CompoundResponse, 1)
	go func() {
		resp, _ := h.ProcessCompound(newCtx(), nil, []types.Op{seqOp(sid, 0, 1, true), {OpCode: slow}, counterOp()})
		done <- resp
	}()

	// While the first request holds the slot, a retransmission gets DELAY.
	require.Eventually(t, func() bool {
		return h.StateManager.ListSessions()[0].ForeChannelSlots.SlotsInUse() == 1
	}, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.ProcessCompound(newCtx(), nil, []types.Op{seqOp(sid, 0, 1, true), counterOp()})
			assert.NoError(t, err)
			assert.Equal(t, types.StatusName(types.NFS4ERR_DELAY), types.StatusName(resp.Status))
		}()
	}
	wg.Wait()

	close(block)
	requireOK(t, <-done)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSequence_ReclaimNeededFlag(t *testing.T) {
	h, _ := newTestHandlerWithConfig(t, state.Config{GracePeriod: time.Minute})
	_, sid := setupSession(t, h, "client-a")

	h.StateManager.Grace().Start([]string{"client-a"})

	resp := run(t, h, seqOp(sid, 0, 1, false))
	requireOK(t, resp)
	var res types.SequenceRes
	decodeBody(t, resp.Results[0], &res)
	assert.Equal(t, uint32(types.SEQ4_STATUS_RESTART_RECLAIM_NEEDED), res.StatusFlags)

	requireOK(t, run(t, h, seqOp(sid, 0, 2, false),
		types.Op{OpCode: types.OP_RECLAIM_COMPLETE, Args: &types.ReclaimCompleteArgs{}}))
	assert.False(t, h.StateManager.Grace().InGrace())

	resp = run(t, h, seqOp(sid, 0, 3, false))
	decodeBody(t, resp.Results[0], &res)
	assert.Zero(t, res.StatusFlags)
}
