package state

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

func TestNewSlotTable(t *testing.T) {
	t.Run("normal creation", func(t *testing.T) {
		st := NewSlotTable(8)
		assert.Equal(t, uint32(8), st.MaxSlots())
		assert.Equal(t, uint32(7), st.HighestSlotID())
		assert.Equal(t, uint32(7), st.TargetHighestSlotID())
	})

	t.Run("zero slots clamped to MinSlots", func(t *testing.T) {
		assert.Equal(t, MinSlots, NewSlotTable(0).MaxSlots())
	})

	t.Run("exceeds DefaultMaxSlots clamped", func(t *testing.T) {
		assert.Equal(t, DefaultMaxSlots, NewSlotTable(DefaultMaxSlots+100).MaxSlots())
	})
}

func TestUpdateSlot_ProceedThenReplay(t *testing.T) {
	st := NewSlotTable(4)
	reply := []types.CompoundResult{{Status: types.NFS4_OK, OpCode: types.OP_SEQUENCE, Data: []byte{1, 2, 3}}}

	last, _ := st.LastSeqID(0)
	require.Equal(t, uint32(0), last)

	outcome, cached, err := st.UpdateSlot(0, last+1, reply)
	require.NoError(t, err)
	assert.Equal(t, SlotProceed, outcome)
	assert.Nil(t, cached)

	last, _ = st.LastSeqID(0)
	assert.Equal(t, uint32(1), last)

	outcome, cached, err = st.UpdateSlot(0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, SlotReplay, outcome)
	assert.Equal(t, reply, cached)

	_, _, err = st.UpdateSlot(0, 3, nil)
	requireStatus(t, err, types.NFS4ERR_SEQ_MISORDERED)

	last, _ = st.LastSeqID(0)
	assert.Equal(t, uint32(1), last, "rejected request must not move the slot")
}

func TestUpdateSlot_Misordered(t *testing.T) {
	st := NewSlotTable(2)
	_, _, err := st.UpdateSlot(1, 1, nil)
	require.NoError(t, err)
	_, _, err = st.UpdateSlot(1, 2, nil)
	require.NoError(t, err)

	for _, seq := range []uint32{0, 4, 0xffffffff} {
		_, _, err := st.UpdateSlot(1, seq, nil)
		requireStatus(t, err, types.NFS4ERR_SEQ_MISORDERED)
	}
}

func TestUpdateSlot_BadSlot(t *testing.T) {
	st := NewSlotTable(4)
	_, _, err := st.UpdateSlot(4, 1, nil)
	requireStatus(t, err, types.NFS4ERR_BADSLOT)
}

func TestUpdateSlot_UncachedRetry(t *testing.T) {
	st := NewSlotTable(1)
	_, _, err := st.UpdateSlot(0, 1, nil)
	require.NoError(t, err)

	outcome, _, err := st.UpdateSlot(0, 1, nil)
	assert.Equal(t, SlotReplay, outcome)
	requireStatus(t, err, types.NFS4ERR_RETRY_UNCACHED_REP)
}

func TestUpdateSlot_SeqIDWraps(t *testing.T) {
	st := NewSlotTable(1)
	st.slots[0].SeqID = 0xffffffff

	outcome, _, err := st.UpdateSlot(0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, SlotProceed, outcome)
}

func TestUpdateSlot_CachedReplyIsCopied(t *testing.T) {
	st := NewSlotTable(1)
	reply := []types.CompoundResult{{OpCode: types.OP_SEQUENCE, Data: []byte{7}}}
	_, _, err := st.UpdateSlot(0, 1, reply)
	require.NoError(t, err)

	reply[0].Data[0] = 0
	_, cached, err := st.UpdateSlot(0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, byte(7), cached[0].Data[0])
}

func TestAcquireRelease(t *testing.T) {
	st := NewSlotTable(2)

	outcome, _, err := st.AcquireSlot(0, 1)
	require.NoError(t, err)
	assert.Equal(t, SlotProceed, outcome)
	assert.Equal(t, 1, st.SlotsInUse())

	t.Run("retransmission while in flight is delayed", func(t *testing.T) {
		_, _, err := st.AcquireSlot(0, 1)
		requireStatus(t, err, types.NFS4ERR_DELAY)
	})

	t.Run("other slot is independent", func(t *testing.T) {
		outcome, _, err := st.AcquireSlot(1, 1)
		require.NoError(t, err)
		assert.Equal(t, SlotProceed, outcome)
		st.ReleaseSlot(1, 1, nil, false)
	})

	results := []types.CompoundResult{{Status: types.NFS4_OK, OpCode: types.OP_SEQUENCE}}
	st.ReleaseSlot(0, 1, results, true)
	assert.Equal(t, 0, st.SlotsInUse())

	outcome, cached, err := st.AcquireSlot(0, 1)
	require.NoError(t, err)
	assert.Equal(t, SlotReplay, outcome)
	assert.Equal(t, results, cached)

	t.Run("uncached release", func(t *testing.T) {
		_, _, err := st.AcquireSlot(0, 2)
		require.NoError(t, err)
		st.ReleaseSlot(0, 2, results, false)

		_, _, err = st.AcquireSlot(0, 2)
		requireStatus(t, err, types.NFS4ERR_RETRY_UNCACHED_REP)
	})

	t.Run("stale release ignored", func(t *testing.T) {
		_, _, err := st.AcquireSlot(0, 3)
		require.NoError(t, err)
		st.ReleaseSlot(0, 2, nil, true)
		assert.Equal(t, 1, st.SlotsInUse())
		st.ReleaseSlot(0, 3, nil, true)
	})
}

func TestAcquireSlot_ConcurrentSameSeqID(t *testing.T) {
	st := NewSlotTable(1)

	var proceeds atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, _, err := st.AcquireSlot(0, 1)
			if err == nil && outcome == SlotProceed {
				proceeds.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), proceeds.Load(), "exactly one request may proceed on a slot")
}

func TestSetTargetHighestSlotID(t *testing.T) {
	st := NewSlotTable(8)
	st.SetTargetHighestSlotID(3)
	assert.Equal(t, uint32(3), st.TargetHighestSlotID())

	st.SetTargetHighestSlotID(100)
	assert.Equal(t, uint32(7), st.TargetHighestSlotID())
}
