package state

import (
	"sync"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

const (
	// DefaultMaxSlots bounds the fore channel slot count of a session.
	// Each slot may pin a cached reply, so this bounds memory per session.
	DefaultMaxSlots uint32 = 64

	// MinSlots is the minimum number of slots per session.
	MinSlots uint32 = 1
)

// SlotOutcome is the decision the slot table takes for a presented seqid.
type SlotOutcome int

const (
	// SlotProceed means a new in-order request: execute it.
	SlotProceed SlotOutcome = iota

	// SlotReplay means a retransmission of the last completed request:
	// do not execute, send the cached reply back.
	SlotReplay
)

func (o SlotOutcome) String() string {
	if o == SlotReplay {
		return "replay"
	}
	return "proceed"
}

// Slot is one sequencing position of a session.
type Slot struct {
	// SeqID is the last sequence id accepted on this slot. A fresh slot
	// starts at 0, so the first valid request carries 1.
	SeqID uint32

	// InUse marks a request still being processed on this slot.
	InUse bool

	// Reply is the cached result list of the request identified by SeqID.
	// nil when the client did not ask for the reply to be cached.
	Reply []types.CompoundResult
}

// SlotTable is the fixed-size slot table of a session (RFC 8881 Section 2.10.6).
//
// Each table has its own mutex so that SEQUENCE processing does not contend
// on the registry lock. Requests on one slot are serialized; distinct slots
// proceed independently.
type SlotTable struct {
	mu sync.Mutex

	slots []Slot

	// targetHighestSlotID is returned as sr_target_highest_slotid so the
	// client can scale its parallelism down under pressure.
	targetHighestSlotID uint32
}

// NewSlotTable creates a table of numSlots slots, clamped to
// [MinSlots, DefaultMaxSlots].
func NewSlotTable(numSlots uint32) *SlotTable {
	if numSlots < MinSlots {
		numSlots = MinSlots
	}
	if numSlots > DefaultMaxSlots {
		numSlots = DefaultMaxSlots
	}
	return &SlotTable{
		slots:               make([]Slot, numSlots),
		targetHighestSlotID: numSlots - 1,
	}
}

// UpdateSlot runs the slot algorithm for (slotID, seqID):
//   - seqID == last+1: new request. The slot advances and reply becomes the
//     cached reply. Returns SlotProceed.
//   - seqID == last: retransmission. Returns SlotReplay together with the
//     cached reply, or ErrRetryUncachedRep when nothing was cached.
//   - anything else: ErrSeqMisordered.
//
// A slotID beyond the highest slot fails with ErrBadSlot. On error the
// slot is left untouched.
func (st *SlotTable) UpdateSlot(slotID, seqID uint32, reply []types.CompoundResult) (SlotOutcome, []types.CompoundResult, error) {
	return st.update(slotID, seqID, reply, false)
}

// AcquireSlot is UpdateSlot for request processing: a proceed also marks
// the slot in use until ReleaseSlot, and any request that arrives on a slot
// still in use is told to retry later with ErrDelay.
func (st *SlotTable) AcquireSlot(slotID, seqID uint32) (SlotOutcome, []types.CompoundResult, error) {
	return st.update(slotID, seqID, nil, true)
}

func (st *SlotTable) update(slotID, seqID uint32, reply []types.CompoundResult, track bool) (SlotOutcome, []types.CompoundResult, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if slotID >= uint32(len(st.slots)) {
		return SlotProceed, nil, ErrBadSlot
	}
	slot := &st.slots[slotID]

	if track && slot.InUse {
		return SlotProceed, nil, ErrDelay
	}

	switch seqID {
	case slot.SeqID + 1:
		slot.SeqID = seqID
		slot.Reply = types.CloneResults(reply)
		slot.InUse = track
		return SlotProceed, nil, nil

	case slot.SeqID:
		if slot.Reply == nil {
			return SlotReplay, nil, ErrRetryUncachedRep
		}
		return SlotReplay, types.CloneResults(slot.Reply), nil

	default:
		return SlotProceed, nil, ErrSeqMisordered
	}
}

// ReleaseSlot ends the request acquired with AcquireSlot. When cache is set
// the final results become the slot's cached reply; otherwise the slot keeps
// no reply and a retransmission gets ErrRetryUncachedRep.
//
// A release for a seqid the slot no longer holds is ignored.
func (st *SlotTable) ReleaseSlot(slotID, seqID uint32, results []types.CompoundResult, cache bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if slotID >= uint32(len(st.slots)) {
		return
	}
	slot := &st.slots[slotID]
	if slot.SeqID != seqID {
		return
	}

	slot.InUse = false
	if cache {
		slot.Reply = types.CloneResults(results)
		if slot.Reply == nil {
			slot.Reply = []types.CompoundResult{}
		}
	} else {
		slot.Reply = nil
	}
}

// HighestSlotID returns the highest valid slot index.
func (st *SlotTable) HighestSlotID() uint32 {
	return uint32(len(st.slots)) - 1
}

// SetTargetHighestSlotID sets the slot id the server wants the client to
// stay at or below, clamped to the table size.
func (st *SlotTable) SetTargetHighestSlotID(target uint32) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if highest := uint32(len(st.slots)) - 1; target > highest {
		target = highest
	}
	st.targetHighestSlotID = target
}

// TargetHighestSlotID returns the server's desired maximum slot id.
func (st *SlotTable) TargetHighestSlotID() uint32 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.targetHighestSlotID
}

// MaxSlots returns the number of slots. Immutable after creation.
func (st *SlotTable) MaxSlots() uint32 {
	return uint32(len(st.slots))
}

// SlotsInUse returns the number of slots with a request in flight.
func (st *SlotTable) SlotsInUse() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for i := range st.slots {
		if st.slots[i].InUse {
			n++
		}
	}
	return n
}

// LastSeqID returns the last accepted seqid of a slot.
func (st *SlotTable) LastSeqID(slotID uint32) (uint32, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if slotID >= uint32(len(st.slots)) {
		return 0, false
	}
	return st.slots[slotID].SeqID, true
}
