package state

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// State is one piece of server-held per-client state (open, lock or
// delegation) named by a stateid.
//
// Layout of the 12-byte "other" field:
//   - Bytes 0-7:  owning client's server-assigned id (big-endian)
//   - Bytes 8-11: cryptographically random value
//
// The "other" field is fixed at creation. Only the seqid moves, and the
// confirmation flag flips at most once.
type State struct {
	other     [types.NFS4_OTHER_SIZE]byte
	seqid     atomic.Uint32
	confirmed atomic.Bool
	createdAt time.Time
}

// NewState creates a state owned by clientID with the given initial seqid.
func NewState(clientID uint64, initialSeqid uint32) *State {
	s := &State{createdAt: time.Now()}
	binary.BigEndian.PutUint64(s.other[0:8], clientID)
	// crypto/rand.Read never returns an error.
	_, _ = rand.Read(s.other[8:])
	s.seqid.Store(initialSeqid)
	return s
}

// Stateid returns the wire stateid with the current seqid.
func (s *State) Stateid() types.Stateid4 {
	return types.Stateid4{Seqid: s.seqid.Load(), Other: s.other}
}

// Other returns the opaque identifier.
func (s *State) Other() [types.NFS4_OTHER_SIZE]byte {
	return s.other
}

// Seqid returns the current sequence number.
func (s *State) Seqid() uint32 {
	return s.seqid.Load()
}

// Bump increments the seqid after a state-mutating operation and returns
// the new value.
func (s *State) Bump() uint32 {
	return s.seqid.Add(1)
}

// Confirm latches the state as confirmed.
func (s *State) Confirm() {
	s.confirmed.Store(true)
}

// IsConfirmed reports whether Confirm has been called.
func (s *State) IsConfirmed() bool {
	return s.confirmed.Load()
}

// ClientID returns the id of the owning client, decoded from the identifier.
func (s *State) ClientID() uint64 {
	return ClientIDFromOther(s.other)
}

// ClientIDFromOther extracts the issuing client id embedded in a stateid's
// opaque identifier.
func ClientIDFromOther(other [types.NFS4_OTHER_SIZE]byte) uint64 {
	return binary.BigEndian.Uint64(other[0:8])
}
