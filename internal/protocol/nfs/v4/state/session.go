package state

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// Session is an NFSv4.1 session: one ordered channel over a client identity.
//
// The owning client is referenced by id and resolved through the registry.
type Session struct {
	id        types.SessionId4
	clientID  uint64
	flags     uint32
	createdAt time.Time

	foreAttrs types.ChannelAttrs
	backAttrs types.ChannelAttrs

	// ForeChannelSlots sequences fore channel requests.
	ForeChannelSlots *SlotTable

	// evicted is set when the session cache drops the session. The lease
	// reaper detaches evicted sessions from their client.
	evicted atomic.Bool
}

// NewSession creates a session for clientID. The first 8 bytes of the
// session id carry the client id, the remaining 8 are random.
func NewSession(clientID uint64, fore, back types.ChannelAttrs, flags uint32) *Session {
	s := &Session{
		clientID:         clientID,
		flags:            flags,
		createdAt:        time.Now(),
		foreAttrs:        fore,
		backAttrs:        back,
		ForeChannelSlots: NewSlotTable(fore.MaxRequests),
	}
	binary.BigEndian.PutUint64(s.id[0:8], clientID)
	_, _ = rand.Read(s.id[8:])
	return s
}

// ID returns the session id.
func (s *Session) ID() types.SessionId4 { return s.id }

// ClientID returns the id of the owning client.
func (s *Session) ClientID() uint64 { return s.clientID }

// Flags returns the negotiated CREATE_SESSION flags.
func (s *Session) Flags() uint32 { return s.flags }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// ForeChannelAttrs returns the negotiated fore channel attributes.
func (s *Session) ForeChannelAttrs() types.ChannelAttrs { return s.foreAttrs }

// BackChannelAttrs returns the back channel attributes.
func (s *Session) BackChannelAttrs() types.ChannelAttrs { return s.backAttrs }

// Evicted reports whether the session cache dropped this session.
func (s *Session) Evicted() bool { return s.evicted.Load() }

// SessionInfo is a point-in-time description of a session for the admin API.
type SessionInfo struct {
	SessionID   string    `json:"session_id"`
	ClientID    uint64    `json:"client_id"`
	CreatedAt   time.Time `json:"created_at"`
	Slots       uint32    `json:"slots"`
	SlotsInUse  int       `json:"slots_in_use"`
	TargetSlots uint32    `json:"target_highest_slot"`
}

// Info returns a snapshot of the session for reporting.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		SessionID:   s.id.String(),
		ClientID:    s.clientID,
		CreatedAt:   s.createdAt,
		Slots:       s.ForeChannelSlots.MaxSlots(),
		SlotsInUse:  s.ForeChannelSlots.SlotsInUse(),
		TargetSlots: s.ForeChannelSlots.TargetHighestSlotID(),
	}
}
