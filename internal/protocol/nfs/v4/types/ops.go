package types

// ============================================================================
// SEQUENCE (RFC 8881 Section 18.46)
// ============================================================================

// SequenceArgs represents SEQUENCE4args.
type SequenceArgs struct {
	SessionID     SessionId4
	SequenceID    uint32
	SlotID        uint32
	HighestSlotID uint32
	CacheThis     bool
}

// SequenceRes represents SEQUENCE4resok.
type SequenceRes struct {
	SessionID           SessionId4
	SequenceID          uint32
	SlotID              uint32
	HighestSlotID       uint32
	TargetHighestSlotID uint32
	StatusFlags         uint32
}

// ============================================================================
// EXCHANGE_ID (RFC 8881 Section 18.35)
// ============================================================================

// ExchangeIdArgs carries the client owner and verifier.
type ExchangeIdArgs struct {
	OwnerID  []byte
	Verifier Verifier4
	Flags    uint32
}

// ExchangeIdRes represents EXCHANGE_ID4resok without the server_owner and
// implementation id fields.
type ExchangeIdRes struct {
	ClientID   uint64
	SequenceID uint32
	Flags      uint32
}

// ============================================================================
// CREATE_SESSION (RFC 8881 Section 18.36)
// ============================================================================

// ChannelAttrs represents channel_attrs4.
type ChannelAttrs struct {
	HeaderPadSize         uint32
	MaxRequestSize        uint32
	MaxResponseSize       uint32
	MaxResponseSizeCached uint32
	MaxOperations         uint32
	MaxRequests           uint32
}

// CreateSessionArgs represents CREATE_SESSION4args.
type CreateSessionArgs struct {
	ClientID     uint64
	SequenceID   uint32
	Flags        uint32
	ForeChannel  ChannelAttrs
	BackChannel  ChannelAttrs
	CallbackProg uint32
}

// CreateSessionRes represents CREATE_SESSION4resok.
type CreateSessionRes struct {
	SessionID   SessionId4
	SequenceID  uint32
	Flags       uint32
	ForeChannel ChannelAttrs
	BackChannel ChannelAttrs
}

// ============================================================================
// DESTROY_SESSION / DESTROY_CLIENTID / RECLAIM_COMPLETE
// ============================================================================

// DestroySessionArgs represents DESTROY_SESSION4args.
type DestroySessionArgs struct {
	SessionID SessionId4
}

// DestroyClientidArgs represents DESTROY_CLIENTID4args.
type DestroyClientidArgs struct {
	ClientID uint64
}

// ReclaimCompleteArgs represents RECLAIM_COMPLETE4args.
type ReclaimCompleteArgs struct {
	OneFS bool
}

// ============================================================================
// TEST_STATEID (RFC 8881 Section 18.48)
// ============================================================================

// TestStateidArgs represents TEST_STATEID4args.
type TestStateidArgs struct {
	Stateids []Stateid4
}

// TestStateidRes represents TEST_STATEID4resok: one status per stateid.
type TestStateidRes struct {
	StatusCodes []uint32
}

// FreeStateidArgs represents FREE_STATEID4args.
type FreeStateidArgs struct {
	Stateid Stateid4
}
