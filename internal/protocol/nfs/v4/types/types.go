package types

import (
	"encoding/hex"
	"fmt"
)

// ============================================================================
// Identifiers
// ============================================================================

// Stateid4 is the wire stateid (RFC 8881 Section 3.3.12).
//
//	struct stateid4 {
//	    uint32_t seqid;
//	    opaque   other[12];
//	};
//
// The first 8 bytes of Other carry the issuing client's server-assigned id
// in big-endian order; the last 4 are random.
type Stateid4 struct {
	Seqid uint32
	Other [NFS4_OTHER_SIZE]byte
}

// String returns a compact representation for logs.
func (s Stateid4) String() string {
	return fmt.Sprintf("{seq=%d other=%s}", s.Seqid, hex.EncodeToString(s.Other[:]))
}

// SessionId4 is the 16-byte opaque session identifier.
type SessionId4 [NFS4_SESSIONID_SIZE]byte

// String returns the hex encoding of the session id.
func (s SessionId4) String() string {
	return hex.EncodeToString(s[:])
}

// Verifier4 is the client-chosen verifier used to detect client restarts.
type Verifier4 [NFS4_VERIFIER_SIZE]byte

// ============================================================================
// COMPOUND
// ============================================================================

// Op is one decoded operation of a COMPOUND request. Args holds the typed
// arguments for the opcode (for example *SequenceArgs for OP_SEQUENCE).
type Op struct {
	OpCode uint32
	Args   any
}

// CompoundResult holds the result of a single operation within COMPOUND.
type CompoundResult struct {
	// Status is the NFS4 status code for this operation.
	Status uint32

	// OpCode identifies which operation this result corresponds to.
	OpCode uint32

	// Data contains the XDR-encoded operation-specific result body.
	Data []byte
}

// CloneResults returns a deep copy of a result list, so that a cached reply
// never aliases buffers still owned by an in-flight request.
func CloneResults(results []CompoundResult) []CompoundResult {
	if results == nil {
		return nil
	}
	out := make([]CompoundResult, len(results))
	for i, r := range results {
		out[i] = CompoundResult{Status: r.Status, OpCode: r.OpCode}
		if r.Data != nil {
			out[i].Data = append([]byte(nil), r.Data...)
		}
	}
	return out
}

// V41RequestContext holds the SEQUENCE parameters of the current COMPOUND.
// It is populated by the SEQUENCE gate and read by later operations.
type V41RequestContext struct {
	SessionID   SessionId4
	SlotID      uint32
	SequenceID  uint32
	HighestSlot uint32
	CacheThis   bool
}

// String returns a human-readable representation of the V41RequestContext.
func (c *V41RequestContext) String() string {
	return fmt.Sprintf("V41Ctx{session=%s, slot=%d, seq=%d, highest=%d, cache=%t}",
		c.SessionID, c.SlotID, c.SequenceID, c.HighestSlot, c.CacheThis)
}
