package handlers

import (
	"context"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// CompoundContext carries mutable state across the operations of one
// COMPOUND request.
type CompoundContext struct {
	// Context is checked for cancellation between operations.
	Context context.Context

	// ClientAddr is the remote address of the connection.
	ClientAddr string

	// Principal is the authenticated RPC principal, recorded on EXCHANGE_ID.
	Principal string

	// MinorVersion is the COMPOUND minor version.
	MinorVersion uint32

	// Processed holds the results of the operations already executed in
	// this COMPOUND, in order.
	Processed []types.CompoundResult

	// Session, Client and Sequence are set by a successful SEQUENCE.
	Session  *state.Session
	Client   *state.Client
	Sequence *types.V41RequestContext

	// CurrentStateid is the stateid substituted for the "current" special
	// stateid. Operations that produce a stateid set it.
	CurrentStateid *types.Stateid4

	// FS is the filesystem capability handed through to data-plane
	// operations registered with RegisterOp. The state core never reads it.
	FS any

	// SkipSlotTracking disables slot bookkeeping for connection classes
	// that do not use exactly-once semantics.
	SkipSlotTracking bool
}

// NewCompoundContext returns a context for a v4.1 COMPOUND from clientAddr.
func NewCompoundContext(ctx context.Context, clientAddr string) *CompoundContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &CompoundContext{
		Context:      ctx,
		ClientAddr:   clientAddr,
		MinorVersion: types.NFS4_MINOR_VERSION_1,
	}
}
