// Package handlers implements the NFSv4.1 COMPOUND loop, the SEQUENCE gate
// and the session and client-identity operations on top of the state
// registry. Data-plane operations are supplied by the caller through
// RegisterOp.
package handlers

import (
	"sync"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// OpHandler executes one operation. args holds the decoded arguments for
// the opcode. The returned result carries the status and the XDR-encoded
// result body.
type OpHandler func(ctx *CompoundContext, args any) *types.CompoundResult

// Handler dispatches COMPOUND operations against a StateManager.
type Handler struct {
	// StateManager is the client, session and state registry.
	StateManager *state.StateManager

	mu              sync.RWMutex
	opDispatchTable map[uint32]OpHandler
}

// NewHandler creates a handler with the session and client-identity
// operations registered.
func NewHandler(sm *state.StateManager) *Handler {
	h := &Handler{
		StateManager:    sm,
		opDispatchTable: make(map[uint32]OpHandler),
	}

	// SEQUENCE is only valid as the first op; the loop handles that case
	// itself and this entry rejects every later occurrence.
	h.opDispatchTable[types.OP_SEQUENCE] = h.handleSequenceNotFirst

	h.opDispatchTable[types.OP_EXCHANGE_ID] = h.handleExchangeID
	h.opDispatchTable[types.OP_CREATE_SESSION] = h.handleCreateSession
	h.opDispatchTable[types.OP_DESTROY_SESSION] = h.handleDestroySession
	h.opDispatchTable[types.OP_DESTROY_CLIENTID] = h.handleDestroyClientID
	h.opDispatchTable[types.OP_RECLAIM_COMPLETE] = h.handleReclaimComplete

	h.opDispatchTable[types.OP_TEST_STATEID] = h.handleTestStateid
	h.opDispatchTable[types.OP_FREE_STATEID] = h.handleFreeStateid

	return h
}

// RegisterOp installs fn for opCode, replacing any existing handler.
func (h *Handler) RegisterOp(opCode uint32, fn OpHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opDispatchTable[opCode] = fn
}

func (h *Handler) lookupOp(opCode uint32) (OpHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.opDispatchTable[opCode]
	return fn, ok
}

// isSessionExemptOp reports whether opCode may start a v4.1 COMPOUND
// without a preceding SEQUENCE.
func isSessionExemptOp(opCode uint32) bool {
	switch opCode {
	case types.OP_EXCHANGE_ID,
		types.OP_CREATE_SESSION,
		types.OP_DESTROY_SESSION,
		types.OP_BIND_CONN_TO_SESSION,
		types.OP_DESTROY_CLIENTID:
		return true
	default:
		return false
	}
}

// MapStateError converts err to an NFS4 status. Errors that carry no
// protocol status are logged and reported as SERVERFAULT.
func MapStateError(ctx *CompoundContext, opCode uint32, err error) uint32 {
	status := state.StatusOf(err)
	if status == types.NFS4ERR_SERVERFAULT {
		logger.ErrorCtx(ctx.Context, "Internal error while processing operation",
			logger.KeyOperation, types.OpName(opCode),
			logger.KeyClientAddr, ctx.ClientAddr,
			logger.KeyError, err)
	}
	return status
}

// ResolveStateid interprets a stateid presented to a data-plane operation.
// Special stateids are classified first; the "current" stateid is replaced
// with the COMPOUND's current stateid; ordinary stateids must carry seqid 0
// and resolve to state owned by the client bound by SEQUENCE.
func (h *Handler) ResolveStateid(ctx *CompoundContext, sid types.Stateid4, allowSpecial bool) (state.StateidKind, *state.State, error) {
	kind, err := state.ClassifySpecialStateid(sid, allowSpecial)
	if err != nil {
		return kind, nil, err
	}

	switch kind {
	case state.StateidZero, state.StateidBypass:
		return kind, nil, nil
	case state.StateidCurrent:
		if ctx.CurrentStateid == nil {
			return kind, nil, state.ErrBadStateid
		}
		sid = *ctx.CurrentStateid
	}

	c, st, err := h.StateManager.LookupState(sid)
	if err != nil {
		return kind, nil, err
	}
	if ctx.Client != nil && c != ctx.Client {
		return kind, nil, state.ErrBadStateid
	}
	return kind, st, nil
}

func statusResult(opCode, status uint32) *types.CompoundResult {
	return &types.CompoundResult{
		Status: status,
		OpCode: opCode,
		Data:   encodeStatusOnly(status),
	}
}

func encodeStatusOnly(status uint32) []byte {
	data, _ := types.EncodeResult(status)
	return data
}

// okResult builds a successful result: the OK status followed by body.
func okResult(ctx *CompoundContext, opCode uint32, body any) *types.CompoundResult {
	data, err := types.EncodeResult(body)
	if err != nil {
		return statusResult(opCode, MapStateError(ctx, opCode, err))
	}
	return &types.CompoundResult{
		Status: types.NFS4_OK,
		OpCode: opCode,
		Data:   append(encodeStatusOnly(types.NFS4_OK), data...),
	}
}
