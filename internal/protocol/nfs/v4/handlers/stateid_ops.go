package handlers

import (
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// handleTestStateid implements TEST_STATEID (RFC 8881 Section 18.48).
// Each stateid gets its own status; the operation itself succeeds.
func (h *Handler) handleTestStateid(ctx *CompoundContext, rawArgs any) *types.CompoundResult {
	args, ok := rawArgs.(*types.TestStateidArgs)
	if !ok || args == nil {
		return statusResult(types.OP_TEST_STATEID, types.NFS4ERR_BADXDR)
	}
	if ctx.Session == nil || ctx.Client == nil {
		return statusResult(types.OP_TEST_STATEID, types.NFS4ERR_OP_NOT_IN_SESSION)
	}

	res := &types.TestStateidRes{StatusCodes: make([]uint32, len(args.Stateids))}
	for i, sid := range args.Stateids {
		status := h.StateManager.TestStateid(sid)
		if status == types.NFS4_OK && h.ownerOf(sid) != ctx.Client.ID() {
			status = types.NFS4ERR_BAD_STATEID
		}
		res.StatusCodes[i] = status
	}
	return okResult(ctx, types.OP_TEST_STATEID, res)
}

// handleFreeStateid implements FREE_STATEID (RFC 8881 Section 18.38).
func (h *Handler) handleFreeStateid(ctx *CompoundContext, rawArgs any) *types.CompoundResult {
	args, ok := rawArgs.(*types.FreeStateidArgs)
	if !ok || args == nil {
		return statusResult(types.OP_FREE_STATEID, types.NFS4ERR_BADXDR)
	}
	if ctx.Session == nil || ctx.Client == nil {
		return statusResult(types.OP_FREE_STATEID, types.NFS4ERR_OP_NOT_IN_SESSION)
	}

	if status := h.StateManager.TestStateid(args.Stateid); status != types.NFS4_OK {
		return statusResult(types.OP_FREE_STATEID, status)
	}
	if h.ownerOf(args.Stateid) != ctx.Client.ID() {
		return statusResult(types.OP_FREE_STATEID, types.NFS4ERR_BAD_STATEID)
	}
	if err := h.StateManager.ReleaseState(args.Stateid); err != nil {
		return statusResult(types.OP_FREE_STATEID, MapStateError(ctx, types.OP_FREE_STATEID, err))
	}
	return statusResult(types.OP_FREE_STATEID, types.NFS4_OK)
}

func (h *Handler) ownerOf(sid types.Stateid4) uint64 {
	c, err := h.StateManager.GetClientByStateID(sid)
	if err != nil {
		return 0
	}
	return c.ID()
}
