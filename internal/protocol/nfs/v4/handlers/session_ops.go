package handlers

import (
	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// handleExchangeID implements EXCHANGE_ID (RFC 8881 Section 18.35).
func (h *Handler) handleExchangeID(ctx *CompoundContext, rawArgs any) *types.CompoundResult {
	args, ok := rawArgs.(*types.ExchangeIdArgs)
	if !ok || args == nil || len(args.OwnerID) == 0 {
		return statusResult(types.OP_EXCHANGE_ID, types.NFS4ERR_INVAL)
	}

	res := h.StateManager.ExchangeID(args.OwnerID, args.Verifier, ctx.Principal, ctx.ClientAddr)

	flags := uint32(types.EXCHGID4_FLAG_USE_NON_PNFS)
	if res.Confirmed {
		flags |= types.EXCHGID4_FLAG_CONFIRMED_R
	}

	logger.DebugCtx(ctx.Context, "EXCHANGE_ID",
		logger.KeyClientID, res.Client.ID(),
		logger.KeyClientAddr, ctx.ClientAddr,
		"confirmed", res.Confirmed)

	return okResult(ctx, types.OP_EXCHANGE_ID, &types.ExchangeIdRes{
		ClientID:   res.Client.ID(),
		SequenceID: res.SequenceID,
		Flags:      flags,
	})
}

// handleCreateSession implements CREATE_SESSION (RFC 8881 Section 18.36).
func (h *Handler) handleCreateSession(ctx *CompoundContext, rawArgs any) *types.CompoundResult {
	args, ok := rawArgs.(*types.CreateSessionArgs)
	if !ok || args == nil {
		return statusResult(types.OP_CREATE_SESSION, types.NFS4ERR_BADXDR)
	}

	res, err := h.StateManager.CreateSession(args.ClientID, args.SequenceID, args.ForeChannel, args.BackChannel, args.Flags)
	if err != nil {
		status := MapStateError(ctx, types.OP_CREATE_SESSION, err)
		logger.DebugCtx(ctx.Context, "CREATE_SESSION: state error",
			logger.KeyClientID, args.ClientID,
			logger.KeySeqID, args.SequenceID,
			logger.KeyStatus, types.StatusName(status),
			logger.KeyClientAddr, ctx.ClientAddr)
		return statusResult(types.OP_CREATE_SESSION, status)
	}

	return okResult(ctx, types.OP_CREATE_SESSION, res)
}

// handleDestroySession implements DESTROY_SESSION (RFC 8881 Section 18.37).
func (h *Handler) handleDestroySession(ctx *CompoundContext, rawArgs any) *types.CompoundResult {
	args, ok := rawArgs.(*types.DestroySessionArgs)
	if !ok || args == nil {
		return statusResult(types.OP_DESTROY_SESSION, types.NFS4ERR_BADXDR)
	}

	if err := h.StateManager.DestroySession(args.SessionID); err != nil {
		return statusResult(types.OP_DESTROY_SESSION, MapStateError(ctx, types.OP_DESTROY_SESSION, err))
	}
	return statusResult(types.OP_DESTROY_SESSION, types.NFS4_OK)
}

// handleDestroyClientID implements DESTROY_CLIENTID (RFC 8881 Section 18.50).
func (h *Handler) handleDestroyClientID(ctx *CompoundContext, rawArgs any) *types.CompoundResult {
	args, ok := rawArgs.(*types.DestroyClientidArgs)
	if !ok || args == nil {
		return statusResult(types.OP_DESTROY_CLIENTID, types.NFS4ERR_BADXDR)
	}

	if err := h.StateManager.DestroyClientID(args.ClientID); err != nil {
		return statusResult(types.OP_DESTROY_CLIENTID, MapStateError(ctx, types.OP_DESTROY_CLIENTID, err))
	}
	return statusResult(types.OP_DESTROY_CLIENTID, types.NFS4_OK)
}

// handleReclaimComplete implements RECLAIM_COMPLETE (RFC 8881 Section 18.51).
// Only the whole-client form is tracked; per-filesystem completion is
// accepted as a no-op.
func (h *Handler) handleReclaimComplete(ctx *CompoundContext, rawArgs any) *types.CompoundResult {
	args, ok := rawArgs.(*types.ReclaimCompleteArgs)
	if !ok || args == nil {
		return statusResult(types.OP_RECLAIM_COMPLETE, types.NFS4ERR_BADXDR)
	}
	if ctx.Client == nil {
		return statusResult(types.OP_RECLAIM_COMPLETE, types.NFS4ERR_OP_NOT_IN_SESSION)
	}
	if args.OneFS {
		return statusResult(types.OP_RECLAIM_COMPLETE, types.NFS4_OK)
	}

	if err := h.StateManager.ReclaimComplete(ctx.Client); err != nil {
		return statusResult(types.OP_RECLAIM_COMPLETE, MapStateError(ctx, types.OP_RECLAIM_COMPLETE, err))
	}
	return statusResult(types.OP_RECLAIM_COMPLETE, types.NFS4_OK)
}
