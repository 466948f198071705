package handlers

import (
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
	"github.com/marmos91/nfs4state/internal/telemetry"
)

// handleSequence implements SEQUENCE (RFC 8881 Section 18.46) as the first
// operation of a COMPOUND.
//
//  1. SEQUENCE after any other operation fails with SEQUENCE_POS.
//  2. The session and its owning client are resolved; a missing session,
//     or one no longer attached to its client, is BADSESSION.
//  3. Unless slot tracking is disabled, the slot table decides between a
//     new request and a retransmission. A retransmission returns the cached
//     results and nothing else in the COMPOUND runs. A new request renews
//     the client's lease.
//  4. The session, client and sequence parameters are bound to ctx.
//
// The response echoes the client's sequence id.
func (h *Handler) handleSequence(ctx *CompoundContext, rawArgs any) (result *types.CompoundResult, replay []types.CompoundResult) {
	start := time.Now()
	metrics := h.StateManager.SequenceMetrics()

	if len(ctx.Processed) > 0 {
		metrics.RecordOutcome(state.SlotProceed, types.NFS4ERR_SEQUENCE_POS, time.Since(start).Seconds())
		return statusResult(types.OP_SEQUENCE, types.NFS4ERR_SEQUENCE_POS), nil
	}

	args, ok := rawArgs.(*types.SequenceArgs)
	if !ok || args == nil {
		metrics.RecordOutcome(state.SlotProceed, types.NFS4ERR_BADXDR, time.Since(start).Seconds())
		return statusResult(types.OP_SEQUENCE, types.NFS4ERR_BADXDR), nil
	}

	spanCtx, span := telemetry.StartOpSpan(ctx.Context, "SEQUENCE",
		telemetry.SessionID(args.SessionID.String()),
		telemetry.SlotID(args.SlotID),
		telemetry.SequenceID(args.SequenceID))
	defer span.End()

	fail := func(status uint32, err error) (*types.CompoundResult, []types.CompoundResult) {
		metrics.RecordOutcome(state.SlotProceed, status, time.Since(start).Seconds())
		span.SetStatus(codes.Error, types.StatusName(status))
		logger.DebugCtx(spanCtx, "SEQUENCE failed",
			logger.KeySessionID, args.SessionID.String(),
			logger.KeySlot, args.SlotID,
			logger.KeySeqID, args.SequenceID,
			logger.KeyStatus, types.StatusName(status),
			logger.KeyError, err,
			logger.KeyClientAddr, ctx.ClientAddr)
		return statusResult(types.OP_SEQUENCE, status), nil
	}

	sess, ok := h.StateManager.SessionByID(args.SessionID)
	if !ok || sess.Evicted() {
		return fail(types.NFS4ERR_BADSESSION, state.ErrBadSession)
	}

	client, err := h.StateManager.GetClientByServerID(sess.ClientID())
	if err != nil || !client.HasSession(sess.ID()) {
		return fail(types.NFS4ERR_BADSESSION, state.ErrBadSession)
	}

	slots := sess.ForeChannelSlots
	if !ctx.SkipSlotTracking {
		outcome, cached, err := slots.AcquireSlot(args.SlotID, args.SequenceID)
		if err != nil {
			return fail(MapStateError(ctx, types.OP_SEQUENCE, err), err)
		}
		if outcome == state.SlotReplay {
			metrics.RecordOutcome(state.SlotReplay, types.NFS4_OK, time.Since(start).Seconds())
			telemetry.SetAttributes(spanCtx, telemetry.Replay(true))
			logger.InfoCtx(spanCtx, "SEQUENCE: replay cache hit",
				logger.KeySessionID, args.SessionID.String(),
				logger.KeySlot, args.SlotID,
				logger.KeySeqID, args.SequenceID,
				logger.KeyClientAddr, ctx.ClientAddr)
			if cached == nil {
				cached = []types.CompoundResult{}
			}
			return nil, cached
		}
		h.StateManager.RenewLease(client)
	}
	h.StateManager.TouchSession(sess)

	ctx.Session = sess
	ctx.Client = client
	ctx.Sequence = &types.V41RequestContext{
		SessionID:   args.SessionID,
		SlotID:      args.SlotID,
		SequenceID:  args.SequenceID,
		HighestSlot: args.HighestSlotID,
		CacheThis:   args.CacheThis,
	}
	if lc := logger.FromContext(ctx.Context); lc != nil {
		ctx.Context = logger.WithContext(ctx.Context, lc.WithSession(client.ID(), sess.ID().String()))
	}

	var flags uint32
	if h.StateManager.NeedsReclaim(client) {
		flags |= types.SEQ4_STATUS_RESTART_RECLAIM_NEEDED
	}

	res := &types.SequenceRes{
		SessionID:           args.SessionID,
		SequenceID:          args.SequenceID,
		SlotID:              args.SlotID,
		HighestSlotID:       slots.HighestSlotID(),
		TargetHighestSlotID: slots.TargetHighestSlotID(),
		StatusFlags:         flags,
	}

	metrics.RecordOutcome(state.SlotProceed, types.NFS4_OK, time.Since(start).Seconds())
	telemetry.SetAttributes(spanCtx, telemetry.ClientID(client.ID()))
	logger.DebugCtx(spanCtx, "SEQUENCE: validated",
		logger.KeySessionID, args.SessionID.String(),
		logger.KeySlot, args.SlotID,
		logger.KeySeqID, args.SequenceID,
		"status_flags", flags,
		logger.KeyClientAddr, ctx.ClientAddr)

	return okResult(ctx, types.OP_SEQUENCE, res), nil
}

func (h *Handler) handleSequenceNotFirst(ctx *CompoundContext, args any) *types.CompoundResult {
	result, _ := h.handleSequence(ctx, args)
	return result
}
