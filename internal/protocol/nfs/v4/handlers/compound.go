package handlers

import (
	"bytes"
	"fmt"
	"runtime/debug"
	"slices"

	xdr "github.com/rasky/go-xdr/xdr2"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
	"github.com/marmos91/nfs4state/internal/telemetry"
)

// CompoundResponse is the outcome of one COMPOUND request.
type CompoundResponse struct {
	// Status is the status of the last evaluated operation, or NFS4_OK.
	Status uint32

	// Tag is echoed from the request.
	Tag []byte

	Results []types.CompoundResult

	// Replay is set when Results is a cached reply sent back verbatim.
	Replay bool
}

// MarshalBinary encodes the response as COMPOUND4res:
//
//	status:     nfsstat4
//	tag:        opaque<>
//	numresults: uint32
//	results[]:  opcode (uint32) + result data
func (r *CompoundResponse) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := xdr.NewEncoder(&buf)

	if _, err := enc.EncodeUint(r.Status); err != nil {
		return nil, fmt.Errorf("encode COMPOUND status: %w", err)
	}
	if _, err := enc.EncodeOpaque(r.Tag); err != nil {
		return nil, fmt.Errorf("encode COMPOUND tag: %w", err)
	}
	if _, err := enc.EncodeUint(uint32(len(r.Results))); err != nil {
		return nil, fmt.Errorf("encode COMPOUND numresults: %w", err)
	}
	for i, res := range r.Results {
		if _, err := enc.EncodeUint(res.OpCode); err != nil {
			return nil, fmt.Errorf("encode result %d opcode: %w", i, err)
		}
		buf.Write(res.Data)
	}
	return buf.Bytes(), nil
}

// ProcessCompound executes the operations of a v4.1 COMPOUND in order.
//
// Every COMPOUND must begin with SEQUENCE unless its first operation is
// session-exempt, in which case that operation must be the only one.
// Execution stops at the first non-OK status. A SEQUENCE
// retransmission returns the cached results of the original request
// without executing anything. When SEQUENCE succeeded, the final result
// list is stored in its slot if the client asked for caching.
//
// An error is returned only when the request is cancelled before a slot
// was taken.
func (h *Handler) ProcessCompound(compCtx *CompoundContext, tag []byte, ops []types.Op) (*CompoundResponse, error) {
	if compCtx.MinorVersion != types.NFS4_MINOR_VERSION_1 {
		logger.Debug("NFSv4 minor version mismatch",
			"requested", compCtx.MinorVersion,
			logger.KeyClientAddr, compCtx.ClientAddr)
		return &CompoundResponse{Status: types.NFS4ERR_MINOR_VERS_MISMATCH, Tag: tag}, nil
	}

	if len(ops) > types.MaxCompoundOps {
		logger.Debug("NFSv4.1 COMPOUND op count exceeds limit",
			"count", len(ops),
			"max", types.MaxCompoundOps,
			logger.KeyClientAddr, compCtx.ClientAddr)
		return &CompoundResponse{Status: types.NFS4ERR_TOO_MANY_OPS, Tag: tag}, nil
	}

	if len(ops) == 0 {
		return &CompoundResponse{Status: types.NFS4_OK, Tag: tag}, nil
	}

	first := ops[0].OpCode
	if first != types.OP_SEQUENCE && !isSessionExemptOp(first) {
		logger.Debug("NFSv4.1 COMPOUND missing SEQUENCE",
			"first_op", types.OpName(first),
			logger.KeyClientAddr, compCtx.ClientAddr)
		return &CompoundResponse{Status: types.NFS4ERR_OP_NOT_IN_SESSION, Tag: tag}, nil
	}
	if first != types.OP_SEQUENCE && len(ops) > 1 {
		// A misplaced SEQUENCE is reported as such even here; nothing runs.
		if slices.ContainsFunc(ops[1:], func(op types.Op) bool { return op.OpCode == types.OP_SEQUENCE }) {
			return &CompoundResponse{
				Status:  types.NFS4ERR_SEQUENCE_POS,
				Tag:     tag,
				Results: []types.CompoundResult{*statusResult(types.OP_SEQUENCE, types.NFS4ERR_SEQUENCE_POS)},
			}, nil
		}
		logger.Debug("NFSv4.1 session-exempt op is not the only op",
			"first_op", types.OpName(first),
			"count", len(ops),
			logger.KeyClientAddr, compCtx.ClientAddr)
		return &CompoundResponse{
			Status:  types.NFS4ERR_NOT_ONLY_OP,
			Tag:     tag,
			Results: []types.CompoundResult{*statusResult(first, types.NFS4ERR_NOT_ONLY_OP)},
		}, nil
	}

	ctx, span := telemetry.StartCompoundSpan(compCtx.Context, compCtx.ClientAddr, compCtx.MinorVersion, len(ops))
	defer span.End()
	if logger.FromContext(ctx) == nil {
		ctx = logger.WithContext(ctx, logger.NewLogContext(compCtx.ClientAddr).
			WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))
	}
	compCtx.Context = ctx

	results := make([]types.CompoundResult, 0, len(ops))
	compCtx.Processed = results
	lastStatus := uint32(types.NFS4_OK)

	// The slot taken by SEQUENCE is released with whatever results exist
	// when the loop ends, including a partial list on cancellation.
	defer func() {
		h.releaseSlot(compCtx, results)
	}()

	for i, op := range ops {
		if err := compCtx.Context.Err(); err != nil {
			logger.Debug("NFSv4.1 COMPOUND cancelled between ops",
				"op_index", i,
				"total_ops", len(ops),
				logger.KeyClientAddr, compCtx.ClientAddr)
			if compCtx.Sequence == nil {
				span.SetStatus(codes.Error, "cancelled")
				return nil, err
			}
			lastStatus = types.NFS4ERR_DELAY
			break
		}

		var result *types.CompoundResult
		if i == 0 && op.OpCode == types.OP_SEQUENCE {
			var replay []types.CompoundResult
			result, replay = h.handleSequence(compCtx, op.Args)
			if replay != nil {
				status := uint32(types.NFS4_OK)
				if n := len(replay); n > 0 {
					status = replay[n-1].Status
				}
				telemetry.SetAttributes(ctx, telemetry.Replay(true))
				logger.Info("NFSv4.1 COMPOUND replay cache hit",
					logger.KeyClientAddr, compCtx.ClientAddr)
				return &CompoundResponse{Status: status, Tag: tag, Results: replay, Replay: true}, nil
			}
		} else {
			result = h.dispatch(compCtx, op)
		}

		if result.OpCode == 0 && op.OpCode != 0 {
			result.OpCode = op.OpCode
		}

		results = append(results, *result)
		compCtx.Processed = results
		lastStatus = result.Status

		logger.Debug("NFSv4.1 COMPOUND op dispatched",
			"op_index", i,
			"op_name", types.OpName(op.OpCode),
			logger.KeyStatus, types.StatusName(result.Status),
			logger.KeyClientAddr, compCtx.ClientAddr)

		if result.Status != types.NFS4_OK {
			logger.Debug("NFSv4.1 COMPOUND op failed, stopping",
				"op_index", i,
				"op_name", types.OpName(op.OpCode),
				logger.KeyStatus, types.StatusName(result.Status),
				logger.KeyClientAddr, compCtx.ClientAddr)
			break
		}
	}

	telemetry.SetAttributes(ctx, telemetry.Status(types.StatusName(lastStatus)))
	if lastStatus != types.NFS4_OK {
		span.SetStatus(codes.Error, types.StatusName(lastStatus))
	}

	return &CompoundResponse{Status: lastStatus, Tag: tag, Results: results}, nil
}

// dispatch runs the handler for op. A panicking handler is logged and
// reported as SERVERFAULT.
func (h *Handler) dispatch(compCtx *CompoundContext, op types.Op) (result *types.CompoundResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(compCtx.Context, "Panic in operation handler",
				logger.KeyOperation, types.OpName(op.OpCode),
				logger.KeyClientAddr, compCtx.ClientAddr,
				logger.KeyError, r,
				"stack", string(debug.Stack()))
			result = statusResult(op.OpCode, types.NFS4ERR_SERVERFAULT)
		}
	}()

	fn, ok := h.lookupOp(op.OpCode)
	if ok {
		if result = fn(compCtx, op.Args); result == nil {
			logger.ErrorCtx(compCtx.Context, "Operation handler returned no result",
				logger.KeyOperation, types.OpName(op.OpCode))
			return statusResult(op.OpCode, types.NFS4ERR_SERVERFAULT)
		}
		return result
	}
	if op.OpCode >= types.OP_ACCESS && op.OpCode <= types.OP_RECLAIM_COMPLETE {
		return statusResult(op.OpCode, types.NFS4ERR_NOTSUPP)
	}
	return statusResult(types.OP_ILLEGAL, types.NFS4ERR_OP_ILLEGAL)
}

func (h *Handler) releaseSlot(compCtx *CompoundContext, results []types.CompoundResult) {
	seq := compCtx.Sequence
	if seq == nil || compCtx.Session == nil || compCtx.SkipSlotTracking {
		return
	}
	compCtx.Session.ForeChannelSlots.ReleaseSlot(seq.SlotID, seq.SequenceID, results, seq.CacheThis)
}
