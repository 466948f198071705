package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for NFSv4.1 state spans.
const (
	AttrClientAddr   = "nfs.client.addr"
	AttrClientID     = "nfs.client_id"
	AttrSessionID    = "nfs.session_id"
	AttrSlotID       = "nfs.slot_id"
	AttrSequenceID   = "nfs.sequence_id"
	AttrOperation    = "nfs.operation"
	AttrStatus       = "nfs.status"
	AttrOpCount      = "nfs.compound.ops"
	AttrMinorVersion = "nfs.minor_version"
	AttrReplay       = "nfs.replay"
)

func ClientAddr(addr string) attribute.KeyValue { return attribute.String(AttrClientAddr, addr) }

func ClientID(id uint64) attribute.KeyValue {
	return attribute.String(AttrClientID, fmt.Sprintf("%#x", id))
}

func SessionID(id string) attribute.KeyValue { return attribute.String(AttrSessionID, id) }

func SlotID(id uint32) attribute.KeyValue { return attribute.Int64(AttrSlotID, int64(id)) }

func SequenceID(id uint32) attribute.KeyValue { return attribute.Int64(AttrSequenceID, int64(id)) }

func Operation(name string) attribute.KeyValue { return attribute.String(AttrOperation, name) }

func Status(name string) attribute.KeyValue { return attribute.String(AttrStatus, name) }

func OpCount(n int) attribute.KeyValue { return attribute.Int(AttrOpCount, n) }

func MinorVersion(v uint32) attribute.KeyValue { return attribute.Int64(AttrMinorVersion, int64(v)) }

func Replay(replay bool) attribute.KeyValue { return attribute.Bool(AttrReplay, replay) }

// StartCompoundSpan starts the span covering one COMPOUND request.
func StartCompoundSpan(ctx context.Context, clientAddr string, minorVersion uint32, ops int) (context.Context, trace.Span) {
	return StartSpan(ctx, "nfs.COMPOUND",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(ClientAddr(clientAddr), MinorVersion(minorVersion), OpCount(ops)))
}

// StartOpSpan starts the span of one operation inside a COMPOUND.
func StartOpSpan(ctx context.Context, opName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "nfs."+opName,
		trace.WithAttributes(append([]attribute.KeyValue{Operation(opName)}, attrs...)...))
}
