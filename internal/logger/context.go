package logger

import (
	"context"
	"time"
)

type contextKey struct{}

// LogContext holds request-scoped logging fields.
type LogContext struct {
	TraceID    string
	SpanID     string
	Operation  string // COMPOUND operation being processed
	ClientAddr string
	ClientID   uint64
	SessionID  string
	StartTime  time.Time
}

// NewLogContext creates a LogContext for a request from clientAddr.
func NewLogContext(clientAddr string) *LogContext {
	return &LogContext{ClientAddr: clientAddr, StartTime: time.Now()}
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext returns the LogContext of ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*LogContext)
	return lc
}

// Clone returns a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	cp := *lc
	return &cp
}

// WithOperation returns a copy with the operation set.
func (lc *LogContext) WithOperation(op string) *LogContext {
	cp := lc.Clone()
	if cp != nil {
		cp.Operation = op
	}
	return cp
}

// WithSession returns a copy bound to a client and session.
func (lc *LogContext) WithSession(clientID uint64, sessionID string) *LogContext {
	cp := lc.Clone()
	if cp != nil {
		cp.ClientID = clientID
		cp.SessionID = sessionID
	}
	return cp
}

// WithTrace returns a copy with trace identifiers set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	cp := lc.Clone()
	if cp != nil {
		cp.TraceID = traceID
		cp.SpanID = spanID
	}
	return cp
}

// DurationMs returns the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}

// withContextFields prepends the non-empty LogContext fields to args.
func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, 12+len(args))
	if lc.TraceID != "" {
		out = append(out, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		out = append(out, KeySpanID, lc.SpanID)
	}
	if lc.Operation != "" {
		out = append(out, KeyOperation, lc.Operation)
	}
	if lc.ClientAddr != "" {
		out = append(out, KeyClientAddr, lc.ClientAddr)
	}
	if lc.ClientID != 0 {
		out = append(out, KeyClientID, lc.ClientID)
	}
	if lc.SessionID != "" {
		out = append(out, KeySessionID, lc.SessionID)
	}
	return append(out, args...)
}
