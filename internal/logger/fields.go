package logger

// Field keys for structured logging. Use these consistently so that log
// queries work across components.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Request
	KeyOperation  = "operation"
	KeyStatus     = "status"
	KeyClientAddr = "client_addr"
	KeyDurationMs = "duration_ms"
	KeyRequestID  = "request_id"

	// Client and state bookkeeping
	KeyClientID  = "client_id"
	KeyOwner     = "owner"
	KeySessionID = "session_id"
	KeySlot      = "slot"
	KeySeqID     = "seqid"
	KeyStateid   = "stateid"
	KeyReason    = "reason"

	// Errors
	KeyError = "error"
)
