package state

import (
	"errors"
	"fmt"

	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// NFS4StateError is an error type that carries an NFS4 status code.
// Handlers map this to the appropriate wire response.
type NFS4StateError struct {
	Status  uint32
	Message string
}

func (e *NFS4StateError) Error() string {
	return e.Message
}

// Is reports whether target carries the same status, so that sentinel
// comparisons keep working for errors created with a more specific message.
func (e *NFS4StateError) Is(target error) bool {
	t, ok := target.(*NFS4StateError)
	return ok && t.Status == e.Status
}

func newStateError(status uint32, format string, args ...any) *NFS4StateError {
	return &NFS4StateError{Status: status, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrStaleClientID    = &NFS4StateError{Status: types.NFS4ERR_STALE_CLIENTID, Message: "stale clientid"}
	ErrBadStateid       = &NFS4StateError{Status: types.NFS4ERR_BAD_STATEID, Message: "bad stateid"}
	ErrExpired          = &NFS4StateError{Status: types.NFS4ERR_EXPIRED, Message: "lease expired"}
	ErrBadSession       = &NFS4StateError{Status: types.NFS4ERR_BADSESSION, Message: "bad session"}
	ErrBadSlot          = &NFS4StateError{Status: types.NFS4ERR_BADSLOT, Message: "bad slot"}
	ErrSeqMisordered    = &NFS4StateError{Status: types.NFS4ERR_SEQ_MISORDERED, Message: "sequence misordered"}
	ErrDelay            = &NFS4StateError{Status: types.NFS4ERR_DELAY, Message: "slot in use"}
	ErrRetryUncachedRep = &NFS4StateError{Status: types.NFS4ERR_RETRY_UNCACHED_REP, Message: "retry of uncached reply"}
	ErrClientIDBusy     = &NFS4StateError{Status: types.NFS4ERR_CLIENTID_BUSY, Message: "client has active sessions"}
	ErrCompleteAlready  = &NFS4StateError{Status: types.NFS4ERR_COMPLETE_ALREADY, Message: "reclaim already complete"}
	ErrGrace            = &NFS4StateError{Status: types.NFS4ERR_GRACE, Message: "server in grace period"}
	ErrNoGrace          = &NFS4StateError{Status: types.NFS4ERR_NO_GRACE, Message: "no grace period available for reclaim"}
)

// StatusOf returns the NFS4 status carried by err, or SERVERFAULT for
// errors that are not protocol errors. A nil error is NFS4_OK.
func StatusOf(err error) uint32 {
	if err == nil {
		return types.NFS4_OK
	}
	var stateErr *NFS4StateError
	if errors.As(err, &stateErr) {
		return stateErr.Status
	}
	return types.NFS4ERR_SERVERFAULT
}
