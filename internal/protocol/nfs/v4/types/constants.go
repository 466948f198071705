// Package types holds the NFSv4.1 protocol constants and value types shared
// by the state registry and the COMPOUND handlers (RFC 8881).
package types

// ============================================================================
// Versions and sizes
// ============================================================================

const (
	NFS4_MINOR_VERSION_1 = 1

	// NFS4_OTHER_SIZE is the length of the opaque part of a stateid4.
	NFS4_OTHER_SIZE = 12

	// NFS4_SESSIONID_SIZE is the size of a session identifier (RFC 8881 Section 2.10.3).
	NFS4_SESSIONID_SIZE = 16

	// NFS4_VERIFIER_SIZE is the size of verifier4.
	NFS4_VERIFIER_SIZE = 8
)

// ============================================================================
// Operation codes (RFC 8881 Section 16.2)
// ============================================================================

const (
	OP_ACCESS               = 3
	OP_CLOSE                = 4
	OP_COMMIT               = 5
	OP_CREATE               = 6
	OP_GETATTR              = 9
	OP_GETFH                = 10
	OP_LOCK                 = 12
	OP_LOCKU                = 14
	OP_LOOKUP               = 15
	OP_OPEN                 = 18
	OP_PUTFH                = 22
	OP_PUTROOTFH            = 24
	OP_READ                 = 25
	OP_READDIR              = 26
	OP_REMOVE               = 28
	OP_RENAME               = 29
	OP_SETATTR              = 34
	OP_WRITE                = 38
	OP_BACKCHANNEL_CTL      = 40
	OP_BIND_CONN_TO_SESSION = 41
	OP_EXCHANGE_ID          = 42
	OP_CREATE_SESSION       = 43
	OP_DESTROY_SESSION      = 44
	OP_FREE_STATEID         = 45
	OP_SEQUENCE             = 53
	OP_TEST_STATEID         = 55
	OP_DESTROY_CLIENTID     = 57
	OP_RECLAIM_COMPLETE     = 58

	// OP_ILLEGAL is reported for opcodes the server does not recognise.
	OP_ILLEGAL = 10044
)

var opNames = map[uint32]string{
	OP_ACCESS:               "ACCESS",
	OP_CLOSE:                "CLOSE",
	OP_COMMIT:               "COMMIT",
	OP_CREATE:               "CREATE",
	OP_GETATTR:              "GETATTR",
	OP_GETFH:                "GETFH",
	OP_LOCK:                 "LOCK",
	OP_LOCKU:                "LOCKU",
	OP_LOOKUP:               "LOOKUP",
	OP_OPEN:                 "OPEN",
	OP_PUTFH:                "PUTFH",
	OP_PUTROOTFH:            "PUTROOTFH",
	OP_READ:                 "READ",
	OP_READDIR:              "READDIR",
	OP_REMOVE:               "REMOVE",
	OP_RENAME:               "RENAME",
	OP_SETATTR:              "SETATTR",
	OP_WRITE:                "WRITE",
	OP_BACKCHANNEL_CTL:      "BACKCHANNEL_CTL",
	OP_BIND_CONN_TO_SESSION: "BIND_CONN_TO_SESSION",
	OP_EXCHANGE_ID:          "EXCHANGE_ID",
	OP_CREATE_SESSION:       "CREATE_SESSION",
	OP_DESTROY_SESSION:      "DESTROY_SESSION",
	OP_FREE_STATEID:         "FREE_STATEID",
	OP_SEQUENCE:             "SEQUENCE",
	OP_TEST_STATEID:         "TEST_STATEID",
	OP_DESTROY_CLIENTID:     "DESTROY_CLIENTID",
	OP_RECLAIM_COMPLETE:     "RECLAIM_COMPLETE",
	OP_ILLEGAL:              "ILLEGAL",
}

// OpName returns a human-readable name for an operation number.
func OpName(op uint32) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// ============================================================================
// Status codes (RFC 8881 Section 15)
// ============================================================================

const (
	NFS4_OK = 0

	NFS4ERR_INVAL                = 22
	NFS4ERR_NOTSUPP              = 10004
	NFS4ERR_SERVERFAULT          = 10006
	NFS4ERR_DELAY                = 10008
	NFS4ERR_EXPIRED              = 10011
	NFS4ERR_GRACE                = 10013
	NFS4ERR_CLID_INUSE           = 10017
	NFS4ERR_MINOR_VERS_MISMATCH  = 10021
	NFS4ERR_STALE_CLIENTID       = 10022
	NFS4ERR_STALE_STATEID        = 10023
	NFS4ERR_OLD_STATEID          = 10024
	NFS4ERR_BAD_STATEID          = 10025
	NFS4ERR_NO_GRACE             = 10033
	NFS4ERR_BADXDR               = 10036
	NFS4ERR_OP_ILLEGAL           = 10044
	NFS4ERR_BADSESSION           = 10052
	NFS4ERR_BADSLOT              = 10053
	NFS4ERR_COMPLETE_ALREADY     = 10054
	NFS4ERR_SEQ_MISORDERED       = 10063
	NFS4ERR_SEQUENCE_POS         = 10064
	NFS4ERR_REP_TOO_BIG_TO_CACHE = 10067
	NFS4ERR_RETRY_UNCACHED_REP   = 10068
	NFS4ERR_TOO_MANY_OPS         = 10070
	NFS4ERR_OP_NOT_IN_SESSION    = 10071
	NFS4ERR_CLIENTID_BUSY        = 10074
	NFS4ERR_NOT_ONLY_OP          = 10081
)

var statusNames = map[uint32]string{
	NFS4_OK:                      "NFS4_OK",
	NFS4ERR_INVAL:                "NFS4ERR_INVAL",
	NFS4ERR_NOTSUPP:              "NFS4ERR_NOTSUPP",
	NFS4ERR_SERVERFAULT:          "NFS4ERR_SERVERFAULT",
	NFS4ERR_DELAY:                "NFS4ERR_DELAY",
	NFS4ERR_EXPIRED:              "NFS4ERR_EXPIRED",
	NFS4ERR_GRACE:                "NFS4ERR_GRACE",
	NFS4ERR_CLID_INUSE:           "NFS4ERR_CLID_INUSE",
	NFS4ERR_MINOR_VERS_MISMATCH:  "NFS4ERR_MINOR_VERS_MISMATCH",
	NFS4ERR_STALE_CLIENTID:       "NFS4ERR_STALE_CLIENTID",
	NFS4ERR_STALE_STATEID:        "NFS4ERR_STALE_STATEID",
	NFS4ERR_OLD_STATEID:          "NFS4ERR_OLD_STATEID",
	NFS4ERR_BAD_STATEID:          "NFS4ERR_BAD_STATEID",
	NFS4ERR_NO_GRACE:             "NFS4ERR_NO_GRACE",
	NFS4ERR_BADXDR:               "NFS4ERR_BADXDR",
	NFS4ERR_OP_ILLEGAL:           "NFS4ERR_OP_ILLEGAL",
	NFS4ERR_BADSESSION:           "NFS4ERR_BADSESSION",
	NFS4ERR_BADSLOT:              "NFS4ERR_BADSLOT",
	NFS4ERR_COMPLETE_ALREADY:     "NFS4ERR_COMPLETE_ALREADY",
	NFS4ERR_SEQ_MISORDERED:       "NFS4ERR_SEQ_MISORDERED",
	NFS4ERR_SEQUENCE_POS:         "NFS4ERR_SEQUENCE_POS",
	NFS4ERR_REP_TOO_BIG_TO_CACHE: "NFS4ERR_REP_TOO_BIG_TO_CACHE",
	NFS4ERR_RETRY_UNCACHED_REP:   "NFS4ERR_RETRY_UNCACHED_REP",
	NFS4ERR_TOO_MANY_OPS:         "NFS4ERR_TOO_MANY_OPS",
	NFS4ERR_OP_NOT_IN_SESSION:    "NFS4ERR_OP_NOT_IN_SESSION",
	NFS4ERR_CLIENTID_BUSY:        "NFS4ERR_CLIENTID_BUSY",
	NFS4ERR_NOT_ONLY_OP:          "NFS4ERR_NOT_ONLY_OP",
}

// StatusName returns the symbolic name of a status code.
func StatusName(status uint32) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "NFS4ERR_UNKNOWN"
}

// ============================================================================
// EXCHANGE_ID / CREATE_SESSION flags (RFC 8881 Sections 18.35, 18.36)
// ============================================================================

const (
	EXCHGID4_FLAG_USE_NON_PNFS = 0x00010000
	EXCHGID4_FLAG_CONFIRMED_R  = 0x80000000

	CREATE_SESSION4_FLAG_PERSIST        = 0x00000001
	CREATE_SESSION4_FLAG_CONN_BACK_CHAN = 0x00000002
)

// SEQUENCE status flags (RFC 8881 Section 18.46.3).
const (
	SEQ4_STATUS_EXPIRED_ALL_STATE_REVOKED  = 0x00000008
	SEQ4_STATUS_EXPIRED_SOME_STATE_REVOKED = 0x00000010
	SEQ4_STATUS_RESTART_RECLAIM_NEEDED     = 0x00000400
)

// MaxCompoundOps bounds the number of operations accepted in a single COMPOUND.
const MaxCompoundOps = 128
