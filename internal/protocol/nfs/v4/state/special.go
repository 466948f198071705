package state

import (
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/types"
)

// StateidKind classifies a stateid presented by a client.
type StateidKind int

const (
	// StateidOrdinary refers to real state; resolve it through the registry.
	StateidOrdinary StateidKind = iota

	// StateidZero is the anonymous stateid: all-zero other, seqid 0.
	StateidZero

	// StateidBypass is the READ bypass stateid: all-ones other, seqid 0xFFFFFFFF.
	StateidBypass

	// StateidCurrent asks for the current stateid of the COMPOUND:
	// all-ones other, seqid 0.
	StateidCurrent
)

func (k StateidKind) String() string {
	switch k {
	case StateidOrdinary:
		return "ordinary"
	case StateidZero:
		return "zero"
	case StateidBypass:
		return "bypass"
	case StateidCurrent:
		return "current"
	default:
		return "unknown"
	}
}

var (
	otherAllZeros [types.NFS4_OTHER_SIZE]byte
	otherAllOnes  = [types.NFS4_OTHER_SIZE]byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}
)

// ClassifySpecialStateid interprets the reserved stateid values.
// allowSpecial tells whether the calling operation accepts the zero and
// bypass stateids. The result depends only on its arguments.
func ClassifySpecialStateid(sid types.Stateid4, allowSpecial bool) (StateidKind, error) {
	switch sid.Other {
	case otherAllZeros:
		if sid.Seqid != 0 {
			return StateidOrdinary, newStateError(types.NFS4ERR_BAD_STATEID, "bad seqid")
		}
		if !allowSpecial {
			return StateidOrdinary, newStateError(types.NFS4ERR_BAD_STATEID, "can't use zero stateid")
		}
		return StateidZero, nil

	case otherAllOnes:
		switch sid.Seqid {
		case 0xffffffff:
			if !allowSpecial {
				return StateidOrdinary, newStateError(types.NFS4ERR_BAD_STATEID, "can't use bypass stateid")
			}
			return StateidBypass, nil
		case 0:
			return StateidCurrent, nil
		default:
			return StateidOrdinary, newStateError(types.NFS4ERR_BAD_STATEID, "bad seqid")
		}
	}

	if sid.Seqid != 0 {
		return StateidOrdinary, newStateError(types.NFS4ERR_BAD_STATEID, "bad seqid")
	}
	return StateidOrdinary, nil
}
