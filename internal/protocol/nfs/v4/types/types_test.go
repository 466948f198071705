package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceResXDRLayout(t *testing.T) {
	res := &SequenceRes{
		SessionID:           SessionId4{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SequenceID:          7,
		SlotID:              2,
		HighestSlotID:       63,
		TargetHighestSlotID: 63,
	}

	data, err := EncodeResult(res)
	require.NoError(t, err)

	// 16-byte fixed opaque followed by five uint32 fields.
	assert.Len(t, data, 16+5*4)
	assert.Equal(t, res.SessionID[:], data[:16])
	assert.Equal(t, []byte{0, 0, 0, 7}, data[16:20])

	var decoded SequenceRes
	require.NoError(t, DecodeResult(data, &decoded))
	assert.Equal(t, *res, decoded)
}

func TestCloneResultsDoesNotAlias(t *testing.T) {
	orig := []CompoundResult{{Status: NFS4_OK, OpCode: OP_SEQUENCE, Data: []byte{1, 2}}}
	clone := CloneResults(orig)

	orig[0].Data[0] = 9
	assert.Equal(t, byte(1), clone[0].Data[0])
	assert.Nil(t, CloneResults(nil))
}

func TestNames(t *testing.T) {
	assert.Equal(t, "SEQUENCE", OpName(OP_SEQUENCE))
	assert.Equal(t, "UNKNOWN", OpName(999))
	assert.Equal(t, "NFS4ERR_SEQUENCE_POS", StatusName(NFS4ERR_SEQUENCE_POS))
	assert.Equal(t, "NFS4ERR_UNKNOWN", StatusName(1))
}
