package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "0000000100000002", want: 0x0000000100000002},
		{in: "0x65f0a1b200000001", want: 0x65f0a1b200000001},
		{in: "  ABCDEF  ", want: 0xabcdef},
		{in: "", wantErr: true},
		{in: "0x", wantErr: true},
		{in: "xyz", wantErr: true},
		{in: "10000000000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClientID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatClientID(t *testing.T) {
	assert.Equal(t, "0000000100000002", FormatClientID(0x100000002))

	id, err := ParseClientID(FormatClientID(0xfeedface00000007))
	require.NoError(t, err)
	assert.Equal(t, uint64(0xfeedface00000007), id)
}
