package types

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// EncodeResult XDR-encodes an operation result body for CompoundResult.Data.
func EncodeResult(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("xdr encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// DecodeResult decodes a result body previously produced by EncodeResult.
func DecodeResult(data []byte, v any) error {
	if _, err := xdr.Unmarshal(bytes.NewReader(data), v); err != nil {
		return fmt.Errorf("xdr decode %T: %w", v, err)
	}
	return nil
}
