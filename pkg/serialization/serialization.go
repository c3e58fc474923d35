package serialization

import (
	"bytes"
	"fmt"
)

// Decoder and Encoder are the interface for serialization.
type Decoder interface {
	Decode(v any) error
}

// Encoder and Decoder are the interface for serialization.
type Encoder interface {
	Encode(v any) error
}

// Marshal encodes v as compact JSON without HTML escaping and without the
// trailing newline the stream encoder appends.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := JsonEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	if err := JsonDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}
