package kv

import (
	"github.com/kelindar/binary"
)

// encode marshals v with kelindar/binary and compresses it.
func encode(v any) ([]byte, error) {
	bb, err := binary.Marshal(v)
	if err != nil {
		return nil, err
	}
	return compress(bb)
}

func decode(bbCompressed []byte, v any) error {
	bb, err := decompress(bbCompressed)
	if err != nil {
		return err
	}
	return binary.Unmarshal(bb, v)
}
