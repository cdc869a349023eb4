package datastructure

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// CompressData zstd-compresses data into out with the best compression level,
// preprocessing output is written once and read many times.
func CompressData(data []byte, out io.Writer) error {
	encoder, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	if _, err = io.Copy(encoder, bytes.NewReader(data)); err != nil {
		encoder.Close()
		return fmt.Errorf("failed to compress data: %w", err)
	}
	return encoder.Close()
}

// DecompressData reads a zstd stream from in and returns the decompressed bytes.
func DecompressData(in io.Reader) ([]byte, error) {
	d, err := zstd.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer d.Close()

	var out bytes.Buffer
	if _, err = io.Copy(&out, d); err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}
	return out.Bytes(), nil
}
