package utils

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// compressedMarker prefixes brotli frames; plain JSON never starts with this byte.
const compressedMarker byte = 0x1b

// MaybeCompress brotli-encodes data when it is at least threshold bytes long.
// A threshold <= 0 disables compression.
func MaybeCompress(data []byte, threshold int) ([]byte, error) {
	if threshold <= 0 || len(data) < threshold {
		return data, nil
	}

	var buf bytes.Buffer
	buf.WriteByte(compressedMarker)

	writer := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	if buf.Len() >= len(data) {
		return data, nil
	}

	return buf.Bytes(), nil
}

// Decompress reverses MaybeCompress; uncompressed input is returned as is.
func Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != compressedMarker {
		return data, nil
	}

	return io.ReadAll(brotli.NewReader(bytes.NewReader(data[1:])))
}
