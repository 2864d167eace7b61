package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestMaybeCompressBelowThreshold(t *testing.T) {
	data := []byte(`{"id":"a"}`)
	out, err := MaybeCompress(data, 1024)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("expected data untouched, got %q", out)
	}
}

func TestMaybeCompressRoundTrip(t *testing.T) {
	data := []byte(`[` + strings.Repeat(`{"id":"record","payload":"aaaaaaaaaaaaaaaa"},`, 200) + `{}]`)
	out, err := MaybeCompress(data, 64)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if len(out) >= len(data) {
		t.Fatalf("expected compressed output smaller than %d, got %d", len(data), len(out))
	}
	if out[0] != compressedMarker {
		t.Fatalf("expected marker byte, got %x", out[0])
	}

	back, err := Decompress(out)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Fatal("round trip mismatch")
	}
}

func TestDecompressPlain(t *testing.T) {
	back, err := Decompress([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(back) != `{"a":1}` {
		t.Fatalf("got %q", back)
	}
}
