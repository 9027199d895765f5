package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	c, err := NewCodec(2, true)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	defer c.Close()

	payload := []byte(strings.Repeat("supply chain event record ", 200))
	encoded, compressed := c.Encode(payload)
	if !compressed {
		t.Fatal("repetitive payload reported as not compressed")
	}
	if len(encoded) >= len(payload) {
		t.Errorf("repetitive payload did not shrink: %d >= %d", len(encoded), len(payload))
	}

	decoded, err := c.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("round trip mismatch")
	}
}

func TestCodecPassthroughSmall(t *testing.T) {
	c, err := NewCodec(2, true)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	defer c.Close()

	small := []byte(`{"a":1}`)
	got, compressed := c.Encode(small)
	if compressed {
		t.Error("tiny payload reported as compressed")
	}
	if !bytes.Equal(got, small) {
		t.Error("tiny payload was transformed")
	}
}

func TestCodecIncompressiblePassthrough(t *testing.T) {
	c, err := NewCodec(2, true)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	defer c.Close()

	// Pseudo-random bytes do not shrink, so the codec must hand them
	// back unchanged and say so.
	payload := make([]byte, 4096)
	state := uint32(0x9e3779b9)
	for i := range payload {
		state = state*1664525 + 1013904223
		payload[i] = byte(state >> 24)
	}

	got, compressed := c.Encode(payload)
	if compressed {
		t.Error("incompressible payload reported as compressed")
	}
	if !bytes.Equal(got, payload) {
		t.Error("incompressible payload was transformed")
	}
}

func TestCodecDisabled(t *testing.T) {
	c, err := NewCodec(0, false)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	defer c.Close()

	payload := []byte(strings.Repeat("x", 4096))
	got, compressed := c.Encode(payload)
	if compressed {
		t.Error("disabled codec reported compression")
	}
	if !bytes.Equal(got, payload) {
		t.Error("disabled codec transformed the payload")
	}
}

func TestDisabledCodecReadsCompressedStore(t *testing.T) {
	// A store written with compression on must stay readable after the
	// operator turns compression off.
	writer, err := NewCodec(2, true)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	defer writer.Close()

	payload := []byte(strings.Repeat("archived event ", 300))
	encoded, compressed := writer.Encode(payload)
	if !compressed {
		t.Fatal("repetitive payload reported as not compressed")
	}

	reader, err := NewCodec(0, false)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	defer reader.Close()

	decoded, err := reader.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("compressed object unreadable with compression disabled")
	}
}
