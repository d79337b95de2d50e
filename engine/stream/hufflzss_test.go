package stream

import (
	"bytes"
	"math/rand"
	"testing"
)

func huffLzssRoundTrip(t *testing.T, data []byte) {
	t.Helper()

	w := NewWriter()
	if !EncodeHuffLzss(w, data) {
		t.Fatalf("encode failed for %d bytes", len(data))
	}

	got := make([]byte, len(data))
	if !DecodeHuffLzss(got, NewReader(w.Bytes())) {
		t.Fatalf("decode failed for %d bytes", len(data))
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, data)
	}
}

func TestHuffLzssRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("a"),
		[]byte("hello, world"),
		bytes.Repeat([]byte("abcd"), 1000),
	}

	for _, data := range cases {
		huffLzssRoundTrip(t, data)
	}
}

func TestHuffLzssRoundTripMultiChunk(t *testing.T) {
	rng := rand.New(rand.NewSource(4))

	// Span several 64 KiB chunks, with a mix of compressible and
	// high-entropy regions so both chunk paths get exercised.
	var data []byte
	for i := 0; i < 3; i++ {
		data = append(data, bytes.Repeat([]byte{byte(i)}, huffLzssChunkSize)...)

		junk := make([]byte, huffLzssChunkSize/2)
		rng.Read(junk)
		data = append(data, junk...)
	}

	huffLzssRoundTrip(t, data)
}

func TestHuffLzssRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	for trial := 0; trial < 5; trial++ {
		data := make([]byte, rng.Intn(huffLzssChunkSize*2))
		rng.Read(data)
		huffLzssRoundTrip(t, data)
	}
}
