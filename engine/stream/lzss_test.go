package stream

import (
	"bytes"
	"math/rand"
	"testing"
)

func lzssRoundTrip(t *testing.T, data []byte, window int) {
	t.Helper()

	w := NewWriter()
	if !LzssEncode(w, data, window) {
		t.Fatalf("encode failed for %d bytes", len(data))
	}

	got := make([]byte, len(data))
	if !LzssDecode(got, NewReader(w.Bytes())) {
		t.Fatalf("decode failed for %d bytes", len(data))
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, data)
	}
}

func TestLzssRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("a"),
		[]byte("abc"),
		[]byte("hello, world"),
		bytes.Repeat([]byte("abcd"), 1000),
		bytes.Repeat([]byte{0x00}, 5000),
		[]byte("the quick brown fox jumps over the lazy dog, the quick brown fox jumps again"),
	}

	for _, data := range cases {
		lzssRoundTrip(t, data, 65536)
	}
}

func TestLzssRoundTripSmallWindow(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 2000)
	lzssRoundTrip(t, data, 256)
}

func TestLzssRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for trial := 0; trial < 10; trial++ {
		data := make([]byte, rng.Intn(8192))
		rng.Read(data)
		lzssRoundTrip(t, data, 65536)
	}
}

func TestLzssRoundTripMixedRepetitionAndLiteral(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	var data []byte
	pattern := []byte("REPEATEDPATTERN0123")

	for i := 0; i < 200; i++ {
		if i%3 == 0 {
			data = append(data, pattern...)
		} else {
			junk := make([]byte, rng.Intn(37))
			rng.Read(junk)
			data = append(data, junk...)
		}
	}

	lzssRoundTrip(t, data, 65536)
}
