package stream

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestHuffmanRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello, world"),
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		[]byte{0x01},
		[]byte{},
		[]byte("odd length"),
	}

	for _, data := range cases {
		w := NewWriter()
		EncodeHuffmanBinary(w, data)

		got, ok := DecodeHuffmanBinary(NewReader(w.Bytes()))
		if !ok {
			t.Fatalf("decode failed for input %q", data)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch: got %v, want %v", got, data)
		}
	}
}

func TestHuffmanRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 20; trial++ {
		data := make([]byte, rng.Intn(4096))
		rng.Read(data)

		w := NewWriter()
		EncodeHuffmanBinary(w, data)

		got, ok := DecodeHuffmanBinary(NewReader(w.Bytes()))
		if !ok {
			t.Fatalf("decode failed on trial %d", trial)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch on trial %d", trial)
		}
	}
}

func TestHuffmanCounterAccumulate(t *testing.T) {
	a := NewHuffmanCounter()
	a.Add([]byte("ab"))

	b := NewHuffmanCounter()
	b.Add([]byte("ab"))

	a.Accumulate(b)

	code := uint16('a') | uint16('b')<<8
	if a.get(code) != 2 {
		t.Fatalf("expected accumulated count of 2, got %d", a.get(code))
	}
}
