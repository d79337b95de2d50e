package stream

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestDeflateRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		[]byte("hello, world"),
		bytes.Repeat([]byte("abcd"), 4000),
	}

	for _, data := range cases {
		w := NewWriter()
		if !DeflateEncode(w, data) {
			t.Fatalf("encode failed for %d bytes", len(data))
		}

		got := make([]byte, len(data))
		if !DeflateDecode(got, w.Bytes()) {
			t.Fatalf("decode failed for %d bytes", len(data))
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("round trip mismatch for %d bytes", len(data))
		}
	}
}

func TestGDeflateRoundTripSinglePage(t *testing.T) {
	data := bytes.Repeat([]byte("gdeflate"), 100)

	w := NewWriter()
	if !GDeflateEncode(w, data) {
		t.Fatal("encode failed")
	}

	got := make([]byte, len(data))
	if !GDeflateDecode(got, w.Bytes()) {
		t.Fatal("decode failed")
	}
	if !bytes.Equal(got, data) {
		t.Fatal("round trip mismatch")
	}
}

func TestGDeflateRoundTripMultiPage(t *testing.T) {
	rng := rand.New(rand.NewSource(6))

	data := make([]byte, gdeflatePageSize*3+1234)
	rng.Read(data)

	w := NewWriter()
	if !GDeflateEncode(w, data) {
		t.Fatal("encode failed")
	}

	got := make([]byte, len(data))
	if !GDeflateDecode(got, w.Bytes()) {
		t.Fatal("decode failed")
	}
	if !bytes.Equal(got, data) {
		t.Fatal("round trip mismatch")
	}
}

func TestGDeflateRoundTripEmpty(t *testing.T) {
	w := NewWriter()
	if !GDeflateEncode(w, nil) {
		t.Fatal("encode failed")
	}

	got := make([]byte, 0)
	if !GDeflateDecode(got, w.Bytes()) {
		t.Fatal("decode failed")
	}
}
