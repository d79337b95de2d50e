package stream

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"
)

func dwordsToBytes(dwords []uint32) []byte {
	out := make([]byte, len(dwords)*4)
	for i, d := range dwords {
		binary.LittleEndian.PutUint32(out[4*i:], d)
	}
	return out
}

func spirvRoundTrip(t *testing.T, dwords []uint32) {
	t.Helper()

	data := dwordsToBytes(dwords)

	w := NewWriter()
	if !SpirvEncode(w, data) {
		t.Fatalf("encode failed for %d dwords", len(dwords))
	}

	size, ok := SpirvGetDecodedSize(w.Bytes())
	if !ok || size != len(data) {
		t.Fatalf("decoded size mismatch: got %d, want %d", size, len(data))
	}

	got, ok := SpirvDecode(w.Bytes())
	if !ok {
		t.Fatalf("decode failed for %d dwords", len(dwords))
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, dwords)
	}
}

func TestSpirvRoundTripEmpty(t *testing.T) {
	spirvRoundTrip(t, nil)
}

func TestSpirvRoundTripSingleDword(t *testing.T) {
	spirvRoundTrip(t, []uint32{0x12345678})
}

func TestSpirvRoundTripSchemas(t *testing.T) {
	cases := [][]uint32{
		{0x0000FFFF, 0x00010000},       // b one past 16 bits: schema 0 twice
		{0x000FFFFF, 0x00000FFE},       // schema 1: 20+12
		{0x00000FFE, 0x000FFFFF},       // schema 3: 12+20
		{0xFFFFFFFF, 0xFFFFFFFF},       // forces schema 0 twice
	}

	for _, dwords := range cases {
		spirvRoundTrip(t, dwords)
	}
}

func TestSpirvRoundTripLargeBlock(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	dwords := make([]uint32, 500)
	for i := range dwords {
		switch i % 4 {
		case 0:
			dwords[i] = uint32(rng.Intn(1 << 16))
		case 1:
			dwords[i] = uint32(rng.Intn(1 << 20))
		case 2:
			dwords[i] = uint32(rng.Intn(1 << 12))
		default:
			dwords[i] = rng.Uint32()
		}
	}

	spirvRoundTrip(t, dwords)
}
