package geometry

import (
	stdmath "math"

	"github.com/alseid-engine/anima/engine/stream"
)

func f32bits(v float32) uint32 {
	return stdmath.Float32bits(v)
}

func readF32(r *stream.Reader) (float32, bool) {
	bits, ok := r.ReadUint32()
	if !ok {
		return 0, false
	}
	return stdmath.Float32frombits(bits), true
}

func float32frombits(bits uint32) float32 {
	return stdmath.Float32frombits(bits)
}

func sqrt32(v float32) float32 {
	return float32(stdmath.Sqrt(float64(v)))
}
