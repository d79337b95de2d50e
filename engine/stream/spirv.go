package stream

import "encoding/binary"

// spirvShiftForSchema maps each of the four 2-bit block schemas to the
// bit position the second packed token (if any) starts at. Schema 0
// packs a single uncompressed dword; schemas 1-3 pack two tokens with
// varying bit widths chosen to fit common SPIR-V opcode/type-id
// patterns.
var spirvShiftForSchema = [4]uint32{32, 20, 16, 12}

// SpirvEncode compresses a SPIR-V binary (len(data) must be a multiple
// of 4) using a variable-to-fixed scheme: consecutive pairs of dwords
// are packed into one dword using whichever of four bit-width splits
// fits both values, in blocks of 16 packed dwords preceded by one
// control dword carrying the per-slot schema (2 bits each).
//
// The distilled format reads the pair to encode through a sequential
// stream reader that carries one dword of lookahead across loop
// iterations. Since every schema consumes exactly as many dwords as it
// reads, that lookahead value is always equal to data[i]; this walks
// data by index directly instead of reimplementing the carry.
func SpirvEncode(dst *Writer, data []byte) bool {
	dwordCount := uint32(len(data) / 4)
	dst.WriteUint32(dwordCount)

	dword := func(i uint32) uint32 {
		return binary.LittleEndian.Uint32(data[4*i:])
	}

	var block [16]uint32
	blockControl := uint32(0)
	blockSize := uint32(0)

	for i := uint32(0); i < dwordCount; {
		a := dword(i)

		var schema, encode uint32

		if i+1 < dwordCount {
			b := dword(i + 1)

			switch {
			case a < (1 << 16) && b < (1<<16):
				schema, encode = 0x2, a|(b<<16)
			case a < (1 << 20) && b < (1<<12):
				schema, encode = 0x1, a|(b<<20)
			case a < (1 << 12) && b < (1<<20):
				schema, encode = 0x3, a|(b<<12)
			default:
				schema, encode = 0x0, a
			}
		} else {
			schema, encode = 0x0, a
		}

		blockControl |= schema << (blockSize * 2)
		block[blockSize] = encode
		blockSize++

		if schema != 0 {
			i += 2
		} else {
			i += 1
		}

		if blockSize == uint32(len(block)) || i == dwordCount {
			dst.WriteUint32(blockControl)
			for j := uint32(0); j < blockSize; j++ {
				dst.WriteUint32(block[j])
			}

			blockControl = 0
			blockSize = 0
		}
	}

	return true
}

// SpirvGetDecodedSize returns the decompressed size in bytes stored in
// the leading dword of a compressed SPIR-V binary, without decoding
// it.
func SpirvGetDecodedSize(src []byte) (int, bool) {
	if len(src) < 4 {
		return 0, false
	}
	return int(binary.LittleEndian.Uint32(src)) * 4, true
}

// SpirvDecode reverses SpirvEncode.
func SpirvDecode(src []byte) ([]byte, bool) {
	if len(src) < 4 {
		return nil, false
	}

	dwordsTotal := binary.LittleEndian.Uint32(src)
	out := make([]byte, 0, dwordsTotal*4)

	pos := 4
	dwordsWritten := uint32(0)

	var buf [4]byte

	for dwordsWritten < dwordsTotal {
		if pos+4 > len(src) {
			return nil, false
		}
		blockControl := binary.LittleEndian.Uint32(src[pos:])
		pos += 4

		for i := 0; i < 16 && dwordsWritten < dwordsTotal; i++ {
			if pos+4 > len(src) {
				return nil, false
			}
			dword := uint64(binary.LittleEndian.Uint32(src[pos:]))
			pos += 4

			schema := (blockControl >> uint(i*2)) & 0x3
			shift := spirvShiftForSchema[schema]
			mask := (uint64(1) << shift) - 1

			binary.LittleEndian.PutUint32(buf[:], uint32(dword&mask))
			out = append(out, buf[:]...)
			dwordsWritten++

			if schema != 0 {
				binary.LittleEndian.PutUint32(buf[:], uint32(dword>>shift))
				out = append(out, buf[:]...)
				dwordsWritten++
			}
		}
	}

	if dwordsWritten != dwordsTotal {
		return nil, false
	}
	return out, true
}
