package stream

import "encoding/binary"

const (
	lzssMaxSequenceLength = 16448
	lzssMaxSlidingWindow  = 65536
	lzssMaxPatternLength  = 67
)

// lzssNode is one slot of a doubly linked list of prior occurrences of
// a given 4-byte pattern, ordered most recent first.
type lzssNode struct {
	offset     int
	next, prev int
}

type lzssList struct {
	head, tail int
}

// lzssEncoder finds repeated 4-byte-or-longer patterns within a
// sliding window and encodes the input as a sequence of literal runs
// and back-references.
type lzssEncoder struct {
	window int

	lut       map[uint32]*lzssList
	nodes     []lzssNode
	free      []int
	freeCount int
}

func newLzssEncoder(window int) *lzssEncoder {
	if window > lzssMaxSlidingWindow {
		window = lzssMaxSlidingWindow
	}
	if window < 4 {
		window = 4
	}

	e := &lzssEncoder{
		window: window,
		lut:    make(map[uint32]*lzssList),
		nodes:  make([]lzssNode, window),
		free:   make([]int, window),
	}
	for i := 0; i < window; i++ {
		e.free[i] = window - i - 1
	}
	e.freeCount = window
	return e
}

// LzssEncode compresses data into dst using a sliding window of the
// given size (clamped to 65536 bytes).
func LzssEncode(dst *Writer, data []byte, window int) bool {
	return newLzssEncoder(window).encode(dst, data)
}

func (e *lzssEncoder) encode(dst *Writer, data []byte) bool {
	size := len(data)
	sequenceLength := 0
	skipLength := 0
	success := true

	for i := 0; i < size; i++ {
		matchLength := 0
		matchOffset := 0

		if i+4 <= size {
			dw := binary.LittleEndian.Uint32(data[i:])

			if skipLength == 0 {
				// Walk every prior occurrence of this 4-byte pattern,
				// most recent first, and keep the longest match.
				nodeID := e.findLUT(dw)

				for nodeID >= 0 {
					offset := e.nodes[nodeID].offset
					nodeID = e.nodes[nodeID].next

					maxLength := min3(lzssMaxPatternLength, size-i, i-offset)
					if maxLength < 4 {
						continue
					}

					m := matchLen(data[offset:], data[i:], maxLength)
					if m >= 4 && m > matchLength {
						matchOffset = offset
						matchLength = m
					}
				}
			}

			if i >= e.window {
				pattern := binary.LittleEndian.Uint32(data[i-e.window:])
				e.removeLUT(pattern)
			}

			e.insertLUT(dw, i)
		}

		if skipLength == 0 {
			if matchLength != 0 {
				if sequenceLength != 0 {
					success = emitSequence(dst, sequenceLength, data[i-sequenceLength:i]) && success
					sequenceLength = 0
				}

				success = emitRepetition(dst, i-matchOffset, matchLength) && success
				skipLength = matchLength - 1
			} else {
				sequenceLength++

				if sequenceLength == lzssMaxSequenceLength || i+1 == size {
					success = emitSequence(dst, sequenceLength, data[i+1-sequenceLength:i+1]) && success
					sequenceLength = 0
				}
			}
		} else {
			skipLength--
		}
	}

	return success
}

// matchLen returns the length of the common prefix of a and b, up to
// maxLength bytes.
func matchLen(a, b []byte, maxLength int) int {
	for i := 0; i < maxLength; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return maxLength
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func emitSequence(dst *Writer, length int, data []byte) bool {
	if length == 0 {
		return true
	}
	if length > (1<<14)+64 {
		return false
	}

	// Up to 64 bytes: 00xxxxxx with length-1 in 6 bits.
	// Longer: 01xxxxxx yyyyyyyy with length-65 in 14 bits.
	encodedLength := length - 1

	if encodedLength < 64 {
		dst.WriteByte(byte(encodedLength))
	} else {
		encodedLength -= 64
		dst.WriteByte(byte(0x40 | (encodedLength >> 8)))
		dst.WriteByte(byte(encodedLength))
	}

	dst.Write(data)
	return true
}

func emitRepetition(dst *Writer, offset, length int) bool {
	// Patterns shorter than 4 bytes are never matched.
	length -= 4
	if length >= (1 << 6) {
		return false
	}

	offset -= 1

	if offset < (1 << 8) {
		dst.WriteByte(byte(0x80 | length))
		dst.WriteByte(byte(offset))
	} else if offset < (1 << 16) {
		dst.WriteByte(byte(0xC0 | length))
		dst.WriteUint16(uint16(offset))
	} else {
		return false
	}

	return true
}

func (e *lzssEncoder) findLUT(pattern uint32) int {
	list, ok := e.lut[pattern]
	if !ok {
		return -1
	}
	return list.head
}

func (e *lzssEncoder) insertLUT(pattern uint32, offset int) {
	e.freeCount--
	nodeID := e.free[e.freeCount]

	list, ok := e.lut[pattern]
	if !ok {
		list = &lzssList{head: nodeID, tail: nodeID}
		e.lut[pattern] = list

		e.nodes[nodeID] = lzssNode{offset: offset, next: -1, prev: -1}
		return
	}

	e.nodes[nodeID] = lzssNode{offset: offset, next: list.head, prev: -1}
	e.nodes[list.head].prev = nodeID
	list.head = nodeID
}

func (e *lzssEncoder) removeLUT(pattern uint32) {
	list, ok := e.lut[pattern]
	if !ok {
		return
	}

	e.free[e.freeCount] = list.tail
	e.freeCount++

	list.tail = e.nodes[list.tail].prev
	if list.tail == -1 {
		delete(e.lut, pattern)
	} else {
		e.nodes[list.tail].next = -1
	}
}

// LzssDecode decompresses src into dst, which must be exactly the
// decompressed size.
func LzssDecode(dst []byte, src *Reader) bool {
	size := len(dst)
	written := 0

	for written < size {
		control, ok := src.ReadByte()
		if !ok {
			return false
		}

		if control&0x80 != 0 {
			length := int(control&0x3F) + 4

			var offset int
			var ok2 bool
			if control&0x40 != 0 {
				var v uint16
				v, ok2 = src.ReadUint16()
				offset = int(v)
			} else {
				var v byte
				v, ok2 = src.ReadByte()
				offset = int(v)
			}
			offset++

			if !ok2 || written+length > size || offset > written {
				return false
			}

			// Back-reference may overlap the region being written
			// (e.g. run-length patterns), so copy byte by byte rather
			// than via copy().
			for j := 0; j < length; j++ {
				dst[written+j] = dst[written-offset+j]
			}
			written += length
		} else {
			length := int(control & 0x3F)

			if control&0x40 != 0 {
				control2, ok2 := src.ReadByte()
				if !ok2 {
					return false
				}
				length = (length << 8) + int(control2) + 64
			}
			length++

			if written+length > size {
				return false
			}
			if !src.Read(dst[written : written+length]) {
				return false
			}
			written += length
		}
	}

	return true
}
