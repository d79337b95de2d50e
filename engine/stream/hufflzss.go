package stream

const huffLzssChunkSize = 1 << 16

// EncodeHuffLzss compresses data by running it through LZSS once and
// then Huffman-coding the result in 64 KiB chunks, falling back to a
// raw 8-bit-per-byte chunk whenever Huffman coding would not actually
// shrink that chunk (tiny or high-entropy chunks).
//
// The distilled format calls lzssEncode with a window size of 0 here,
// which collapses its node freelist to zero capacity and can never
// produce a match; that call site is not reachable with a working
// dictionary. Wiring a zero-capacity dictionary through on purpose
// would turn this into a no-op LZSS pass, which defeats the point of
// running LZSS before Huffman coding, so this codes against the
// maximum window instead.
func EncodeHuffLzss(dst *Writer, data []byte) bool {
	lzssBuf := NewWriter()
	if !LzssEncode(lzssBuf, data, lzssMaxSlidingWindow) {
		return false
	}
	lzssData := lzssBuf.Bytes()

	bw := NewBitWriter(dst)
	bw.Write(uint64(len(lzssData)), 32)

	for i := 0; i < len(lzssData); i += huffLzssChunkSize {
		end := i + huffLzssChunkSize
		if end > len(lzssData) {
			end = len(lzssData)
		}
		chunk := lzssData[i:end]

		counter := NewHuffmanCounter()
		counter.Add(chunk)

		trie := NewHuffmanTrie(counter)
		encoder := trie.CreateEncoder()
		decoder := trie.CreateDecoder()

		chunkCost := decoder.ComputeSize() + encoder.ComputeEncodedSize(counter)

		if chunkCost < len(chunk) {
			bw.Write(1, 1)
			decoder.Write(bw)
			encoder.Encode(bw, chunk)
		} else {
			bw.Write(0, 1)
			for _, b := range chunk {
				bw.Write(uint64(b), 8)
			}
		}
	}

	bw.Flush()
	return true
}

// DecodeHuffLzss reverses EncodeHuffLzss into dst, which must be
// exactly the decompressed size.
func DecodeHuffLzss(dst []byte, src *Reader) bool {
	br := NewBitReader(src)
	lzssSize := int(br.Read(32))

	lzssWriter := NewWriter()

	for i := 0; i < lzssSize; i += huffLzssChunkSize {
		chunkSize := huffLzssChunkSize
		if lzssSize-i < chunkSize {
			chunkSize = lzssSize - i
		}

		if br.Read(1) != 0 {
			decoder := &HuffmanDecoder{}
			if !decoder.Read(br) {
				return false
			}

			chunk := make([]byte, chunkSize)
			decoder.Decode(br, chunk)
			lzssWriter.Write(chunk)
		} else {
			for j := 0; j < chunkSize; j++ {
				lzssWriter.WriteByte(byte(br.Read(8)))
			}
		}
	}

	if lzssWriter.Size() != lzssSize {
		return false
	}

	return LzssDecode(dst, NewReader(lzssWriter.Bytes()))
}
