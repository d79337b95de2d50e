package stream

import "container/heap"

const (
	huffmanMaxCodeCount = 1 << 16
	huffmanMaxNodeCount = huffmanMaxCodeCount*2 - 1
)

// HuffmanCounter tallies how often each 16-bit code occurs in a byte
// stream, viewing the stream as a sequence of little-endian uint16
// words with an optional trailing odd byte treated as its own code.
type HuffmanCounter struct {
	counts [huffmanMaxCodeCount]uint64
}

// NewHuffmanCounter returns a zeroed counter.
func NewHuffmanCounter() *HuffmanCounter {
	return &HuffmanCounter{}
}

// Add tallies the codes found in data.
func (c *HuffmanCounter) Add(data []byte) {
	n := len(data) / 2
	for i := 0; i < n; i++ {
		word := uint16(data[2*i]) | uint16(data[2*i+1])<<8
		c.counts[word]++
	}
	if len(data)&1 != 0 {
		c.counts[data[len(data)-1]]++
	}
}

// Accumulate adds another counter's tallies into this one, useful when
// gathering statistics from multiple streams compressed in parallel.
func (c *HuffmanCounter) Accumulate(other *HuffmanCounter) {
	for i := range c.counts {
		c.counts[i] += other.counts[i]
	}
}

func (c *HuffmanCounter) get(code uint16) uint64 {
	return c.counts[code]
}

// huffmanEncoderEntry holds the bit-reversed-free code for one symbol.
type huffmanEncoderEntry struct {
	bitCount uint32
	codeBits uint64
}

// HuffmanEncoder is the accelerated table built from a HuffmanTrie
// that maps each 16-bit code to its variable-length bit pattern.
type HuffmanEncoder struct {
	entries [huffmanMaxCodeCount]huffmanEncoderEntry
}

func (e *HuffmanEncoder) setCode(code uint16, bitCount uint32, codeBits uint64) {
	e.entries[code] = huffmanEncoderEntry{bitCount: bitCount, codeBits: codeBits}
}

// ComputeEncodedSize returns the number of bytes Encode would write
// for data whose code frequencies match counter, without actually
// encoding anything. Used to decide whether Huffman compression is
// worthwhile for a given chunk.
func (e *HuffmanEncoder) ComputeEncodedSize(counter *HuffmanCounter) int {
	var bits uint64
	for code := 0; code < huffmanMaxCodeCount; code++ {
		count := counter.get(uint16(code))
		if count == 0 {
			continue
		}
		bits += uint64(e.entries[code].bitCount) * count
	}
	return int((bits + 7) / 8)
}

// Encode writes data to stream, coding two bytes at a time and, if
// data has an odd length, the final byte on its own.
func (e *HuffmanEncoder) Encode(w *BitWriter, data []byte) {
	n := len(data) / 2
	for i := 0; i < n; i++ {
		word := uint16(data[2*i]) | uint16(data[2*i+1])<<8
		entry := e.entries[word]
		w.Write(entry.codeBits, entry.bitCount)
	}
	if len(data)&1 != 0 {
		entry := e.entries[data[len(data)-1]]
		w.Write(entry.codeBits, entry.bitCount)
	}
}

// huffmanDecEntry is shared by the sparse interior-node table and the
// 16-bit fast-path lookup table.
type huffmanDecEntry struct {
	bits uint8
	next uint8
	data uint16
}

// HuffmanDecoder is the accelerated table built from a HuffmanTrie
// that decodes a bit stream back into 16-bit codes. Codes with a
// canonical length of 16 bits or less resolve with a single lookup;
// longer codes fall through to a handful of extra table hops.
type HuffmanDecoder struct {
	entryCount uint32
	entries    [huffmanMaxNodeCount]huffmanDecEntry
	lookup     [huffmanMaxCodeCount]huffmanDecEntry
}

func huffmanEncodeOffset(offset uint32) uint16 {
	return uint16(offset >> 1)
}

func huffmanDecodeOffset(compressed uint16) uint32 {
	return (uint32(compressed) << 1) + 1
}

func (d *HuffmanDecoder) allocate(depth uint32) uint32 {
	index := d.entryCount
	d.entryCount += 1 << depth
	return index
}

func (d *HuffmanDecoder) setLeafEntry(entry uint32, code uint16) {
	d.entries[entry] = huffmanDecEntry{data: code}
}

func (d *HuffmanDecoder) setDecodeEntry(entry, bits, offset uint32) {
	d.entries[entry] = huffmanDecEntry{bits: uint8(bits), data: huffmanEncodeOffset(offset)}
}

func (d *HuffmanDecoder) createLookupTable() {
	for i := 0; i < huffmanMaxCodeCount; i++ {
		e := &d.entries[0]
		bits := uint32(0)

		for e.bits != 0 && bits+uint32(e.bits) <= 16 {
			offset := huffmanDecodeOffset(e.data)
			index := (uint32(i) >> bits) & ((1 << e.bits) - 1)

			bits += uint32(e.bits)
			e = &d.entries[offset+index]
		}

		d.lookup[i] = huffmanDecEntry{bits: uint8(bits), next: e.bits, data: e.data}
	}
}

// Decode reads size bytes of decoded output from stream into dst,
// which must have length size.
func (d *HuffmanDecoder) Decode(r *BitReader, dst []byte) {
	size := len(dst)
	for i := 0; i < size; i += 2 {
		e := &d.lookup[r.Peek(16)]
		r.Read(uint32(e.bits))

		if e.next != 0 {
			offset := huffmanDecodeOffset(e.data)
			index := uint32(r.Read(uint32(e.next)))
			e = &d.entries[offset+index]

			for e.bits != 0 {
				offset = huffmanDecodeOffset(e.data)
				index = uint32(r.Read(uint32(e.bits)))
				e = &d.entries[offset+index]
			}
		}

		code := e.data
		if i+2 <= size {
			dst[i] = byte(code)
			dst[i+1] = byte(code >> 8)
		} else {
			dst[i] = byte(code)
		}
	}
}

// ComputeSize returns the number of bytes Write would produce for this
// decoding table, without actually serializing it.
func (d *HuffmanDecoder) ComputeSize() int {
	bits := 16 + uint64(d.entryCount)*(5+16)
	return int((bits + 7) / 8)
}

// Read loads a decoding table previously written by Write.
func (d *HuffmanDecoder) Read(r *BitReader) bool {
	compressed := uint16(r.Read(16))
	d.entryCount = huffmanDecodeOffset(compressed)

	for i := uint32(0); i < d.entryCount; i++ {
		bits := uint8(r.Read(5))
		data := uint16(r.Read(16))

		if bits != 0 && data >= compressed {
			return false
		}
		d.entries[i] = huffmanDecEntry{bits: bits, data: data}
	}

	d.createLookupTable()
	return true
}

// Write serializes the decoding table to stream in its compact form.
func (d *HuffmanDecoder) Write(w *BitWriter) {
	w.Write(uint64(huffmanEncodeOffset(d.entryCount)), 16)

	for i := uint32(0); i < d.entryCount; i++ {
		e := d.entries[i]
		w.Write(uint64(e.bits), 5)
		w.Write(uint64(e.data), 16)
	}
}

// huffmanTrieNode is an internal or leaf node of the code tree. A node
// is a leaf exactly when left == right, which never holds for an
// internal node since its two children always have distinct indices.
type huffmanTrieNode struct {
	left  uint32
	right uint32
	code  uint16
}

// HuffmanTrie builds the canonical code tree from symbol counts and
// produces matching encoder/decoder tables from it.
type HuffmanTrie struct {
	nodes []huffmanTrieNode
}

type huffmanBuildNode struct {
	value uint64
	index uint32
}

type huffmanNodeHeap []huffmanBuildNode

func (h huffmanNodeHeap) Len() int            { return len(h) }
func (h huffmanNodeHeap) Less(i, j int) bool  { return h[i].value < h[j].value }
func (h huffmanNodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *huffmanNodeHeap) Push(x interface{}) { *h = append(*h, x.(huffmanBuildNode)) }
func (h *huffmanNodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NewHuffmanTrie builds a trie from the given symbol counts. Symbols
// that never occur have no leaf; if the counter is empty, or contains
// exactly one distinct symbol, a dummy second leaf is synthesized so
// the tree always has at least two leaves and every real symbol gets
// a non-empty code.
func NewHuffmanTrie(counter *HuffmanCounter) *HuffmanTrie {
	var nodes []huffmanTrieNode
	var weights []uint64
	h := &huffmanNodeHeap{}

	for i := 0; i < huffmanMaxCodeCount; i++ {
		if v := counter.get(uint16(i)); v != 0 {
			index := uint32(len(nodes))
			nodes = append(nodes, huffmanTrieNode{code: uint16(i)})
			weights = append(weights, v)
			heap.Push(h, huffmanBuildNode{value: v, index: index})
		}
	}

	if len(nodes) < 1 {
		nodes = append(nodes, huffmanTrieNode{})
		weights = append(weights, 0)
		heap.Push(h, huffmanBuildNode{value: 0, index: 0})
	}

	if len(nodes) < 2 {
		index := uint32(len(nodes))
		nodes = append(nodes, nodes[0])
		w := weights[0]
		weights = append(weights, w)
		heap.Push(h, huffmanBuildNode{value: w, index: index})
	}

	for h.Len() > 1 {
		a := heap.Pop(h).(huffmanBuildNode)
		b := heap.Pop(h).(huffmanBuildNode)

		index := uint32(len(nodes))
		nodes = append(nodes, huffmanTrieNode{left: a.index, right: b.index})
		heap.Push(h, huffmanBuildNode{value: a.value + b.value, index: index})
	}

	return &HuffmanTrie{nodes: nodes}
}

func (t *HuffmanTrie) root() uint32 {
	return uint32(len(t.nodes) - 1)
}

// CreateEncoder builds an encoding table from the trie.
func (t *HuffmanTrie) CreateEncoder() *HuffmanEncoder {
	e := &HuffmanEncoder{}
	t.populateEncoder(e, t.root(), 0, 0)
	return e
}

func (t *HuffmanTrie) populateEncoder(e *HuffmanEncoder, nodeIndex, bitCount uint32, codeBits uint64) {
	node := t.nodes[nodeIndex]
	if node.left == node.right {
		e.setCode(node.code, bitCount, codeBits)
		return
	}

	t.populateEncoder(e, node.left, bitCount+1, codeBits)
	t.populateEncoder(e, node.right, bitCount+1, codeBits|(1<<bitCount))
}

// CreateDecoder builds a decoding table from the trie.
func (t *HuffmanTrie) CreateDecoder() *HuffmanDecoder {
	d := &HuffmanDecoder{}

	type queued struct {
		nodeIndex  uint32
		entryIndex uint32
	}

	queue := []queued{{nodeIndex: t.root(), entryIndex: d.allocate(0)}}

	for i := 0; i < len(queue); i++ {
		item := queue[i]
		node := t.nodes[item.nodeIndex]

		if node.left == node.right {
			d.setLeafEntry(item.entryIndex, node.code)
			continue
		}

		depth := t.getDecodingDepth(item.nodeIndex)
		offset := d.allocate(depth)

		for b := uint32(0); b < (1 << depth); b++ {
			queue = append(queue, queued{
				nodeIndex:  t.traverse(item.nodeIndex, depth, b),
				entryIndex: offset + b,
			})
		}

		d.setDecodeEntry(item.entryIndex, depth, offset)
	}

	d.createLookupTable()
	return d
}

// getDecodingDepth returns the distance from nodeIndex to its nearest
// leaf, which bounds how many bits a single decode table entry for
// this node can safely consume.
func (t *HuffmanTrie) getDecodingDepth(nodeIndex uint32) uint32 {
	node := t.nodes[nodeIndex]

	type queued struct {
		nodeIndex uint32
		depth     uint32
	}

	queue := []queued{{nodeIndex: node.left, depth: 1}, {nodeIndex: node.right, depth: 1}}

	for i := 0; i < len(queue); i++ {
		item := queue[i]
		n := t.nodes[item.nodeIndex]

		if n.left == n.right {
			return item.depth
		}

		queue = append(queue,
			queued{nodeIndex: n.left, depth: item.depth + 1},
			queued{nodeIndex: n.right, depth: item.depth + 1})
	}

	return 0
}

// traverse walks depth levels down from nodeIndex, taking the right
// child whenever the corresponding bit of bits is set.
func (t *HuffmanTrie) traverse(nodeIndex, depth, bits uint32) uint32 {
	for i := uint32(0); i < depth; i++ {
		node := t.nodes[nodeIndex]
		if bits&(1<<i) != 0 {
			nodeIndex = node.right
		} else {
			nodeIndex = node.left
		}
	}
	return nodeIndex
}

// EncodeHuffmanBinary Huffman-codes data and appends the decoding
// table followed by the encoded bits to dst.
func EncodeHuffmanBinary(dst *Writer, data []byte) {
	bw := NewBitWriter(dst)

	counter := NewHuffmanCounter()
	counter.Add(data)

	trie := NewHuffmanTrie(counter)
	encoder := trie.CreateEncoder()
	decoder := trie.CreateDecoder()

	decoder.Write(bw)
	bw.Write(uint64(len(data)), 32)
	encoder.Encode(bw, data)
	bw.Flush()
}

// DecodeHuffmanBinary reverses EncodeHuffmanBinary.
func DecodeHuffmanBinary(src *Reader) ([]byte, bool) {
	br := NewBitReader(src)

	decoder := &HuffmanDecoder{}
	if !decoder.Read(br) {
		return nil, false
	}

	size := int(br.Read(32))
	dst := make([]byte, size)
	decoder.Decode(br, dst)
	return dst, true
}
