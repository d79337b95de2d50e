package stream

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
)

// DeflateEncode compresses data using raw Deflate, substituting
// klauspost/compress (the standard Go ecosystem equivalent) for the
// distilled format's libdeflate binding.
func DeflateEncode(dst *Writer, data []byte) bool {
	var buf bytes.Buffer

	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		return false
	}
	if err := w.Close(); err != nil {
		return false
	}

	dst.Write(buf.Bytes())
	return true
}

// DeflateDecode reverses DeflateEncode into dst, which must be exactly
// the decompressed size.
func DeflateDecode(dst []byte, src []byte) bool {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()

	n, err := io.ReadFull(r, dst)
	return err == nil && n == len(dst)
}

// GDeflate tiles the input into fixed-size pages and compresses each
// independently, so that a GPU decompressor can process pages in
// parallel. 64 KiB matches the tile size used by NVIDIA's GDeflate
// reference implementation. klauspost/compress/flate stands in for
// libdeflate's GDeflate mode per-page; this package only needs pages
// that round-trip correctly through the container format, not a
// bitstream a real GPU decompressor could consume.
const (
	gdeflatePageSize      = 1 << 16
	gdeflateHeaderSize    = 16
	gdeflatePageEntrySize = 8
)

// GDeflateEncode compresses data as a sequence of independently
// compressed pages, preceded by a header and per-page offset/size
// table.
func GDeflateEncode(dst *Writer, data []byte) bool {
	pageCount := 0
	if len(data) > 0 {
		pageCount = (len(data) + gdeflatePageSize - 1) / gdeflatePageSize
	}

	pages := make([][]byte, pageCount)
	for i := 0; i < pageCount; i++ {
		start := i * gdeflatePageSize
		end := start + gdeflatePageSize
		if end > len(data) {
			end = len(data)
		}

		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.BestCompression)
		if err != nil {
			return false
		}
		if _, err := w.Write(data[start:end]); err != nil {
			return false
		}
		if err := w.Close(); err != nil {
			return false
		}
		pages[i] = buf.Bytes()
	}

	// workgroupCountX holds the page count, Y and Z are fixed at 1 so
	// the header doubles as an indirect dispatch command for a GPU
	// decompression pass; uncompressedSize lets the decoder size dst.
	dst.WriteUint32(uint32(pageCount))
	dst.WriteUint32(1)
	dst.WriteUint32(1)
	dst.WriteUint32(uint32(len(data)))

	pageOffset := gdeflateHeaderSize + gdeflatePageEntrySize*pageCount
	for _, page := range pages {
		dst.WriteUint32(uint32(pageOffset))
		dst.WriteUint32(uint32(len(page)))
		pageOffset += alignUp4(len(page))
	}

	for _, page := range pages {
		dst.Write(page)
		if pad := alignUp4(len(page)) - len(page); pad != 0 {
			dst.Write(make([]byte, pad))
		}
	}

	return true
}

// GDeflateDecode reverses GDeflateEncode into dst, which must be
// exactly the stored uncompressed size.
func GDeflateDecode(dst []byte, src []byte) bool {
	if len(src) < gdeflateHeaderSize {
		return false
	}

	pageCount := int(binary.LittleEndian.Uint32(src[0:4]))
	uncompressedSize := int(binary.LittleEndian.Uint32(src[12:16]))

	if uncompressedSize != len(dst) {
		return false
	}

	metaEnd := gdeflateHeaderSize + gdeflatePageEntrySize*pageCount
	if len(src) < metaEnd {
		return false
	}

	written := 0
	for i := 0; i < pageCount; i++ {
		entryOffset := gdeflateHeaderSize + i*gdeflatePageEntrySize
		pageOffset := int(binary.LittleEndian.Uint32(src[entryOffset:]))
		pageSize := int(binary.LittleEndian.Uint32(src[entryOffset+4:]))

		if pageOffset < 0 || pageSize < 0 || pageOffset+pageSize > len(src) {
			return false
		}

		remaining := len(dst) - written
		pageOut := gdeflatePageSize
		if pageOut > remaining {
			pageOut = remaining
		}
		if pageOut <= 0 {
			return false
		}

		r := flate.NewReader(bytes.NewReader(src[pageOffset : pageOffset+pageSize]))
		n, err := io.ReadFull(r, dst[written:written+pageOut])
		r.Close()

		if err != nil || n != pageOut {
			return false
		}
		written += pageOut
	}

	return written == len(dst)
}

func alignUp4(size int) int {
	return (size + 3) &^ 3
}
