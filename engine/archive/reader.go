package archive

import (
	"os"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/stream"
)

// Archive is a read-only view over an already-built container,
// produced by reading back its header and decompressing its metadata
// blob. Sub-file bytes are kept compressed until Decompress is called,
// matching the reference design's IoArchive: a merge only ever needs
// the compressed bytes, so decompression happens lazily.
type Archive struct {
	data  []byte
	Files []ArchiveFile
}

// Open reads and parses the container at path.
func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapError(core.IoError, err, "failed to open archive %s", path)
	}
	return Parse(data)
}

// Parse decodes an in-memory container image.
func Parse(data []byte) (*Archive, error) {
	r := stream.NewReader(data)

	var magic [6]byte
	if !r.Read(magic[:]) || string(magic[:]) != containerMagic {
		return nil, core.NewError(core.InvalidInput, "not an archive container")
	}

	version, ok := r.ReadUint16()
	if !ok || version != containerVersion {
		return nil, core.NewError(core.InvalidInput, "unsupported archive container version %d", version)
	}

	fileCount, ok := r.ReadUint32()
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated archive header")
	}
	if _, ok = r.ReadUint64(); !ok { // fileOffset, recomputed below instead of trusted
		return nil, core.NewError(core.InvalidInput, "truncated archive header")
	}
	compressedMetadataSize, ok := r.ReadUint32()
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated archive header")
	}
	rawMetadataSize, ok := r.ReadUint32()
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated archive header")
	}

	compressedMetadata := make([]byte, compressedMetadataSize)
	if !r.Read(compressedMetadata) {
		return nil, core.NewError(core.InvalidInput, "truncated archive metadata blob")
	}

	rawMetadata := make([]byte, rawMetadataSize)
	if !stream.DeflateDecode(rawMetadata, compressedMetadata) {
		return nil, core.NewError(core.InvalidInput, "failed to decompress archive metadata")
	}

	subFileDataStart := r.Offset()

	a := &Archive{data: data}
	if err := a.parseMetadata(rawMetadata, int(fileCount), subFileDataStart); err != nil {
		return nil, err
	}

	return a, nil
}

type fileMetadataEntry struct {
	typeTag         FourCC
	nameLength      uint32
	subFileCount    uint32
	inlineDataSize  uint64
}

type subFileMetadataEntry struct {
	identifier     FourCC
	compression    CompressionKind
	offset         uint64
	compressedSize uint64
	rawSize        uint64
}

func (a *Archive) parseMetadata(raw []byte, fileCount int, subFileDataStart int) error {
	mr := stream.NewReader(raw)

	fileEntries := make([]fileMetadataEntry, fileCount)
	for i := range fileEntries {
		var e fileMetadataEntry
		var typeTag [4]byte
		if !mr.Read(typeTag[:]) {
			return core.NewError(core.InvalidInput, "truncated file metadata")
		}
		e.typeTag = FourCC(typeTag)
		var ok bool
		if e.nameLength, ok = mr.ReadUint32(); !ok {
			return core.NewError(core.InvalidInput, "truncated file metadata")
		}
		if e.subFileCount, ok = mr.ReadUint32(); !ok {
			return core.NewError(core.InvalidInput, "truncated file metadata")
		}
		if e.inlineDataSize, ok = mr.ReadUint64(); !ok {
			return core.NewError(core.InvalidInput, "truncated file metadata")
		}
		fileEntries[i] = e
	}

	names := make([][]byte, fileCount)
	for i, e := range fileEntries {
		name := make([]byte, e.nameLength)
		if !mr.Read(name) {
			return core.NewError(core.InvalidInput, "truncated file name")
		}
		names[i] = name
	}

	totalSubFiles := 0
	for _, e := range fileEntries {
		totalSubFiles += int(e.subFileCount)
	}

	subEntries := make([]subFileMetadataEntry, totalSubFiles)
	for i := range subEntries {
		var e subFileMetadataEntry
		var id [4]byte
		if !mr.Read(id[:]) {
			return core.NewError(core.InvalidInput, "truncated sub-file metadata")
		}
		e.identifier = FourCC(id)

		compByte, ok := mr.ReadByte()
		if !ok {
			return core.NewError(core.InvalidInput, "truncated sub-file metadata")
		}
		e.compression = CompressionKind(compByte)

		if !mr.Skip(3) {
			return core.NewError(core.InvalidInput, "truncated sub-file metadata")
		}
		if e.offset, ok = mr.ReadUint64(); !ok {
			return core.NewError(core.InvalidInput, "truncated sub-file metadata")
		}
		if e.compressedSize, ok = mr.ReadUint64(); !ok {
			return core.NewError(core.InvalidInput, "truncated sub-file metadata")
		}
		if e.rawSize, ok = mr.ReadUint64(); !ok {
			return core.NewError(core.InvalidInput, "truncated sub-file metadata")
		}
		subEntries[i] = e
	}

	a.Files = make([]ArchiveFile, fileCount)
	subCursor := 0
	for i, e := range fileEntries {
		name := names[i]
		if n := len(name); n > 0 && name[n-1] == 0 {
			name = name[:n-1]
		}

		a.Files[i] = ArchiveFile{
			Type: e.typeTag,
			Name: string(name),
		}

		for s := 0; s < int(e.subFileCount); s++ {
			entry := subEntries[subCursor]
			subCursor++

			start := subFileDataStart + int(entry.offset)
			end := start + int(entry.compressedSize)
			if start < 0 || end > len(a.data) || end < start {
				return core.NewError(core.InvalidInput, "sub-file data out of range")
			}

			a.Files[i].SubFiles = append(a.Files[i].SubFiles, ArchiveSubFile{
				Identifier:     entry.identifier,
				Compression:    entry.compression,
				RawSize:        entry.rawSize,
				CompressedData: a.data[start:end],
			})
		}
	}

	inlineStart := mr.Offset()
	for i, e := range fileEntries {
		if e.inlineDataSize == 0 {
			continue
		}
		inlineData := make([]byte, e.inlineDataSize)
		if !mr.Read(inlineData) {
			return core.NewError(core.InvalidInput, "truncated inline data")
		}
		a.Files[i].InlineData = inlineData
		inlineStart += int(e.inlineDataSize)
	}

	return nil
}

// Decompress returns sub.CompressedData decoded back to its raw size,
// per its CompressionKind.
func Decompress(sub ArchiveSubFile) ([]byte, error) {
	switch sub.Compression {
	case CompressionNone:
		return sub.CompressedData, nil
	case CompressionDeflate:
		dst := make([]byte, sub.RawSize)
		if !stream.DeflateDecode(dst, sub.CompressedData) {
			return nil, core.NewError(core.InvalidInput, "failed to inflate sub-file")
		}
		return dst, nil
	case CompressionGDeflate:
		dst := make([]byte, sub.RawSize)
		if !stream.GDeflateDecode(dst, sub.CompressedData) {
			return nil, core.NewError(core.InvalidInput, "failed to gdeflate-decode sub-file")
		}
		return dst, nil
	default:
		return nil, core.NewError(core.InvalidInput, "unknown sub-file compression kind %d", sub.Compression)
	}
}
