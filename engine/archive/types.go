// Package archive builds ".asarc" container files out of one or more
// BuildJobs, each of which produces a single ArchiveFile (a group of
// compressed sub-files plus optional inline data) from some input:
// raw SPIR-V, a glTF scene, an existing archive's contents to merge,
// or an already-assembled in-memory description. Jobs dispatch their
// work onto an engine/jobs.Manager and report progress cooperatively;
// the ArchiveBuilder aggregates progress and writes the final
// container once every job has succeeded.
package archive

import (
	"fmt"

	"github.com/alseid-engine/anima/engine/jobs"
)

// FourCC is a 4-byte type/identifier tag, stored verbatim in the
// container so readers never need a lookup table to classify a file
// or sub-file.
type FourCC [4]byte

// NewFourCC builds a FourCC from its first four bytes, padding with
// zero bytes if s is shorter.
func NewFourCC(s string) FourCC {
	var f FourCC
	copy(f[:], s)
	return f
}

func (f FourCC) String() string {
	return fmt.Sprintf("%c%c%c%c", f[0], f[1], f[2], f[3])
}

// Common file and sub-file type tags used by the build jobs in this
// package.
var (
	FourCCShader   = NewFourCC("SHDR")
	FourCCSpirv    = NewFourCC("SPIR")
	FourCCGeometry = NewFourCC("GEOM")
	FourCCMeta     = NewFourCC("META")
	FourCCTexture  = NewFourCC("TEX ")
)

// CompressionKind selects how a sub-file's raw bytes were compressed
// before being written to the container.
type CompressionKind uint8

const (
	CompressionNone CompressionKind = iota
	CompressionDeflate
	CompressionGDeflate
)

// Environment bundles the collaborators every build job needs: a job
// manager to dispatch parallel work onto. A dedicated async I/O
// subsystem (engine/ioreq) is the out-of-scope collaborator the
// reference design expects here; this package reads and writes files
// directly since nothing in the build path needs the async
// notification machinery an interactive renderer does.
type Environment struct {
	Jobs *jobs.Manager
}

// BuildResult is the terminal or in-progress status of a BuildJob.
// Negative values are errors; eInProgress is the only positive
// non-zero value.
type BuildResult int32

const (
	BuildSuccess         BuildResult = 0
	BuildInProgress      BuildResult = 1
	BuildAborted         BuildResult = -1
	BuildInvalidArgument BuildResult = -2
	BuildInvalidInput    BuildResult = -3
	BuildIoError         BuildResult = -4
)

func (r BuildResult) String() string {
	switch r {
	case BuildSuccess:
		return "success"
	case BuildInProgress:
		return "in progress"
	case BuildAborted:
		return "aborted"
	case BuildInvalidArgument:
		return "invalid argument"
	case BuildInvalidInput:
		return "invalid input"
	case BuildIoError:
		return "io error"
	default:
		return "unknown"
	}
}

// Failed reports whether r is a terminal error (any negative value
// other than eAborted's sibling cases still count; eAborted is also a
// failure from the caller's point of view).
func (r BuildResult) Failed() bool {
	return r < BuildSuccess
}

// BuildProgress is a simple completed/total item counter, summed
// across every job an ArchiveBuilder tracks.
type BuildProgress struct {
	ItemsCompleted uint32
	ItemsTotal     uint32
}

func (p *BuildProgress) add(completed, total uint32) {
	p.ItemsCompleted += completed
	p.ItemsTotal += total
}

// addJob folds a jobs.Job's own completion state into p: one item
// representing the job as a whole, following the reference design's
// coarse per-job progress granularity rather than exposing a job's
// internal batch-item counts.
func (p *BuildProgress) addJob(done bool) {
	total := uint32(1)
	completed := uint32(0)
	if done {
		completed = 1
	}
	p.add(completed, total)
}

// ArchiveSubFile is one compressed blob belonging to an ArchiveFile,
// identified by its own FourCC so a reader can pick out, say, the
// SPIR-V payload of a shader file without depending on ordering.
type ArchiveSubFile struct {
	Identifier     FourCC
	Compression    CompressionKind
	RawSize        uint64
	CompressedData []byte
}

// ArchiveFile is one named, typed entry in the archive: optional
// inline data (a small format-specific header or index, stored
// uncompressed) plus an ordered list of sub-files holding the bulk
// payload.
type ArchiveFile struct {
	Type       FourCC
	Name       string
	InlineData []byte
	SubFiles   []ArchiveSubFile
}

// SetInlineData stores data as the file's inline data. Mirrors the
// reference design's setInlineData, which refuses to overwrite inline
// data already set; this is a one-shot builder helper so callers
// build a file's inline data exactly once before adding sub-files.
func (f *ArchiveFile) SetInlineData(data []byte) bool {
	if len(f.InlineData) != 0 {
		return false
	}
	f.InlineData = data
	return true
}

// AddSubFile appends a sub-file. compression == CompressionNone
// requires rawSize == len(compressedData), since "no compression"
// means the compressed bytes are the raw bytes.
func (f *ArchiveFile) AddSubFile(identifier FourCC, compression CompressionKind, rawSize uint64, compressedData []byte) bool {
	if compression == CompressionNone && rawSize != uint64(len(compressedData)) {
		return false
	}

	f.SubFiles = append(f.SubFiles, ArchiveSubFile{
		Identifier:     identifier,
		Compression:    compression,
		RawSize:        rawSize,
		CompressedData: compressedData,
	})
	return true
}

// BuildJob produces a single ArchiveFile from arbitrary inputs.
// DispatchJobs should only enqueue work, not perform it; GetProgress
// must return immediately without blocking or affecting the job, even
// when called concurrently with the job's own workers; GetFileInfo
// blocks until every dispatched job has finished.
type BuildJob interface {
	GetProgress() (BuildResult, BuildProgress)
	GetFileInfo() (BuildResult, ArchiveFile)
	DispatchJobs()
	Abort()
}
