package archive

import (
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/stream"
)

const containerMagic = "ASFILE"
const containerVersion uint16 = 0

const (
	fileMetadataSize    = 4 + 4 + 4 + 8 // type, nameLength, subFileCount, inlineDataSize
	subFileMetadataSize = 4 + 1 + 3 + 8 + 8 + 8
)

// ArchiveStreams accumulates the file and sub-file metadata of every
// ArchiveFile added to it, then writes one container: header,
// deflate-compressed metadata blob, and raw sub-file data concatenated
// in the order sub-files were added.
type ArchiveStreams struct {
	fileMetadata [][]byte // pre-serialized FileMetadata entries
	fileNames    []byte
	inlineData   [][]byte

	subFileMetadata [][]byte // pre-serialized SubFileMetadata entries
	subFileData     [][]byte

	subFileDataOffset uint64
}

// AddFile records file's metadata and queues its sub-file data for
// the eventual write. The file's byte slices are retained, not
// copied; callers must not mutate them afterward.
func (s *ArchiveStreams) AddFile(file ArchiveFile) {
	nameBytes := append([]byte(file.Name), 0)

	meta := stream.NewWriter()
	meta.Write(file.Type[:])
	meta.WriteUint32(uint32(len(nameBytes)))
	meta.WriteUint32(uint32(len(file.SubFiles)))
	meta.WriteUint64(uint64(len(file.InlineData)))
	s.fileMetadata = append(s.fileMetadata, meta.Bytes())

	s.fileNames = append(s.fileNames, nameBytes...)
	s.inlineData = append(s.inlineData, file.InlineData)

	for _, sub := range file.SubFiles {
		subMeta := stream.NewWriter()
		subMeta.Write(sub.Identifier[:])
		subMeta.WriteByte(byte(sub.Compression))
		subMeta.Write([]byte{0, 0, 0})
		subMeta.WriteUint64(s.subFileDataOffset)
		subMeta.WriteUint64(uint64(len(sub.CompressedData)))
		subMeta.WriteUint64(sub.RawSize)
		s.subFileMetadata = append(s.subFileMetadata, subMeta.Bytes())

		s.subFileDataOffset += uint64(len(sub.CompressedData))
		s.subFileData = append(s.subFileData, sub.CompressedData)
	}
}

// metadataBlob serializes the accumulated file metadata, names,
// sub-file metadata and inline data in the fixed order the container
// format requires, ready to be deflated.
func (s *ArchiveStreams) metadataBlob() []byte {
	w := stream.NewWriter()
	for _, m := range s.fileMetadata {
		w.Write(m)
	}
	w.Write(s.fileNames)
	for _, m := range s.subFileMetadata {
		w.Write(m)
	}
	for _, data := range s.inlineData {
		if len(data) != 0 {
			w.Write(data)
		}
	}
	return w.Bytes()
}

// Write assembles the header, compressed metadata blob and sub-file
// data into one container file at path.
func (s *ArchiveStreams) Write(path string) BuildResult {
	rawMetadata := s.metadataBlob()

	compressed := stream.NewWriter()
	if !stream.DeflateEncode(compressed, rawMetadata) {
		return BuildIoError
	}
	compressedMetadata := compressed.Bytes()

	out := stream.NewWriter()
	out.Write([]byte(containerMagic))
	out.WriteUint16(containerVersion)
	out.WriteUint32(uint32(len(s.fileMetadata)))
	out.WriteUint64(uint64(len(containerMagic)+2+4+8+4+4) + uint64(len(compressedMetadata)))
	out.WriteUint32(uint32(len(compressedMetadata)))
	out.WriteUint32(uint32(len(rawMetadata)))
	out.Write(compressedMetadata)

	for _, data := range s.subFileData {
		if len(data) != 0 {
			out.Write(data)
		}
	}

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		core.LogError("archive: failed to write %s: %v", path, err)
		return BuildIoError
	}

	return BuildSuccess
}

type archiveBuilderJob struct {
	status   BuildResult
	progress BuildProgress
	job      BuildJob
}

// ArchiveBuilder owns a list of BuildJobs, dispatching each the
// instant it is added. Build waits for every job to finish and writes
// the resulting container with the files in the order the jobs were
// added.
type ArchiveBuilder struct {
	mu       sync.Mutex
	aborted  bool
	locked   bool
	jobs     []*archiveBuilderJob
}

// NewArchiveBuilder creates an empty builder.
func NewArchiveBuilder() *ArchiveBuilder {
	return &ArchiveBuilder{}
}

// AddBuildJob dispatches job immediately and registers it with the
// builder. It fails if Build has already been called.
func (b *ArchiveBuilder) AddBuildJob(job BuildJob) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.locked {
		return false
	}

	job.DispatchJobs()
	b.jobs = append(b.jobs, &archiveBuilderJob{status: BuildInProgress, job: job})
	return true
}

// buildJobFailure carries a failing BuildResult through errgroup,
// whose Wait only reports the first error as an `error`.
type buildJobFailure struct{ status BuildResult }

func (e *buildJobFailure) Error() string { return e.status.String() }

// Build waits for every registered job to finish and writes path.
// Jobs are waited on concurrently via errgroup, since GetFileInfo
// blocks on the job's own goroutines; the resulting files are then
// appended to the container in registration order regardless of
// which job finished first. Must only be called once, after every
// job has been added.
func (b *ArchiveBuilder) Build(path string) BuildResult {
	b.mu.Lock()
	if b.aborted {
		b.mu.Unlock()
		return BuildAborted
	}
	b.locked = true
	jobs := append([]*archiveBuilderJob(nil), b.jobs...)
	b.mu.Unlock()

	files := make([]ArchiveFile, len(jobs))

	var g errgroup.Group
	for i, entry := range jobs {
		i, entry := i, entry
		g.Go(func() error {
			status, file := entry.job.GetFileInfo()
			if status.Failed() {
				return &buildJobFailure{status: status}
			}
			files[i] = file
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if failure, ok := err.(*buildJobFailure); ok {
			return failure.status
		}
		return BuildIoError
	}

	var streams ArchiveStreams
	for _, file := range files {
		streams.AddFile(file)
	}

	return streams.Write(path)
}

// GetProgress aggregates every job's (result, progress). The first
// failing job's result wins; eAborted overrides everything once
// Abort has been called.
func (b *ArchiveBuilder) GetProgress() (BuildResult, BuildProgress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := BuildSuccess
	var progress BuildProgress

	for _, entry := range b.jobs {
		if entry.status == BuildInProgress {
			entry.status, entry.progress = entry.job.GetProgress()
		}

		progress.add(entry.progress.ItemsCompleted, entry.progress.ItemsTotal)

		if !result.Failed() && (entry.status < 0 || result == BuildSuccess) {
			result = entry.status
		}
	}

	if b.aborted {
		result = BuildAborted
	}

	return result, progress
}

// Abort signals every registered job to stop as soon as possible.
func (b *ArchiveBuilder) Abort() {
	b.mu.Lock()
	b.aborted = true
	b.locked = true
	jobsCopy := append([]*archiveBuilderJob(nil), b.jobs...)
	b.mu.Unlock()

	for _, entry := range jobsCopy {
		if entry.status != BuildAborted {
			entry.job.Abort()
		}
	}
}
