package archive

import (
	"sync/atomic"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/jobs"
	"github.com/alseid-engine/anima/engine/stream"
)

// FileDesc describes an already-formed file whose sub-files are
// optionally compressed by BasicBuildJob. Every sub-file's
// CompressedData is treated as the *raw* payload going in; the job
// overwrites it with the compressed bytes per its Compression kind.
type FileDesc struct {
	Name       string
	Type       FourCC
	InlineData []byte
	SubFiles   []ArchiveSubFile
}

// BasicBuildJob turns a pre-built FileDesc into an ArchiveFile,
// compressing each sub-file's raw bytes in parallel according to the
// compression kind the caller requested for it.
type BasicBuildJob struct {
	env  Environment
	desc FileDesc
	job  *jobs.Job

	result atomic.Int32
}

// NewBasicBuildJob wraps desc for archive building.
func NewBasicBuildJob(env Environment, desc FileDesc) *BasicBuildJob {
	j := &BasicBuildJob{env: env, desc: desc}
	j.result.Store(int32(BuildSuccess))
	return j
}

func (j *BasicBuildJob) GetProgress() (BuildResult, BuildProgress) {
	status := BuildResult(j.result.Load())

	var prog BuildProgress
	if j.job != nil {
		prog.addJob(j.job.Done())
	}

	if status == BuildSuccess && prog.ItemsCompleted < prog.ItemsTotal {
		status = BuildInProgress
	}
	return status, prog
}

func (j *BasicBuildJob) GetFileInfo() (BuildResult, ArchiveFile) {
	if j.job != nil {
		j.env.Jobs.Wait(j.job)
	}

	status := BuildResult(j.result.Load())
	if status.Failed() {
		return status, ArchiveFile{}
	}

	file := ArchiveFile{Type: j.desc.Type, Name: j.desc.Name}
	file.SetInlineData(j.desc.InlineData)
	for _, sub := range j.desc.SubFiles {
		file.AddSubFile(sub.Identifier, sub.Compression, sub.RawSize, sub.CompressedData)
	}
	return BuildSuccess, file
}

func (j *BasicBuildJob) DispatchJobs() {
	if len(j.desc.SubFiles) == 0 {
		return
	}

	j.job = jobs.NewBatchJob(uint32(len(j.desc.SubFiles)), 1, func(index uint32) {
		sub := &j.desc.SubFiles[index]
		raw := sub.CompressedData
		sub.RawSize = uint64(len(raw))

		switch sub.Compression {
		case CompressionNone:
			// already raw

		case CompressionDeflate:
			w := stream.NewWriter()
			if !stream.DeflateEncode(w, raw) {
				core.LogError("archive: failed to deflate sub-file %s", sub.Identifier)
				j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildInvalidInput))
				return
			}
			sub.CompressedData = w.Bytes()

		case CompressionGDeflate:
			w := stream.NewWriter()
			if !stream.GDeflateEncode(w, raw) {
				core.LogError("archive: failed to gdeflate sub-file %s", sub.Identifier)
				j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildInvalidInput))
				return
			}
			sub.CompressedData = w.Bytes()
		}
	})

	j.env.Jobs.Dispatch(j.job)
}

func (j *BasicBuildJob) Abort() {
	j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildAborted))
}
