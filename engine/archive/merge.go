package archive

import (
	"sync/atomic"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/jobs"
)

// MergeBuildJob copies one file from an already-open source archive
// into the archive under construction, unchanged: sub-files keep
// their original compression and are never decompressed or
// re-encoded, only copied.
type MergeBuildJob struct {
	env    Environment
	source *Archive
	file   ArchiveFile
	job    *jobs.Job

	result atomic.Int32
}

// NewMergeBuildJob copies source.Files[fileIndex].
func NewMergeBuildJob(env Environment, source *Archive, fileIndex int) *MergeBuildJob {
	j := &MergeBuildJob{env: env, source: source}
	if fileIndex >= 0 && fileIndex < len(source.Files) {
		j.file = source.Files[fileIndex]
	}
	j.result.Store(int32(BuildSuccess))
	return j
}

func (j *MergeBuildJob) GetProgress() (BuildResult, BuildProgress) {
	status := BuildResult(j.result.Load())

	var prog BuildProgress
	if j.job != nil {
		prog.addJob(j.job.Done())
	}

	if status == BuildSuccess && prog.ItemsCompleted == 0 {
		status = BuildInProgress
	}
	return status, prog
}

func (j *MergeBuildJob) GetFileInfo() (BuildResult, ArchiveFile) {
	if j.job != nil {
		j.env.Jobs.Wait(j.job)
	}
	return BuildResult(j.result.Load()), j.file
}

func (j *MergeBuildJob) DispatchJobs() {
	// Every byte this job needs already lives in the parsed source
	// archive's buffer; there is nothing to dispatch besides the copy
	// itself, which getFileInfo already performs cheaply by reslicing.
	// A SimpleJob still exists so GetProgress has something to poll,
	// matching the reference design's one-item-total bookkeeping.
	j.job = jobs.NewSimpleJob(func() {
		if j.file.Name == "" && len(j.file.SubFiles) == 0 {
			core.LogError("archive: merge source file not found")
			j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildInvalidArgument))
		}
	})
	j.env.Jobs.Dispatch(j.job)
}

func (j *MergeBuildJob) Abort() {
	j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildAborted))
}
