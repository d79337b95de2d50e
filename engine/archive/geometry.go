package archive

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/geometry"
	"github.com/alseid-engine/anima/engine/jobs"
	"github.com/alseid-engine/anima/engine/stream"
)

// GeometryBuildJob loads a glTF scene, runs it through the meshlet
// converter, and serializes the result as a "GEOM" file: the
// converter's own metadata encoding as inline data, plus one
// GDeflate-compressed sub-file per assembled data buffer ("META" for
// the first, "DAT1", "DAT2", ... for the rest, mirroring the
// reference layout's sub-file enumeration).
type GeometryBuildJob struct {
	env   Environment
	name  string
	input string
	opts  geometry.ConvertOptions

	ioJob      *jobs.Job
	convertJob *jobs.Job
	compressJob *jobs.Job

	mu       sync.Mutex
	geo      *geometry.Geometry
	buffers  [][]byte
	rawSizes []uint64

	result atomic.Int32
}

// NewGeometryBuildJob builds a job that converts the glTF scene at
// input into a geometry file named name.
func NewGeometryBuildJob(env Environment, name, input string, opts geometry.ConvertOptions) *GeometryBuildJob {
	j := &GeometryBuildJob{env: env, name: name, input: input, opts: opts}
	j.result.Store(int32(BuildSuccess))
	return j
}

func (j *GeometryBuildJob) GetProgress() (BuildResult, BuildProgress) {
	status := BuildResult(j.result.Load())

	var prog BuildProgress
	if j.ioJob != nil {
		prog.addJob(j.ioJob.Done())

		if j.ioJob.Done() && j.convertJob != nil {
			prog.addJob(j.convertJob.Done())

			if j.convertJob.Done() && j.compressJob != nil {
				prog.addJob(j.compressJob.Done())
			}
		}
	}

	if status == BuildSuccess && prog.ItemsCompleted == 0 {
		status = BuildInProgress
	}
	return status, prog
}

func (j *GeometryBuildJob) GetFileInfo() (BuildResult, ArchiveFile) {
	j.synchronize()

	status := BuildResult(j.result.Load())
	if status.Failed() {
		return status, ArchiveFile{}
	}

	j.mu.Lock()
	geo := j.geo
	buffers := j.buffers
	rawSizes := j.rawSizes
	j.mu.Unlock()

	metadata := geo.Serialize()

	file := ArchiveFile{Type: FourCCGeometry, Name: j.name}
	file.SetInlineData(metadata)

	for i, buf := range buffers {
		identifier := FourCCMeta
		if i > 0 {
			identifier = NewFourCC(fmt.Sprintf("DAT%d", i))
		}
		file.AddSubFile(identifier, CompressionGDeflate, rawSizes[i], buf)
	}

	return BuildSuccess, file
}

func (j *GeometryBuildJob) DispatchJobs() {
	j.ioJob = jobs.NewSimpleJob(func() {
		if BuildResult(j.result.Load()) != BuildSuccess {
			return
		}

		result := j.runIoJob()
		j.result.CompareAndSwap(int32(BuildSuccess), int32(result))
	})
	j.env.Jobs.Dispatch(j.ioJob)
}

func (j *GeometryBuildJob) Abort() {
	j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildAborted))
}

func (j *GeometryBuildJob) runIoJob() BuildResult {
	scene, err := geometry.LoadGLTFSource(j.input)
	if err != nil {
		core.LogError("archive: failed to load %s: %v", j.input, err)
		return BuildIoError
	}

	j.convertJob = jobs.NewSimpleJob(func() {
		geo, err := geometry.BuildGeometry(scene, j.opts, j.env.Jobs)
		if err != nil {
			core.LogError("archive: failed to convert %s: %v", j.input, err)
			j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildInvalidInput))
			return
		}

		j.mu.Lock()
		j.geo = geo
		j.mu.Unlock()
	})
	j.env.Jobs.Dispatch(j.convertJob)

	j.compressJob = jobs.NewSimpleJob(func() { j.runCompressJob() })
	j.env.Jobs.Dispatch(j.compressJob, j.convertJob)

	return BuildSuccess
}

func (j *GeometryBuildJob) runCompressJob() {
	if BuildResult(j.result.Load()) != BuildSuccess {
		return
	}

	j.mu.Lock()
	geo := j.geo
	j.mu.Unlock()

	buffers := make([][]byte, len(geo.Buffers))
	rawSizes := make([]uint64, len(geo.Buffers))

	for i, src := range geo.Buffers {
		rawSizes[i] = uint64(len(src))

		w := stream.NewWriter()
		if !stream.GDeflateEncode(w, src) {
			j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildIoError))
			return
		}
		buffers[i] = w.Bytes()
	}

	j.mu.Lock()
	j.buffers = buffers
	j.rawSizes = rawSizes
	j.mu.Unlock()
}

func (j *GeometryBuildJob) synchronize() {
	if j.ioJob != nil {
		j.env.Jobs.Wait(j.ioJob)
	}
	if j.convertJob != nil {
		j.env.Jobs.Wait(j.convertJob)
	}
	if j.compressJob != nil {
		j.env.Jobs.Wait(j.compressJob)
	}
}
