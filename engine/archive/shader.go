package archive

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/jobs"
	"github.com/alseid-engine/anima/engine/pipeline"
	"github.com/alseid-engine/anima/engine/stream"
)

// Reflector extracts a pipeline.ShaderDesc from a compiled SPIR-V
// binary. This is the same seam engine/pipeline defines for its own
// cache (pipeline.ShaderReflector); a real SPIR-V parser is the
// out-of-scope collaborator both packages expect here. When nil, a
// ShaderBuildJob serializes an empty ShaderDesc rather than failing
// the build, so archives can still be produced without one wired in.
type Reflector func(spirv []byte) (pipeline.ShaderDesc, error)

// ShaderBuildJob reads a raw SPIR-V binary, reflects it into metadata
// stored as the file's inline data, then encodes and deflates the
// binary itself into the file's single "SPIR" sub-file.
type ShaderBuildJob struct {
	env       Environment
	input     string
	reflector Reflector
	job       *jobs.Job

	shaderDesc []byte
	shaderData []byte
	rawSize    uint64

	result atomic.Int32
}

// NewShaderBuildJob builds a job that reads input, a path to a raw
// SPIR-V binary. reflector may be nil.
func NewShaderBuildJob(env Environment, input string, reflector Reflector) *ShaderBuildJob {
	j := &ShaderBuildJob{env: env, input: input, reflector: reflector}
	j.result.Store(int32(BuildSuccess))
	return j
}

func (j *ShaderBuildJob) GetProgress() (BuildResult, BuildProgress) {
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

func (j *ShaderBuildJob) GetFileInfo() (BuildResult, ArchiveFile) {
	if j.job != nil {
		j.env.Jobs.Wait(j.job)
	}

	status := BuildResult(j.result.Load())
	if status.Failed() {
		return status, ArchiveFile{}
	}

	name := strings.TrimSuffix(filepath.Base(j.input), filepath.Ext(j.input))
	file := ArchiveFile{Type: FourCCShader, Name: name}
	file.SetInlineData(j.shaderDesc)
	file.AddSubFile(FourCCSpirv, CompressionDeflate, j.rawSize, j.shaderData)

	return BuildSuccess, file
}

func (j *ShaderBuildJob) DispatchJobs() {
	j.job = jobs.NewSimpleJob(func() {
		if BuildResult(j.result.Load()) != BuildSuccess {
			return
		}

		result := j.processShader()
		j.result.CompareAndSwap(int32(BuildSuccess), int32(result))
	})
	j.env.Jobs.Dispatch(j.job)
}

func (j *ShaderBuildJob) Abort() {
	j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildAborted))
}

func (j *ShaderBuildJob) processShader() BuildResult {
	spv, err := os.ReadFile(j.input)
	if err != nil {
		core.LogError("archive: failed to read %s: %v", j.input, err)
		return BuildIoError
	}

	var desc pipeline.ShaderDesc
	if j.reflector != nil {
		desc, err = j.reflector(spv)
		if err != nil {
			core.LogError("archive: failed to reflect %s: %v", j.input, err)
			return BuildInvalidInput
		}
	}
	j.shaderDesc = serializeShaderDesc(desc)

	encoded := stream.NewWriter()
	if !stream.SpirvEncode(encoded, spv) {
		core.LogError("archive: failed to encode SPIR-V binary %s", j.input)
		return BuildInvalidInput
	}

	compressed := stream.NewWriter()
	if !stream.DeflateEncode(compressed, encoded.Bytes()) {
		core.LogError("archive: failed to compress SPIR-V binary %s", j.input)
		return BuildInvalidInput
	}

	j.rawSize = uint64(encoded.Size())
	j.shaderData = compressed.Bytes()
	return BuildSuccess
}

// serializeShaderDesc packs the reflected binding/constant/workgroup
// metadata a runtime pipeline cache needs, in the same field order
// pipeline.ShaderDesc declares them.
func serializeShaderDesc(desc pipeline.ShaderDesc) []byte {
	w := stream.NewWriter()
	w.WriteUint32(uint32(desc.Stage))
	w.WriteUint32(uint32(len(desc.Bindings)))
	for _, b := range desc.Bindings {
		w.WriteUint32(b.Set)
		w.WriteUint32(b.Index)
		w.WriteUint32(uint32(b.Type))
		w.WriteUint32(b.Count)
		w.WriteUint32(uint32(b.Stages))
	}
	w.WriteUint32(desc.ConstantSize)
	w.WriteUint32(desc.WorkgroupSize[0])
	w.WriteUint32(desc.WorkgroupSize[1])
	w.WriteUint32(desc.WorkgroupSize[2])
	return w.Bytes()
}
