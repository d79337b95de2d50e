package archive

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/alseid-engine/anima/engine/jobs"
	"github.com/alseid-engine/anima/engine/pipeline"
	"github.com/alseid-engine/anima/engine/stream"
)

func fakeSpirv(dwordCount int) []byte {
	out := make([]byte, dwordCount*4)
	for i := 0; i < dwordCount; i++ {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(i*31+7))
	}
	return out
}

func TestShaderBuildJobRoundTrip(t *testing.T) {
	mgr := jobs.NewManager(2)
	defer mgr.Shutdown()
	env := Environment{Jobs: mgr}

	spv := fakeSpirv(64)
	path := filepath.Join(t.TempDir(), "triangle.spv")
	if err := os.WriteFile(path, spv, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	reflector := func(spirv []byte) (pipeline.ShaderDesc, error) {
		return pipeline.ShaderDesc{
			Stage: pipeline.StageFragment,
			Bindings: []pipeline.Binding{
				{Set: 0, Index: 0, Type: pipeline.BindingResourceImageView, Count: 1, Stages: pipeline.StageFlags(1) << uint(pipeline.StageFragment)},
			},
			ConstantSize:  16,
			WorkgroupSize: [3]uint32{1, 1, 1},
		}, nil
	}

	job := NewShaderBuildJob(env, path, reflector)
	job.DispatchJobs()

	status, file := job.GetFileInfo()
	if status != BuildSuccess {
		t.Fatalf("shader build failed: %v", status)
	}
	if file.Name != "triangle" {
		t.Fatalf("expected file name 'triangle', got %q", file.Name)
	}
	if file.Type != FourCCShader {
		t.Fatalf("expected shader type tag, got %v", file.Type)
	}
	if len(file.SubFiles) != 1 || file.SubFiles[0].Identifier != FourCCSpirv {
		t.Fatalf("expected one SPIR sub-file, got %+v", file.SubFiles)
	}

	encoded, err := Decompress(file.SubFiles[0])
	if err != nil {
		t.Fatalf("failed to inflate SPIR-V sub-file: %v", err)
	}
	decoded, ok := stream.SpirvDecode(encoded)
	if !ok {
		t.Fatalf("failed to decode SPIR-V binary")
	}
	if !bytes.Equal(decoded, spv) {
		t.Fatalf("SPIR-V binary did not round-trip")
	}
}

func TestShaderBuildJobNilReflectorProducesEmptyDesc(t *testing.T) {
	mgr := jobs.NewManager(1)
	defer mgr.Shutdown()
	env := Environment{Jobs: mgr}

	spv := fakeSpirv(8)
	path := filepath.Join(t.TempDir(), "blit.spv")
	if err := os.WriteFile(path, spv, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	job := NewShaderBuildJob(env, path, nil)
	job.DispatchJobs()

	status, file := job.GetFileInfo()
	if status != BuildSuccess {
		t.Fatalf("shader build failed: %v", status)
	}
	if len(file.InlineData) == 0 {
		t.Fatalf("expected a serialized (if empty) shader desc as inline data")
	}
}
