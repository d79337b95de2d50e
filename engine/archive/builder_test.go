package archive

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/alseid-engine/anima/engine/jobs"
)

func knownPattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestArchiveRoundTrip(t *testing.T) {
	mgr := jobs.NewManager(2)
	defer mgr.Shutdown()

	env := Environment{Jobs: mgr}
	builder := NewArchiveBuilder()

	texPattern := knownPattern(256)
	texJob := NewBasicBuildJob(env, FileDesc{
		Name: "tex",
		Type: FourCCTexture,
		SubFiles: []ArchiveSubFile{
			{Identifier: NewFourCC("000"), Compression: CompressionGDeflate, CompressedData: append([]byte(nil), texPattern...)},
		},
	})

	shaderPattern := knownPattern(128)
	shaderJob := NewBasicBuildJob(env, FileDesc{
		Name: "shd",
		Type: FourCCShader,
		SubFiles: []ArchiveSubFile{
			{Identifier: FourCCSpirv, Compression: CompressionDeflate, CompressedData: append([]byte(nil), shaderPattern...)},
		},
	})

	if !builder.AddBuildJob(texJob) {
		t.Fatalf("failed to add texture build job")
	}
	if !builder.AddBuildJob(shaderJob) {
		t.Fatalf("failed to add shader build job")
	}

	path := filepath.Join(t.TempDir(), "out.asarc")
	if result := builder.Build(path); result != BuildSuccess {
		t.Fatalf("build failed: %v", result)
	}

	archive, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}

	if len(archive.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(archive.Files))
	}

	var tex, shd *ArchiveFile
	for i := range archive.Files {
		switch archive.Files[i].Name {
		case "tex":
			tex = &archive.Files[i]
		case "shd":
			shd = &archive.Files[i]
		}
	}
	if tex == nil || shd == nil {
		t.Fatalf("expected files named tex and shd, got %+v", archive.Files)
	}

	if len(tex.SubFiles) != 1 {
		t.Fatalf("expected 1 texture sub-file, got %d", len(tex.SubFiles))
	}
	texData, err := Decompress(tex.SubFiles[0])
	if err != nil {
		t.Fatalf("failed to decompress texture sub-file: %v", err)
	}
	if !bytes.Equal(texData, texPattern) {
		t.Fatalf("texture sub-file did not round-trip")
	}

	if len(shd.SubFiles) != 1 {
		t.Fatalf("expected 1 shader sub-file, got %d", len(shd.SubFiles))
	}
	shaderData, err := Decompress(shd.SubFiles[0])
	if err != nil {
		t.Fatalf("failed to decompress shader sub-file: %v", err)
	}
	if !bytes.Equal(shaderData, shaderPattern) {
		t.Fatalf("shader sub-file did not round-trip")
	}
}

func TestArchiveBuilderAbortStopsPendingJobs(t *testing.T) {
	mgr := jobs.NewManager(1)
	defer mgr.Shutdown()

	env := Environment{Jobs: mgr}
	builder := NewArchiveBuilder()

	job := NewBasicBuildJob(env, FileDesc{Name: "f", Type: FourCCShader})
	builder.AddBuildJob(job)
	builder.Abort()

	status, _ := builder.GetProgress()
	if status != BuildAborted {
		t.Fatalf("expected aborted status, got %v", status)
	}
}

func TestMergeBuildJobCopiesSubFilesUnchanged(t *testing.T) {
	mgr := jobs.NewManager(2)
	defer mgr.Shutdown()
	env := Environment{Jobs: mgr}

	builder := NewArchiveBuilder()
	pattern := knownPattern(64)
	builder.AddBuildJob(NewBasicBuildJob(env, FileDesc{
		Name: "src",
		Type: FourCCShader,
		SubFiles: []ArchiveSubFile{
			{Identifier: FourCCSpirv, Compression: CompressionNone, CompressedData: pattern},
		},
	}))

	srcPath := filepath.Join(t.TempDir(), "src.asarc")
	if result := builder.Build(srcPath); result != BuildSuccess {
		t.Fatalf("failed to build source archive: %v", result)
	}

	source, err := Open(srcPath)
	if err != nil {
		t.Fatalf("failed to open source archive: %v", err)
	}

	mergeBuilder := NewArchiveBuilder()
	mergeBuilder.AddBuildJob(NewMergeBuildJob(env, source, 0))

	dstPath := filepath.Join(t.TempDir(), "merged.asarc")
	if result := mergeBuilder.Build(dstPath); result != BuildSuccess {
		t.Fatalf("merge build failed: %v", result)
	}

	merged, err := Open(dstPath)
	if err != nil {
		t.Fatalf("failed to open merged archive: %v", err)
	}
	if len(merged.Files) != 1 || merged.Files[0].Name != "src" {
		t.Fatalf("expected merged file 'src', got %+v", merged.Files)
	}

	data, err := Decompress(merged.Files[0].SubFiles[0])
	if err != nil {
		t.Fatalf("failed to decompress merged sub-file: %v", err)
	}
	if !bytes.Equal(data, pattern) {
		t.Fatalf("merged sub-file did not round-trip")
	}
}
