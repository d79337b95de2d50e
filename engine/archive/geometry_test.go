package archive

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/alseid-engine/anima/engine/geometry"
	"github.com/alseid-engine/anima/engine/jobs"
)

// writeTriangleGLTF writes a minimal single-triangle, position-only
// glTF document (embedded base64 buffer, no index accessor) to path.
func writeTriangleGLTF(t *testing.T, path string) {
	t.Helper()

	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	raw := make([]byte, len(positions)*4)
	for i, v := range positions {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "data:application/octet-stream;base64,%s", "byteLength": %d}],
		"bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": %d, "target": 34962}],
		"accessors": [{
			"bufferView": 0, "byteOffset": 0, "componentType": 5126, "count": 3, "type": "VEC3",
			"max": [1.0, 1.0, 0.0], "min": [0.0, 0.0, 0.0]
		}],
		"meshes": [{"name": "triangle", "primitives": [{"attributes": {"POSITION": 0}, "mode": 4}]}],
		"nodes": [{"mesh": 0, "name": "triangle_0"}],
		"scenes": [{"nodes": [0]}],
		"scene": 0
	}`, encoded, len(raw), len(raw))

	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write glTF fixture: %v", err)
	}
}

func TestGeometryBuildJobProducesGeomFile(t *testing.T) {
	mgr := jobs.NewManager(2)
	defer mgr.Shutdown()
	env := Environment{Jobs: mgr}

	path := filepath.Join(t.TempDir(), "triangle.gltf")
	writeTriangleGLTF(t, path)

	job := NewGeometryBuildJob(env, "triangle", path, geometry.DefaultConvertOptions())
	job.DispatchJobs()

	status, file := job.GetFileInfo()
	if status != BuildSuccess {
		t.Fatalf("geometry build failed: %v", status)
	}
	if file.Type != FourCCGeometry || file.Name != "triangle" {
		t.Fatalf("unexpected file header: %+v", file)
	}
	if len(file.InlineData) == 0 {
		t.Fatalf("expected non-empty inline metadata")
	}
	if len(file.SubFiles) == 0 {
		t.Fatalf("expected at least one data sub-file")
	}
	if file.SubFiles[0].Identifier != FourCCMeta {
		t.Fatalf("expected first sub-file identifier META, got %v", file.SubFiles[0].Identifier)
	}

	geo, err := geometry.Deserialize(file.InlineData)
	if err != nil {
		t.Fatalf("failed to deserialize geometry metadata: %v", err)
	}
	if len(geo.Meshes) != 1 || geo.Meshes[0].Name != "triangle" {
		t.Fatalf("expected mesh 'triangle' to round-trip, got %+v", geo.Meshes)
	}
	if len(geo.Instances) != 1 || geo.Instances[0].Name != "triangle_0" {
		t.Fatalf("expected instance 'triangle_0' to round-trip, got %+v", geo.Instances)
	}

	for _, sub := range file.SubFiles {
		if _, err := Decompress(sub); err != nil {
			t.Fatalf("sub-file %v failed to decompress: %v", sub.Identifier, err)
		}
	}
}
