package geometry

import (
	"testing"

	"github.com/alseid-engine/anima/engine/math"
)

func singleTriangleScene() *SourceScene {
	layout := NewPackedLayout([]PackedAttribute{
		{Semantic: SemanticPosition, Stream: StreamVertexData, Format: FormatFloat32, Components: 3},
		{Semantic: SemanticNormal, Stream: StreamShadingData, Format: FormatFloat32, Components: 3},
	})

	prim := SourcePrimitive{
		Topology: TopologyTriangles,
		Indices:  []uint32{0, 1, 2},
		Vertices: []Vertex{
			{Position: math.Vec3{X: 0, Y: 0, Z: 0}, Normal: math.Vec3{X: 0, Y: 0, Z: 1}},
			{Position: math.Vec3{X: 1, Y: 0, Z: 0}, Normal: math.Vec3{X: 0, Y: 0, Z: 1}},
			{Position: math.Vec3{X: 0, Y: 1, Z: 0}, Normal: math.Vec3{X: 0, Y: 0, Z: 1}},
		},
		MaterialIndex: 0,
	}

	return &SourceScene{
		Materials: []MaterialLayout{{Name: "default", Layout: layout}},
		Meshes:    []SourceMesh{{Name: "triangle", Lods: [][]SourcePrimitive{{prim}}}},
		Instances: []SourceInstance{{Name: "triangle_0", MeshIndex: 0, SkinIndex: -1}},
	}
}

func TestBuildGeometryProducesOneMeshletForATriangle(t *testing.T) {
	scene := singleTriangleScene()

	g, err := BuildGeometry(scene, DefaultConvertOptions(), nil)
	if err != nil {
		t.Fatalf("BuildGeometry failed: %v", err)
	}

	if len(g.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(g.Meshes))
	}
	if len(g.Lods) != 1 {
		t.Fatalf("expected 1 lod, got %d", len(g.Lods))
	}
	if g.Lods[0].Info.MeshletCount != 1 {
		t.Fatalf("expected 1 meshlet, got %d", g.Lods[0].Info.MeshletCount)
	}
	if len(g.MeshletOffsets) != 1 {
		t.Fatalf("expected 1 meshlet offset, got %d", len(g.MeshletOffsets))
	}
	if len(g.Instances) != 1 || g.Instances[0].Name != "triangle_0" {
		t.Fatalf("expected instance 'triangle_0', got %+v", g.Instances)
	}
	if len(g.Buffers) != 1 {
		t.Fatalf("expected a single assembled buffer, got %d", len(g.Buffers))
	}
	if len(g.Buffers[0]) == 0 {
		t.Fatalf("expected a non-empty buffer")
	}

	data := g.Serialize()
	roundTrip, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if roundTrip.Meshes[0].Name != "triangle" {
		t.Fatalf("expected mesh name 'triangle' to round-trip, got %q", roundTrip.Meshes[0].Name)
	}
}

func TestBuildGeometryAssignsContiguousMeshletOffsets(t *testing.T) {
	scene := singleTriangleScene()
	scene.Meshes = append(scene.Meshes, scene.Meshes[0])
	scene.Meshes[1].Name = "triangle2"
	scene.Instances = append(scene.Instances, SourceInstance{Name: "triangle2_0", MeshIndex: 1, SkinIndex: -1})

	g, err := BuildGeometry(scene, DefaultConvertOptions(), nil)
	if err != nil {
		t.Fatalf("BuildGeometry failed: %v", err)
	}

	if len(g.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(g.Meshes))
	}
	if len(g.MeshletOffsets) != 2 {
		t.Fatalf("expected 2 meshlet offsets, got %d", len(g.MeshletOffsets))
	}
	if g.MeshletOffsets[0] == g.MeshletOffsets[1] {
		t.Fatalf("expected distinct meshlet data offsets, got %d and %d", g.MeshletOffsets[0], g.MeshletOffsets[1])
	}
}
