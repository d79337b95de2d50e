package geometry

import (
	"testing"

	"github.com/alseid-engine/anima/engine/math"
)

func buildSampleGeometry() *Geometry {
	g := &Geometry{}
	g.Info = GeometryInfo{
		Aabb:          Aabb{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}},
		MeshCount:     1,
		MaterialCount: 1,
		JointCount:    1,
		BufferCount:   1,
	}

	g.Meshes = []MeshMetadata{
		{Name: "cube", MeshIndex: 0, LodMetadataIndex: 0, InstanceDataIndex: 0, Info: MeshInfo{LodCount: 1, InstanceCount: 1}},
	}
	g.Lods = []MeshLodMetadata{
		{FirstMeshletIndex: 0, Info: MeshLodInfo{MeshletIndex: 0, MeshletCount: 1, MaxDistance: 100}},
	}
	g.Instances = []MeshInstanceMetadata{
		{Name: "cube_0", MeshIndex: 0, InstanceIndex: 0, Info: MeshInstanceInfo{Rotation: math.Quaternion{W: 1}, JointCount: 0}},
	}
	g.MeshletOffsets = []uint32{0}
	g.Materials = []MeshMaterialMetadata{
		{Name: "default", AttributeCount: 1, VertexDataStride: 12},
	}
	g.Attributes = []MeshletAttributeMetadata{
		{Name: "POSITION", Stream: StreamVertexData, Semantic: SemanticPosition, DataFormat: uint16(FormatFloat32)},
	}
	g.Joints = []JointMetadata{
		{Name: "root", JointIndex: 0, Info: JointInfo{Parent: 0}},
	}

	return g
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	g := buildSampleGeometry()

	data := g.Serialize()
	out, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}

	if out.Info.MeshCount != g.Info.MeshCount {
		t.Fatalf("mesh count mismatch: got %d want %d", out.Info.MeshCount, g.Info.MeshCount)
	}
	if len(out.Meshes) != 1 || out.Meshes[0].Name != "cube" {
		t.Fatalf("expected mesh 'cube' to round-trip, got %+v", out.Meshes)
	}
	if len(out.Lods) != 1 || out.Lods[0].Info.MeshletCount != 1 {
		t.Fatalf("expected 1 lod with 1 meshlet, got %+v", out.Lods)
	}
	if len(out.Instances) != 1 || out.Instances[0].Name != "cube_0" {
		t.Fatalf("expected instance 'cube_0' to round-trip, got %+v", out.Instances)
	}
	if len(out.Materials) != 1 || out.Materials[0].Name != "default" {
		t.Fatalf("expected material 'default' to round-trip, got %+v", out.Materials)
	}
	if len(out.Attributes) != 1 || out.Attributes[0].Semantic != SemanticPosition {
		t.Fatalf("expected POSITION attribute to round-trip, got %+v", out.Attributes)
	}
	if len(out.Joints) != 1 || out.Joints[0].Name != "root" {
		t.Fatalf("expected joint 'root' to round-trip, got %+v", out.Joints)
	}
}

func TestDeserializeRejectsTruncatedData(t *testing.T) {
	g := buildSampleGeometry()
	data := g.Serialize()

	_, err := Deserialize(data[:len(data)/2])
	if err == nil {
		t.Fatalf("expected an error deserializing truncated geometry data")
	}
}

func TestDeserializeRejectsWrongVersion(t *testing.T) {
	data := []byte{0xff, 0xff}
	_, err := Deserialize(data)
	if err == nil {
		t.Fatalf("expected an error for an unsupported container version")
	}
}
