package geometry

import "github.com/alseid-engine/anima/engine/math"

// SourcePrimitive is one GLTF mesh primitive already reduced to plain
// per-vertex data: one Vertex per source vertex carrying its
// positions/normals/tangents/texcoords/colors, an index buffer already
// expanded to a list topology, and (if skinned) joint/weight pairs in
// the same order.
type SourcePrimitive struct {
	Topology    Topology
	Indices     []uint32
	Vertices    []Vertex
	Skin        []SkinVertex
	MorphTargets []SourceMorphTarget

	MaterialIndex int
}

// SourceMorphTarget is one morph target's per-vertex position/normal
// deltas for a primitive. BuildGeometry assigns its slot from its
// position in the primitive's MorphTargets list; Name is not used to
// match targets across primitives.
type SourceMorphTarget struct {
	Name     string
	Vertices []Vertex
}

// SourceInstance places a mesh in the scene.
type SourceInstance struct {
	Name        string
	MeshIndex   int
	Rotation    math.Quaternion
	Translation math.Vec3
	SkinIndex   int // -1 if unskinned
}

// SourceJoint is one node in a skin's joint hierarchy.
type SourceJoint struct {
	Name                   string
	Parent                 int // index into Joints, or -1 for a root
	InverseBindRotation    math.Quaternion
	InverseBindTranslation math.Vec3
}

// SourceSkin names a run of joints within the scene's joint list.
type SourceSkin struct {
	JointIndices []int // indices into Scene.Joints
}

// SourceMesh groups a named mesh's LODs. Each LOD is itself a group of
// primitives (the GLTF primitives that share that LOD's level).
type SourceMesh struct {
	Name string
	Lods [][]SourcePrimitive
}

// SourceScene is the parsed, pre-normalized form of a GLTF document
// that BuildGeometry consumes. Producing one from an actual GLTF file
// is LoadGLTFSource's job; tests can construct a SourceScene directly.
type SourceScene struct {
	Meshes     []SourceMesh
	Instances  []SourceInstance
	Skins      []SourceSkin
	Joints     []SourceJoint
	Materials  []MaterialLayout
}

// MaterialLayout names a material and the packed vertex layout every
// primitive assigned to it uses.
type MaterialLayout struct {
	Name   string
	Layout *PackedLayout
}
