// Package geometry converts GLTF scenes into the meshlet-based
// geometry container consumed by the renderer and archive builder. A
// Geometry is immutable once built: a flat set of metadata arrays plus
// one or more binary buffers holding packed vertex, shading, and
// meshlet data.
package geometry

import "github.com/alseid-engine/anima/engine/math"

// Aabb is an axis-aligned bounding box.
type Aabb struct {
	Min math.Vec3
	Max math.Vec3
}

func unionAabb(a, b Aabb) Aabb {
	return Aabb{
		Min: math.Vec3{X: minf(a.Min.X, b.Min.X), Y: minf(a.Min.Y, b.Min.Y), Z: minf(a.Min.Z, b.Min.Z)},
		Max: math.Vec3{X: maxf(a.Max.X, b.Max.X), Y: maxf(a.Max.Y, b.Max.Y), Z: maxf(a.Max.Z, b.Max.Z)},
	}
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// GeometryInfo is the fixed-layout header written at the start of
// buffer 0.
type GeometryInfo struct {
	Aabb                Aabb
	MeshCount           uint8
	MaterialCount       uint8
	MorphTargetCount    uint8
	BufferCount         uint16
	JointCount          uint16
	BufferPointerOffset uint32
	JointDataOffset     uint32
	MeshletDataOffset   uint32
}

// MeshInfo is the fixed-layout per-mesh record.
type MeshInfo struct {
	MaterialIndex     uint8
	LodCount          uint8
	SkinJoints        uint16
	InstanceCount     uint16
	LodInfoOffset     uint32
	InstanceDataOffset uint32
	SkinDataOffset    uint32
}

// MeshMetadata is one mesh within a Geometry: a named group of LODs,
// instances, and a material assignment.
type MeshMetadata struct {
	Name               string
	Info               MeshInfo
	MeshIndex          uint32
	LodMetadataIndex   uint32
	InstanceDataIndex  uint32
}

// MeshLodInfo is the fixed-layout per-LOD record.
type MeshLodInfo struct {
	BufferIndex   uint8
	MaxDistance   float32
	MeshletIndex  uint32
	MeshletCount  uint32
}

// MeshLodMetadata is one level of detail of a mesh: a contiguous run
// of meshlets within a data buffer.
type MeshLodMetadata struct {
	Info              MeshLodInfo
	FirstMeshletIndex uint32
}

// MeshInstanceInfo is the fixed-layout per-instance record.
type MeshInstanceInfo struct {
	Rotation    math.Quaternion
	Translation math.Vec3
	SkinOffset  uint32
	JointCount  uint16
}

// MeshInstanceMetadata places a mesh into the scene at a given
// transform, optionally bound to a skin.
type MeshInstanceMetadata struct {
	Name          string
	Info          MeshInstanceInfo
	MeshIndex     uint32
	InstanceIndex uint32
}

// MeshMaterialMetadata describes the packed vertex layout shared by
// every meshlet assigned to a material.
type MeshMaterialMetadata struct {
	Name              string
	AttributeIndex    uint16
	AttributeCount    uint16
	VertexDataStride  uint16
	ShadingDataStride uint16
	MorphDataStride   uint16
	MaterialIndex     uint32
}

// MeshletAttributeSemantic identifies the role of a packed vertex
// attribute.
type MeshletAttributeSemantic uint16

const (
	SemanticPosition MeshletAttributeSemantic = iota
	SemanticNormal
	SemanticTangent
	SemanticTexCoord
	SemanticColor
	SemanticJoints
	SemanticWeights
)

var semanticNames = [...]string{"POSITION", "NORMAL", "TANGENT", "TEXCOORD", "COLOR", "JOINTS", "WEIGHTS"}

func (s MeshletAttributeSemantic) String() string {
	if int(s) < len(semanticNames) {
		return semanticNames[s]
	}
	return "UNKNOWN"
}

// MeshletAttributeStream identifies which packed stream an attribute
// is stored in.
type MeshletAttributeStream uint16

const (
	StreamVertexData MeshletAttributeStream = iota
	StreamShadingData
	StreamMorphData
)

// MeshletAttributeMetadata locates one packed vertex attribute within
// its material's vertex/shading/morph stream.
type MeshletAttributeMetadata struct {
	Name          string
	DataFormat    uint16
	Stream        MeshletAttributeStream
	Semantic      MeshletAttributeSemantic
	SemanticIndex uint16
	DataOffset    uint16
	Morph         bool
	MorphOffset   uint16
}

// JointInfo is the fixed-layout per-joint record: the inverse bind
// transform and the index of the parent joint within the flattened
// joint array (or the joint's own index if it has no joint parent).
type JointInfo struct {
	InverseBindRotation    math.Quaternion
	InverseBindTranslation math.Vec3
	Parent                 uint16
}

// JointMetadata is one joint in the flattened, BFS-ordered joint
// array shared by every skin in the geometry.
type JointMetadata struct {
	Name       string
	Info       JointInfo
	JointIndex uint32
}

// MorphTargetMetadata names one morph target slot shared by every
// mesh that defines it.
type MorphTargetMetadata struct {
	Name            string
	MorphTargetIndex uint32
}

// AnimationMetadata names an animation and the range of animation
// groups it spans. Animation evaluation itself is out of scope; this
// is container bookkeeping only.
type AnimationMetadata struct {
	Name          string
	GroupIndex    uint16
	GroupCount    uint16
	Duration      float32
	AnimationIndex uint32
}

// Geometry is a fully built, ready-to-serialize geometry container.
// Buffer 0 holds the header, all metadata arrays, joint data, and the
// meshlet data of every LOD; BuildGeometry always writes exactly one
// buffer.
type Geometry struct {
	Info GeometryInfo

	Meshes         []MeshMetadata
	Lods           []MeshLodMetadata
	Instances      []MeshInstanceMetadata
	MeshletOffsets []uint32
	Materials      []MeshMaterialMetadata
	Attributes     []MeshletAttributeMetadata
	Joints         []JointMetadata
	MorphTargets   []MorphTargetMetadata
	Animations     []AnimationMetadata

	Buffers [][]byte
}

// GetLod returns the lod'th level of detail of mesh, or nil if out of
// range.
func (g *Geometry) GetLod(mesh *MeshMetadata, lod uint32) *MeshLodMetadata {
	if lod >= uint32(mesh.Info.LodCount) {
		return nil
	}
	index := mesh.LodMetadataIndex + lod
	if index >= uint32(len(g.Lods)) {
		return nil
	}
	return &g.Lods[index]
}

// GetMeshletVertexDataOffset returns the byte offset of the given
// meshlet's vertex data within its LOD's buffer.
func (g *Geometry) GetMeshletVertexDataOffset(lod *MeshLodMetadata, meshlet uint32) uint32 {
	if meshlet >= lod.Info.MeshletCount {
		return 0
	}
	index := lod.FirstMeshletIndex + meshlet
	if index >= uint32(len(g.MeshletOffsets)) {
		return 0
	}
	return g.MeshletOffsets[index]
}

// GetJoint returns the joint'th entry of the flattened joint array, or
// nil if out of range.
func (g *Geometry) GetJoint(joint uint32) *JointMetadata {
	if joint >= uint32(len(g.Joints)) {
		return nil
	}
	return &g.Joints[joint]
}

// FindMesh looks up a mesh by name.
func (g *Geometry) FindMesh(name string) *MeshMetadata {
	for i := range g.Meshes {
		if g.Meshes[i].Name == name {
			return &g.Meshes[i]
		}
	}
	return nil
}

// FindInstance looks up a mesh instance by name.
func (g *Geometry) FindInstance(name string) *MeshInstanceMetadata {
	for i := range g.Instances {
		if g.Instances[i].Name == name {
			return &g.Instances[i]
		}
	}
	return nil
}

// FindMaterial looks up a material by name.
func (g *Geometry) FindMaterial(name string) *MeshMaterialMetadata {
	for i := range g.Materials {
		if g.Materials[i].Name == name {
			return &g.Materials[i]
		}
	}
	return nil
}

// FindAttributeByName looks up one of material's packed attributes by
// name.
func (g *Geometry) FindAttributeByName(material *MeshMaterialMetadata, name string) *MeshletAttributeMetadata {
	for i := uint16(0); i < material.AttributeCount; i++ {
		attr := &g.Attributes[int(material.AttributeIndex)+int(i)]
		if attr.Name == name {
			return attr
		}
	}
	return nil
}

// FindAttributeBySemantic looks up one of material's packed
// attributes by semantic and semantic index (e.g. TEXCOORD_1).
func (g *Geometry) FindAttributeBySemantic(material *MeshMaterialMetadata, semantic MeshletAttributeSemantic, index uint16) *MeshletAttributeMetadata {
	for i := uint16(0); i < material.AttributeCount; i++ {
		attr := &g.Attributes[int(material.AttributeIndex)+int(i)]
		if attr.Semantic == semantic && attr.SemanticIndex == index {
			return attr
		}
	}
	return nil
}

// FindJoint looks up a joint by name.
func (g *Geometry) FindJoint(name string) *JointMetadata {
	for i := range g.Joints {
		if g.Joints[i].Name == name {
			return &g.Joints[i]
		}
	}
	return nil
}

// FindMorphTarget looks up a morph target by name.
func (g *Geometry) FindMorphTarget(name string) *MorphTargetMetadata {
	for i := range g.MorphTargets {
		if g.MorphTargets[i].Name == name {
			return &g.MorphTargets[i]
		}
	}
	return nil
}
