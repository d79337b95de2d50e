package geometry

import (
	stdmath "math"
	"sort"

	"github.com/alseid-engine/anima/engine/math"
)

const (
	// localJointTableCapacity is the number of global joint IDs a
	// meshlet header can hold; a meshlet whose vertices reference no
	// more distinct joints than this can use local (per-meshlet) joint
	// indices instead of global ones.
	localJointTableCapacity = 4

	// dominantJointThreshold is the minimum per-vertex weight a single
	// joint must carry, across every vertex of a meshlet, to qualify
	// as that meshlet's dominant joint.
	dominantJointThreshold = 0.9999

	maxMeshletVertices  = 128
	maxMeshletTriangles = 128
	defaultConeWeight   = 0.85
)

type bufferFlags uint8

const flagDualIndex bufferFlags = 1 << 0

// CullFlags marks which culling data a meshlet carries.
type CullFlags uint8

const (
	CullSphere CullFlags = 1 << iota
	CullCone
)

// MeshletHeader is the fixed-layout record at the start of every
// meshlet's data buffer. Every offset is in 16-byte units, relative to
// the start of the meshlet's own buffer.
type MeshletHeader struct {
	Flags             bufferFlags
	VertexDataCount   uint16
	VertexDataOffset  uint16
	ShadingDataCount  uint16
	ShadingDataOffset uint16
	PrimitiveOffset   uint16
	DualIndexOffset   uint16
	MorphTargetOffset uint16
	MorphDataOffset   uint16
}

// MeshletInfo is the fixed-layout meshlet record stored in a LOD's
// meshlet metadata array (distinct from MeshletHeader, which lives
// inside the meshlet's own data buffer).
type MeshletInfo struct {
	DataOffset    uint32
	VertexCount   uint8
	TriangleCount uint8
	Flags         CullFlags
	SphereCenter  math.Vec3
	SphereRadius  float32
	ConeAxis      math.Vec3
	ConeCutoff    float32
}

// MeshletMorphTargetInfo records which of a meshlet's vertices a morph
// target modifies, as a bitmask, along with the index of the first
// packed morph vertex belonging to this target within the meshlet's
// morph data stream.
type MeshletMorphTargetInfo struct {
	DataIndex  uint32
	VertexMask [4]uint32 // supports up to 128 vertices per meshlet
}

func (m *MeshletMorphTargetInfo) setModified(vertex int) {
	m.VertexMask[vertex/32] |= 1 << uint(vertex%32)
}

func (m *MeshletMorphTargetInfo) anyModified() bool {
	for _, w := range m.VertexMask {
		if w != 0 {
			return true
		}
	}
	return false
}

// SkinVertex is one meshlet-local vertex's joint/weight pairs, read
// off of the source mesh's JOINTS_0/WEIGHTS_0 accessors.
type SkinVertex struct {
	Joints  [4]uint32
	Weights [4]float32
}

// ProcessJoints rewrites zero-weight joint IDs to 0 for compressibility,
// sorts each vertex's joint/weight pairs by descending weight, and
// decides whether the meshlet's referenced joints fit the per-meshlet
// local joint table. It mutates verts in place (replacing joint IDs
// with local table indices when local indexing is enabled) and
// returns the global joint ID table, whether local indexing was
// enabled, and the meshlet's dominant joint if one exists.
func ProcessJoints(verts []SkinVertex) (table []uint32, localIndexing bool, dominant *uint32) {
	type pair struct {
		joint  uint32
		weight float32
	}

	unique := make(map[uint32]struct{})
	pairs := make([][4]pair, len(verts))

	for i := range verts {
		for j := 0; j < 4; j++ {
			joint := verts[i].Joints[j]
			weight := verts[i].Weights[j]

			if weight == 0 {
				joint = 0
			} else {
				unique[joint] = struct{}{}
			}

			pairs[i][j] = pair{joint, weight}
		}

		sort.Slice(pairs[i][:], func(a, b int) bool {
			return pairs[i][a].weight > pairs[i][b].weight
		})
	}

	table = make([]uint32, 0, len(unique))
	for j := range unique {
		table = append(table, j)
	}
	sort.Slice(table, func(a, b int) bool { return table[a] < table[b] })

	localIndexing = len(table) <= localJointTableCapacity

	if localIndexing {
		index := make(map[uint32]uint32, len(table))
		for i, j := range table {
			index[j] = uint32(i)
		}
		for i := range pairs {
			for j := 0; j < 4; j++ {
				pairs[i][j].joint = index[pairs[i][j].joint]
			}
		}
	}

	for i := range verts {
		for j := 0; j < 4; j++ {
			verts[i].Joints[j] = pairs[i][j].joint
			verts[i].Weights[j] = pairs[i][j].weight
		}
	}

	if len(verts) == 0 {
		return table, localIndexing, nil
	}

	candidate := verts[0].Joints[0]
	for _, v := range verts {
		if v.Weights[0] < dominantJointThreshold || v.Joints[0] != candidate {
			return table, localIndexing, nil
		}
	}

	d := candidate
	return table, localIndexing, &d
}

// ComputeMeshletBounds derives a culling bounding sphere and, if
// coneWeight allows a sufficiently tight cone, a culling cone from a
// meshlet's triangle positions and normals. This approximates
// meshoptimizer's cluster bounds computation: an AABB-derived sphere
// plus a normal-cone built from the mean face normal and its widest
// deviation, since no native binding for the reference implementation
// is available.
func ComputeMeshletBounds(positions []math.Vec3, normals []math.Vec3, triangles [][3]uint8, coneWeight float32) MeshletInfo {
	info := MeshletInfo{}
	if len(positions) == 0 {
		return info
	}

	min, max := positions[0], positions[0]
	for _, p := range positions[1:] {
		min = math.Vec3{X: minf(min.X, p.X), Y: minf(min.Y, p.Y), Z: minf(min.Z, p.Z)}
		max = math.Vec3{X: maxf(max.X, p.X), Y: maxf(max.Y, p.Y), Z: maxf(max.Z, p.Z)}
	}

	center := math.Vec3{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2, Z: (min.Z + max.Z) / 2}
	radius := float32(0)
	for _, p := range positions {
		radius = maxf(radius, vec3Length(vec3Sub(p, center)))
	}

	info.SphereCenter = center
	info.SphereRadius = radius
	if radius > 0 {
		info.Flags |= CullSphere
	}

	if coneWeight >= 1 || len(triangles) == 0 || len(normals) == 0 {
		return info
	}

	var axisSum math.Vec3
	for _, tri := range triangles {
		n := normals[tri[0]]
		axisSum = vec3Add(axisSum, n)
	}

	axisLen := vec3Length(axisSum)
	if axisLen == 0 {
		return info
	}

	axis := vec3Scale(axisSum, 1/axisLen)

	minDot := float32(1)
	for _, tri := range triangles {
		n := normals[tri[0]]
		d := vec3Dot(n, axis)
		if d < minDot {
			minDot = d
		}
	}

	// minDot is the cosine of the half-angle the cone must cover.
	// Reject cone culling if the spread exceeds what coneWeight allows.
	if minDot < 1-coneWeight {
		return info
	}

	info.ConeAxis = axis
	info.ConeCutoff = minDot
	info.Flags |= CullCone
	return info
}

func vec3Add(a, b math.Vec3) math.Vec3 { return math.Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z} }
func vec3Sub(a, b math.Vec3) math.Vec3 { return math.Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z} }
func vec3Scale(a math.Vec3, s float32) math.Vec3 { return math.Vec3{X: a.X * s, Y: a.Y * s, Z: a.Z * s} }
func vec3Dot(a, b math.Vec3) float32 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func vec3Length(a math.Vec3) float32 { return float32(stdmath.Sqrt(float64(vec3Dot(a, a)))) }

// DualIndexPair is the (vertex-stream index, shading-stream index)
// pair stored per original vertex when dual indexing is enabled.
type DualIndexPair struct {
	Vertex  uint8
	Shading uint8
}

// ComputeDualIndexBuffer independently deduplicates the vertex and
// shading stream entries (each stride bytes wide) and reports whether
// using the resulting dual index is smaller than storing every vertex
// directly: 2 index bytes per original vertex plus the deduplicated
// stream sizes, against the fully expanded (non-deduplicated) size.
func ComputeDualIndexBuffer(vertexData [][]byte, shadingData [][]byte) (pairs []DualIndexPair, uniqueVertex, uniqueShading [][]byte, enabled bool) {
	vertexIndex, uniqueVertex := deduplicateData(vertexData)
	shadingIndex, uniqueShading := deduplicateData(shadingData)

	pairs = make([]DualIndexPair, len(vertexData))
	for i := range pairs {
		pairs[i] = DualIndexPair{Vertex: uint8(vertexIndex[i]), Shading: uint8(shadingIndex[i])}
	}

	vertexStride := streamStride(vertexData)
	shadingStride := streamStride(shadingData)

	vertexCount := len(vertexData)
	oldSize := vertexCount*vertexStride + vertexCount*shadingStride
	newSize := len(uniqueVertex)*vertexStride + len(uniqueShading)*shadingStride + 2*vertexCount

	enabled = newSize <= oldSize
	return pairs, uniqueVertex, uniqueShading, enabled
}

func streamStride(data [][]byte) int {
	if len(data) == 0 {
		return 0
	}
	return len(data[0])
}

// deduplicateData performs a linear byte-compare dedup: it is O(n^2)
// in the number of entries but meshlets are capped at 128 vertices, so
// this is cheap in practice.
func deduplicateData(data [][]byte) (indices []int, unique [][]byte) {
	indices = make([]int, len(data))

	for i, entry := range data {
		found := -1
		for u, candidate := range unique {
			if bytesEqual(candidate, entry) {
				found = u
				break
			}
		}
		if found < 0 {
			found = len(unique)
			unique = append(unique, entry)
		}
		indices[i] = found
	}

	return indices, unique
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
