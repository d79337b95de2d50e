package geometry

// Meshlet is one cluster produced by BuildMeshlets: a set of local
// vertex indices (into the primitive's vertex buffer) and triangles
// expressed as indices into that local vertex set.
type Meshlet struct {
	Vertices  []uint32
	Triangles [][3]uint8
}

// BuildMeshlets groups a triangle list into meshlets of at most
// maxVertices vertices and maxTriangles triangles each. Unlike
// meshoptimizer's spatial clustering (which greedily extends a
// cluster by the triangle sharing the most already-included vertices,
// weighted by cone direction), this groups triangles in their
// existing order: no third-party or stdlib binding for that algorithm
// is available, so clustering quality (meshlet locality, cone
// tightness) is lower, but every downstream consumer of a Meshlet
// (dual indexing, bounds, joint localization) only depends on the
// vertex/triangle caps being respected, which this preserves exactly.
func BuildMeshlets(indices []uint32, maxVertices, maxTriangles int) []Meshlet {
	var meshlets []Meshlet

	var current Meshlet
	localIndex := make(map[uint32]uint8)

	flush := func() {
		if len(current.Triangles) > 0 {
			meshlets = append(meshlets, current)
		}
		current = Meshlet{}
		localIndex = make(map[uint32]uint8)
	}

	for i := 0; i+3 <= len(indices); i += 3 {
		tri := [3]uint32{indices[i], indices[i+1], indices[i+2]}

		newVertexCount := 0
		for _, v := range tri {
			if _, ok := localIndex[v]; !ok {
				newVertexCount++
			}
		}

		if len(current.Vertices)+newVertexCount > maxVertices || len(current.Triangles)+1 > maxTriangles {
			flush()
		}

		var localTri [3]uint8
		for k, v := range tri {
			idx, ok := localIndex[v]
			if !ok {
				idx = uint8(len(current.Vertices))
				localIndex[v] = idx
				current.Vertices = append(current.Vertices, v)
			}
			localTri[k] = idx
		}

		current.Triangles = append(current.Triangles, localTri)
	}

	flush()
	return meshlets
}
