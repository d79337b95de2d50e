package geometry

import (
	"github.com/alseid-engine/anima/engine/jobs"
	"github.com/alseid-engine/anima/engine/math"
)

// ConvertOptions controls the meshlet build.
type ConvertOptions struct {
	MaxMeshletVertices  int
	MaxMeshletTriangles int
	ConeWeight          float32
}

// DefaultConvertOptions matches the reference importer's caps: 128
// vertices and 128 triangles per meshlet, 0.85 cone weight.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		MaxMeshletVertices:  maxMeshletVertices,
		MaxMeshletTriangles: maxMeshletTriangles,
		ConeWeight:          defaultConeWeight,
	}
}

type builtMeshlet struct {
	data   []byte
	header MeshletHeader
	info   MeshletInfo
}

// BuildGeometry runs the full conversion pipeline over a parsed
// scene: per-primitive meshletizing and per-meshlet packing happen in
// parallel via a job manager, after which mesh, LOD, instance, joint
// and material metadata are assembled into one Geometry with a single
// data buffer. mgr may be shared with other conversion work; if nil, a
// private single-use manager is started and shut down before return.
func BuildGeometry(scene *SourceScene, opts ConvertOptions, mgr *jobs.Manager) (*Geometry, error) {
	if mgr == nil {
		mgr = jobs.NewManager(0)
		defer mgr.Shutdown()
	}

	g := &Geometry{}
	g.Info.MaterialCount = uint8(len(scene.Materials))

	for _, mat := range scene.Materials {
		g.Materials = append(g.Materials, materialMetadata(mat, g))
	}

	joints, remap := flattenJoints(scene.Joints)
	g.Joints = joints
	g.Info.JointCount = uint16(len(joints))

	var aabb Aabb
	haveAabb := false

	type meshWork struct {
		meshIndex int
		lods      [][]builtMeshlet
		lodAabb   []Aabb
	}

	results := make([]meshWork, len(scene.Meshes))

	for mi, mesh := range scene.Meshes {
		mi, mesh := mi, mesh
		results[mi] = meshWork{meshIndex: mi, lods: make([][]builtMeshlet, len(mesh.Lods)), lodAabb: make([]Aabb, len(mesh.Lods))}

		for li, prims := range mesh.Lods {
			li, prims := li, prims

			job := jobs.NewBatchJob(uint32(len(prims)), 1, func(pi uint32) {
				built, primAabb := buildPrimitiveMeshlets(&prims[pi], scene, opts)
				results[mi].lods[li] = append(results[mi].lods[li], built...)
				results[mi].lodAabb[li] = unionAabb(results[mi].lodAabb[li], primAabb)
			})
			mgr.Dispatch(job)
			mgr.Wait(job)
		}
	}

	var meshletInfos []MeshletInfo
	var meshletData [][]byte

	for mi, mesh := range scene.Meshes {
		meta := MeshMetadata{Name: mesh.Name, MeshIndex: uint32(mi)}
		meta.LodMetadataIndex = uint32(len(g.Lods))
		meta.InstanceDataIndex = uint32(len(g.Instances))
		meta.Info.LodCount = uint8(len(mesh.Lods))

		for li := range mesh.Lods {
			built := results[mi].lods[li]

			lod := MeshLodMetadata{FirstMeshletIndex: uint32(len(meshletInfos))}
			lod.Info.MeshletCount = uint32(len(built))
			lod.Info.MeshletIndex = uint32(len(meshletInfos))

			for _, m := range built {
				meshletInfos = append(meshletInfos, m.info)
				meshletData = append(meshletData, m.data)
			}

			g.Lods = append(g.Lods, lod)

			if !haveAabb {
				aabb = results[mi].lodAabb[li]
				haveAabb = true
			} else {
				aabb = unionAabb(aabb, results[mi].lodAabb[li])
			}
		}

		if len(mesh.Lods) > 0 && len(mesh.Lods[0]) > 0 {
			meta.Info.MaterialIndex = uint8(mesh.Lods[0][0].MaterialIndex)
		}

		g.Meshes = append(g.Meshes, meta)
	}

	g.Info.MeshCount = uint8(len(g.Meshes))
	g.Info.Aabb = aabb

	var skinIndices []uint16

	for ii, inst := range scene.Instances {
		instMeta := MeshInstanceMetadata{
			Name:          inst.Name,
			MeshIndex:     uint32(inst.MeshIndex),
			InstanceIndex: uint32(ii),
		}
		instMeta.Info.Rotation = inst.Rotation
		instMeta.Info.Translation = inst.Translation

		if inst.SkinIndex >= 0 && inst.SkinIndex < len(scene.Skins) {
			skin := scene.Skins[inst.SkinIndex]
			instMeta.Info.SkinOffset = uint32(len(skinIndices))
			instMeta.Info.JointCount = uint16(len(skin.JointIndices))

			for _, j := range skin.JointIndices {
				newIndex := 0
				if j >= 0 && j < len(remap) {
					newIndex = remap[j]
				}
				skinIndices = append(skinIndices, uint16(newIndex))
			}
		}

		if inst.MeshIndex >= 0 && inst.MeshIndex < len(g.Meshes) {
			g.Meshes[inst.MeshIndex].Info.InstanceCount++
		}

		g.Instances = append(g.Instances, instMeta)
	}

	g.MeshletOffsets = make([]uint32, len(meshletInfos))

	buildBuffer(g, meshletInfos, meshletData, skinIndices)

	return g, nil
}

func materialMetadata(mat MaterialLayout, g *Geometry) MeshMaterialMetadata {
	meta := MeshMaterialMetadata{
		Name:              mat.Name,
		AttributeIndex:    uint16(len(g.Attributes)),
		VertexDataStride:  mat.Layout.VertexStride,
		ShadingDataStride: mat.Layout.ShadingStride,
		MorphDataStride:   mat.Layout.MorphStride,
	}

	for _, attr := range mat.Layout.Attributes {
		g.Attributes = append(g.Attributes, MeshletAttributeMetadata{
			Name:          attr.Semantic.String(),
			DataFormat:    uint16(attr.Format),
			Stream:        attr.Stream,
			Semantic:      attr.Semantic,
			SemanticIndex: attr.SemanticIndex,
			DataOffset:    attr.Offset,
			Morph:         attr.Morph,
			MorphOffset:   attr.Offset,
		})
	}
	meta.AttributeCount = uint16(len(mat.Layout.Attributes))

	return meta
}

func buildPrimitiveMeshlets(prim *SourcePrimitive, scene *SourceScene, opts ConvertOptions) ([]builtMeshlet, Aabb) {
	clusters := BuildMeshlets(prim.Indices, opts.MaxMeshletVertices, opts.MaxMeshletTriangles)

	layout := scene.Materials[prim.MaterialIndex].Layout

	var built []builtMeshlet
	var aabb Aabb
	haveAabb := false

	for _, cluster := range clusters {
		localVerts := make([]Vertex, len(cluster.Vertices))
		localSkin := make([]SkinVertex, len(cluster.Vertices))
		positions := make([]math.Vec3, len(cluster.Vertices))
		normals := make([]math.Vec3, len(cluster.Vertices))

		for i, gi := range cluster.Vertices {
			localVerts[i] = prim.Vertices[gi]
			positions[i] = prim.Vertices[gi].Position
			normals[i] = prim.Vertices[gi].Normal

			if int(gi) < len(prim.Skin) {
				localSkin[i] = prim.Skin[gi]
			}

			if !haveAabb {
				aabb = Aabb{Min: positions[i], Max: positions[i]}
				haveAabb = true
			} else {
				aabb = unionAabb(aabb, Aabb{Min: positions[i], Max: positions[i]})
			}
		}

		info := ComputeMeshletBounds(positions, normals, cluster.Triangles, opts.ConeWeight)
		info.VertexCount = uint8(len(cluster.Vertices))
		info.TriangleCount = uint8(len(cluster.Triangles))

		var table []uint32
		var localJoints bool
		var dominant *uint32
		if len(prim.Skin) > 0 {
			table, localJoints, dominant = ProcessJoints(localSkin)
			_ = table
			_ = localJoints
		}
		if dominant != nil {
			// A meshlet driven entirely by one joint can reuse that
			// joint's transform for culling; no extra bookkeeping is
			// needed beyond the bounds already computed above.
			_ = dominant
		}

		vertexStride := int(layout.VertexStride)
		shadingStride := int(layout.ShadingStride)

		vertexData := make([][]byte, len(localVerts))
		shadingData := make([][]byte, len(localVerts))

		for i := range localVerts {
			vertexData[i] = make([]byte, vertexStride)
			shadingData[i] = make([]byte, shadingStride)

			full := make([]byte, vertexStride+shadingStride)
			layout.PackVertex(&localVerts[i], full)
			copy(vertexData[i], full[:vertexStride])
			copy(shadingData[i], full[vertexStride:])
		}

		var dualIndex []DualIndexPair
		var uniqueVertex, uniqueShading [][]byte

		if vertexStride > 0 || shadingStride > 0 {
			var enabled bool
			dualIndex, uniqueVertex, uniqueShading, enabled = ComputeDualIndexBuffer(vertexData, shadingData)
			if !enabled {
				dualIndex = nil
			}
		}

		var morphInputs []MorphTargetInput
		for ti, mt := range prim.MorphTargets {
			localMorph := make([]Vertex, len(cluster.Vertices))
			for i, gi := range cluster.Vertices {
				if int(gi) < len(mt.Vertices) {
					localMorph[i] = mt.Vertices[gi]
				}
			}
			morphInputs = append(morphInputs, MorphTargetInput{SlotIndex: ti, Vertices: localMorph})
		}

		morphBuffer, morphTargets, _, sphereDelta := ProcessMorphTargets(layout, morphInputs)
		if sphereDelta > 0 {
			info.SphereRadius += sphereDelta
			info.Flags &^= CullCone
		}

		var vData, sData [][]byte
		if dualIndex != nil {
			vData, sData = uniqueVertex, uniqueShading
		} else {
			vData, sData = vertexData, shadingData
		}

		buf, header := BuildMeshletBuffer(
			len(cluster.Vertices), len(cluster.Triangles),
			vertexStride, shadingStride,
			vData, sData, dualIndex,
			cluster.Triangles, morphTargets, morphBuffer,
		)

		built = append(built, builtMeshlet{data: buf, header: header, info: info})
	}

	return built, aabb
}

// flattenJoints assigns contiguous indices to every joint in BFS
// order starting from the joints whose parent is not itself a joint
// (a root of the flattened forest), and returns the remap from source
// joint index to flattened index.
func flattenJoints(src []SourceJoint) ([]JointMetadata, []int) {
	remap := make([]int, len(src))
	for i := range remap {
		remap[i] = -1
	}

	children := make(map[int][]int)
	var roots []int
	for i, j := range src {
		if j.Parent < 0 || j.Parent >= len(src) {
			roots = append(roots, i)
		} else {
			children[j.Parent] = append(children[j.Parent], i)
		}
	}

	var order []int
	queue := append([]int(nil), roots...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if remap[n] != -1 {
			continue
		}
		remap[n] = len(order)
		order = append(order, n)
		queue = append(queue, children[n]...)
	}

	joints := make([]JointMetadata, len(order))
	for newIndex, oldIndex := range order {
		j := src[oldIndex]
		parent := uint16(newIndex)
		if j.Parent >= 0 && remap[j.Parent] >= 0 {
			parent = uint16(remap[j.Parent])
		}

		joints[newIndex] = JointMetadata{
			Name:       j.Name,
			JointIndex: uint32(newIndex),
			Info: JointInfo{
				InverseBindRotation:    j.InverseBindRotation,
				InverseBindTranslation: j.InverseBindTranslation,
				Parent:                 parent,
			},
		}
	}

	return joints, remap
}

// buildBuffer lays out the geometry's single data buffer: header and
// mesh infos, joint data, each mesh's LOD and instance records, skin
// index arrays, the meshlet info table, then every meshlet's own data buffer
// concatenated in order. This collapses the reference layout's
// multi-buffer LOD streaming split (each LOD may target a separate
// buffer so a renderer can page it independently) down to one buffer,
// since nothing in this package streams LODs independently yet; the
// metadata still records a BufferIndex per LOD for a future multi
// buffer writer to use.
func buildBuffer(g *Geometry, meshletInfos []MeshletInfo, meshletData [][]byte, skinIndices []uint16) {
	g.Info.BufferCount = 1

	headerSize := geometryInfoSize + len(g.Meshes)*meshInfoSize
	offset := headerSize

	if g.Info.JointCount > 0 {
		g.Info.JointDataOffset = uint32(offset)
		offset += len(g.Joints) * jointInfoSize
	}

	for i := range g.Meshes {
		mesh := &g.Meshes[i]
		if mesh.Info.LodCount > 0 {
			mesh.Info.LodInfoOffset = uint32(offset)
			offset += int(mesh.Info.LodCount) * meshLodInfoSize
		}
		if mesh.Info.InstanceCount > 0 {
			mesh.Info.InstanceDataOffset = uint32(offset)
			offset += int(mesh.Info.InstanceCount) * meshInstanceInfoSize
		}
	}

	if len(skinIndices) > 0 {
		skinOffset := offset
		offset += len(skinIndices) * 2
		for i := range g.Instances {
			if g.Instances[i].Info.JointCount > 0 {
				g.Instances[i].Info.SkinOffset += uint32(skinOffset) / 2
			}
		}
	}

	meshletTableOffset := offset
	offset += len(meshletInfos) * meshletInfoSize
	g.Info.MeshletDataOffset = uint32(offset)

	total := offset
	meshletByteOffsets := make([]int, len(meshletInfos))
	for i, data := range meshletData {
		meshletByteOffsets[i] = total
		total += len(data)
	}

	buf := make([]byte, total)
	writeGeometryInfoAt(buf, 0, g.Info)

	meshOff := geometryInfoSize
	for i := range g.Meshes {
		writeMeshInfoAt(buf, meshOff, g.Meshes[i].Info)
		meshOff += meshInfoSize
	}

	for i, j := range g.Joints {
		writeJointInfoAt(buf, int(g.Info.JointDataOffset)+i*jointInfoSize, j.Info)
	}

	for mi := range g.Meshes {
		mesh := &g.Meshes[mi]
		for li := uint32(0); li < uint32(mesh.Info.LodCount); li++ {
			lod := &g.Lods[mesh.LodMetadataIndex+li]
			writeMeshLodInfoAt(buf, int(mesh.Info.LodInfoOffset)+int(li)*meshLodInfoSize, lod.Info)
		}
		for ii := uint32(0); ii < uint32(mesh.Info.InstanceCount); ii++ {
			inst := &g.Instances[mesh.InstanceDataIndex+ii]
			writeMeshInstanceInfoAt(buf, int(mesh.Info.InstanceDataOffset)+int(ii)*meshInstanceInfoSize, inst.Info)
		}
	}

	skinOff := meshletTableOffset - len(skinIndices)*2
	if len(skinIndices) > 0 {
		for i, idx := range skinIndices {
			writeUint16At(buf, skinOff+i*2, idx)
		}
	}

	for i, info := range meshletInfos {
		info.DataOffset = uint32(meshletByteOffsets[i])
		writeMeshletInfoAt(buf, meshletTableOffset+i*meshletInfoSize, info)
		g.MeshletOffsets[i] = uint32(meshletByteOffsets[i])
	}

	for i, data := range meshletData {
		copy(buf[meshletByteOffsets[i]:], data)
	}

	g.Buffers = [][]byte{buf}
}
