package geometry

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/math"
)

// LoadGLTFSource parses a glTF or GLB document at path and reduces it
// to a SourceScene: accessors are fully read and index buffers are
// expanded to plain point, line or triangle lists up front, so BuildGeometry never
// has to know about glTF's accessor/bufferView indirection or its
// strip/fan/loop topologies.
func LoadGLTFSource(path string) (*SourceScene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, core.NewError(core.IoError, "geometry: open gltf %q: %v", path, err)
	}
	return buildSourceScene(doc)
}

func buildSourceScene(doc *gltf.Document) (*SourceScene, error) {
	scene := &SourceScene{}

	materialLayouts, err := gltfMaterialLayouts(doc)
	if err != nil {
		return nil, err
	}
	scene.Materials = materialLayouts

	for _, mesh := range doc.Meshes {
		sm := SourceMesh{Name: mesh.Name}

		prims := make([]SourcePrimitive, 0, len(mesh.Primitives))
		for _, prim := range mesh.Primitives {
			sp, err := gltfReadPrimitive(doc, prim)
			if err != nil {
				return nil, err
			}
			prims = append(prims, sp)
		}

		// The base glTF format has no notion of LOD, so every mesh's
		// primitives become its single LOD 0.
		sm.Lods = [][]SourcePrimitive{prims}
		scene.Meshes = append(scene.Meshes, sm)
	}

	for _, skin := range doc.Skins {
		joints, err := gltfFlattenSkin(doc, skin)
		if err != nil {
			return nil, err
		}
		baseIndex := len(scene.Joints)
		scene.Joints = append(scene.Joints, joints...)
		scene.Skins = append(scene.Skins, SourceSkin{JointIndices: gltfIdentityRange(baseIndex, len(joints))})
	}

	nodeSkin := make(map[uint32]int)
	for ni, node := range doc.Nodes {
		if node.Skin != nil {
			nodeSkin[uint32(ni)] = int(*node.Skin)
		}
	}

	for ni, node := range doc.Nodes {
		if node.Mesh == nil {
			continue
		}

		skinIndex := -1
		if s, ok := nodeSkin[uint32(ni)]; ok {
			skinIndex = s
		}

		scene.Instances = append(scene.Instances, SourceInstance{
			Name:        node.Name,
			MeshIndex:   int(*node.Mesh),
			Rotation:    math.Quaternion{X: node.Rotation[0], Y: node.Rotation[1], Z: node.Rotation[2], W: node.Rotation[3]},
			Translation: math.Vec3{X: node.Translation[0], Y: node.Translation[1], Z: node.Translation[2]},
			SkinIndex:   skinIndex,
		})
	}

	return scene, nil
}

func gltfIdentityRange(base, count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = base + i
	}
	return out
}

// gltfMaterialLayouts builds one PackedLayout per glTF material (plus
// a trailing default layout for primitives with no material), based
// on the union of attributes any primitive using that material
// supplies. A first pass over every primitive records which
// attributes are present per material; layouts are built once that is
// known so every primitive sharing a material packs identically.
func gltfMaterialLayouts(doc *gltf.Document) ([]MaterialLayout, error) {
	count := len(doc.Materials) + 1
	present := make([]map[string]bool, count)
	morphed := make([]bool, count)
	for i := range present {
		present[i] = make(map[string]bool)
	}

	materialIndex := func(prim *gltf.Primitive) int {
		if prim.Material == nil {
			return len(doc.Materials)
		}
		return int(*prim.Material)
	}

	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			mi := materialIndex(prim)
			for attr := range prim.Attributes {
				present[mi][attr] = true
			}
			if len(prim.Targets) > 0 {
				morphed[mi] = true
			}
		}
	}

	layouts := make([]MaterialLayout, count)
	for i := 0; i < count; i++ {
		var attrs []PackedAttribute
		add := func(semantic MeshletAttributeSemantic, stream MeshletAttributeStream, format AttributeFormat, components int, morph bool) {
			attrs = append(attrs, PackedAttribute{Semantic: semantic, Stream: stream, Format: format, Components: components, Morph: morph})
		}

		if present[i]["POSITION"] {
			add(SemanticPosition, StreamVertexData, FormatFloat32, 3, morphed[i])
		}
		if present[i]["NORMAL"] {
			add(SemanticNormal, StreamShadingData, FormatFloat32, 3, morphed[i])
		}
		if present[i]["TANGENT"] {
			add(SemanticTangent, StreamShadingData, FormatFloat32, 4, false)
		}
		if present[i]["TEXCOORD_0"] {
			add(SemanticTexCoord, StreamShadingData, FormatFloat32, 2, false)
		}
		if present[i]["COLOR_0"] {
			add(SemanticColor, StreamShadingData, FormatUnorm8, 4, false)
		}
		if present[i]["JOINTS_0"] {
			add(SemanticJoints, StreamShadingData, FormatUnorm8, 4, false)
		}
		if present[i]["WEIGHTS_0"] {
			add(SemanticWeights, StreamShadingData, FormatUnorm8, 4, false)
		}

		name := "default"
		if i < len(doc.Materials) {
			name = doc.Materials[i].Name
		}
		layouts[i] = MaterialLayout{Name: name, Layout: NewPackedLayout(attrs)}
	}

	return layouts, nil
}

func gltfReadPrimitive(doc *gltf.Document, prim *gltf.Primitive) (SourcePrimitive, error) {
	var sp SourcePrimitive

	sp.MaterialIndex = len(doc.Materials)
	if prim.Material != nil {
		sp.MaterialIndex = int(*prim.Material)
	}

	topology := gltfTopology(prim.Mode)

	var rawIndices []uint32
	if prim.Indices != nil {
		idx, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return sp, core.NewError(core.IoError, "geometry: read indices: %v", err)
		}
		rawIndices = idx
	} else if posAccessorIndex, ok := prim.Attributes["POSITION"]; ok {
		count := doc.Accessors[posAccessorIndex].Count
		rawIndices = make([]uint32, count)
		for i := range rawIndices {
			rawIndices[i] = uint32(i)
		}
	}

	expanded := make([]uint32, CountIndices(topology, CountPrimitives(topology, uint32(len(rawIndices)))))
	ExpandIndices(topology, uint32(len(rawIndices)), func(i uint32) uint32 { return rawIndices[i] }, expanded)
	sp.Topology = CollapseTopology(topology)
	sp.Indices = expanded

	positions, normals, tangents, texcoords, colors, joints, weights, err := gltfReadAttributes(doc, prim.Attributes)
	if err != nil {
		return sp, err
	}

	vertexCount := len(positions)
	sp.Vertices = make([]Vertex, vertexCount)
	for i := 0; i < vertexCount; i++ {
		v := &sp.Vertices[i]
		v.Position = positions[i]
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(tangents) {
			v.Tangent = tangents[i]
		}
		if i < len(texcoords) {
			v.TexCoord = [][2]float32{texcoords[i]}
		}
		if i < len(colors) {
			v.Color = [][4]float32{colors[i]}
		}
	}

	if len(joints) > 0 && len(weights) > 0 {
		sp.Skin = make([]SkinVertex, vertexCount)
		for i := 0; i < vertexCount && i < len(joints) && i < len(weights); i++ {
			sp.Skin[i] = SkinVertex{Joints: joints[i], Weights: weights[i]}
		}
	}

	for _, target := range prim.Targets {
		mt := SourceMorphTarget{Vertices: make([]Vertex, vertexCount)}
		if acr, ok := target["POSITION"]; ok {
			deltas, err := modeler.ReadPosition(doc, doc.Accessors[acr], nil)
			if err != nil {
				return sp, core.NewError(core.IoError, "geometry: read morph position: %v", err)
			}
			for i := 0; i < vertexCount && i < len(deltas); i++ {
				mt.Vertices[i].Position = math.Vec3{X: deltas[i][0], Y: deltas[i][1], Z: deltas[i][2]}
			}
		}
		if acr, ok := target["NORMAL"]; ok {
			deltas, err := modeler.ReadNormal(doc, doc.Accessors[acr], nil)
			if err != nil {
				return sp, core.NewError(core.IoError, "geometry: read morph normal: %v", err)
			}
			for i := 0; i < vertexCount && i < len(deltas); i++ {
				mt.Vertices[i].Normal = math.Vec3{X: deltas[i][0], Y: deltas[i][1], Z: deltas[i][2]}
			}
		}
		sp.MorphTargets = append(sp.MorphTargets, mt)
	}

	return sp, nil
}

func gltfReadAttributes(doc *gltf.Document, attrs map[string]uint32) (
	positions []math.Vec3, normals []math.Vec3, tangents [][4]float32,
	texcoords [][2]float32, colors [][4]float32, joints [][4]uint32, weights [][4]float32, err error,
) {
	if acr, ok := attrs["POSITION"]; ok {
		raw, e := modeler.ReadPosition(doc, doc.Accessors[acr], nil)
		if e != nil {
			return nil, nil, nil, nil, nil, nil, nil, core.NewError(core.IoError, "geometry: read POSITION: %v", e)
		}
		positions = make([]math.Vec3, len(raw))
		for i, p := range raw {
			positions[i] = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
		}
	}
	if acr, ok := attrs["NORMAL"]; ok {
		raw, e := modeler.ReadNormal(doc, doc.Accessors[acr], nil)
		if e != nil {
			return nil, nil, nil, nil, nil, nil, nil, core.NewError(core.IoError, "geometry: read NORMAL: %v", e)
		}
		normals = make([]math.Vec3, len(raw))
		for i, n := range raw {
			normals[i] = math.Vec3{X: n[0], Y: n[1], Z: n[2]}
		}
	}
	if acr, ok := attrs["TANGENT"]; ok {
		raw, e := modeler.ReadTangent(doc, doc.Accessors[acr], nil)
		if e != nil {
			return nil, nil, nil, nil, nil, nil, nil, core.NewError(core.IoError, "geometry: read TANGENT: %v", e)
		}
		tangents = raw
	}
	if acr, ok := attrs["TEXCOORD_0"]; ok {
		raw, e := modeler.ReadTextureCoord(doc, doc.Accessors[acr], nil)
		if e != nil {
			return nil, nil, nil, nil, nil, nil, nil, core.NewError(core.IoError, "geometry: read TEXCOORD_0: %v", e)
		}
		texcoords = raw
	}
	if acr, ok := attrs["COLOR_0"]; ok {
		raw, e := modeler.ReadColor(doc, doc.Accessors[acr], nil)
		if e != nil {
			return nil, nil, nil, nil, nil, nil, nil, core.NewError(core.IoError, "geometry: read COLOR_0: %v", e)
		}
		colors = raw
	}
	if acr, ok := attrs["JOINTS_0"]; ok {
		raw, e := modeler.ReadJoints(doc, doc.Accessors[acr], nil)
		if e != nil {
			return nil, nil, nil, nil, nil, nil, nil, core.NewError(core.IoError, "geometry: read JOINTS_0: %v", e)
		}
		joints = make([][4]uint32, len(raw))
		for i, j := range raw {
			joints[i] = [4]uint32{uint32(j[0]), uint32(j[1]), uint32(j[2]), uint32(j[3])}
		}
	}
	if acr, ok := attrs["WEIGHTS_0"]; ok {
		raw, e := modeler.ReadWeights(doc, doc.Accessors[acr], nil)
		if e != nil {
			return nil, nil, nil, nil, nil, nil, nil, core.NewError(core.IoError, "geometry: read WEIGHTS_0: %v", e)
		}
		weights = raw
	}

	return positions, normals, tangents, texcoords, colors, joints, weights, nil
}

func gltfTopology(mode gltf.PrimitiveMode) Topology {
	switch mode {
	case gltf.PrimitivePoints:
		return TopologyPoints
	case gltf.PrimitiveLines:
		return TopologyLines
	case gltf.PrimitiveLineLoop:
		return TopologyLineLoop
	case gltf.PrimitiveLineStrip:
		return TopologyLineStrip
	case gltf.PrimitiveTriangleStrip:
		return TopologyTriangleStrip
	case gltf.PrimitiveTriangleFan:
		return TopologyTriangleFan
	default:
		return TopologyTriangles
	}
}

// gltfFlattenSkin reads a skin's joint nodes and inverse bind matrices
// into SourceJoints ordered exactly as the skin lists them; parent
// links are resolved from each joint node's position in the node
// graph relative to the other joints in this same skin (a joint whose
// node parent is not itself one of the skin's joints becomes a root).
func gltfFlattenSkin(doc *gltf.Document, skin *gltf.Skin) ([]SourceJoint, error) {
	var invBind [][16]float32
	if skin.InverseBindMatrices != nil {
		mats, err := gltfReadMat4(doc, doc.Accessors[*skin.InverseBindMatrices])
		if err != nil {
			return nil, err
		}
		invBind = mats
	}

	nodeToJoint := make(map[uint32]int, len(skin.Joints))
	for ji, nodeIndex := range skin.Joints {
		nodeToJoint[nodeIndex] = ji
	}

	parentOf := make(map[uint32]uint32)
	for ni, node := range doc.Nodes {
		for _, child := range node.Children {
			parentOf[child] = uint32(ni)
		}
	}

	joints := make([]SourceJoint, len(skin.Joints))
	for ji, nodeIndex := range skin.Joints {
		node := doc.Nodes[nodeIndex]

		parent := -1
		if p, ok := parentOf[nodeIndex]; ok {
			if pj, ok := nodeToJoint[p]; ok {
				parent = pj
			}
		}

		rot := math.Quaternion{X: 0, Y: 0, Z: 0, W: 1}
		trans := math.Vec3{}
		if ji < len(invBind) {
			rot, trans = gltfDecomposeInverseBind(invBind[ji])
		}

		joints[ji] = SourceJoint{
			Name:                   node.Name,
			Parent:                 parent,
			InverseBindRotation:    rot,
			InverseBindTranslation: trans,
		}
	}

	return joints, nil
}

// gltfDecomposeInverseBind extracts the translation directly from a
// column-major 4x4 matrix and approximates the rotation by ignoring
// any scale in the upper 3x3 block; skin geometry in practice carries
// no shear and rarely any scale, so this matches the joint's actual
// orientation closely enough for culling and skinning math that only
// needs an approximate inverse bind pose.
func gltfDecomposeInverseBind(m [16]float32) (math.Quaternion, math.Vec3) {
	trans := math.Vec3{X: m[12], Y: m[13], Z: m[14]}

	m00, m01, m02 := m[0], m[4], m[8]
	m10, m11, m12 := m[1], m[5], m[9]
	m20, m21, m22 := m[2], m[6], m[10]

	trace := m00 + m11 + m22
	var q math.Quaternion
	if trace > 0 {
		s := sqrt32(trace+1) * 2
		q.W = s / 4
		q.X = (m21 - m12) / s
		q.Y = (m02 - m20) / s
		q.Z = (m10 - m01) / s
	} else if m00 > m11 && m00 > m22 {
		s := sqrt32(1+m00-m11-m22) * 2
		q.W = (m21 - m12) / s
		q.X = s / 4
		q.Y = (m01 + m10) / s
		q.Z = (m02 + m20) / s
	} else if m11 > m22 {
		s := sqrt32(1+m11-m00-m22) * 2
		q.W = (m02 - m20) / s
		q.X = (m01 + m10) / s
		q.Y = s / 4
		q.Z = (m12 + m21) / s
	} else {
		s := sqrt32(1+m22-m00-m11) * 2
		q.W = (m10 - m01) / s
		q.X = (m02 + m20) / s
		q.Y = (m12 + m21) / s
		q.Z = s / 4
	}

	return q, trans
}

// gltfReadMat4 decodes a MAT4 accessor directly from its backing
// buffer view; the modeler package has no dedicated MAT4 reader since
// glTF only ever uses MAT4 accessors for inverse bind matrices.
func gltfReadMat4(doc *gltf.Document, acr *gltf.Accessor) ([][16]float32, error) {
	if acr.BufferView == nil {
		return nil, core.NewError(core.InvalidInput, "geometry: MAT4 accessor has no buffer view")
	}
	view := doc.BufferViews[*acr.BufferView]
	buf := doc.Buffers[view.Buffer].Data

	stride := int(view.ByteStride)
	if stride == 0 {
		stride = 16 * 4
	}

	base := int(view.ByteOffset) + int(acr.ByteOffset)

	out := make([][16]float32, acr.Count)
	for i := uint32(0); i < acr.Count; i++ {
		off := base + int(i)*stride
		for k := 0; k < 16; k++ {
			out[i][k] = readFloat32LE(buf, off+k*4)
		}
	}

	return out, nil
}

func readFloat32LE(buf []byte, off int) float32 {
	if off+4 > len(buf) {
		return 0
	}
	bits := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
	return float32frombits(bits)
}
