package geometry

import (
	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/stream"
)

const containerVersion uint16 = 0

func writeString(w *stream.Writer, s string) {
	w.WriteUint16(uint16(len(s)))
	w.Write([]byte(s))
}

func readString(r *stream.Reader) (string, bool) {
	n, ok := r.ReadUint16()
	if !ok {
		return "", false
	}
	buf := make([]byte, n)
	if !r.Read(buf) {
		return "", false
	}
	return string(buf), true
}

func writeAabb(w *stream.Writer, a Aabb) {
	w.WriteUint32(f32bits(a.Min.X))
	w.WriteUint32(f32bits(a.Min.Y))
	w.WriteUint32(f32bits(a.Min.Z))
	w.WriteUint32(f32bits(a.Max.X))
	w.WriteUint32(f32bits(a.Max.Y))
	w.WriteUint32(f32bits(a.Max.Z))
}

func readAabb(r *stream.Reader) (Aabb, bool) {
	var a Aabb
	var ok bool
	if a.Min.X, ok = readF32(r); !ok {
		return a, false
	}
	if a.Min.Y, ok = readF32(r); !ok {
		return a, false
	}
	if a.Min.Z, ok = readF32(r); !ok {
		return a, false
	}
	if a.Max.X, ok = readF32(r); !ok {
		return a, false
	}
	if a.Max.Y, ok = readF32(r); !ok {
		return a, false
	}
	if a.Max.Z, ok = readF32(r); !ok {
		return a, false
	}
	return a, true
}

// Serialize writes the geometry metadata (not the buffer contents) in
// the fixed field order the archive builder and runtime loader agree
// on: version, info, meshes, LODs, instances, meshlet offsets,
// materials, attributes, joints, morph target names, animations.
func (g *Geometry) Serialize() []byte {
	w := stream.NewWriter()
	w.WriteUint16(containerVersion)

	writeGeometryInfo(w, g.Info)

	for _, mesh := range g.Meshes {
		writeString(w, mesh.Name)
		writeMeshInfo(w, mesh.Info)
		w.WriteUint16(uint16(mesh.LodMetadataIndex))
		w.WriteUint16(uint16(mesh.InstanceDataIndex))
	}

	w.WriteUint16(uint16(len(g.Lods)))
	for _, lod := range g.Lods {
		writeMeshLodInfo(w, lod.Info)
		w.WriteUint32(lod.FirstMeshletIndex)
	}

	w.WriteUint16(uint16(len(g.Instances)))
	for _, inst := range g.Instances {
		writeString(w, inst.Name)
		writeMeshInstanceInfo(w, inst.Info)
		w.WriteUint16(uint16(inst.MeshIndex))
		w.WriteUint16(uint16(inst.InstanceIndex))
	}

	w.WriteUint32(uint32(len(g.MeshletOffsets)))
	for _, offset := range g.MeshletOffsets {
		w.WriteUint32(offset)
	}

	for _, mat := range g.Materials {
		writeString(w, mat.Name)
		w.WriteUint16(mat.AttributeIndex)
		w.WriteUint16(mat.AttributeCount)
		w.WriteUint16(mat.VertexDataStride)
		w.WriteUint16(mat.ShadingDataStride)
		w.WriteUint16(mat.MorphDataStride)
	}

	w.WriteUint16(uint16(len(g.Attributes)))
	for _, attr := range g.Attributes {
		writeString(w, attr.Name)
		w.WriteUint16(attr.DataFormat)
		w.WriteUint16(uint16(attr.Stream))
		w.WriteUint16(uint16(attr.Semantic))
		w.WriteUint16(attr.SemanticIndex)
		w.WriteUint16(attr.DataOffset)
		if attr.Morph {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
		w.WriteUint16(attr.MorphOffset)
	}

	for _, joint := range g.Joints {
		writeString(w, joint.Name)
		writeJointInfo(w, joint.Info)
	}

	for _, mt := range g.MorphTargets {
		writeString(w, mt.Name)
	}

	w.WriteUint16(uint16(len(g.Animations)))
	for _, anim := range g.Animations {
		writeString(w, anim.Name)
		w.WriteUint16(anim.GroupIndex)
		w.WriteUint16(anim.GroupCount)
		w.WriteUint32(f32bits(anim.Duration))
	}

	return w.Bytes()
}

// Deserialize decodes a buffer written by Serialize back into a
// Geometry with empty Buffers; callers that also need buffer contents
// load those separately via the archive sub-file they were stored in.
func Deserialize(data []byte) (*Geometry, error) {
	r := stream.NewReader(data)
	g := &Geometry{}

	version, ok := r.ReadUint16()
	if !ok || version != containerVersion {
		return nil, core.NewError(core.InvalidInput, "unsupported geometry container version %d", version)
	}

	info, ok := readGeometryInfo(r)
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated geometry info")
	}
	g.Info = info

	g.Meshes = make([]MeshMetadata, info.MeshCount)
	for i := range g.Meshes {
		mesh := &g.Meshes[i]
		var name string
		var lodIdx, instIdx uint16

		if name, ok = readString(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated mesh name")
		}
		mesh.Name = name

		if mesh.Info, ok = readMeshInfo(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated mesh info")
		}
		if lodIdx, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated mesh lod index")
		}
		if instIdx, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated mesh instance index")
		}
		mesh.LodMetadataIndex = uint32(lodIdx)
		mesh.InstanceDataIndex = uint32(instIdx)
		mesh.MeshIndex = uint32(i)
	}

	lodCount, ok := r.ReadUint16()
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated lod count")
	}
	g.Lods = make([]MeshLodMetadata, lodCount)
	for i := range g.Lods {
		if g.Lods[i].Info, ok = readMeshLodInfo(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated lod info")
		}
		if g.Lods[i].FirstMeshletIndex, ok = r.ReadUint32(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated lod meshlet index")
		}
	}

	instanceCount, ok := r.ReadUint16()
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated instance count")
	}
	g.Instances = make([]MeshInstanceMetadata, instanceCount)
	for i := range g.Instances {
		inst := &g.Instances[i]
		var meshIdx, instIdx uint16

		if inst.Name, ok = readString(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated instance name")
		}
		if inst.Info, ok = readMeshInstanceInfo(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated instance info")
		}
		if meshIdx, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated instance mesh index")
		}
		if instIdx, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated instance index")
		}
		inst.MeshIndex = uint32(meshIdx)
		inst.InstanceIndex = uint32(instIdx)
	}

	meshletCount, ok := r.ReadUint32()
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated meshlet offset count")
	}
	g.MeshletOffsets = make([]uint32, meshletCount)
	for i := range g.MeshletOffsets {
		if g.MeshletOffsets[i], ok = r.ReadUint32(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated meshlet offset")
		}
	}

	g.Materials = make([]MeshMaterialMetadata, info.MaterialCount)
	for i := range g.Materials {
		mat := &g.Materials[i]
		if mat.Name, ok = readString(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated material name")
		}
		if mat.AttributeIndex, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated material")
		}
		if mat.AttributeCount, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated material")
		}
		if mat.VertexDataStride, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated material")
		}
		if mat.ShadingDataStride, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated material")
		}
		if mat.MorphDataStride, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated material")
		}
		mat.MaterialIndex = uint32(i)
	}

	attributeCount, ok := r.ReadUint16()
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated attribute count")
	}
	g.Attributes = make([]MeshletAttributeMetadata, attributeCount)
	for i := range g.Attributes {
		attr := &g.Attributes[i]
		var stream16, semantic16 uint16
		var morphByte byte

		if attr.Name, ok = readString(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated attribute name")
		}
		if attr.DataFormat, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated attribute")
		}
		if stream16, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated attribute")
		}
		if semantic16, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated attribute")
		}
		if attr.SemanticIndex, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated attribute")
		}
		if attr.DataOffset, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated attribute")
		}
		if morphByte, ok = r.ReadByte(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated attribute")
		}
		if attr.MorphOffset, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated attribute")
		}
		attr.Stream = MeshletAttributeStream(stream16)
		attr.Semantic = MeshletAttributeSemantic(semantic16)
		attr.Morph = morphByte != 0
	}

	g.Joints = make([]JointMetadata, info.JointCount)
	for i := range g.Joints {
		if g.Joints[i].Name, ok = readString(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated joint name")
		}
		if g.Joints[i].Info, ok = readJointInfo(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated joint info")
		}
		g.Joints[i].JointIndex = uint32(i)
	}

	g.MorphTargets = make([]MorphTargetMetadata, info.MorphTargetCount)
	for i := range g.MorphTargets {
		if g.MorphTargets[i].Name, ok = readString(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated morph target name")
		}
		g.MorphTargets[i].MorphTargetIndex = uint32(i)
	}

	animationCount, ok := r.ReadUint16()
	if !ok {
		return nil, core.NewError(core.InvalidInput, "truncated animation count")
	}
	g.Animations = make([]AnimationMetadata, animationCount)
	for i := range g.Animations {
		anim := &g.Animations[i]
		if anim.Name, ok = readString(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated animation name")
		}
		if anim.GroupIndex, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated animation")
		}
		if anim.GroupCount, ok = r.ReadUint16(); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated animation")
		}
		if anim.Duration, ok = readF32(r); !ok {
			return nil, core.NewError(core.InvalidInput, "truncated animation")
		}
		anim.AnimationIndex = uint32(i)
	}

	return g, nil
}

func writeGeometryInfo(w *stream.Writer, info GeometryInfo) {
	writeAabb(w, info.Aabb)
	w.WriteByte(info.MeshCount)
	w.WriteByte(info.MaterialCount)
	w.WriteByte(info.MorphTargetCount)
	w.WriteUint16(info.BufferCount)
	w.WriteUint16(info.JointCount)
	w.WriteUint32(info.BufferPointerOffset)
	w.WriteUint32(info.JointDataOffset)
	w.WriteUint32(info.MeshletDataOffset)
}

func readGeometryInfo(r *stream.Reader) (GeometryInfo, bool) {
	var info GeometryInfo
	var ok bool
	if info.Aabb, ok = readAabb(r); !ok {
		return info, false
	}
	if info.MeshCount, ok = r.ReadByte(); !ok {
		return info, false
	}
	if info.MaterialCount, ok = r.ReadByte(); !ok {
		return info, false
	}
	if info.MorphTargetCount, ok = r.ReadByte(); !ok {
		return info, false
	}
	if info.BufferCount, ok = r.ReadUint16(); !ok {
		return info, false
	}
	if info.JointCount, ok = r.ReadUint16(); !ok {
		return info, false
	}
	if info.BufferPointerOffset, ok = r.ReadUint32(); !ok {
		return info, false
	}
	if info.JointDataOffset, ok = r.ReadUint32(); !ok {
		return info, false
	}
	if info.MeshletDataOffset, ok = r.ReadUint32(); !ok {
		return info, false
	}
	return info, true
}

func writeMeshInfo(w *stream.Writer, info MeshInfo) {
	w.WriteByte(info.MaterialIndex)
	w.WriteByte(info.LodCount)
	w.WriteUint16(info.SkinJoints)
	w.WriteUint16(info.InstanceCount)
	w.WriteUint32(info.LodInfoOffset)
	w.WriteUint32(info.InstanceDataOffset)
	w.WriteUint32(info.SkinDataOffset)
}

func readMeshInfo(r *stream.Reader) (MeshInfo, bool) {
	var info MeshInfo
	var ok bool
	if info.MaterialIndex, ok = r.ReadByte(); !ok {
		return info, false
	}
	if info.LodCount, ok = r.ReadByte(); !ok {
		return info, false
	}
	if info.SkinJoints, ok = r.ReadUint16(); !ok {
		return info, false
	}
	if info.InstanceCount, ok = r.ReadUint16(); !ok {
		return info, false
	}
	if info.LodInfoOffset, ok = r.ReadUint32(); !ok {
		return info, false
	}
	if info.InstanceDataOffset, ok = r.ReadUint32(); !ok {
		return info, false
	}
	if info.SkinDataOffset, ok = r.ReadUint32(); !ok {
		return info, false
	}
	return info, true
}

func writeMeshLodInfo(w *stream.Writer, info MeshLodInfo) {
	w.WriteByte(info.BufferIndex)
	w.WriteUint32(f32bits(info.MaxDistance))
	w.WriteUint32(info.MeshletIndex)
	w.WriteUint32(info.MeshletCount)
}

func readMeshLodInfo(r *stream.Reader) (MeshLodInfo, bool) {
	var info MeshLodInfo
	var ok bool
	if info.BufferIndex, ok = r.ReadByte(); !ok {
		return info, false
	}
	if info.MaxDistance, ok = readF32(r); !ok {
		return info, false
	}
	if info.MeshletIndex, ok = r.ReadUint32(); !ok {
		return info, false
	}
	if info.MeshletCount, ok = r.ReadUint32(); !ok {
		return info, false
	}
	return info, true
}

func writeMeshInstanceInfo(w *stream.Writer, info MeshInstanceInfo) {
	w.WriteUint32(f32bits(info.Rotation.X))
	w.WriteUint32(f32bits(info.Rotation.Y))
	w.WriteUint32(f32bits(info.Rotation.Z))
	w.WriteUint32(f32bits(info.Rotation.W))
	w.WriteUint32(f32bits(info.Translation.X))
	w.WriteUint32(f32bits(info.Translation.Y))
	w.WriteUint32(f32bits(info.Translation.Z))
	w.WriteUint32(info.SkinOffset)
	w.WriteUint16(info.JointCount)
}

func readMeshInstanceInfo(r *stream.Reader) (MeshInstanceInfo, bool) {
	var info MeshInstanceInfo
	var ok bool
	if info.Rotation.X, ok = readF32(r); !ok {
		return info, false
	}
	if info.Rotation.Y, ok = readF32(r); !ok {
		return info, false
	}
	if info.Rotation.Z, ok = readF32(r); !ok {
		return info, false
	}
	if info.Rotation.W, ok = readF32(r); !ok {
		return info, false
	}
	if info.Translation.X, ok = readF32(r); !ok {
		return info, false
	}
	if info.Translation.Y, ok = readF32(r); !ok {
		return info, false
	}
	if info.Translation.Z, ok = readF32(r); !ok {
		return info, false
	}
	if info.SkinOffset, ok = r.ReadUint32(); !ok {
		return info, false
	}
	if info.JointCount, ok = r.ReadUint16(); !ok {
		return info, false
	}
	return info, true
}

func writeJointInfo(w *stream.Writer, info JointInfo) {
	w.WriteUint32(f32bits(info.InverseBindRotation.X))
	w.WriteUint32(f32bits(info.InverseBindRotation.Y))
	w.WriteUint32(f32bits(info.InverseBindRotation.Z))
	w.WriteUint32(f32bits(info.InverseBindRotation.W))
	w.WriteUint32(f32bits(info.InverseBindTranslation.X))
	w.WriteUint32(f32bits(info.InverseBindTranslation.Y))
	w.WriteUint32(f32bits(info.InverseBindTranslation.Z))
	w.WriteUint16(info.Parent)
}

func readJointInfo(r *stream.Reader) (JointInfo, bool) {
	var info JointInfo
	var ok bool
	if info.InverseBindRotation.X, ok = readF32(r); !ok {
		return info, false
	}
	if info.InverseBindRotation.Y, ok = readF32(r); !ok {
		return info, false
	}
	if info.InverseBindRotation.Z, ok = readF32(r); !ok {
		return info, false
	}
	if info.InverseBindRotation.W, ok = readF32(r); !ok {
		return info, false
	}
	if info.InverseBindTranslation.X, ok = readF32(r); !ok {
		return info, false
	}
	if info.InverseBindTranslation.Y, ok = readF32(r); !ok {
		return info, false
	}
	if info.InverseBindTranslation.Z, ok = readF32(r); !ok {
		return info, false
	}
	if info.Parent, ok = r.ReadUint16(); !ok {
		return info, false
	}
	return info, true
}
