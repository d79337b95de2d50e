package geometry

// The sizes and write*At helpers below describe the fixed layout used
// for the runtime data buffer BuildGeometry assembles (as opposed to
// the metadata-only wire format in serialize.go, which the archive
// builder stores separately from bulk buffer data). Every record is a
// flat, unpadded little-endian encoding; only the offsets computed in
// buildBuffer need to agree with these sizes.
const (
	geometryInfoSize     = 6*4 + 1 + 1 + 1 + 2 + 2 + 4 + 4 + 4
	meshInfoSize         = 1 + 1 + 2 + 2 + 4 + 4 + 4
	meshLodInfoSize      = 1 + 4 + 4 + 4
	meshInstanceInfoSize = 16 + 12 + 4 + 2
	jointInfoSize        = 16 + 12 + 2
	meshletInfoSize      = 4 + 1 + 1 + 1 + 12 + 4 + 12 + 4
)

func writeGeometryInfoAt(buf []byte, off int, info GeometryInfo) {
	writeUint32At(buf, off+0, f32bits(info.Aabb.Min.X))
	writeUint32At(buf, off+4, f32bits(info.Aabb.Min.Y))
	writeUint32At(buf, off+8, f32bits(info.Aabb.Min.Z))
	writeUint32At(buf, off+12, f32bits(info.Aabb.Max.X))
	writeUint32At(buf, off+16, f32bits(info.Aabb.Max.Y))
	writeUint32At(buf, off+20, f32bits(info.Aabb.Max.Z))
	buf[off+24] = info.MeshCount
	buf[off+25] = info.MaterialCount
	buf[off+26] = info.MorphTargetCount
	writeUint16At(buf, off+27, info.BufferCount)
	writeUint16At(buf, off+29, info.JointCount)
	writeUint32At(buf, off+31, info.BufferPointerOffset)
	writeUint32At(buf, off+35, info.JointDataOffset)
	writeUint32At(buf, off+39, info.MeshletDataOffset)
}

func writeMeshInfoAt(buf []byte, off int, info MeshInfo) {
	buf[off+0] = info.MaterialIndex
	buf[off+1] = info.LodCount
	writeUint16At(buf, off+2, info.SkinJoints)
	writeUint16At(buf, off+4, info.InstanceCount)
	writeUint32At(buf, off+6, info.LodInfoOffset)
	writeUint32At(buf, off+10, info.InstanceDataOffset)
	writeUint32At(buf, off+14, info.SkinDataOffset)
}

func writeMeshLodInfoAt(buf []byte, off int, info MeshLodInfo) {
	buf[off+0] = info.BufferIndex
	writeUint32At(buf, off+1, f32bits(info.MaxDistance))
	writeUint32At(buf, off+5, info.MeshletIndex)
	writeUint32At(buf, off+9, info.MeshletCount)
}

func writeMeshInstanceInfoAt(buf []byte, off int, info MeshInstanceInfo) {
	writeUint32At(buf, off+0, f32bits(info.Rotation.X))
	writeUint32At(buf, off+4, f32bits(info.Rotation.Y))
	writeUint32At(buf, off+8, f32bits(info.Rotation.Z))
	writeUint32At(buf, off+12, f32bits(info.Rotation.W))
	writeUint32At(buf, off+16, f32bits(info.Translation.X))
	writeUint32At(buf, off+20, f32bits(info.Translation.Y))
	writeUint32At(buf, off+24, f32bits(info.Translation.Z))
	writeUint32At(buf, off+28, info.SkinOffset)
	writeUint16At(buf, off+32, info.JointCount)
}

func writeJointInfoAt(buf []byte, off int, info JointInfo) {
	writeUint32At(buf, off+0, f32bits(info.InverseBindRotation.X))
	writeUint32At(buf, off+4, f32bits(info.InverseBindRotation.Y))
	writeUint32At(buf, off+8, f32bits(info.InverseBindRotation.Z))
	writeUint32At(buf, off+12, f32bits(info.InverseBindRotation.W))
	writeUint32At(buf, off+16, f32bits(info.InverseBindTranslation.X))
	writeUint32At(buf, off+20, f32bits(info.InverseBindTranslation.Y))
	writeUint32At(buf, off+24, f32bits(info.InverseBindTranslation.Z))
	writeUint16At(buf, off+28, info.Parent)
}

func writeMeshletInfoAt(buf []byte, off int, info MeshletInfo) {
	writeUint32At(buf, off+0, info.DataOffset)
	buf[off+4] = info.VertexCount
	buf[off+5] = info.TriangleCount
	buf[off+6] = uint8(info.Flags)
	writeUint32At(buf, off+7, f32bits(info.SphereCenter.X))
	writeUint32At(buf, off+11, f32bits(info.SphereCenter.Y))
	writeUint32At(buf, off+15, f32bits(info.SphereCenter.Z))
	writeUint32At(buf, off+19, f32bits(info.SphereRadius))
	writeUint32At(buf, off+23, f32bits(info.ConeAxis.X))
	writeUint32At(buf, off+27, f32bits(info.ConeAxis.Y))
	writeUint32At(buf, off+31, f32bits(info.ConeAxis.Z))
	writeUint32At(buf, off+35, f32bits(info.ConeCutoff))
}
