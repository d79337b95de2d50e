package geometry

// allocateStorage bumps *allocator by the number of 16-byte units
// needed to hold amount bytes and returns the offset (in 16-byte
// units) the caller should use.
func allocateStorage(allocator *uint16, amount int) uint16 {
	offset := *allocator
	*allocator += uint16((amount + 15) / 16)
	return offset
}

// BuildMeshletBuffer assembles one meshlet's self-contained data
// buffer in the fixed order: header, dual index table (if enabled),
// vertex data, primitive data, shading data, morph target metadata and
// data. vertexData/shadingData hold the deduplicated streams when
// dualIndex is non-nil, or one entry per original vertex when it is
// nil (dual indexing disabled, already resolved by the caller).
func BuildMeshletBuffer(
	vertexCount, triangleCount int,
	vertexStride, shadingStride int,
	vertexData, shadingData [][]byte,
	dualIndex []DualIndexPair,
	triangles [][3]uint8,
	morphTargets []MeshletMorphTargetInfo,
	morphBuffer []byte,
) ([]byte, MeshletHeader) {
	var header MeshletHeader
	var offset uint16

	allocateStorage(&offset, meshletHeaderSize)

	if dualIndex != nil {
		header.Flags |= flagDualIndex
		header.DualIndexOffset = allocateStorage(&offset, vertexCount*2)
	}

	if vertexStride > 0 {
		vertexDataCount := vertexCount
		if dualIndex != nil {
			vertexDataCount = len(vertexData)
		}
		header.VertexDataCount = uint16(vertexDataCount)
		header.VertexDataOffset = allocateStorage(&offset, vertexDataCount*vertexStride)
	}

	header.PrimitiveOffset = allocateStorage(&offset, triangleCount*4)

	if shadingStride > 0 {
		shadingDataCount := vertexCount
		if dualIndex != nil {
			shadingDataCount = len(shadingData)
		}
		header.ShadingDataCount = uint16(shadingDataCount)
		header.ShadingDataOffset = allocateStorage(&offset, shadingDataCount*shadingStride)
	}

	if len(morphTargets) > 0 {
		header.MorphTargetOffset = allocateStorage(&offset, len(morphTargets)*8)
		header.MorphDataOffset = allocateStorage(&offset, len(morphBuffer))
	}

	buf := make([]byte, int(offset)*16)
	writeMeshletHeader(buf, header)

	dstVertex := buf[int(header.VertexDataOffset)*16:]
	dstShading := buf[int(header.ShadingDataOffset)*16:]

	if dualIndex != nil {
		for i, entry := range vertexData {
			copy(dstVertex[i*vertexStride:], entry)
		}
		for i, entry := range shadingData {
			copy(dstShading[i*shadingStride:], entry)
		}

		dstDual := buf[int(header.DualIndexOffset)*16:]
		for i, pair := range dualIndex {
			dstDual[2*i+0] = pair.Vertex
			dstDual[2*i+1] = pair.Shading
		}
	} else {
		for i := 0; i < vertexCount; i++ {
			if vertexStride > 0 {
				copy(dstVertex[i*vertexStride:], vertexData[i])
			}
			if shadingStride > 0 {
				copy(dstShading[i*shadingStride:], shadingData[i])
			}
		}
	}

	dstPrimitives := buf[int(header.PrimitiveOffset)*16:]
	for i, tri := range triangles {
		dstPrimitives[4*i+0] = tri[0]
		dstPrimitives[4*i+1] = tri[1]
		dstPrimitives[4*i+2] = tri[2]
	}

	if len(morphTargets) > 0 {
		dstMorphMeta := buf[int(header.MorphTargetOffset)*16:]
		for i, mt := range morphTargets {
			writeUint32At(dstMorphMeta, 8*i, mt.DataIndex)
			writeUint32At(dstMorphMeta, 8*i+4, mt.VertexMask[0])
		}

		dstMorphData := buf[int(header.MorphDataOffset)*16:]
		copy(dstMorphData, morphBuffer)
	}

	return buf, header
}

// meshletHeaderSize is the byte size of MeshletHeader as written to
// the meshlet buffer: 9 little-endian uint16 fields.
const meshletHeaderSize = 18

func writeMeshletHeader(buf []byte, h MeshletHeader) {
	writeUint16At(buf, 0, uint16(h.Flags))
	writeUint16At(buf, 2, h.VertexDataCount)
	writeUint16At(buf, 4, h.VertexDataOffset)
	writeUint16At(buf, 6, h.ShadingDataCount)
	writeUint16At(buf, 8, h.ShadingDataOffset)
	writeUint16At(buf, 10, h.PrimitiveOffset)
	writeUint16At(buf, 12, h.DualIndexOffset)
	writeUint16At(buf, 14, h.MorphTargetOffset)
	writeUint16At(buf, 16, h.MorphDataOffset)
}

func writeUint16At(buf []byte, offset int, v uint16) {
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
}

func writeUint32At(buf []byte, offset int, v uint32) {
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
	buf[offset+2] = byte(v >> 16)
	buf[offset+3] = byte(v >> 24)
}
