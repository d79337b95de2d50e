package geometry

// Topology is a GLTF primitive topology, kept distinct from the
// collapsed list topologies so degenerate-strip arithmetic can use the
// original shape.
type Topology uint8

const (
	TopologyPoints Topology = iota
	TopologyLines
	TopologyLineStrip
	TopologyLineLoop
	TopologyTriangles
	TopologyTriangleStrip
	TopologyTriangleFan
)

// CountPrimitives returns the number of points, lines, or triangles
// indexCount indices (or, for non-indexed primitives, vertices)
// produce under topology. Strips and fans with fewer than the minimum
// required indices report zero primitives: max32 raises the count to
// the minimum before the subtraction, so the result never wraps.
func CountPrimitives(topology Topology, indexCount uint32) uint32 {
	switch topology {
	case TopologyPoints:
		return indexCount
	case TopologyLines:
		return indexCount / 2
	case TopologyLineStrip:
		return max32(indexCount, 1) - 1
	case TopologyLineLoop:
		return indexCount
	case TopologyTriangles:
		return indexCount / 3
	case TopologyTriangleStrip, TopologyTriangleFan:
		return max32(indexCount, 2) - 2
	}
	return 0
}

// CollapseTopology maps a topology down to the list topology it
// normalizes to: points stay points, every line variant becomes
// TopologyLines, every triangle variant becomes TopologyTriangles.
func CollapseTopology(topology Topology) Topology {
	switch topology {
	case TopologyPoints:
		return TopologyPoints
	case TopologyLines, TopologyLineStrip, TopologyLineLoop:
		return TopologyLines
	default:
		return TopologyTriangles
	}
}

// CountIndices returns the number of indices the normalized (list)
// topology requires to describe primitiveCount primitives.
func CountIndices(topology Topology, primitiveCount uint32) uint32 {
	switch CollapseTopology(topology) {
	case TopologyTriangles:
		return 3 * primitiveCount
	case TopologyLines:
		return 2 * primitiveCount
	default:
		return primitiveCount
	}
}

// ExpandIndices writes out primitiveCount primitives' worth of
// normalized list-topology indices into dst, reading source indices
// through indexAt (which resolves either an accessor-backed index or,
// for non-indexed primitives, the identity mapping). dst must be sized
// by CountIndices(topology, CountPrimitives(topology, sourceIndexCount)).
func ExpandIndices(topology Topology, sourceIndexCount uint32, indexAt func(uint32) uint32, dst []uint32) {
	primitiveCount := CountPrimitives(topology, sourceIndexCount)
	if primitiveCount == 0 {
		return
	}

	switch topology {
	case TopologyPoints, TopologyLines, TopologyTriangles:
		indexCount := CountIndices(topology, primitiveCount)
		for i := uint32(0); i < indexCount; i++ {
			dst[i] = indexAt(i)
		}

	case TopologyLineStrip:
		for i := uint32(0); i < primitiveCount; i++ {
			dst[2*i+0] = indexAt(i + 0)
			dst[2*i+1] = indexAt(i + 1)
		}

	case TopologyLineLoop:
		for i := uint32(0); i < primitiveCount-1; i++ {
			dst[2*i+0] = indexAt(i + 0)
			dst[2*i+1] = indexAt(i + 1)
		}
		dst[2*primitiveCount-2] = indexAt(primitiveCount - 1)
		dst[2*primitiveCount-1] = indexAt(0)

	case TopologyTriangleStrip:
		for i := uint32(0); i < primitiveCount; i++ {
			dst[3*i+0] = indexAt(i + 0)
			dst[3*i+1] = indexAt(i + 1 + (i & 1))
			dst[3*i+2] = indexAt(i + 2 - (i & 1))
		}

	case TopologyTriangleFan:
		firstIndex := indexAt(0)
		for i := uint32(0); i < primitiveCount; i++ {
			dst[3*i+0] = indexAt(i + 1)
			dst[3*i+1] = indexAt(i + 2)
			dst[3*i+2] = firstIndex
		}
	}
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
