package geometry

import "testing"

func TestCountPrimitivesTriangles(t *testing.T) {
	if n := CountPrimitives(TopologyTriangles, 9); n != 3 {
		t.Fatalf("expected 3 triangles, got %d", n)
	}
}

func TestCountPrimitivesDegenerateTriangleStrip(t *testing.T) {
	if n := CountPrimitives(TopologyTriangleStrip, 0); n != 0 {
		t.Fatalf("expected 0 primitives for empty strip, got %d", n)
	}
	if n := CountPrimitives(TopologyTriangleStrip, 1); n != 0 {
		t.Fatalf("expected 0 primitives for single-index strip, got %d", n)
	}
	if n := CountPrimitives(TopologyTriangleStrip, 5); n != 3 {
		t.Fatalf("expected 3 primitives for 5-index strip, got %d", n)
	}
}

func TestCountPrimitivesDegenerateTriangleFan(t *testing.T) {
	if n := CountPrimitives(TopologyTriangleFan, 2); n != 0 {
		t.Fatalf("expected 0 primitives for 2-index fan, got %d", n)
	}
	if n := CountPrimitives(TopologyTriangleFan, 6); n != 4 {
		t.Fatalf("expected 4 primitives for 6-index fan, got %d", n)
	}
}

func TestCollapseTopologyMapsVariantsToCanonicalForm(t *testing.T) {
	if got := CollapseTopology(TopologyLineLoop); got != TopologyLines {
		t.Fatalf("expected line loop to collapse to lines, got %v", got)
	}
	if got := CollapseTopology(TopologyTriangleFan); got != TopologyTriangles {
		t.Fatalf("expected triangle fan to collapse to triangles, got %v", got)
	}
	if got := CollapseTopology(TopologyPoints); got != TopologyPoints {
		t.Fatalf("expected points to stay points, got %v", got)
	}
}

func TestExpandIndicesTriangleListPassesThrough(t *testing.T) {
	src := []uint32{0, 1, 2, 2, 3, 0}
	dst := make([]uint32, CountIndices(TopologyTriangles, CountPrimitives(TopologyTriangles, uint32(len(src)))))
	ExpandIndices(TopologyTriangles, uint32(len(src)), func(i uint32) uint32 { return src[i] }, dst)

	for i, v := range src {
		if dst[i] != v {
			t.Fatalf("index %d: expected %d, got %d", i, v, dst[i])
		}
	}
}

func TestExpandIndicesTriangleStripWinding(t *testing.T) {
	src := []uint32{0, 1, 2, 3}
	primCount := CountPrimitives(TopologyTriangleStrip, uint32(len(src)))
	dst := make([]uint32, CountIndices(TopologyTriangleStrip, primCount))
	ExpandIndices(TopologyTriangleStrip, uint32(len(src)), func(i uint32) uint32 { return src[i] }, dst)

	if dst[0] != 0 || dst[1] != 1 || dst[2] != 2 {
		t.Fatalf("expected first triangle (0,1,2), got (%d,%d,%d)", dst[0], dst[1], dst[2])
	}
}
