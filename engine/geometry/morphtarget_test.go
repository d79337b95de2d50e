package geometry

import (
	"testing"

	"github.com/alseid-engine/anima/engine/math"
)

func TestProcessMorphTargetsSkipsUnmodifiedVertices(t *testing.T) {
	layout := NewPackedLayout([]PackedAttribute{
		{Semantic: SemanticPosition, Stream: StreamVertexData, Format: FormatFloat32, Components: 3, Morph: true},
	})

	inputs := []MorphTargetInput{
		{SlotIndex: 0, Vertices: []Vertex{
			{Position: math.Vec3{}},
			{Position: math.Vec3{X: 1, Y: 0, Z: 0}},
		}},
	}

	buffer, targets, mask, delta := ProcessMorphTargets(layout, inputs)
	if len(targets) != 1 {
		t.Fatalf("expected 1 active target, got %d", len(targets))
	}
	if mask != 1 {
		t.Fatalf("expected target mask bit 0 set, got %#x", mask)
	}
	if delta <= 0 {
		t.Fatalf("expected a positive sphere radius delta, got %v", delta)
	}
	if len(buffer) != int(layout.MorphStride) {
		t.Fatalf("expected one packed morph vertex (%d bytes), got %d", layout.MorphStride, len(buffer))
	}
	if targets[0].anyModified() == false {
		t.Fatalf("expected vertex mask to record the modified vertex")
	}
}

func TestProcessMorphTargetsSkipsEntirelyZeroTarget(t *testing.T) {
	layout := NewPackedLayout([]PackedAttribute{
		{Semantic: SemanticPosition, Stream: StreamVertexData, Format: FormatFloat32, Components: 3, Morph: true},
	})

	inputs := []MorphTargetInput{
		{SlotIndex: 0, Vertices: []Vertex{{Position: math.Vec3{}}, {Position: math.Vec3{}}}},
	}

	_, targets, mask, delta := ProcessMorphTargets(layout, inputs)
	if len(targets) != 0 {
		t.Fatalf("expected no active targets for an all-zero morph, got %d", len(targets))
	}
	if mask != 0 {
		t.Fatalf("expected empty target mask, got %#x", mask)
	}
	if delta != 0 {
		t.Fatalf("expected zero sphere radius delta, got %v", delta)
	}
}

func TestProcessMorphTargetsNoOpWithoutMorphStream(t *testing.T) {
	layout := NewPackedLayout([]PackedAttribute{
		{Semantic: SemanticPosition, Stream: StreamVertexData, Format: FormatFloat32, Components: 3},
	})

	buffer, targets, mask, delta := ProcessMorphTargets(layout, []MorphTargetInput{{SlotIndex: 0, Vertices: []Vertex{{}}}})
	if buffer != nil || targets != nil || mask != 0 || delta != 0 {
		t.Fatalf("expected a complete no-op when the layout has no morph stream")
	}
}
