package geometry

import "testing"

func TestProcessJointsDetectsDominantJoint(t *testing.T) {
	verts := []SkinVertex{
		{Joints: [4]uint32{3, 0, 0, 0}, Weights: [4]float32{1, 0, 0, 0}},
		{Joints: [4]uint32{3, 1, 0, 0}, Weights: [4]float32{0.9999, 0.0001, 0, 0}},
	}

	table, local, dominant := ProcessJoints(verts)
	if !local {
		t.Fatalf("expected local indexing for 2 unique joints")
	}
	if dominant == nil {
		t.Fatalf("expected a dominant joint")
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 unique joints in table, got %d", len(table))
	}
}

func TestProcessJointsNoDominantBelowThreshold(t *testing.T) {
	verts := []SkinVertex{
		{Joints: [4]uint32{1, 2, 0, 0}, Weights: [4]float32{0.6, 0.4, 0, 0}},
	}

	_, _, dominant := ProcessJoints(verts)
	if dominant != nil {
		t.Fatalf("did not expect a dominant joint for a split weight vertex")
	}
}

func TestProcessJointsZeroWeightRewrittenToJointZero(t *testing.T) {
	verts := []SkinVertex{
		{Joints: [4]uint32{5, 7, 9, 11}, Weights: [4]float32{1, 0, 0, 0}},
	}

	ProcessJoints(verts)
	for i := 1; i < 4; i++ {
		if verts[0].Weights[i] != 0 {
			continue
		}
		if verts[0].Joints[i] != 0 {
			t.Fatalf("expected zero-weight joint slot %d rewritten to 0, got %d", i, verts[0].Joints[i])
		}
	}
}

func TestProcessJointsExceedsLocalTableCapacity(t *testing.T) {
	verts := []SkinVertex{
		{Joints: [4]uint32{1, 2, 3, 4}, Weights: [4]float32{0.4, 0.3, 0.2, 0.1}},
		{Joints: [4]uint32{5, 0, 0, 0}, Weights: [4]float32{1, 0, 0, 0}},
	}

	table, local, _ := ProcessJoints(verts)
	if local {
		t.Fatalf("expected local indexing disabled for 5 unique joints")
	}
	if len(table) != 5 {
		t.Fatalf("expected 5 unique joints, got %d", len(table))
	}
}

func TestComputeDualIndexBufferEnabledWhenDataRepeats(t *testing.T) {
	same := []byte{1, 2, 3, 4}
	vertexData := [][]byte{same, same, same, same}
	shadingData := [][]byte{{9}, {9}, {9}, {9}}

	pairs, uniqueVertex, uniqueShading, enabled := ComputeDualIndexBuffer(vertexData, shadingData)
	if !enabled {
		t.Fatalf("expected dual indexing enabled when every vertex repeats")
	}
	if len(uniqueVertex) != 1 || len(uniqueShading) != 1 {
		t.Fatalf("expected full dedup, got %d unique vertex / %d unique shading", len(uniqueVertex), len(uniqueShading))
	}
	for _, p := range pairs {
		if p.Vertex != 0 || p.Shading != 0 {
			t.Fatalf("expected every pair to reference entry 0, got %+v", p)
		}
	}
}

func TestComputeDualIndexBufferDisabledWhenAllUnique(t *testing.T) {
	vertexData := [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}}
	shadingData := [][]byte{{1}, {2}}

	_, _, _, enabled := ComputeDualIndexBuffer(vertexData, shadingData)
	if enabled {
		t.Fatalf("expected dual indexing disabled when nothing deduplicates")
	}
}
