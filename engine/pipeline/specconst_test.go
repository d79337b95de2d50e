package pipeline

import "testing"

func TestResolveWorkgroupSizeSubstitutesSpecConstants(t *testing.T) {
	shader := ShaderDesc{
		Stage:             StageMesh,
		WorkgroupSize:     [3]uint32{1, 1, 1},
		SpecWorkgroupSize: [3]uint32{1, 0, 0},
	}
	spec := SpecConstantData{MeshWorkgroupSize: [3]uint32{32, 1, 1}}

	size := resolveWorkgroupSize(shader, spec)
	if size != [3]uint32{32, 1, 1} {
		t.Fatalf("expected spec-constant substitution for X only, got %v", size)
	}
}

func TestResolveWorkgroupSizeLiteralUnchanged(t *testing.T) {
	shader := ShaderDesc{Stage: StageCompute, WorkgroupSize: [3]uint32{8, 8, 1}}
	size := resolveWorkgroupSize(shader, SpecConstantData{})
	if size != [3]uint32{8, 8, 1} {
		t.Fatalf("expected literal size unchanged, got %v", size)
	}
}

func TestSubgroupSizePolicyFullSubgroupsWhenMultipleOfMax(t *testing.T) {
	backend := newFakeBackend(true)
	requireFull, requested := subgroupSizePolicy([3]uint32{128, 1, 1}, false, backend)
	if !requireFull || requested != 0 {
		t.Fatalf("expected full subgroups required, got requireFull=%v requested=%d", requireFull, requested)
	}
}

func TestSubgroupSizePolicyRequestsExactPowerOfTwo(t *testing.T) {
	backend := newFakeBackend(true)
	requireFull, requested := subgroupSizePolicy([3]uint32{16, 1, 1}, false, backend)
	if requireFull {
		t.Fatal("did not expect full-subgroup requirement")
	}
	if requested != 16 {
		t.Fatalf("expected requested subgroup size 16, got %d", requested)
	}
}

func TestSubgroupSizePolicyShuffleHeavyForcesMinimum(t *testing.T) {
	backend := newFakeBackend(true)
	requireFull, requested := subgroupSizePolicy([3]uint32{64, 1, 1}, true, backend)
	if requireFull {
		t.Fatal("shuffle-heavy shaders should not require full subgroups")
	}
	if requested != backend.MinSubgroupSize() {
		t.Fatalf("expected minimum subgroup size %d, got %d", backend.MinSubgroupSize(), requested)
	}
}

func TestSubgroupSizePolicyNoOpinionOutsideHeuristics(t *testing.T) {
	backend := newFakeBackend(true)
	requireFull, requested := subgroupSizePolicy([3]uint32{3, 5, 1}, false, backend)
	if requireFull || requested != 0 {
		t.Fatalf("expected no subgroup preference, got requireFull=%v requested=%d", requireFull, requested)
	}
}

func TestPatchMeshOutputCountAlignsToSubgroupWidth(t *testing.T) {
	backend := newFakeBackend(true)
	shader := ShaderDesc{
		Stage:          StageMesh,
		WorkgroupSize:  [3]uint32{1, 1, 1},
		MeshMaxOutputs: [2]uint32{4, 2},
	}

	size := patchMeshOutputCount(shader, backend)
	if size[0] != backend.MaxSubgroupSize() {
		t.Fatalf("expected X aligned to max subgroup size %d, got %d", backend.MaxSubgroupSize(), size[0])
	}
}

func TestPatchMeshOutputCountBoundedByGroupLimit(t *testing.T) {
	backend := newFakeBackendWithGroupLimit(8)
	shader := ShaderDesc{
		Stage:          StageMesh,
		WorkgroupSize:  [3]uint32{1, 1, 1},
		MeshMaxOutputs: [2]uint32{4, 2},
	}

	size := patchMeshOutputCount(shader, backend)
	if size[0] != 8 {
		t.Fatalf("expected size bounded by mesh group limit 8, got %d", size[0])
	}
}

func TestPatchMeshOutputCountLeavesDeclaredSizeAlone(t *testing.T) {
	backend := newFakeBackend(true)
	shader := ShaderDesc{Stage: StageMesh, WorkgroupSize: [3]uint32{32, 1, 1}}

	size := patchMeshOutputCount(shader, backend)
	if size != shader.WorkgroupSize {
		t.Fatalf("expected declared size left unchanged, got %v", size)
	}
}

func newFakeBackendWithGroupLimit(limit uint32) *fakeBackend {
	b := newFakeBackend(true)
	b.meshGroupLimit = limit
	return b
}
