package pipeline

import "testing"

func fixedDeviceMax(n uint32) func(BindingType) uint32 {
	return func(BindingType) uint32 { return n }
}

func TestCoalesceBindingsUnionsStagesAndMaxesCount(t *testing.T) {
	shaders := []ShaderDesc{
		{Stage: StageVertex, Bindings: []Binding{
			{Set: 0, Index: 0, Type: BindingConstantBuffer, Count: 1},
		}},
		{Stage: StageFragment, Bindings: []Binding{
			{Set: 0, Index: 0, Type: BindingConstantBuffer, Count: 2},
			{Set: 0, Index: 1, Type: BindingSampler, Count: 1},
		}},
	}

	sets, err := CoalesceBindings(shaders, fixedDeviceMax(256))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sets[0]) != 2 {
		t.Fatalf("expected 2 coalesced bindings in set 0, got %d", len(sets[0]))
	}

	b0 := sets[0][0]
	if b0.Count != 2 {
		t.Fatalf("expected max count 2, got %d", b0.Count)
	}
	if !b0.Stages.Has(StageVertex) || !b0.Stages.Has(StageFragment) {
		t.Fatalf("expected stage union to include both stages, got %b", b0.Stages)
	}

	b1 := sets[0][1]
	if b1.Index != 1 || b1.Count != 1 {
		t.Fatalf("unexpected second binding: %+v", b1)
	}
}

func TestCoalesceBindingsTypeConflictIsError(t *testing.T) {
	shaders := []ShaderDesc{
		{Stage: StageVertex, Bindings: []Binding{
			{Set: 0, Index: 0, Type: BindingConstantBuffer, Count: 1},
		}},
		{Stage: StageFragment, Bindings: []Binding{
			{Set: 0, Index: 0, Type: BindingSampler, Count: 1},
		}},
	}

	_, err := CoalesceBindings(shaders, fixedDeviceMax(256))
	if err == nil {
		t.Fatal("expected a type conflict error")
	}
}

func TestCoalesceBindingsZeroCountIsBindless(t *testing.T) {
	shaders := []ShaderDesc{
		{Stage: StageFragment, Bindings: []Binding{
			{Set: 1, Index: 0, Type: BindingResourceImageView, Count: 0},
		}},
	}

	sets, err := CoalesceBindings(shaders, fixedDeviceMax(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := sets[1][0]
	if !b.Bindless {
		t.Fatal("expected binding to be marked bindless")
	}
	if b.Count != 500 {
		t.Fatalf("expected bindless count to be half of device max, got %d", b.Count)
	}
}

func TestCoalesceBindingsSetOutOfRange(t *testing.T) {
	shaders := []ShaderDesc{
		{Stage: StageVertex, Bindings: []Binding{
			{Set: MaxDescriptorSets, Index: 0, Type: BindingSampler, Count: 1},
		}},
	}

	_, err := CoalesceBindings(shaders, fixedDeviceMax(256))
	if err == nil {
		t.Fatal("expected an out-of-range set error")
	}
}

func TestBuildPushConstantRange(t *testing.T) {
	shaders := []ShaderDesc{
		{Stage: StageVertex, ConstantSize: 16},
		{Stage: StageFragment, ConstantSize: 64},
		{Stage: StageCompute, ConstantSize: 0},
	}

	size, stages := BuildPushConstantRange(shaders)
	if size != 64 {
		t.Fatalf("expected max size 64, got %d", size)
	}
	if !stages.Has(StageVertex) || !stages.Has(StageFragment) || stages.Has(StageCompute) {
		t.Fatalf("unexpected stage mask %b", stages)
	}
}
