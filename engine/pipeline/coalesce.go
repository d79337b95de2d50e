package pipeline

import (
	"sort"

	"github.com/alseid-engine/anima/engine/core"
)

// CoalesceBindings multi-way merges the sorted binding lists of every
// shader stage in a pipeline into one binding list per descriptor
// set. Shaders are expected to report bindings sorted by (Set,
// Index); this re-sorts defensively since the merge depends on it.
//
// For each (set, index) coordinate the coalesced type must agree
// across every shader that declares it; stage flags are the union of
// the declaring stages, and count is the max declared count. A
// binding declared with count 0 (an unbounded array) is resolved to
// half the device's maximum descriptor count for its type.
func CoalesceBindings(shaders []ShaderDesc, deviceMax func(BindingType) uint32) ([MaxDescriptorSets][]Binding, error) {
	var sets [MaxDescriptorSets][]Binding

	type tagged struct {
		Binding
	}

	var all []tagged
	for _, s := range shaders {
		for _, b := range s.Bindings {
			t := tagged{b}
			t.Stages |= stageFlag(s.Stage)
			all = append(all, t)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Set != all[j].Set {
			return all[i].Set < all[j].Set
		}
		return all[i].Index < all[j].Index
	})

	i := 0
	for i < len(all) {
		merged := all[i].Binding
		j := i + 1
		for j < len(all) && all[j].Set == merged.Set && all[j].Index == merged.Index {
			if all[j].Type != merged.Type {
				return sets, core.NewError(core.InvalidArgument,
					"binding type conflict at set %d index %d", merged.Set, merged.Index)
			}
			merged.Stages |= all[j].Stages
			if all[j].Count > merged.Count {
				merged.Count = all[j].Count
			}
			j++
		}

		if merged.Count == 0 {
			merged.Count = deviceMax(merged.Type) / 2
			merged.Bindless = true
		}

		if merged.Set >= MaxDescriptorSets {
			return sets, core.NewError(core.InvalidArgument,
				"descriptor set %d exceeds maximum of %d", merged.Set, MaxDescriptorSets)
		}

		sets[merged.Set] = append(sets[merged.Set], merged)
		i = j
	}

	return sets, nil
}

// BuildPushConstantRange computes the coalesced push-constant size
// and stage mask for a pipeline: the max size across stages that
// declare a non-zero size, and the union of those stages' flags.
func BuildPushConstantRange(shaders []ShaderDesc) (size uint32, stages StageFlags) {
	for _, s := range shaders {
		if s.ConstantSize == 0 {
			continue
		}
		if s.ConstantSize > size {
			size = s.ConstantSize
		}
		stages |= stageFlag(s.Stage)
	}
	return
}

// bindingsKey produces a comparable string key for a coalesced
// binding list, used both as a descriptor-set-layout interning key
// and as a component of the pipeline-layout key.
func bindingsKey(bindings []Binding) string {
	buf := make([]byte, 0, len(bindings)*20)
	for _, b := range bindings {
		buf = append(buf, byte(b.Set), byte(b.Set>>8), byte(b.Set>>16), byte(b.Set>>24))
		buf = append(buf, byte(b.Index), byte(b.Index>>8), byte(b.Index>>16), byte(b.Index>>24))
		buf = append(buf, byte(b.Type), byte(b.Type>>8), byte(b.Type>>16), byte(b.Type>>24))
		buf = append(buf, byte(b.Count), byte(b.Count>>8), byte(b.Count>>16), byte(b.Count>>24))
		buf = append(buf, byte(b.Stages), byte(b.Stages>>8), byte(b.Stages>>16), byte(b.Stages>>24))
		if b.Bindless {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return string(buf)
}
