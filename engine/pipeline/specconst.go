package pipeline

// resolveWorkgroupSize returns the actual per-dimension workgroup
// size for a shader stage: a literal dimension is taken as-is, a
// dimension the shader declared as a spec-constant ID is substituted
// from the cache's preferred task/mesh size for that dimension.
func resolveWorkgroupSize(shader ShaderDesc, spec SpecConstantData) [3]uint32 {
	preferred := spec.MeshWorkgroupSize
	if shader.Stage == StageTask {
		preferred = spec.TaskWorkgroupSize
	}

	var size [3]uint32
	for i := 0; i < 3; i++ {
		if shader.SpecWorkgroupSize[i] != 0 {
			size[i] = preferred[i]
		} else {
			size[i] = shader.WorkgroupSize[i]
		}
	}
	return size
}

// subgroupSizePolicy decides, for a stage with the given resolved
// workgroup size, whether to require full subgroups or request a
// specific subgroup size. A shuffle-heavy shader is pinned to the
// device's minimum subgroup size regardless of its workgroup shape,
// since shuffle instructions on wide subgroups waste lanes when most
// of the subgroup's data dependencies are local.
func subgroupSizePolicy(size [3]uint32, shuffleHeavy bool, backend Backend) (requireFull bool, requested uint32) {
	minSize := backend.MinSubgroupSize()
	maxSize := backend.MaxSubgroupSize()

	if shuffleHeavy {
		return false, minSize
	}

	if size[0]%maxSize == 0 {
		return true, 0
	}

	if size[1] == 1 && size[2] == 1 && isPowerOfTwo(size[0]) && size[0] >= minSize && size[0] <= maxSize {
		return false, size[0]
	}

	return false, 0
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

// patchMeshOutputCount implements the runtime output-count patch: a
// mesh shader declared with workgroup size (1,1,*) defers its actual
// size to the device's subgroup width, so it emits one vertex and one
// primitive per thread. The chosen size is aligned up to the device's
// max subgroup size and bounded by the mesh shader group limit.
func patchMeshOutputCount(shader ShaderDesc, backend Backend) [3]uint32 {
	size := [3]uint32{1, 1, 1}

	if !(shader.WorkgroupSize[0] == 1 && shader.WorkgroupSize[1] == 1) {
		return shader.WorkgroupSize
	}

	if !backend.PrefersLocalInvocationOutput() && shader.MeshMaxOutputs[0] >= backend.MaxSubgroupSize() {
		return shader.WorkgroupSize
	}

	target := backend.MaxSubgroupSize()
	limit := backend.MeshShaderGroupLimit()
	if target > limit {
		target = limit
	}
	size[0] = target
	return size
}

// patchWorkgroupSize resolves a shader's actual workgroup size
// (substituting spec-constant dimensions), applies the mesh
// output-count patch when applicable, and derives the subgroup-size
// policy for the resolved size. The backend is consulted for subgroup
// width and mesh-shader limits; a shader with no workgroup size at
// all (vertex/fragment stages) passes spec through unchanged.
func patchWorkgroupSize(shader ShaderDesc, spec SpecConstantData, backend Backend) SpecConstantData {
	out := spec

	if shader.WorkgroupSize == [3]uint32{} && shader.SpecWorkgroupSize == [3]uint32{} {
		return out
	}

	size := resolveWorkgroupSize(shader, out)

	if shader.Stage == StageMesh {
		size = patchMeshOutputCount(ShaderDesc{WorkgroupSize: size, MeshMaxOutputs: shader.MeshMaxOutputs}, backend)
	}

	out = withResolvedSize(out, shader.Stage, size)

	requireFull, requested := subgroupSizePolicy(size, shader.ShuffleHeavy, backend)
	out.RequireFullSubgroups = requireFull
	out.RequestedSubgroupSize = requested

	return out
}

func withResolvedSize(spec SpecConstantData, stage ShaderStage, size [3]uint32) SpecConstantData {
	switch stage {
	case StageTask:
		spec.TaskWorkgroupSize = size
	case StageMesh:
		spec.MeshWorkgroupSize = size
	}
	return spec
}
