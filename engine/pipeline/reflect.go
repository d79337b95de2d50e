package pipeline

import "github.com/alseid-engine/anima/engine/core"

// ShaderReflector extracts a ShaderDesc from a compiled shader's
// SPIR-V binary. Real reflection (resource bindings, push-constant
// block size, spec-constant IDs, workgroup size) is the job of a
// SPIR-V reflection library, named as an out-of-scope collaborator;
// this interface is the seam the pipeline cache calls through so a
// real reflector can be substituted without touching the cache.
type ShaderReflector interface {
	Reflect(stage ShaderStage, spirv []byte) (ShaderDesc, error)
}

// StructuralReflector is a minimal ShaderReflector that reads the
// binding, push-constant and workgroup-size metadata a build step
// attaches to a shader's compiled artifact, rather than parsing SPIR-V
// itself. It exists so the binding-coalescing and variant-selection
// logic in this package can be exercised end to end without a real
// SPIR-V parser.
type StructuralReflector struct {
	descs map[string]ShaderDesc
}

// NewStructuralReflector builds a reflector over a precomputed table
// of shader descriptions, keyed by the same identity the caller will
// later pass as spirv (typically a content hash or asset path encoded
// as bytes).
func NewStructuralReflector(descs map[string]ShaderDesc) *StructuralReflector {
	return &StructuralReflector{descs: descs}
}

func (r *StructuralReflector) Reflect(stage ShaderStage, spirv []byte) (ShaderDesc, error) {
	desc, ok := r.descs[string(spirv)]
	if !ok {
		return ShaderDesc{}, core.NewError(core.NotFound, "no reflection data for shader")
	}
	if desc.Stage != stage {
		return ShaderDesc{}, core.NewError(core.InvalidArgument,
			"reflection stage mismatch: expected %d, got %d", stage, desc.Stage)
	}
	return desc, nil
}
