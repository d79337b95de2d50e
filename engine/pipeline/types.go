// Package pipeline implements the descriptor/pipeline-layout interning
// caches and the graphics/compute pipeline compilation pipeline:
// binding coalescing across shader stages, a fast-link variant
// selection state machine for graphics pipelines, and an asynchronous
// compiler worker pool.
//
// The package is backend-neutral. Concrete pipeline objects are
// created through the Backend interface, implemented for Vulkan by
// engine/renderer/vulkan.
package pipeline

// ShaderStage identifies a programmable pipeline stage.
type ShaderStage uint32

const (
	StageVertex ShaderStage = iota
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute
	StageTask
	StageMesh

	stageCount
)

// StageFlags is a bitmask of ShaderStage values.
type StageFlags uint32

func stageFlag(s ShaderStage) StageFlags { return StageFlags(1) << uint(s) }

// Has reports whether stage s is set in the mask.
func (f StageFlags) Has(s ShaderStage) bool { return f&stageFlag(s) != 0 }

// BindingType identifies the resource kind a descriptor binding
// refers to.
type BindingType uint32

const (
	BindingSampler BindingType = iota
	BindingConstantBuffer
	BindingResourceBuffer
	BindingStorageBuffer
	BindingResourceBufferView
	BindingResourceImageView
	BindingStorageBufferView
	BindingStorageImageView

	bindingTypeCount
)

// MaxDescriptorSets bounds the sets a pipeline layout can reference.
const MaxDescriptorSets = 4

// Binding describes one shader resource binding, as produced by
// reflection on a single shader stage. Count == 0 means the shader
// declared an unbounded array, which the coalescer resolves to a
// bindless count.
type Binding struct {
	Set    uint32
	Index  uint32
	Type   BindingType
	Count  uint32
	Stages StageFlags
	// Bindless is set by CoalesceBindings when Count was resolved from
	// a declared size of 0 rather than an explicit array size.
	Bindless bool
}

// ShaderDesc is the reflected description of one compiled shader
// stage feeding a pipeline. Bindings must be sorted by (Set, Index);
// ShaderReflector implementations are responsible for the ordering.
type ShaderDesc struct {
	Stage         ShaderStage
	Bindings      []Binding
	ConstantSize  uint32
	WorkgroupSize [3]uint32
	// SpecWorkgroupSize holds, for each dimension that the shader
	// declared as a spec-constant ID rather than a literal, the ID to
	// substitute; zero means the dimension is a literal already
	// present in WorkgroupSize.
	SpecWorkgroupSize [3]uint32
	MeshMaxOutputs    [2]uint32 // vertices, primitives; mesh/task stages only
	ShuffleHeavy      bool
}

// SpecConstantData is the per-stage specialization data the cache
// patches into a compiled shader before linking or compiling a
// pipeline.
type SpecConstantData struct {
	MinSubgroupSize   uint32
	MaxSubgroupSize   uint32
	TaskWorkgroupSize [3]uint32
	MeshWorkgroupSize [3]uint32
	MeshShaderFlags   uint32
	RequireFullSubgroups bool
	RequestedSubgroupSize uint32
}

// RenderState is the backend-opaque, variant-distinguishing state of
// a graphics pipeline request: vertex input layout, fragment output
// layout, rasterizer/blend toggles. The cache never inspects its
// contents, only uses Key for interning.
type RenderState struct {
	Key     string
	Backend any
}

// ComputePipelineDesc names the single compute shader compiled into a
// ComputePipeline.
type ComputePipelineDesc struct {
	Shader ShaderDesc
	Source []byte // SPIR-V, already decompressed
}

// GraphicsPipelineDesc names the shader stages compiled into a
// GraphicsPipeline's base library (pre-rasterization + fragment).
type GraphicsPipelineDesc struct {
	Shaders []ShaderDesc
	Sources [][]byte // parallel to Shaders, SPIR-V per stage
}

// DescriptorSetLayout is an interned, coalesced binding list for one
// descriptor set.
type DescriptorSetLayout struct {
	Bindings []Binding
	Bindless bool
	Backend  any
}

// PipelineLayout is an interned set of descriptor-set layouts plus a
// push-constant range, shared by every pipeline whose shaders produce
// the same coalesced layout.
type PipelineLayout struct {
	SetLayouts      [MaxDescriptorSets]*DescriptorSetLayout
	SetCount        uint32
	NonemptySetMask uint32
	ConstantSize    uint32
	ConstantStages  StageFlags
	Backend         any
}

// Backend is the concrete graphics API collaborator the cache
// delegates object creation and compilation to.
type Backend interface {
	CreateDescriptorSetLayout(bindings []Binding, bindless bool) (any, error)
	CreatePipelineLayout(layout *PipelineLayout) (any, error)

	CompileComputePipeline(desc ComputePipelineDesc, layout *PipelineLayout, spec SpecConstantData) (any, error)

	CreateGraphicsPipelineBaseLibrary(desc GraphicsPipelineDesc, layout *PipelineLayout, spec SpecConstantData) (any, error)
	CanFastLink(base any) bool
	LinkGraphicsPipelineVariant(base any, state RenderState) (any, error)
	CompileGraphicsPipelineVariant(desc GraphicsPipelineDesc, layout *PipelineLayout, spec SpecConstantData, state RenderState) (any, error)

	// DeviceMaxDescriptors returns the device's maximum descriptor
	// count for t, used to size bindless arrays.
	DeviceMaxDescriptors(t BindingType) uint32
	MinSubgroupSize() uint32
	MaxSubgroupSize() uint32
	MeshShaderGroupLimit() uint32
	PrefersLocalInvocationOutput() bool
}
