package pipeline

import "sync/atomic"

// fakeBackend is a deterministic Backend used to exercise the cache's
// interning and variant-selection logic without a real graphics
// device.
type fakeBackend struct {
	canFastLink    bool
	meshGroupLimit uint32

	descSetLayoutCalls  atomic.Int32
	pipelineLayoutCalls atomic.Int32
	computeCalls        atomic.Int32
	baseLibraryCalls    atomic.Int32
	linkCalls           atomic.Int32
	compileVariantCalls atomic.Int32

	nextHandle atomic.Int64

	failCompileVariant atomic.Bool
}

func newFakeBackend(canFastLink bool) *fakeBackend {
	return &fakeBackend{canFastLink: canFastLink, meshGroupLimit: 128}
}

func (b *fakeBackend) handle() any {
	return b.nextHandle.Add(1)
}

func (b *fakeBackend) CreateDescriptorSetLayout(bindings []Binding, bindless bool) (any, error) {
	b.descSetLayoutCalls.Add(1)
	return b.handle(), nil
}

func (b *fakeBackend) CreatePipelineLayout(layout *PipelineLayout) (any, error) {
	b.pipelineLayoutCalls.Add(1)
	return b.handle(), nil
}

func (b *fakeBackend) CompileComputePipeline(desc ComputePipelineDesc, layout *PipelineLayout, spec SpecConstantData) (any, error) {
	b.computeCalls.Add(1)
	return b.handle(), nil
}

func (b *fakeBackend) CreateGraphicsPipelineBaseLibrary(desc GraphicsPipelineDesc, layout *PipelineLayout, spec SpecConstantData) (any, error) {
	b.baseLibraryCalls.Add(1)
	return b.handle(), nil
}

func (b *fakeBackend) CanFastLink(base any) bool {
	return b.canFastLink
}

func (b *fakeBackend) LinkGraphicsPipelineVariant(base any, state RenderState) (any, error) {
	b.linkCalls.Add(1)
	return b.handle(), nil
}

func (b *fakeBackend) CompileGraphicsPipelineVariant(desc GraphicsPipelineDesc, layout *PipelineLayout, spec SpecConstantData, state RenderState) (any, error) {
	b.compileVariantCalls.Add(1)
	if b.failCompileVariant.Load() {
		return nil, errFakeCompile
	}
	return b.handle(), nil
}

func (b *fakeBackend) DeviceMaxDescriptors(t BindingType) uint32 { return 1000 }
func (b *fakeBackend) MinSubgroupSize() uint32                  { return 4 }
func (b *fakeBackend) MaxSubgroupSize() uint32                  { return 64 }
func (b *fakeBackend) MeshShaderGroupLimit() uint32              { return b.meshGroupLimit }
func (b *fakeBackend) PrefersLocalInvocationOutput() bool        { return false }

var errFakeCompile = fakeCompileError{}

type fakeCompileError struct{}

func (fakeCompileError) Error() string { return "fake compile failure" }
