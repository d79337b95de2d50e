package pipeline

import "sync"

// ComputePipeline is an interned, lazily-compiled compute pipeline.
// Unlike graphics pipelines there is no fast-link path: a compute
// pipeline has no rasterizer or fragment-output state to vary, so
// every request for it resolves to the same backend object.
type ComputePipeline struct {
	cache  *Cache
	desc   ComputePipelineDesc
	layout *PipelineLayout
	spec   SpecConstantData

	mu      sync.Mutex
	handle  any
	failure error
}

// GetHandle returns the compiled backend pipeline, compiling it
// synchronously on the first call. A deferred compile failure from an
// earlier async attempt (queued via Cache.EnqueueCompute) is
// re-thrown here instead of retried.
func (p *ComputePipeline) GetHandle() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		return p.handle, nil
	}
	if p.failure != nil {
		err := p.failure
		p.failure = nil
		return nil, err
	}

	handle, err := p.compileLocked()
	if err != nil {
		return nil, err
	}
	return handle, nil
}

func (p *ComputePipeline) compileLocked() (any, error) {
	patched := patchWorkgroupSize(p.desc.Shader, p.spec, p.cache.backend)
	handle, err := p.cache.backend.CompileComputePipeline(p.desc, p.layout, patched)
	if err != nil {
		return nil, err
	}
	p.handle = handle
	return handle, nil
}

// compileAsync is run on a compiler worker for pipelines enqueued via
// Cache.EnqueueCompute. A failure is stored rather than returned, to
// be surfaced on the next GetHandle call per the deferred-failure
// semantics of the cache.
func (p *ComputePipeline) compileAsync() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil {
		return
	}

	handle, err := p.compileLocked()
	if err != nil {
		p.failure = err
		return
	}
	p.handle = handle
}

// EnqueueCompute defers compilation of a compute pipeline to the
// compiler worker pool.
func (c *Cache) EnqueueCompute(p *ComputePipeline) {
	c.compiler.enqueue(compilerWorkItem{kind: workCompute, compute: p})
}
