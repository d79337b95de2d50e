package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/alseid-engine/anima/engine/lockfree"
)

// handleBox wraps a backend-opaque pipeline handle so it can live
// behind an atomic.Pointer (any is not itself a valid atomic payload
// since atomic.Pointer needs a concrete pointee type).
type handleBox struct {
	h any
}

// graphicsVariant is one entry in either the optimized or the linked
// variant list. handle is published with a release store once
// compilation or linking completes; a zero handle means the entry is
// reserved but not yet built (true only for async-deferred optimized
// variants).
type graphicsVariant struct {
	key    string
	handle atomic.Pointer[handleBox]
}

// GraphicsPipeline is an interned graphics pipeline: a base library
// built once, plus per-RenderState optimized and fast-linked variants
// grown over the pipeline's lifetime.
type GraphicsPipeline struct {
	cache  *Cache
	desc   GraphicsPipelineDesc
	layout *PipelineLayout
	spec   SpecConstantData

	libraryMu sync.Mutex
	library   atomic.Pointer[handleBox]

	optimized lockfree.List[graphicsVariant]
	linked    lockfree.List[graphicsVariant]

	failureMu sync.Mutex
	failure   error
}

// GetVariant implements the four-step variant selection state
// machine: optimized lookup, linked lookup, fast-link-and-defer, or
// synchronous compile.
func (p *GraphicsPipeline) GetVariant(state RenderState) (any, error) {
	if err := p.takeFailure(); err != nil {
		return nil, err
	}

	if handle, ok := p.lookupOptimized(state.Key); ok {
		return handle, nil
	}

	if handle, ok := p.lookupLinked(state.Key); ok {
		return handle, nil
	}

	base, err := p.ensureBaseLibrary()
	if err != nil {
		return nil, err
	}

	if p.cache.backend.CanFastLink(base) {
		p.deferOptimizedBuild(state)
		return p.linkVariant(base, state)
	}

	return p.compileVariant(state)
}

func (p *GraphicsPipeline) lookupOptimized(key string) (any, bool) {
	entry := p.optimized.Find(func(v *graphicsVariant) bool { return v.key == key })
	if entry == nil {
		return nil, false
	}
	box := entry.handle.Load()
	if box == nil {
		return nil, false
	}
	return box.h, true
}

func (p *GraphicsPipeline) lookupLinked(key string) (any, bool) {
	entry := p.linked.Find(func(v *graphicsVariant) bool { return v.key == key })
	if entry == nil {
		return nil, false
	}
	box := entry.handle.Load()
	if box == nil {
		return nil, false
	}
	return box.h, true
}

// ensureBaseLibrary builds the pipeline's base library the first time
// any thread needs it, under libraryMu, and publishes the result with
// a release store so later readers can acquire-load without locking.
func (p *GraphicsPipeline) ensureBaseLibrary() (any, error) {
	if box := p.library.Load(); box != nil {
		return box.h, nil
	}

	p.libraryMu.Lock()
	defer p.libraryMu.Unlock()

	if box := p.library.Load(); box != nil {
		return box.h, nil
	}

	handle, err := p.cache.backend.CreateGraphicsPipelineBaseLibrary(p.desc, p.layout, p.spec)
	if err != nil {
		return nil, err
	}

	p.library.Store(&handleBox{h: handle})
	return handle, nil
}

// deferOptimizedBuild reserves a placeholder entry in the optimized
// list and enqueues its compilation on the compiler worker pool. The
// entry's handle is published, with a release store, by the worker
// once compilation finishes.
func (p *GraphicsPipeline) deferOptimizedBuild(state RenderState) {
	if p.optimized.Find(func(v *graphicsVariant) bool { return v.key == state.Key }) != nil {
		return
	}

	p.optimized.Insert(graphicsVariant{key: state.Key})
	p.cache.compiler.enqueue(compilerWorkItem{kind: workGraphicsVariant, graphics: p, state: state})
}

func (p *GraphicsPipeline) linkVariant(base any, state RenderState) (any, error) {
	handle, err := p.cache.backend.LinkGraphicsPipelineVariant(base, state)
	if err != nil {
		return nil, err
	}

	entry := p.linked.Insert(graphicsVariant{key: state.Key})
	entry.handle.Store(&handleBox{h: handle})
	return handle, nil
}

func (p *GraphicsPipeline) compileVariant(state RenderState) (any, error) {
	handle, err := p.cache.backend.CompileGraphicsPipelineVariant(p.desc, p.layout, p.spec, state)
	if err != nil {
		return nil, err
	}

	entry := p.optimized.Insert(graphicsVariant{key: state.Key})
	entry.handle.Store(&handleBox{h: handle})
	return handle, nil
}

// compileAsync fills a previously-reserved optimized variant entry,
// run from a compiler worker. On failure the error is stashed on the
// pipeline instead of the caller that requested the variant, since
// that caller already received a linked variant and moved on; it is
// surfaced on the next GetVariant call.
func (p *GraphicsPipeline) compileAsync(state RenderState) {
	handle, err := p.cache.backend.CompileGraphicsPipelineVariant(p.desc, p.layout, p.spec, state)
	if err != nil {
		p.setFailure(err)
		return
	}

	entry := p.optimized.Find(func(v *graphicsVariant) bool { return v.key == state.Key })
	if entry == nil {
		entry = p.optimized.Insert(graphicsVariant{key: state.Key})
	}
	entry.handle.Store(&handleBox{h: handle})
}

func (p *GraphicsPipeline) setFailure(err error) {
	p.failureMu.Lock()
	defer p.failureMu.Unlock()
	p.failure = err
}

func (p *GraphicsPipeline) takeFailure() error {
	p.failureMu.Lock()
	defer p.failureMu.Unlock()
	err := p.failure
	p.failure = nil
	return err
}
