package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/alseid-engine/anima/engine/core"
)

type workKind int

const (
	workCompute workKind = iota
	workGraphicsVariant
)

// compilerWorkItem is the tagged union of work the compiler pool can
// run: a compute pipeline compile, or a deferred optimized graphics
// variant compile.
type compilerWorkItem struct {
	kind     workKind
	compute  *ComputePipeline
	graphics *GraphicsPipeline
	state    RenderState
}

// compilerPool runs one worker goroutine per hardware thread, each
// draining a condition-variable-guarded FIFO queue of pipeline
// compilation work. shutdown sets the quit flag and wakes every
// worker; each worker exits once the queue is empty and quit is set.
type compilerPool struct {
	cache *Cache

	mu    sync.Mutex
	cond  sync.Cond
	quit  bool
	queue []compilerWorkItem

	// admission bounds how much work may be queued or in flight at
	// once, so a burst of pipeline requests (e.g. a level load
	// enqueuing hundreds of variants) backs up the submitter instead
	// of growing the queue without limit.
	admission *semaphore.Weighted

	wg sync.WaitGroup
}

func newCompilerPool(workerCount int, cache *Cache) *compilerPool {
	if workerCount <= 0 {
		workerCount = 1
	}

	p := &compilerPool{cache: cache, admission: semaphore.NewWeighted(int64(workerCount * 4))}
	p.cond.L = &p.mu

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer p.wg.Done()
			p.run()
		}()
	}

	core.LogDebug("pipeline: started compiler pool with %d workers", workerCount)
	return p
}

// enqueue blocks until admission space is available, then queues
// item. The slot is released once a worker finishes running it.
func (p *compilerPool) enqueue(item compilerWorkItem) {
	_ = p.admission.Acquire(context.Background(), 1)

	p.mu.Lock()
	p.queue = append(p.queue, item)
	p.cond.Signal()
	p.mu.Unlock()
}

func (p *compilerPool) shutdown() {
	p.mu.Lock()
	p.quit = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *compilerPool) run() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.quit {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.quit {
			p.mu.Unlock()
			return
		}

		item := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		switch item.kind {
		case workCompute:
			item.compute.compileAsync()
		case workGraphicsVariant:
			item.graphics.compileAsync(item.state)
		}

		p.admission.Release(1)
	}
}
