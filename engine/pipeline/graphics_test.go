package pipeline

import (
	"testing"
	"time"
)

func testGraphicsDesc() GraphicsPipelineDesc {
	return GraphicsPipelineDesc{
		Shaders: []ShaderDesc{{Stage: StageVertex}, {Stage: StageFragment}},
		Sources: [][]byte{[]byte("vs"), []byte("fs")},
	}
}

func TestGraphicsPipelineFastLinkThenDeferredOptimize(t *testing.T) {
	backend := newFakeBackend(true)
	cache := NewCache(backend)
	defer cache.Shutdown()

	gp, err := cache.GetGraphicsPipeline(testGraphicsDesc(), SpecConstantData{})
	if err != nil {
		t.Fatalf("GetGraphicsPipeline: %v", err)
	}

	state := RenderState{Key: "stateA"}

	if _, ok := gp.lookupOptimized(state.Key); ok {
		t.Fatal("optimized variant should not exist yet")
	}

	handle, err := gp.GetVariant(state)
	if err != nil {
		t.Fatalf("GetVariant: %v", err)
	}
	if handle == nil {
		t.Fatal("expected a non-nil handle")
	}
	if backend.linkCalls.Load() != 1 {
		t.Fatalf("expected exactly one link call, got %d", backend.linkCalls.Load())
	}
	if backend.baseLibraryCalls.Load() != 1 {
		t.Fatalf("expected exactly one base library build, got %d", backend.baseLibraryCalls.Load())
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := gp.lookupOptimized(state.Key); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for deferred optimized build")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := gp.GetVariant(state); err != nil {
		t.Fatalf("GetVariant after optimize: %v", err)
	}
	if backend.linkCalls.Load() != 1 {
		t.Fatalf("optimized lookup should short-circuit fast-link, got %d link calls", backend.linkCalls.Load())
	}
	if backend.compileVariantCalls.Load() != 1 {
		t.Fatalf("expected exactly one deferred compile, got %d", backend.compileVariantCalls.Load())
	}
}

func TestGraphicsPipelineSynchronousCompileWithoutFastLink(t *testing.T) {
	backend := newFakeBackend(false)
	cache := NewCache(backend)
	defer cache.Shutdown()

	gp, err := cache.GetGraphicsPipeline(testGraphicsDesc(), SpecConstantData{})
	if err != nil {
		t.Fatalf("GetGraphicsPipeline: %v", err)
	}

	state := RenderState{Key: "stateB"}

	if _, err := gp.GetVariant(state); err != nil {
		t.Fatalf("GetVariant: %v", err)
	}
	if backend.compileVariantCalls.Load() != 1 {
		t.Fatalf("expected one synchronous compile, got %d", backend.compileVariantCalls.Load())
	}
	if backend.linkCalls.Load() != 0 {
		t.Fatalf("expected no link calls without fast-link support, got %d", backend.linkCalls.Load())
	}

	if _, ok := gp.lookupOptimized(state.Key); !ok {
		t.Fatal("expected the synchronous compile to register an optimized variant")
	}

	if _, err := gp.GetVariant(state); err != nil {
		t.Fatalf("second GetVariant: %v", err)
	}
	if backend.compileVariantCalls.Load() != 1 {
		t.Fatalf("second call should hit the optimized cache, got %d compiles", backend.compileVariantCalls.Load())
	}
}

func TestGraphicsPipelineDeferredFailureSurfacesOnNextGetVariant(t *testing.T) {
	backend := newFakeBackend(true)
	cache := NewCache(backend)
	defer cache.Shutdown()

	gp, err := cache.GetGraphicsPipeline(testGraphicsDesc(), SpecConstantData{})
	if err != nil {
		t.Fatalf("GetGraphicsPipeline: %v", err)
	}

	backend.failCompileVariant.Store(true)

	state := RenderState{Key: "stateC"}
	if _, err := gp.GetVariant(state); err != nil {
		t.Fatalf("initial GetVariant should still succeed via link: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for gp.peekFailureForTest() == nil {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for deferred compile failure")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := gp.GetVariant(RenderState{Key: "stateC-probe"}); err == nil {
		t.Fatal("expected the stashed deferred failure to surface on the next GetVariant")
	}
}

// peekFailureForTest reads the failure slot without consuming it, so
// the test can poll for the async worker to populate it.
func (p *GraphicsPipeline) peekFailureForTest() error {
	p.failureMu.Lock()
	defer p.failureMu.Unlock()
	return p.failure
}
