package pipeline

import (
	"testing"
	"time"
)

func TestComputePipelineSynchronousCompile(t *testing.T) {
	backend := newFakeBackend(true)
	cache := NewCache(backend)
	defer cache.Shutdown()

	desc := ComputePipelineDesc{Shader: ShaderDesc{Stage: StageCompute}, Source: []byte("cs")}
	p, err := cache.GetComputePipeline(desc, SpecConstantData{})
	if err != nil {
		t.Fatalf("GetComputePipeline: %v", err)
	}

	if _, err := p.GetHandle(); err != nil {
		t.Fatalf("GetHandle: %v", err)
	}
	if backend.computeCalls.Load() != 1 {
		t.Fatalf("expected one compile, got %d", backend.computeCalls.Load())
	}

	if _, err := p.GetHandle(); err != nil {
		t.Fatalf("second GetHandle: %v", err)
	}
	if backend.computeCalls.Load() != 1 {
		t.Fatalf("second call should reuse the compiled handle, got %d compiles", backend.computeCalls.Load())
	}
}

func TestComputePipelineGetComputePipelineInterns(t *testing.T) {
	backend := newFakeBackend(true)
	cache := NewCache(backend)
	defer cache.Shutdown()

	desc := ComputePipelineDesc{Shader: ShaderDesc{Stage: StageCompute}, Source: []byte("same-source")}

	a, err := cache.GetComputePipeline(desc, SpecConstantData{})
	if err != nil {
		t.Fatalf("GetComputePipeline: %v", err)
	}
	b, err := cache.GetComputePipeline(desc, SpecConstantData{})
	if err != nil {
		t.Fatalf("GetComputePipeline: %v", err)
	}
	if a != b {
		t.Fatal("expected the same interned ComputePipeline for identical source")
	}
}

func TestComputePipelineEnqueueAsync(t *testing.T) {
	backend := newFakeBackend(true)
	cache := NewCache(backend)
	defer cache.Shutdown()

	desc := ComputePipelineDesc{Shader: ShaderDesc{Stage: StageCompute}, Source: []byte("async-cs")}
	p, err := cache.GetComputePipeline(desc, SpecConstantData{})
	if err != nil {
		t.Fatalf("GetComputePipeline: %v", err)
	}

	cache.EnqueueCompute(p)

	deadline := time.Now().Add(2 * time.Second)
	for {
		p.mu.Lock()
		handle := p.handle
		p.mu.Unlock()
		if handle != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for async compile")
		}
		time.Sleep(time.Millisecond)
	}
}
