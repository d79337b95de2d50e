package pipeline

import (
	"fmt"
	"runtime"
	"sync"
)

// Cache owns every interning map and the compiler worker pool for one
// device. All caches are guarded by a single mutex on insertion;
// lookups after a hit never take the mutex for the interned objects
// themselves (the maps are still read under it, but the fast paths
// above it, in GraphicsPipeline, avoid it entirely).
type Cache struct {
	backend Backend

	mu                   sync.Mutex
	descriptorSetLayouts map[string]*DescriptorSetLayout
	pipelineLayouts      map[string]*PipelineLayout
	computePipelines     map[string]*ComputePipeline
	graphicsPipelines    map[string]*GraphicsPipeline

	compiler *compilerPool
}

// NewCache constructs a pipeline cache backed by the given device
// collaborator and starts one compiler worker per hardware thread.
func NewCache(backend Backend) *Cache {
	c := &Cache{
		backend:              backend,
		descriptorSetLayouts: make(map[string]*DescriptorSetLayout),
		pipelineLayouts:      make(map[string]*PipelineLayout),
		computePipelines:     make(map[string]*ComputePipeline),
		graphicsPipelines:    make(map[string]*GraphicsPipeline),
	}
	c.compiler = newCompilerPool(runtime.NumCPU(), c)
	return c
}

// Shutdown signals the compiler workers to drain their queue and
// exit, and blocks until they have.
func (c *Cache) Shutdown() {
	c.compiler.shutdown()
}

func (c *Cache) getDescriptorSetLayout(bindings []Binding, bindless bool) (*DescriptorSetLayout, error) {
	key := bindingsKey(bindings)

	c.mu.Lock()
	defer c.mu.Unlock()

	if layout, ok := c.descriptorSetLayouts[key]; ok {
		return layout, nil
	}

	backendHandle, err := c.backend.CreateDescriptorSetLayout(bindings, bindless)
	if err != nil {
		return nil, err
	}

	layout := &DescriptorSetLayout{Bindings: bindings, Bindless: bindless, Backend: backendHandle}
	c.descriptorSetLayouts[key] = layout
	return layout, nil
}

// GetPipelineLayout coalesces the bindings and push-constant range of
// shaders into an interned PipelineLayout, creating the backend
// object and any new descriptor-set layouts it needs on first use.
func (c *Cache) GetPipelineLayout(shaders []ShaderDesc) (*PipelineLayout, error) {
	sets, err := CoalesceBindings(shaders, c.backend.DeviceMaxDescriptors)
	if err != nil {
		return nil, err
	}

	constantSize, constantStages := BuildPushConstantRange(shaders)

	var setLayouts [MaxDescriptorSets]*DescriptorSetLayout
	var nonemptyMask uint32
	var setCount uint32
	key := ""

	for i, bindings := range sets {
		if len(bindings) == 0 {
			continue
		}

		bindless := false
		for _, b := range bindings {
			if b.Bindless {
				bindless = true
				break
			}
		}

		layout, err := c.getDescriptorSetLayout(bindings, bindless)
		if err != nil {
			return nil, err
		}

		setLayouts[i] = layout
		nonemptyMask |= 1 << uint(i)
		setCount = uint32(i + 1)
		key += fmt.Sprintf("%d:%s|", i, bindingsKey(bindings))
	}
	key += fmt.Sprintf("c:%d:%d", constantSize, constantStages)

	c.mu.Lock()
	defer c.mu.Unlock()

	if layout, ok := c.pipelineLayouts[key]; ok {
		return layout, nil
	}

	layout := &PipelineLayout{
		SetLayouts:      setLayouts,
		SetCount:        setCount,
		NonemptySetMask: nonemptyMask,
		ConstantSize:    constantSize,
		ConstantStages:  constantStages,
	}

	backendHandle, err := c.backend.CreatePipelineLayout(layout)
	if err != nil {
		return nil, err
	}
	layout.Backend = backendHandle

	c.pipelineLayouts[key] = layout
	return layout, nil
}

// GetComputePipeline returns the interned ComputePipeline for desc,
// creating it (but not yet compiling it) on first use.
func (c *Cache) GetComputePipeline(desc ComputePipelineDesc, spec SpecConstantData) (*ComputePipeline, error) {
	layout, err := c.GetPipelineLayout([]ShaderDesc{desc.Shader})
	if err != nil {
		return nil, err
	}

	key := string(desc.Source)

	c.mu.Lock()
	p, ok := c.computePipelines[key]
	if !ok {
		p = &ComputePipeline{cache: c, desc: desc, layout: layout, spec: spec}
		c.computePipelines[key] = p
	}
	c.mu.Unlock()

	return p, nil
}

// GetGraphicsPipeline returns the interned GraphicsPipeline for desc,
// creating it (but not yet building its base library) on first use.
func (c *Cache) GetGraphicsPipeline(desc GraphicsPipelineDesc, spec SpecConstantData) (*GraphicsPipeline, error) {
	layout, err := c.GetPipelineLayout(desc.Shaders)
	if err != nil {
		return nil, err
	}

	key := graphicsPipelineKey(desc)

	c.mu.Lock()
	p, ok := c.graphicsPipelines[key]
	if !ok {
		p = &GraphicsPipeline{cache: c, desc: desc, layout: layout, spec: spec}
		c.graphicsPipelines[key] = p
	}
	c.mu.Unlock()

	return p, nil
}

func graphicsPipelineKey(desc GraphicsPipelineDesc) string {
	key := ""
	for _, src := range desc.Sources {
		key += string(src) + "\x00"
	}
	return key
}
