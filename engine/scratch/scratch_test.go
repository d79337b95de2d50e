package scratch

import (
	"fmt"
	"testing"

	"github.com/alseid-engine/anima/engine/gfx"
)

type fakeBuffer struct {
	desc gfx.BufferDesc
	mem  gfx.MemoryType
	data []byte
}

func newFakeBuffer(desc gfx.BufferDesc, mem gfx.MemoryType) *fakeBuffer {
	return &fakeBuffer{desc: desc, mem: mem, data: make([]byte, desc.Size)}
}

func (b *fakeBuffer) DebugName() string    { return b.desc.DebugName }
func (b *fakeBuffer) Size() uint64         { return b.desc.Size }
func (b *fakeBuffer) MemoryType() gfx.MemoryType { return b.mem }

func (b *fakeBuffer) GetDescriptor(usage gfx.UsageFlags, offset, size uint64) gfx.Descriptor {
	return gfx.Descriptor{Offset: offset, Size: size}
}

func (b *fakeBuffer) GpuAddress() uint64 { return 0 }

func (b *fakeBuffer) Map(access gfx.UsageFlags, offset uint64) ([]byte, error) {
	if offset > uint64(len(b.data)) {
		return nil, fmt.Errorf("offset out of range")
	}
	return b.data[offset:], nil
}

func (b *fakeBuffer) Unmap(gfx.UsageFlags) {}

type fakeDevice struct {
	created int
}

func (d *fakeDevice) CreateBuffer(desc gfx.BufferDesc, memoryType gfx.MemoryType) (gfx.Buffer, error) {
	d.created++
	return newFakeBuffer(desc, memoryType), nil
}

func (d *fakeDevice) CreateImage(gfx.ImageDesc, gfx.MemoryType) (gfx.Image, error) {
	return nil, fmt.Errorf("not implemented")
}

func (d *fakeDevice) CreateSampler(gfx.SamplerDesc) (gfx.Sampler, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestPoolReusesExistingBuffer(t *testing.T) {
	dev := &fakeDevice{}
	pool := NewPool(dev)

	page1, err := pool.AllocPages(gfx.MemoryVideo, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page1.Release()

	if _, err := pool.AllocPages(gfx.MemoryVideo, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dev.created != 1 {
		t.Fatalf("expected pool to reuse the existing buffer, created %d buffers", dev.created)
	}
}

func TestPoolCreatesNewBufferWhenFull(t *testing.T) {
	dev := &fakeDevice{}
	pool := NewPool(dev)

	for i := 0; i < PageCount; i++ {
		if _, err := pool.AllocPages(gfx.MemoryVideo, 1); err != nil {
			t.Fatalf("unexpected error on alloc %d: %v", i, err)
		}
	}

	if dev.created != 1 {
		t.Fatalf("expected exactly one buffer so far, got %d", dev.created)
	}

	if _, err := pool.AllocPages(gfx.MemoryVideo, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dev.created != 2 {
		t.Fatalf("expected pool to create a second buffer, created %d", dev.created)
	}
}

func TestPageAllocAndRelease(t *testing.T) {
	dev := &fakeDevice{}
	pool := NewPool(dev)

	page, err := pool.AllocPages(gfx.MemorySystem, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	buf, ok := page.Alloc(256, 16)
	if !ok {
		t.Fatalf("expected allocation within page to succeed")
	}
	if buf.Size != 256 {
		t.Fatalf("expected size 256, got %d", buf.Size)
	}

	page.Release()
	page.Release() // must be a no-op, not a double free panic
}
