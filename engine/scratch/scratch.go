package scratch

import (
	"sync"
	"sync/atomic"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/gfx"
	"github.com/alseid-engine/anima/engine/lockfree"
)

const (
	// PageSize is the size in bytes of one scratch buffer page.
	PageSize = 1 << 20
	// PageCount is the number of pages a single scratch buffer holds.
	PageCount = 64
	// BufferSize is the total size of one scratch buffer.
	BufferSize = PageCount * PageSize
)

// Buffer is a slice of a scratch buffer allocation, addressable
// relative to the underlying GPU buffer.
type Buffer struct {
	Buf    gfx.Buffer
	Offset uint64
	Size   uint64
}

func (b Buffer) GetDescriptor(usage gfx.UsageFlags) gfx.Descriptor {
	return b.Buf.GetDescriptor(usage, b.Offset, b.Size)
}

func (b Buffer) GpuAddress() uint64 {
	return b.Buf.GpuAddress() + b.Offset
}

func (b Buffer) Map(access gfx.UsageFlags, offset uint64) ([]byte, error) {
	return b.Buf.Map(access, b.Offset+offset)
}

func (b Buffer) Unmap(access gfx.UsageFlags) {
	b.Buf.Unmap(access)
}

// Page is a linear allocator over a contiguous run of pages taken
// from an Allocator's bucket. Call Release when done with it; Go has
// no destructors, so unlike its C++ counterpart the page is not freed
// automatically when it goes out of scope.
type Page struct {
	parent     *Allocator
	pageIndex  uint32
	pageCount  uint32
	memoryType gfx.MemoryType
	allocator  *LinearAllocator
	released   atomic.Bool
}

func newPage(parent *Allocator, pageIndex, pageCount uint32, memoryType gfx.MemoryType) *Page {
	return &Page{
		parent:     parent,
		pageIndex:  pageIndex,
		pageCount:  pageCount,
		memoryType: memoryType,
		allocator:  NewLinearAllocator(uint64(pageCount) * PageSize),
	}
}

func (p *Page) MemoryType() gfx.MemoryType {
	return p.memoryType
}

// Alloc carves size bytes out of the page, aligned to alignment.
func (p *Page) Alloc(size, alignment uint64) (Buffer, bool) {
	offset, ok := p.allocator.Alloc(size, alignment)
	if !ok {
		return Buffer{}, false
	}

	return Buffer{
		Buf:    p.parent.buffer,
		Offset: uint64(p.pageIndex)*PageSize + offset,
		Size:   alignUp(size, alignment),
	}, true
}

// Release returns the page's pages to its parent allocator. Safe to
// call more than once; only the first call has an effect.
func (p *Page) Release() {
	if p.released.CompareAndSwap(false, true) {
		p.parent.freePages(p.pageIndex, p.pageCount)
	}
}

// Allocator owns a single scratch buffer and suballocates fixed-size
// pages from it via a bucket allocator.
type Allocator struct {
	buffer     gfx.Buffer
	memoryType gfx.MemoryType
	bucket     *BucketAllocator
}

// NewAllocator creates a scratch buffer of BufferSize bytes with a
// usage mask appropriate for memoryType.
func NewAllocator(device gfx.Device, memoryType gfx.MemoryType) (*Allocator, error) {
	usage := gfx.UsageTransferSrc | gfx.UsageParameterBuffer |
		gfx.UsageIndexBuffer | gfx.UsageVertexBuffer |
		gfx.UsageConstantBuffer | gfx.UsageShaderResource

	if memoryType != gfx.MemoryVideo {
		usage |= gfx.UsageCpuWrite
	}
	if memoryType != gfx.MemoryBar {
		usage |= gfx.UsageTransferDst | gfx.UsageShaderStorage
	}
	if memoryType == gfx.MemorySystem {
		usage |= gfx.UsageCpuRead
	}

	buf, err := device.CreateBuffer(gfx.BufferDesc{
		DebugName: "Scratch buffer",
		Size:      BufferSize,
		Usage:     usage,
	}, memoryType)
	if err != nil {
		return nil, core.WrapError(core.DeviceErrorKind, err, "failed to create scratch buffer")
	}

	return &Allocator{
		buffer:     buf,
		memoryType: memoryType,
		bucket:     NewBucketAllocator(PageCount),
	}, nil
}

func (a *Allocator) Buffer() gfx.Buffer {
	return a.buffer
}

func (a *Allocator) MemoryType() gfx.MemoryType {
	return a.memoryType
}

// AllocPages claims pageCount contiguous pages from the buffer.
func (a *Allocator) AllocPages(pageCount uint32) (*Page, bool) {
	index, ok := a.bucket.Alloc(pageCount)
	if !ok {
		return nil, false
	}
	return newPage(a, index, pageCount, a.memoryType), true
}

func (a *Allocator) freePages(pageIndex, pageCount uint32) {
	a.bucket.Free(pageIndex, pageCount)
}

// Pool hands out scratch pages, creating new backing buffers on
// demand. Allocating from an existing buffer never blocks; creating a
// new buffer is serialized so concurrent small requests don't cause a
// burst of redundant buffer creation.
type Pool struct {
	device  gfx.Device
	mu      sync.Mutex
	buffers lockfree.List[*Allocator]
}

func NewPool(device gfx.Device) *Pool {
	return &Pool{device: device}
}

// AllocPages returns a page with pageCount pages of memoryType,
// creating a new backing buffer if none of the existing ones have
// room.
func (p *Pool) AllocPages(memoryType gfx.MemoryType, pageCount uint32) (*Page, error) {
	if page := p.tryAllocPages(memoryType, pageCount); page != nil {
		return page, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if page := p.tryAllocPages(memoryType, pageCount); page != nil {
		return page, nil
	}

	allocator, err := NewAllocator(p.device, memoryType)
	if err != nil {
		return nil, err
	}
	p.buffers.Insert(allocator)

	page, ok := allocator.AllocPages(pageCount)
	if !ok {
		return nil, core.NewError(core.InvalidArgument, "page count %d exceeds scratch buffer capacity", pageCount)
	}
	return page, nil
}

func (p *Pool) tryAllocPages(memoryType gfx.MemoryType, pageCount uint32) *Page {
	var found *Page

	p.buffers.Range(func(entry **Allocator) bool {
		allocator := *entry
		if allocator.MemoryType() != memoryType {
			return true
		}

		page, ok := allocator.AllocPages(pageCount)
		if ok {
			found = page
			return false
		}
		return true
	})

	return found
}
