// Package gfx defines the backend-neutral device, buffer, image,
// sampler and pipeline interfaces that the pipeline cache and scratch
// allocator are built against. Vulkan-specific enum plumbing and the
// GPU command stream format are out of scope; engine/renderer/vulkan
// provides the one concrete implementation these interfaces need.
package gfx

// MemoryType classifies where a resource's backing memory lives and,
// by extension, how the CPU and GPU may access it.
type MemoryType uint32

const (
	// MemoryVideo is GPU-local memory, generally not CPU-visible.
	MemoryVideo MemoryType = iota
	// MemoryBar is CPU-visible GPU memory (base address register),
	// used for frequently updated GPU-read data.
	MemoryBar
	// MemorySystem is host memory, used for staging and readback.
	MemorySystem
)

func (m MemoryType) String() string {
	switch m {
	case MemoryVideo:
		return "video"
	case MemoryBar:
		return "bar"
	case MemorySystem:
		return "system"
	default:
		return "unknown"
	}
}

// UsageFlags describes the ways a buffer or image may be used.
type UsageFlags uint32

const (
	UsageTransferSrc UsageFlags = 1 << iota
	UsageTransferDst
	UsageParameterBuffer
	UsageIndexBuffer
	UsageVertexBuffer
	UsageConstantBuffer
	UsageShaderResource
	UsageShaderStorage
	UsageCpuRead
	UsageCpuWrite
)

func (u UsageFlags) Has(flag UsageFlags) bool {
	return u&flag != 0
}

// BufferDesc describes a buffer to be created by a Device.
type BufferDesc struct {
	DebugName string
	Size      uint64
	Usage     UsageFlags
}

// Descriptor is an opaque, backend-specific handle used to bind a
// resource region to a shader.
type Descriptor struct {
	Handle uintptr
	Offset uint64
	Size   uint64
}

// Buffer is a backend-neutral GPU buffer.
type Buffer interface {
	DebugName() string
	Size() uint64
	MemoryType() MemoryType
	GetDescriptor(usage UsageFlags, offset, size uint64) Descriptor
	GpuAddress() uint64
	Map(access UsageFlags, offset uint64) ([]byte, error)
	Unmap(access UsageFlags)
}

// ImageDesc describes an image to be created by a Device.
type ImageDesc struct {
	DebugName string
	Width     uint32
	Height    uint32
	Depth     uint32
	MipCount  uint32
	Layers    uint32
	Usage     UsageFlags
}

// Image is a backend-neutral GPU image.
type Image interface {
	DebugName() string
	Width() uint32
	Height() uint32
	MipCount() uint32
}

// PixelFormat identifies the texel layout of an Image, either an
// uncompressed per-channel layout or one of the BCn block-compressed
// formats the archive texture builder can select.
type PixelFormat uint32

const (
	FormatUnknown PixelFormat = iota
	FormatR8un
	FormatR8G8un
	FormatR8G8B8A8srgb
	FormatBc1srgb
	FormatBc3srgb
	FormatBc4un
	FormatBc5un
	FormatBc7srgb
)

func (f PixelFormat) String() string {
	switch f {
	case FormatR8un:
		return "R8un"
	case FormatR8G8un:
		return "R8G8un"
	case FormatR8G8B8A8srgb:
		return "R8G8B8A8srgb"
	case FormatBc1srgb:
		return "Bc1srgb"
	case FormatBc3srgb:
		return "Bc3srgb"
	case FormatBc4un:
		return "Bc4un"
	case FormatBc5un:
		return "Bc5un"
	case FormatBc7srgb:
		return "Bc7srgb"
	default:
		return "Unknown"
	}
}

// BlockCompressed reports whether f is one of the BCn formats, which
// this engine never software-encodes (see engine/archive's texture
// build job): a block compressor is an out-of-scope collaborator.
func (f PixelFormat) BlockCompressed() bool {
	switch f {
	case FormatBc1srgb, FormatBc3srgb, FormatBc4un, FormatBc5un, FormatBc7srgb:
		return true
	default:
		return false
	}
}

// SamplerDesc describes a sampler to be created by a Device.
type SamplerDesc struct {
	DebugName string
	MaxAnisotropy float32
}

// Sampler is a backend-neutral texture sampler.
type Sampler interface {
	DebugName() string
}

// Pipeline is a backend-neutral compiled graphics or compute pipeline.
type Pipeline interface {
	DebugName() string
	// Ready reports whether the pipeline has finished background
	// compilation and can be bound for drawing or dispatch.
	Ready() bool
}

// Device is the backend-neutral entry point used to create GPU
// resources. engine/renderer/vulkan implements it over goki/vulkan.
type Device interface {
	CreateBuffer(desc BufferDesc, memoryType MemoryType) (Buffer, error)
	CreateImage(desc ImageDesc, memoryType MemoryType) (Image, error)
	CreateSampler(desc SamplerDesc) (Sampler, error)
}
