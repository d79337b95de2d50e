package archive

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sync"
	"sync/atomic"

	_ "golang.org/x/image/bmp"

	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/gfx"
	"github.com/alseid-engine/anima/engine/jobs"
	"github.com/alseid-engine/anima/engine/stream"
)

// TextureDesc controls a TextureBuildJob. Modifiers are sticky in the
// asarc CLI grammar: once set, they apply to every subsequent -t
// operation until overridden.
type TextureDesc struct {
	Name             string
	Format           gfx.PixelFormat
	EnableMips       bool
	EnableCube       bool
	EnableLayers     bool
	AllowCompression bool
	AllowBc7         bool
}

// textureImage is a decoded input image, unpacked to
// 8-bit-per-channel RGBA so every downstream step
// (format selection, mip generation) works against one layout.
type textureImage struct {
	width, height uint32
	pixels        []byte // tightly packed RGBA8, row-major
}

func loadTextureImage(path string) (textureImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return textureImage{}, core.WrapError(core.IoError, err, "failed to open %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return textureImage{}, core.WrapError(core.InvalidInput, err, "failed to decode image %s", path)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, w*h*4)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := (y*w + x) * 4
			pixels[i+0] = byte(r >> 8)
			pixels[i+1] = byte(g >> 8)
			pixels[i+2] = byte(b >> 8)
			pixels[i+3] = byte(a >> 8)
		}
	}

	return textureImage{width: uint32(w), height: uint32(h), pixels: pixels}, nil
}

// pickFormat implements the §4.6.1 auto-selection heuristic: inspect
// the first image's channel usage to decide between single-channel,
// dual-channel, alpha-tested and opaque color formats.
func pickFormat(img textureImage, allowCompression, allowBc7 bool) gfx.PixelFormat {
	usesG, usesB, usesA := false, false, false

	for i := 0; i < len(img.pixels); i += 4 {
		if img.pixels[i+1] != 0 {
			usesG = true
		}
		if img.pixels[i+2] != 0 {
			usesB = true
		}
		if img.pixels[i+3] != 255 {
			usesA = true
		}
	}

	switch {
	case !usesG && !usesB && !usesA:
		if allowCompression {
			return gfx.FormatBc4un
		}
		return gfx.FormatR8un
	case !usesB && !usesA:
		if allowCompression {
			return gfx.FormatBc5un
		}
		return gfx.FormatR8G8un
	case usesA:
		if allowCompression && allowBc7 {
			return gfx.FormatBc7srgb
		}
		if allowCompression {
			return gfx.FormatBc3srgb
		}
		return gfx.FormatR8G8B8A8srgb
	default:
		if allowCompression {
			return gfx.FormatBc1srgb
		}
		return gfx.FormatR8G8B8A8srgb
	}
}

func srgbToLinear(c byte) float64 {
	v := float64(c) / 255
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

func linearToSrgb(v float64) byte {
	if v <= 0.0031308 {
		v *= 12.92
	} else {
		v = 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return byte(v*255 + 0.5)
}

// generateMip halves img in each dimension with a 2x2 box filter. For
// sRGB-encoded color data the average is taken in linear light and
// re-encoded, per §4.6.1; the alpha channel is always averaged
// linearly since it never carries a gamma curve.
func generateMip(img textureImage, srgb bool) textureImage {
	dstW := img.width / 2
	if dstW == 0 {
		dstW = 1
	}
	dstH := img.height / 2
	if dstH == 0 {
		dstH = 1
	}

	dst := textureImage{width: dstW, height: dstH, pixels: make([]byte, dstW*dstH*4)}

	sampleX := func(x uint32) uint32 {
		if 2*x+1 < img.width {
			return 2 * x
		}
		return 2*x - 1
	}
	sampleY := func(y uint32) uint32 {
		if 2*y+1 < img.height {
			return 2 * y
		}
		return 2*y - 1
	}

	for y := uint32(0); y < dstH; y++ {
		for x := uint32(0); x < dstW; x++ {
			x0, x1 := sampleX(x), sampleX(x)+1
			y0, y1 := sampleY(y), sampleY(y)+1
			if x1 >= img.width {
				x1 = x0
			}
			if y1 >= img.height {
				y1 = y0
			}

			offsets := [4]uint32{
				(y0*img.width + x0) * 4,
				(y0*img.width + x1) * 4,
				(y1*img.width + x0) * 4,
				(y1*img.width + x1) * 4,
			}

			dstOff := (y*dstW + x) * 4
			for c := 0; c < 3; c++ {
				if srgb {
					sum := 0.0
					for _, off := range offsets {
						sum += srgbToLinear(img.pixels[off+uint32(c)])
					}
					dst.pixels[dstOff+uint32(c)] = linearToSrgb(sum / 4)
				} else {
					sum := 0
					for _, off := range offsets {
						sum += int(img.pixels[off+uint32(c)])
					}
					dst.pixels[dstOff+uint32(c)] = byte(sum / 4)
				}
			}

			sum := 0
			for _, off := range offsets {
				sum += int(img.pixels[off+3])
			}
			dst.pixels[dstOff+3] = byte(sum / 4)
		}
	}

	return dst
}

// pack extracts the channels format actually stores, e.g. a single
// red channel for FormatR8un. Block-compressed formats have no real
// software encoder in this engine (see gfx.PixelFormat.BlockCompressed)
// so they fall through to the nearest uncompressed layout's byte
// packing; the archive records the intended format regardless.
func pack(img textureImage, format gfx.PixelFormat) []byte {
	switch format {
	case gfx.FormatR8un, gfx.FormatBc4un:
		out := make([]byte, img.width*img.height)
		for i := range out {
			out[i] = img.pixels[i*4]
		}
		return out
	case gfx.FormatR8G8un, gfx.FormatBc5un:
		out := make([]byte, img.width*img.height*2)
		for i := uint32(0); i < img.width*img.height; i++ {
			out[i*2+0] = img.pixels[i*4+0]
			out[i*2+1] = img.pixels[i*4+1]
		}
		return out
	default:
		return img.pixels
	}
}

// TextureBuildJob loads one or more same-sized images (layers/faces
// of a single texture), generates a full mip chain in parallel, packs
// each level to the selected pixel format, and GDeflate-compresses
// each subresource into its own sub-file.
type TextureBuildJob struct {
	env    Environment
	desc   TextureDesc
	inputs []string

	ioJob *jobs.Job

	mu        sync.Mutex
	format    gfx.PixelFormat
	mipChains [][]textureImage // one chain per input layer

	result atomic.Int32
}

// NewTextureBuildJob builds a job over inputs, one file per array
// layer (or cube face when desc.EnableCube is set).
func NewTextureBuildJob(env Environment, desc TextureDesc, inputs []string) *TextureBuildJob {
	j := &TextureBuildJob{env: env, desc: desc, inputs: inputs}
	j.result.Store(int32(BuildSuccess))
	return j
}

func (j *TextureBuildJob) GetProgress() (BuildResult, BuildProgress) {
	status := BuildResult(j.result.Load())

	var prog BuildProgress
	if j.ioJob != nil {
		prog.addJob(j.ioJob.Done())
	}

	if status == BuildSuccess && prog.ItemsCompleted == 0 {
		status = BuildInProgress
	}
	return status, prog
}

func (j *TextureBuildJob) GetFileInfo() (BuildResult, ArchiveFile) {
	if j.ioJob != nil {
		j.env.Jobs.Wait(j.ioJob)
	}

	status := BuildResult(j.result.Load())
	if status.Failed() {
		return status, ArchiveFile{}
	}

	j.mu.Lock()
	format := j.format
	chains := j.mipChains
	j.mu.Unlock()

	inline := stream.NewWriter()
	inline.WriteUint32(uint32(format))
	inline.WriteUint32(uint32(len(chains)))
	if len(chains) > 0 {
		inline.WriteUint32(uint32(len(chains[0])))
	}

	file := ArchiveFile{Type: FourCCTexture, Name: j.desc.Name}
	file.SetInlineData(inline.Bytes())

	dataIndex := 0
	for _, chain := range chains {
		for _, mip := range chain {
			raw := pack(mip, format)

			w := stream.NewWriter()
			if !stream.GDeflateEncode(w, raw) {
				return BuildIoError, ArchiveFile{}
			}

			file.AddSubFile(textureSubFileID(dataIndex), CompressionGDeflate, uint64(len(raw)), w.Bytes())
			dataIndex++
		}
	}

	return BuildSuccess, file
}

func textureSubFileID(index int) FourCC {
	digits := [3]byte{'0', '0', '0'}
	for i := 2; i >= 0 && index > 0; i-- {
		digits[i] = byte('0' + index%10)
		index /= 10
	}
	return FourCC{digits[0], digits[1], digits[2], 0}
}

func (j *TextureBuildJob) DispatchJobs() {
	j.ioJob = jobs.NewSimpleJob(func() {
		if BuildResult(j.result.Load()) != BuildSuccess {
			return
		}

		result := j.runIoJob()
		j.result.CompareAndSwap(int32(BuildSuccess), int32(result))
	})
	j.env.Jobs.Dispatch(j.ioJob)
}

func (j *TextureBuildJob) Abort() {
	j.result.CompareAndSwap(int32(BuildSuccess), int32(BuildAborted))
}

func (j *TextureBuildJob) runIoJob() BuildResult {
	if len(j.inputs) == 0 {
		return BuildInvalidArgument
	}

	images := make([]textureImage, len(j.inputs))
	for i, path := range j.inputs {
		img, err := loadTextureImage(path)
		if err != nil {
			core.LogError("archive: %v", err)
			return BuildIoError
		}
		images[i] = img
	}

	for i := 1; i < len(images); i++ {
		if images[i].width != images[0].width || images[i].height != images[0].height {
			core.LogError("archive: texture layer %d dimensions do not match layer 0", i)
			return BuildInvalidInput
		}
	}

	format := j.desc.Format
	if format == gfx.FormatUnknown {
		format = pickFormat(images[0], j.desc.AllowCompression, j.desc.AllowBc7)
	}
	srgb := format == gfx.FormatR8G8B8A8srgb || format == gfx.FormatBc1srgb ||
		format == gfx.FormatBc3srgb || format == gfx.FormatBc7srgb

	chains := make([][]textureImage, len(images))

	mipJob := jobs.NewBatchJob(uint32(len(images)), 1, func(index uint32) {
		img := images[index]
		chain := []textureImage{img}
		if j.desc.EnableMips {
			cur := img
			for cur.width > 1 || cur.height > 1 {
				cur = generateMip(cur, srgb)
				chain = append(chain, cur)
			}
		}
		chains[index] = chain
	})
	j.env.Jobs.Dispatch(mipJob)
	j.env.Jobs.Wait(mipJob)

	j.mu.Lock()
	j.format = format
	j.mipChains = chains
	j.mu.Unlock()

	return BuildSuccess
}
