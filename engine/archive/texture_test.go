package archive

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/alseid-engine/anima/engine/gfx"
	"github.com/alseid-engine/anima/engine/jobs"
)

func TestPickFormatChannelHeuristics(t *testing.T) {
	cases := []struct {
		name             string
		pixels           []byte
		allowCompression bool
		allowBc7         bool
		want             gfx.PixelFormat
	}{
		{
			name:   "opaque color uncompressed",
			pixels: []byte{200, 120, 60, 255},
			want:   gfx.FormatR8G8B8A8srgb,
		},
		{
			name:             "opaque color compressed",
			pixels:           []byte{200, 120, 60, 255},
			allowCompression: true,
			want:             gfx.FormatBc1srgb,
		},
		{
			name:   "single channel uncompressed",
			pixels: []byte{128, 0, 0, 255},
			want:   gfx.FormatR8un,
		},
		{
			name:             "single channel compressed",
			pixels:           []byte{128, 0, 0, 255},
			allowCompression: true,
			want:             gfx.FormatBc4un,
		},
		{
			name:   "dual channel uncompressed",
			pixels: []byte{128, 64, 0, 255},
			want:   gfx.FormatR8G8un,
		},
		{
			name:   "alpha-tested uncompressed",
			pixels: []byte{200, 120, 60, 128},
			want:   gfx.FormatR8G8B8A8srgb,
		},
		{
			name:             "alpha-tested compressed no bc7",
			pixels:           []byte{200, 120, 60, 128},
			allowCompression: true,
			want:             gfx.FormatBc3srgb,
		},
		{
			name:             "alpha-tested compressed with bc7",
			pixels:           []byte{200, 120, 60, 128},
			allowCompression: true,
			allowBc7:         true,
			want:             gfx.FormatBc7srgb,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			img := textureImage{width: 1, height: 1, pixels: tc.pixels}
			if got := pickFormat(img, tc.allowCompression, tc.allowBc7); got != tc.want {
				t.Fatalf("pickFormat() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGenerateMipAveragesSrgbInLinearLight(t *testing.T) {
	// A 2x2 checkerboard of full white and full black: the sRGB-aware
	// average should be brighter than a naive byte average because
	// linear light sits below the sRGB curve for mid-range values.
	img := textureImage{
		width: 2, height: 2,
		pixels: []byte{
			255, 255, 255, 255, 0, 0, 0, 255,
			0, 0, 0, 255, 255, 255, 255, 255,
		},
	}

	mip := generateMip(img, true)
	if mip.width != 1 || mip.height != 1 {
		t.Fatalf("expected a 1x1 mip, got %dx%d", mip.width, mip.height)
	}

	naiveAverage := byte(127)
	if mip.pixels[0] <= naiveAverage {
		t.Fatalf("expected sRGB-aware average (%d) to exceed naive average (%d)", mip.pixels[0], naiveAverage)
	}
	if mip.pixels[3] != 255 {
		t.Fatalf("expected alpha to stay fully opaque, got %d", mip.pixels[3])
	}
}

func writeTestPNG(t *testing.T, path string, w, h int, fill color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
}

func TestTextureBuildJobGeneratesMipChainAndSubFiles(t *testing.T) {
	mgr := jobs.NewManager(2)
	defer mgr.Shutdown()
	env := Environment{Jobs: mgr}

	dir := t.TempDir()
	path := filepath.Join(dir, "albedo.png")
	writeTestPNG(t, path, 4, 4, color.RGBA{R: 180, G: 90, B: 45, A: 255})

	job := NewTextureBuildJob(env, TextureDesc{Name: "albedo", EnableMips: true}, []string{path})
	job.DispatchJobs()

	status, file := job.GetFileInfo()
	if status != BuildSuccess {
		t.Fatalf("texture build failed: %v", status)
	}
	if file.Type != FourCCTexture || file.Name != "albedo" {
		t.Fatalf("unexpected file header: %+v", file)
	}

	// A 4x4 source mips down to 2x2 then 1x1: three levels total.
	if len(file.SubFiles) != 3 {
		t.Fatalf("expected 3 mip sub-files, got %d", len(file.SubFiles))
	}
	for i, sub := range file.SubFiles {
		if sub.Identifier != textureSubFileID(i) {
			t.Fatalf("sub-file %d has identifier %v, want %v", i, sub.Identifier, textureSubFileID(i))
		}
		if sub.Compression != CompressionGDeflate {
			t.Fatalf("sub-file %d not GDeflate-compressed", i)
		}
		if _, err := Decompress(sub); err != nil {
			t.Fatalf("sub-file %d failed to decompress: %v", i, err)
		}
	}
}

func TestTextureBuildJobRejectsMismatchedLayerDimensions(t *testing.T) {
	mgr := jobs.NewManager(2)
	defer mgr.Shutdown()
	env := Environment{Jobs: mgr}

	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeTestPNG(t, a, 4, 4, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	writeTestPNG(t, b, 8, 8, color.RGBA{R: 10, G: 10, B: 10, A: 255})

	job := NewTextureBuildJob(env, TextureDesc{Name: "layers", EnableLayers: true}, []string{a, b})
	job.DispatchJobs()

	status, _ := job.GetFileInfo()
	if status != BuildInvalidInput {
		t.Fatalf("expected BuildInvalidInput for mismatched layers, got %v", status)
	}
}
