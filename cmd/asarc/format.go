package main

import (
	"strings"

	"github.com/alseid-engine/anima/engine/gfx"
)

// parseTextureFormat maps a -t-format argument to a gfx.PixelFormat,
// matching the names gfx.PixelFormat.String() produces so a config
// file and the CLI round-trip the same vocabulary. An empty or
// unrecognized name means "auto-select" (gfx.FormatUnknown), which is
// what the texture build job treats as "pick a format from content".
func parseTextureFormat(name string) gfx.PixelFormat {
	switch strings.ToLower(name) {
	case "r8un":
		return gfx.FormatR8un
	case "r8g8un":
		return gfx.FormatR8G8un
	case "r8g8b8a8srgb":
		return gfx.FormatR8G8B8A8srgb
	case "bc1srgb":
		return gfx.FormatBc1srgb
	case "bc3srgb":
		return gfx.FormatBc3srgb
	case "bc4un":
		return gfx.FormatBc4un
	case "bc5un":
		return gfx.FormatBc5un
	case "bc7srgb":
		return gfx.FormatBc7srgb
	default:
		return gfx.FormatUnknown
	}
}
