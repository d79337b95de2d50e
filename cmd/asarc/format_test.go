package main

import (
	"testing"

	"github.com/alseid-engine/anima/engine/gfx"
)

func TestParseTextureFormatKnownNames(t *testing.T) {
	cases := map[string]gfx.PixelFormat{
		"R8un":         gfx.FormatR8un,
		"r8g8un":       gfx.FormatR8G8un,
		"Bc1srgb":      gfx.FormatBc1srgb,
		"BC3SRGB":      gfx.FormatBc3srgb,
		"bc4un":        gfx.FormatBc4un,
		"Bc5un":        gfx.FormatBc5un,
		"bc7srgb":      gfx.FormatBc7srgb,
		"R8G8B8A8srgb": gfx.FormatR8G8B8A8srgb,
	}

	for name, want := range cases {
		if got := parseTextureFormat(name); got != want {
			t.Errorf("parseTextureFormat(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseTextureFormatUnknownFallsBackToAuto(t *testing.T) {
	if got := parseTextureFormat(""); got != gfx.FormatUnknown {
		t.Fatalf("expected FormatUnknown for empty name, got %v", got)
	}
	if got := parseTextureFormat("not-a-format"); got != gfx.FormatUnknown {
		t.Fatalf("expected FormatUnknown for bogus name, got %v", got)
	}
}
