package main

import (
	"encoding/json"
	"testing"
)

func TestStem(t *testing.T) {
	cases := map[string]string{
		"rock.png":              "rock",
		"textures/rock.png":     "rock",
		"/abs/path/rock.tar.gz": "rock.tar",
		"noext":                 "noext",
	}
	for input, want := range cases {
		if got := stem(input); got != want {
			t.Errorf("stem(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestJSONManifestFieldMapping(t *testing.T) {
	raw := []byte(`{
		"textures": [
			{"name": "rock", "format": "Bc7srgb", "mips": true, "allowBc7": true, "inputs": ["rock.png"]},
			{"cube": true, "inputs": ["px.png", "nx.png"]}
		],
		"shaders": [
			{"inputs": ["basic.vert.spv", "basic.frag.spv"]}
		]
	}`)

	var manifest jsonArchiveArgs
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(manifest.Textures) != 2 {
		t.Fatalf("expected 2 texture entries, got %d", len(manifest.Textures))
	}
	if manifest.Textures[0].Name != "rock" || !manifest.Textures[0].Mips || !manifest.Textures[0].AllowBc7 {
		t.Fatalf("unexpected first texture entry: %+v", manifest.Textures[0])
	}
	if !manifest.Textures[1].Cube || len(manifest.Textures[1].Inputs) != 2 {
		t.Fatalf("unexpected second texture entry: %+v", manifest.Textures[1])
	}

	if len(manifest.Shaders) != 1 || len(manifest.Shaders[0].Inputs) != 2 {
		t.Fatalf("unexpected shader entries: %+v", manifest.Shaders)
	}
}
