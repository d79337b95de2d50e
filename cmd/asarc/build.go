package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/alseid-engine/anima/engine/archive"
	"github.com/alseid-engine/anima/engine/core"
)

// jsonTextureArgs mirrors one entry of a -j manifest's "textures"
// array. Field names follow the reference tool's JSON grammar
// (tools/asarc/main.cpp's TextureArgs/from_json) rather than Go
// naming conventions, since this is a wire format other tooling may
// already produce.
type jsonTextureArgs struct {
	Name             string   `json:"name"`
	Format           string   `json:"format"`
	Mips             bool     `json:"mips"`
	Cube             bool     `json:"cube"`
	Array            bool     `json:"array"`
	AllowCompression bool     `json:"allowCompression"`
	AllowBc7         bool     `json:"allowBc7"`
	Inputs           []string `json:"inputs"`
}

type jsonShaderArgs struct {
	Inputs []string `json:"inputs"`
}

type jsonArchiveArgs struct {
	Textures []jsonTextureArgs `json:"textures"`
	Shaders  []jsonShaderArgs  `json:"shaders"`
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// logJobDispatch emits a structured log line carrying a fresh
// correlation ID for one build job, so the worker-pool-interleaved
// output from a large -j manifest can still be traced per job.
func logJobDispatch(kind, name string) string {
	id := uuid.New().String()
	core.LogInfo("asarc: dispatching %s job %q [%s]", kind, name, id)
	return id
}

func buildTexture(builder *archive.ArchiveBuilder, desc archive.TextureDesc, paths []string) {
	logJobDispatch("texture", desc.Name)
	builder.AddBuildJob(archive.NewTextureBuildJob(archiveEnv, desc, paths))
}

func buildTextures(args *consoleArgs, builder *archive.ArchiveBuilder, desc archive.TextureDesc) bool {
	paths := args.inputList()
	if len(paths) == 0 {
		return false
	}

	if desc.Name == "" {
		desc.Name = stem(paths[0])
	}

	if desc.EnableLayers {
		buildTexture(builder, desc, paths)
	} else {
		for _, path := range paths {
			buildTexture(builder, desc, []string{path})
		}
	}

	return true
}

func buildShader(builder *archive.ArchiveBuilder, path string) {
	logJobDispatch("shader", stem(path))
	builder.AddBuildJob(archive.NewShaderBuildJob(archiveEnv, path, nil))
}

func buildShaders(args *consoleArgs, builder *archive.ArchiveBuilder) bool {
	for _, path := range args.inputList() {
		buildShader(builder, path)
	}
	return true
}

func buildMerge(builder *archive.ArchiveBuilder, path string) bool {
	src, err := archive.Open(path)
	if err != nil {
		core.LogError("asarc: failed to open archive %s: %s", path, err)
		return false
	}

	for i := range src.Files {
		logJobDispatch("merge", src.Files[i].Name)
		builder.AddBuildJob(archive.NewMergeBuildJob(archiveEnv, src, i))
	}
	return true
}

func buildMerges(args *consoleArgs, builder *archive.ArchiveBuilder) bool {
	for _, path := range args.inputList() {
		if !buildMerge(builder, path) {
			return false
		}
	}
	return true
}

func applyJSONManifest(builder *archive.ArchiveBuilder, data []byte) bool {
	var manifest jsonArchiveArgs
	if err := json.Unmarshal(data, &manifest); err != nil {
		core.LogError("asarc: failed to parse JSON manifest: %s", err)
		return false
	}

	for _, tex := range manifest.Textures {
		desc := archive.TextureDesc{
			Name:             tex.Name,
			Format:           parseTextureFormat(tex.Format),
			EnableMips:       tex.Mips,
			EnableCube:       tex.Cube,
			EnableLayers:     tex.Array || tex.Cube,
			AllowCompression: tex.AllowCompression,
			AllowBc7:         tex.AllowBc7,
		}
		if desc.Name == "" && len(tex.Inputs) > 0 {
			desc.Name = stem(tex.Inputs[0])
		}

		if desc.EnableLayers {
			buildTexture(builder, desc, tex.Inputs)
		} else {
			for _, input := range tex.Inputs {
				buildTexture(builder, desc, []string{input})
			}
		}
	}

	for _, shader := range manifest.Shaders {
		for _, input := range shader.Inputs {
			buildShader(builder, input)
		}
	}

	return true
}

func buildJSON(args *consoleArgs, builder *archive.ArchiveBuilder) bool {
	for _, path := range args.inputList() {
		data, err := os.ReadFile(path)
		if err != nil {
			core.LogError("asarc: failed to read manifest %s: %s", path, err)
			return false
		}
		if !applyJSONManifest(builder, data) {
			return false
		}
	}
	return true
}

// executeBuild parses the operations following "-o OUT" and drives
// the archive builder to completion, returning the process exit code.
func executeBuild(args *consoleArgs) int {
	if !args.has(1) {
		fmt.Fprintln(os.Stderr, "Output file not specified")
		return 1
	}

	outputPath := args.next()
	builder := archive.NewArchiveBuilder()

	textureDesc := archive.TextureDesc{
		EnableMips:       engineConfig.Texture.GenerateMips,
		AllowCompression: engineConfig.Texture.EnableCompress,
		AllowBc7:         engineConfig.Texture.AllowBC7,
	}

	for args.has(1) {
		arg := args.next()
		status := true

		switch arg {
		case "-j":
			status = buildJSON(args, builder)
		case "-a":
			status = buildMerges(args, builder)
		case "-s":
			status = buildShaders(args, builder)
		case "-t":
			status = buildTextures(args, builder, textureDesc)
			textureDesc.Name = ""
		case "-t-allow-bc7":
			textureDesc.AllowBc7 = args.next() == "on"
		case "-t-mips":
			textureDesc.EnableMips = args.next() == "on"
		case "-t-cube":
			on := args.next() == "on"
			textureDesc.EnableCube = on
			textureDesc.EnableLayers = on
		case "-t-layers":
			on := args.next() == "on"
			textureDesc.EnableLayers = on
			textureDesc.EnableCube = false
		case "-t-format":
			textureDesc.Format = parseTextureFormat(args.next())
		case "-t-compression":
			textureDesc.AllowCompression = args.next() == "on"
		default:
			fmt.Fprintf(os.Stderr, "Unknown argument: %s\n", arg)
			status = false
		}

		if !status {
			return 1
		}
	}

	result := builder.Build(outputPath)
	if result.Failed() {
		fmt.Fprintf(os.Stderr, "Failed to build archive: %s\n", result)
		return 1
	}

	printBuildSummary(outputPath)
	return 0
}
