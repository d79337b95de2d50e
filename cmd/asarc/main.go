// Command asarc builds ".asarc" archive containers out of textures,
// shaders, geometry and merged sub-archives, per the engine's archive
// container format. See printHelp for the flag grammar.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/alseid-engine/anima/engine/archive"
	"github.com/alseid-engine/anima/engine/core"
	"github.com/alseid-engine/anima/engine/jobs"
)

var (
	archiveEnv   archive.Environment
	engineConfig *core.EngineConfig
)

func printHelp() {
	fmt.Fprintln(os.Stderr, `usage: asarc -o OUT <operations...>
       asarc -o OUT -j MANIFEST.json --watch
       asarc -h | --help

operations (repeatable, processed in order):
  -a FILE...              merge sub-files from existing archives
  -s FILE...              add raw SPIR-V shaders
  -t FILE...              add a texture (one file per layer if -t-layers is on)
  -j FILE.json            add textures/shaders described by a JSON manifest

sticky texture modifiers (apply to every following -t until changed):
  -t-mips on|off
  -t-cube on|off
  -t-layers on|off
  -t-format NAME          one of R8un R8G8un R8G8B8A8srgb Bc1srgb Bc3srgb Bc4un Bc5un Bc7srgb
  -t-compression on|off
  -t-allow-bc7 on|off

exit status: 0 on success, 1 on any build or argument error.`)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cfg, err := core.LoadEngineConfig("asarc.toml")
	if err != nil {
		core.LogWarn("asarc: failed to load asarc.toml, using defaults: %s", err)
		cfg = core.DefaultEngineConfig()
	}
	engineConfig = cfg

	workerCount := engineConfig.Jobs.WorkerCount
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	jobManager := jobs.NewManager(workerCount)
	defer jobManager.Shutdown()
	archiveEnv = archive.Environment{Jobs: jobManager}

	args := newConsoleArgs(argv)

	if !args.has(1) {
		printHelp()
		return 1
	}

	switch mode := args.next(); mode {
	case "-h", "--help":
		printHelp()
		return 0
	case "-o":
		return dispatchBuild(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", mode)
		return 1
	}
}

// dispatchBuild peeks for a trailing "-j MANIFEST --watch" shape
// before falling back to the one-shot build grammar, since --watch
// only makes sense for the JSON-driven path.
func dispatchBuild(args *consoleArgs) int {
	if !args.has(1) {
		fmt.Fprintln(os.Stderr, "Output file not specified")
		return 1
	}

	outputPath := args.peek()
	rest := args.argv[args.pos:]

	if len(rest) == 4 && rest[1] == "-j" && rest[3] == "--watch" {
		return watchJSON(outputPath, rest[2])
	}

	return executeBuild(args)
}
