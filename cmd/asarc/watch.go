package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/alseid-engine/anima/engine/archive"
	"github.com/alseid-engine/anima/engine/core"
)

// watchJSON re-runs a -j build every time manifestPath or any file in
// its directory changes, until interrupted. It exists alongside
// executeBuild's one-shot -j mode for iterative content authoring,
// where a full build system round trip per texture edit is too slow.
func watchJSON(outputPath, manifestPath string) int {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError("asarc: failed to start watcher: %s", err)
		return 1
	}
	defer watcher.Close()

	dir := filepath.Dir(manifestPath)
	if err := watcher.Add(dir); err != nil {
		core.LogError("asarc: failed to watch %s: %s", dir, err)
		return 1
	}

	runOnce := func() {
		builder := archive.NewArchiveBuilder()
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			core.LogError("asarc: failed to read manifest %s: %s", manifestPath, err)
			return
		}
		if !applyJSONManifest(builder, data) {
			return
		}
		result := builder.Build(outputPath)
		if result.Failed() {
			core.LogError("asarc: watch build failed: %s", result)
			return
		}
		printBuildSummary(outputPath)
	}

	runOnce()
	fmt.Fprintf(os.Stderr, "asarc: watching %s, press Ctrl+C to stop\n", dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return 0
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			core.LogInfo("asarc: %s changed, rebuilding", event.Name)
			runOnce()
		case err, ok := <-watcher.Errors:
			if !ok {
				return 0
			}
			core.LogError("asarc: watcher error: %s", err)
		}
	}
}
