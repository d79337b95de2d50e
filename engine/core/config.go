package core

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

/**
 * @brief Tunables for the job scheduler, scratch allocator and
 * archive builder, loaded from a TOML configuration file.
 */
type EngineConfig struct {
	Jobs struct {
		// WorkerCount is the number of worker threads for the job
		// scheduler. Zero means "use hardware concurrency".
		WorkerCount int `toml:"worker_count"`
	} `toml:"jobs"`

	Scratch struct {
		PageSizeBytes   uint64 `toml:"page_size_bytes"`
		PagesPerBuffer  uint32 `toml:"pages_per_buffer"`
	} `toml:"scratch"`

	Texture struct {
		GenerateMips    bool `toml:"generate_mips"`
		AllowBC7        bool `toml:"allow_bc7"`
		EnableCompress  bool `toml:"enable_compress"`
	} `toml:"texture"`
}

func DefaultEngineConfig() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.Jobs.WorkerCount = 0
	cfg.Scratch.PageSizeBytes = 1 << 20
	cfg.Scratch.PagesPerBuffer = 64
	cfg.Texture.GenerateMips = true
	cfg.Texture.AllowBC7 = true
	cfg.Texture.EnableCompress = true
	return cfg
}

// LoadEngineConfig reads a TOML configuration file. Missing files are
// not an error; the defaults are returned unchanged.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
