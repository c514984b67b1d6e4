// Package config loads a stratum server's on-disk configuration document.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full set of options accepted by the server binary. Engine
// holds the storage engine's own knobs (§6 of the external interface); the
// other fields govern the surrounding network layer and its background
// compaction schedule.
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Server ServerConfig `toml:"server"`
}

// EngineConfig mirrors engine.Config's fields one-to-one on the wire.
type EngineConfig struct {
	DataDir          string `toml:"data_dir"`
	SparseStride     int    `toml:"sparse_stride"`
	MemtableCapacity int64  `toml:"memtable_capacity"`
	CreateIfMissing  bool   `toml:"create_if_missing"`
}

// ServerConfig governs the TCP listener and background compaction.
type ServerConfig struct {
	ListenAddr         string `toml:"listen_addr"`
	CompactionInterval string `toml:"compaction_interval"` // e.g. "10m"; empty disables the background ticker
}

// Default returns the configuration a fresh install starts from.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			DataDir:          "./data",
			SparseStride:     16,
			MemtableCapacity: 4 << 20,
			CreateIfMissing:  true,
		},
		Server: ServerConfig{
			ListenAddr:         "127.0.0.1:7070",
			CompactionInterval: "",
		},
	}
}

// Load reads and parses a TOML configuration file, filling in defaults for
// any key the file does not set. A key the file sets explicitly, even to its
// zero value, overrides the default.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
