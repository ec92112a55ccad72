package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config file names, in lookup order
const (
	KDLFileName  = ".xref.kdl"
	TOMLFileName = ".xref.toml"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// DefaultStorageDir is resolved against Config.Root.
const DefaultStorageDir = ".xref/index"

type Config struct {
	// Root is the directory the configuration was loaded for. Relative paths
	// in the file are resolved against it.
	Root    string
	Storage Storage
	Cache   Cache
	Watch   Watch
}

type Storage struct {
	Backend    string // "file", "badger" or "memory"
	Dir        string // Directory holding node blobs (file) or the database (badger)
	SyncWrites bool   // fsync every badger write
}

type Cache struct {
	Enabled         bool
	Capacity        int           // Maximum cached nodes
	Expiry          time.Duration // Drop nodes not accessed for this long
	CleanupInterval time.Duration // Period of background eviction
}

type Watch struct {
	Enabled          bool
	Debounce         time.Duration // Quiet period before a changed file is invalidated
	Exclude          []string      // doublestar patterns, relative to Root
	RespectGitignore bool          // Add .gitignore entries of Root to Exclude
}

// Default returns the configuration used when no file is present.
func Default(root string) *Config {
	return &Config{
		Root: root,
		Storage: Storage{
			Backend: BackendFile,
			Dir:     filepath.Join(root, DefaultStorageDir),
		},
		Cache: Cache{
			Enabled:         true,
			Capacity:        64,
			Expiry:          5 * time.Second,
			CleanupInterval: time.Second,
		},
		Watch: Watch{
			Enabled:          false,
			Debounce:         100 * time.Millisecond,
			Exclude:          []string{"**/.git/**", "**/.xref/**"},
			RespectGitignore: true,
		},
	}
}

// Load reads .xref.kdl from dir, or .xref.toml when there is no KDL file, and
// falls back to Default. The result is validated.
func Load(dir string) (*Config, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		root = dir
	}

	cfg, err := LoadKDL(root)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if cfg, err = LoadTOML(root); err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		cfg = Default(root)
	}

	if cfg.Watch.Enabled && cfg.Watch.RespectGitignore {
		patterns, err := GitignorePatterns(root)
		if err != nil {
			return nil, err
		}
		cfg.Watch.Exclude = append(cfg.Watch.Exclude, patterns...)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve makes relative paths absolute against cfg.Root.
func (cfg *Config) resolve() {
	if cfg.Storage.Dir != "" && !filepath.IsAbs(cfg.Storage.Dir) {
		cfg.Storage.Dir = filepath.Clean(filepath.Join(cfg.Root, cfg.Storage.Dir))
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
