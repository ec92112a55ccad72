package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors Config with optional fields, so that absent keys keep
// their defaults.
type tomlConfig struct {
	Storage struct {
		Backend    *string `toml:"backend"`
		Dir        *string `toml:"dir"`
		SyncWrites *bool   `toml:"sync_writes"`
	} `toml:"storage"`
	Cache struct {
		Enabled         *bool   `toml:"enabled"`
		Capacity        *int    `toml:"capacity"`
		Expiry          *string `toml:"expiry"`
		CleanupInterval *string `toml:"cleanup_interval"`
	} `toml:"cache"`
	Watch struct {
		Enabled          *bool    `toml:"enabled"`
		Debounce         *string  `toml:"debounce"`
		Exclude          []string `toml:"exclude"`
		RespectGitignore *bool    `toml:"respect_gitignore"`
	} `toml:"watch"`
}

// LoadTOML loads configuration from the .xref.toml file in root.
// Returns nil, nil when there is no such file.
func LoadTOML(root string) (*Config, error) {
	path := filepath.Join(root, TOMLFileName)
	if !fileExists(path) {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TOMLFileName, err)
	}

	cfg, err := parseTOML(root, content)
	if err != nil {
		return nil, err
	}
	cfg.resolve()
	return cfg, nil
}

func parseTOML(root string, content []byte) (*Config, error) {
	var file tomlConfig
	if err := toml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := Default(root)
	cfg.Storage.Dir = DefaultStorageDir

	setString(&cfg.Storage.Backend, file.Storage.Backend)
	setString(&cfg.Storage.Dir, file.Storage.Dir)
	setBool(&cfg.Storage.SyncWrites, file.Storage.SyncWrites)

	setBool(&cfg.Cache.Enabled, file.Cache.Enabled)
	if file.Cache.Capacity != nil {
		cfg.Cache.Capacity = *file.Cache.Capacity
	}
	if err := setDuration(&cfg.Cache.Expiry, "cache.expiry", file.Cache.Expiry); err != nil {
		return nil, err
	}
	if err := setDuration(&cfg.Cache.CleanupInterval, "cache.cleanup_interval", file.Cache.CleanupInterval); err != nil {
		return nil, err
	}

	setBool(&cfg.Watch.Enabled, file.Watch.Enabled)
	if err := setDuration(&cfg.Watch.Debounce, "watch.debounce", file.Watch.Debounce); err != nil {
		return nil, err
	}
	if file.Watch.Exclude != nil {
		cfg.Watch.Exclude = file.Watch.Exclude
	}
	setBool(&cfg.Watch.RespectGitignore, file.Watch.RespectGitignore)

	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, key string, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*dst = d
	return nil
}
