package config

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	xerrors "github.com/standardbeagle/xref/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
// Returns an error if validation fails
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateStorageConfig(&cfg.Storage); err != nil {
		return xerrors.NewConfigError("storage", cfg.Storage.Backend, err)
	}

	if err := v.validateCacheConfig(&cfg.Cache); err != nil {
		return xerrors.NewConfigError("cache", "", err)
	}

	if err := v.validateWatchConfig(&cfg.Watch); err != nil {
		return xerrors.NewConfigError("watch", "", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateStorageConfig(storage *Storage) error {
	switch storage.Backend {
	case BackendFile, BackendBadger:
		if storage.Dir == "" {
			return fmt.Errorf("%s backend requires a directory", storage.Backend)
		}
	case BackendMemory, "":
	default:
		return fmt.Errorf("unknown backend %q", storage.Backend)
	}
	return nil
}

func (v *Validator) validateCacheConfig(cache *Cache) error {
	if cache.Capacity < 0 {
		return fmt.Errorf("Capacity cannot be negative, got %d", cache.Capacity)
	}
	if cache.Expiry < 0 {
		return fmt.Errorf("Expiry cannot be negative, got %s", cache.Expiry)
	}
	if cache.CleanupInterval < 0 {
		return fmt.Errorf("CleanupInterval cannot be negative, got %s", cache.CleanupInterval)
	}
	return nil
}

func (v *Validator) validateWatchConfig(watch *Watch) error {
	if watch.Debounce < 0 {
		return fmt.Errorf("Debounce cannot be negative, got %s", watch.Debounce)
	}
	for _, pattern := range watch.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.New("invalid exclude pattern " + pattern)
		}
	}
	return nil
}

// setSmartDefaults fills zero values with defaults
func (v *Validator) setSmartDefaults(cfg *Config) {
	defaults := Default(cfg.Root)

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = defaults.Cache.Capacity
	}
	if cfg.Cache.Expiry == 0 {
		cfg.Cache.Expiry = defaults.Cache.Expiry
	}
	if cfg.Cache.CleanupInterval == 0 {
		cfg.Cache.CleanupInterval = defaults.Cache.CleanupInterval
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
