package store

import (
	"errors"
	"fmt"

	"github.com/standardbeagle/xref/internal/cache"
	"github.com/standardbeagle/xref/internal/codec"
	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/debug"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/index"
	"github.com/standardbeagle/xref/internal/metrics"
	"github.com/standardbeagle/xref/internal/storage"
)

// OpenFiles opens the blob storage of cfg. The memory backend has none and
// returns nil.
func OpenFiles(cfg config.Storage) (storage.FileManager, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return storage.NewSeparateFileManager(cfg.Dir)
	case config.BackendBadger:
		return storage.OpenBadgerFileManager(storage.BadgerConfig{
			Path:       cfg.Dir,
			SyncWrites: cfg.SyncWrites,
		})
	case config.BackendMemory:
		return nil, nil
	default:
		return nil, xerrors.NewConfigError("storage", cfg.Backend, errors.New("unknown backend"))
	}
}

// Open assembles a store from cfg: the configured storage backend, wrapped in
// the node cache when enabled. Node ids are only valid within one process, so
// nodes left in storage by an earlier run are cleared. A nil m uses
// metrics.Default().
func Open(cfg *config.Config, m *metrics.Metrics) (*SplitIndexStore, error) {
	m = metrics.Or(m)

	files, err := OpenFiles(cfg.Storage)
	if err != nil {
		return nil, err
	}

	var nodes index.NodeManager
	if files == nil {
		nodes = index.NewMemoryNodeManager()
	} else {
		nodes = storage.NewFileNodeManager(files, codec.NewSet(), m)
	}
	if err := nodes.Clear(); err != nil {
		nodes.Close()
		return nil, fmt.Errorf("failed to clear stale nodes in %s: %w", cfg.Storage.Dir, err)
	}

	if cfg.Cache.Enabled {
		nodes = cache.NewCachingNodeManager(nodes,
			cache.WithCapacity(cfg.Cache.Capacity),
			cache.WithExpiry(cfg.Cache.Expiry),
			cache.WithCleanupInterval(cfg.Cache.CleanupInterval),
			cache.WithMetrics(m),
		)
	}

	debug.LogStore("opened %s store (cache enabled: %v)\n", cfg.Storage.Backend, cfg.Cache.Enabled)
	return NewSplitIndexStore(nodes, m), nil
}
