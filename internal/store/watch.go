package store

import (
	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/indexing"
)

// Watch starts removing sources of s from every context as their files change
// under cfg.Root, so the analyzer can index them again. onInvalidated, if not
// nil, is told about every removed batch. Stop the watcher before closing s.
func (s *SplitIndexStore) Watch(cfg *config.Config, onInvalidated func(paths []string)) (*indexing.FileWatcher, error) {
	watcher, err := indexing.NewFileWatcher(cfg.Watch, cfg.Root, s)
	if err != nil {
		return nil, err
	}
	if onInvalidated != nil {
		watcher.SetInvalidatedCallback(onInvalidated)
	}
	if err := watcher.Start(); err != nil {
		watcher.Stop()
		return nil, err
	}
	debug.LogStore("watching %s\n", cfg.Root)
	return watcher, nil
}
