// Package indexing keeps the index consistent with the file system: changed and
// deleted files are removed from every context so the analyzer can re-index them.
package indexing

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/types"
	"github.com/standardbeagle/xref/pkg/pathutil"
)

// Invalidator is the part of the store the watcher drives.
type Invalidator interface {
	Contexts() []types.Context
	RemoveSource(ctx types.Context, source types.Source) error
}

// FileWatcher monitors a directory tree and invalidates changed sources
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	root      string
	exclude   *types.GlobContainer
	debouncer *eventDebouncer
	target    Invalidator
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once

	// Called after a batch of sources has been removed from the index
	onInvalidated func(paths []string)

	// Watch mode statistics
	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
	statsMu         sync.RWMutex
}

// WatchStats is a snapshot of watcher activity
type WatchStats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
}

// NewFileWatcher creates a watcher for root using the watch settings of cfg
func NewFileWatcher(cfg config.Watch, root string, target Invalidator) (*FileWatcher, error) {
	exclude, err := types.NewGlobContainer(cfg.Exclude...)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		watcher:   watcher,
		root:      root,
		exclude:   exclude,
		debouncer: newEventDebouncer(cfg.Debounce),
		target:    target,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// SetInvalidatedCallback sets the function told about every invalidated batch.
// Must be called before Start.
func (fw *FileWatcher) SetInvalidatedCallback(fn func(paths []string)) {
	fw.onInvalidated = fn
}

// Start begins watching the root directory
func (fw *FileWatcher) Start() error {
	debug.Log("WATCH", "Starting file watcher for directory: %s\n", fw.root)

	if err := fw.addWatches(fw.root); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", fw.root, err)
	}

	fw.wg.Add(1)
	go fw.processEvents()
	return nil
}

// Stop stops the watcher. Pending, not yet debounced events are dropped.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		fw.cancel()
		err = fw.watcher.Close()
		fw.wg.Wait()
		debug.Log("WATCH", "File watcher stopped\n")
	})
	return err
}

// Stats returns watch mode statistics
func (fw *FileWatcher) Stats() WatchStats {
	fw.statsMu.RLock()
	defer fw.statsMu.RUnlock()
	return WatchStats{
		EventsProcessed: fw.eventsProcessed,
		ErrorCount:      fw.errorCount,
		LastEventTime:   fw.lastEventTime,
	}
}

// addWatches recursively adds watches to all non-excluded directories
func (fw *FileWatcher) addWatches(root string) error {
	// Track visited directories to prevent infinite loops from symlink cycles
	visitedDirs := make(map[string]bool)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visitedDirs[realPath] {
			return filepath.SkipDir
		}
		visitedDirs[realPath] = true

		if path != root && fw.isExcluded(path) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

// isExcluded matches path, relative to root, against the exclude patterns
func (fw *FileWatcher) isExcluded(path string) bool {
	return fw.exclude.Contains(types.FileSource(pathutil.ToRelative(path, fw.root)))
}

// processEvents reads fsnotify events and flushes them once the tree is quiet
func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()
	defer fw.debouncer.stop()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case <-fw.debouncer.C():
			fw.invalidate(fw.debouncer.drain())

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.statsMu.Lock()
			fw.errorCount++
			fw.statsMu.Unlock()
			log.Printf("File watcher error: %v", err)
		}
	}
}

// handleEvent handles a single file system event
func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.Log("WATCH", "received event %v for path %s\n", event.Op, path)

	if fw.isExcluded(path) {
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		// new directories are watched; existing ones report their files individually
		if event.Op&fsnotify.Create != 0 {
			if err := fw.addWatches(path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			}
		}
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	fw.statsMu.Lock()
	fw.eventsProcessed++
	fw.lastEventTime = time.Now()
	fw.statsMu.Unlock()

	fw.debouncer.addEvent(path)
}

// invalidate removes the sources from every context of the target
func (fw *FileWatcher) invalidate(paths []string) {
	if len(paths) == 0 {
		return
	}
	debug.Log("WATCH", "invalidating %d sources\n", len(paths))

	contexts := fw.target.Contexts()
	for _, path := range paths {
		source := types.FileSource(path)
		for _, ctx := range contexts {
			if err := fw.target.RemoveSource(ctx, source); err != nil {
				debug.LogError("WATCH", err, "removing %s", path)
			}
		}
	}

	if fw.onInvalidated != nil {
		fw.onInvalidated(paths)
	}
}

// eventDebouncer collects paths until no event arrived for the debounce period.
// It is owned by the processEvents goroutine.
type eventDebouncer struct {
	pending  map[string]struct{}
	debounce time.Duration
	timer    *time.Timer
}

// newEventDebouncer creates a new event debouncer
func newEventDebouncer(debounce time.Duration) *eventDebouncer {
	return &eventDebouncer{
		pending:  make(map[string]struct{}),
		debounce: debounce,
	}
}

// addEvent records path and restarts the quiet period
func (d *eventDebouncer) addEvent(path string) {
	d.pending[path] = struct{}{}
	if d.timer == nil {
		d.timer = time.NewTimer(d.debounce)
		return
	}
	if !d.timer.Stop() {
		select {
		case <-d.timer.C:
		default:
		}
	}
	d.timer.Reset(d.debounce)
}

// C fires when the pending paths should be flushed. Nil (blocking) when idle.
func (d *eventDebouncer) C() <-chan time.Time {
	if d.timer == nil || len(d.pending) == 0 {
		return nil
	}
	return d.timer.C
}

// drain returns the pending paths in lexical order and resets the debouncer
func (d *eventDebouncer) drain() []string {
	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	d.pending = make(map[string]struct{})
	return paths
}

func (d *eventDebouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}
