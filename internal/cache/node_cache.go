// Package cache provides a bounded, time-expiring NodeManager decorator.
package cache

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/xref/internal/codec"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/index"
	"github.com/standardbeagle/xref/internal/metrics"
	"github.com/standardbeagle/xref/internal/types"
)

// Cache configuration defaults
const (
	DefaultCapacity        = 64
	DefaultExpiry          = 5 * time.Second
	DefaultCleanupInterval = 1 * time.Second
)

// Options configures a CachingNodeManager.
type Options struct {
	// Capacity bounds the number of cached nodes.
	Capacity int

	// Expiry drops nodes not accessed for this long.
	Expiry time.Duration

	// CleanupInterval is the period of the background eviction task.
	// Zero disables the task; expired nodes are then dropped on access only.
	CleanupInterval time.Duration

	// Metrics receives cache activity. Nil uses metrics.Default().
	Metrics *metrics.Metrics

	now func() time.Time
}

// DefaultOptions returns default configuration
func DefaultOptions() Options {
	return Options{
		Capacity:        DefaultCapacity,
		Expiry:          DefaultExpiry,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// Option configures Options.
type Option func(*Options)

// WithCapacity sets the maximum number of cached nodes.
func WithCapacity(n int) Option {
	return func(o *Options) { o.Capacity = n }
}

// WithExpiry sets the access expiry.
func WithExpiry(d time.Duration) Option {
	return func(o *Options) { o.Expiry = d }
}

// WithCleanupInterval sets the period of background eviction.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *Options) { o.CleanupInterval = d }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

type cacheEntry struct {
	name       string
	node       *index.IndexNode
	lastAccess time.Time
}

// CachingNodeManager keeps recently used nodes of another NodeManager in memory.
//
// Writes go to the delegate first and then to the cache; the delegate stays
// authoritative. Safe for concurrent use.
type CachingNodeManager struct {
	delegate index.NodeManager
	options  Options
	metrics  *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front is most recently used

	// bumped by every mutation so that a slow delegate read cannot
	// resurrect a node that was replaced or removed meanwhile
	generation uint64

	flight singleflight.Group

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewCachingNodeManager wraps delegate and starts the background eviction task.
// Close stops the task.
func NewCachingNodeManager(delegate index.NodeManager, opts ...Option) *CachingNodeManager {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Capacity <= 0 {
		options.Capacity = DefaultCapacity
	}
	if options.now == nil {
		options.now = time.Now
	}

	m := &CachingNodeManager{
		delegate: delegate,
		options:  options,
		metrics:  metrics.Or(options.Metrics),
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if options.CleanupInterval > 0 {
		go m.cleanupLoop(options.CleanupInterval)
	} else {
		close(m.done)
	}
	return m
}

// Delegate returns the wrapped manager.
func (m *CachingNodeManager) Delegate() index.NodeManager {
	return m.delegate
}

// Codecs implements index.NodeManager.
func (m *CachingNodeManager) Codecs() *codec.Set {
	return m.delegate.Codecs()
}

// LocationCount implements index.NodeManager.
func (m *CachingNodeManager) LocationCount() int {
	return m.delegate.LocationCount()
}

// NewNode implements index.NodeManager.
func (m *CachingNodeManager) NewNode(ctx types.Context) *index.IndexNode {
	return m.delegate.NewNode(ctx)
}

// GetNode implements index.NodeManager.
func (m *CachingNodeManager) GetNode(name string) *index.IndexNode {
	m.mu.Lock()
	if node := m.lookupLocked(name); node != nil {
		m.mu.Unlock()
		m.metrics.CacheRequests.WithLabelValues(metrics.ResultHit).Inc()
		return node
	}
	generation := m.generation
	m.mu.Unlock()
	m.metrics.CacheRequests.WithLabelValues(metrics.ResultMiss).Inc()

	// concurrent misses for one name share a single delegate read
	v, _, _ := m.flight.Do(name, func() (interface{}, error) {
		node := m.delegate.GetNode(name)
		if node != nil {
			m.mu.Lock()
			if m.generation == generation {
				m.insertLocked(name, node)
			}
			m.mu.Unlock()
		}
		return node, nil
	})
	node, _ := v.(*index.IndexNode)
	return node
}

// PutNode implements index.NodeManager.
func (m *CachingNodeManager) PutNode(name string, node *index.IndexNode) error {
	err := m.delegate.PutNode(name, node)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	if err != nil {
		m.removeLocked(name)
		return err
	}
	m.insertLocked(name, node)
	return nil
}

// RemoveNode implements index.NodeManager. The cached node is dropped after
// the delegate delete, so a read racing the delete cannot re-cache it.
func (m *CachingNodeManager) RemoveNode(name string) error {
	err := m.delegate.RemoveNode(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.removeLocked(name)
	return err
}

// Clear implements index.NodeManager.
func (m *CachingNodeManager) Clear() error {
	err := m.delegate.Clear()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.entries = make(map[string]*list.Element)
	m.lru.Init()
	m.metrics.CacheEntries.Set(0)
	return err
}

// Close stops background eviction and closes the delegate.
func (m *CachingNodeManager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
	return m.delegate.Close()
}

// Len returns the number of cached nodes.
func (m *CachingNodeManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// EvictExpired drops every node whose last access is older than the expiry.
// It returns the number of dropped nodes.
func (m *CachingNodeManager) EvictExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.options.now()
	evicted := 0
	for e := m.lru.Back(); e != nil; {
		entry := e.Value.(*cacheEntry)
		if !m.expired(entry, now) {
			// older entries are at the back; the rest are fresher
			break
		}
		prev := e.Prev()
		m.lru.Remove(e)
		delete(m.entries, entry.name)
		evicted++
		e = prev
	}
	if evicted > 0 {
		m.metrics.CacheEvictions.WithLabelValues(metrics.ReasonExpired).Add(float64(evicted))
		m.metrics.CacheEntries.Set(float64(m.lru.Len()))
		debug.LogCache("evicted %d expired nodes, %d cached\n", evicted, m.lru.Len())
	}
	return evicted
}

func (m *CachingNodeManager) cleanupLoop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.EvictExpired()
		}
	}
}

func (m *CachingNodeManager) expired(entry *cacheEntry, now time.Time) bool {
	return m.options.Expiry > 0 && now.Sub(entry.lastAccess) >= m.options.Expiry
}

// lookupLocked returns the cached node and refreshes its access time.
func (m *CachingNodeManager) lookupLocked(name string) *index.IndexNode {
	e, ok := m.entries[name]
	if !ok {
		return nil
	}
	entry := e.Value.(*cacheEntry)
	now := m.options.now()
	if m.expired(entry, now) {
		m.lru.Remove(e)
		delete(m.entries, name)
		m.metrics.CacheEvictions.WithLabelValues(metrics.ReasonExpired).Inc()
		m.metrics.CacheEntries.Set(float64(m.lru.Len()))
		return nil
	}
	entry.lastAccess = now
	m.lru.MoveToFront(e)
	return entry.node
}

func (m *CachingNodeManager) insertLocked(name string, node *index.IndexNode) {
	now := m.options.now()
	if e, ok := m.entries[name]; ok {
		entry := e.Value.(*cacheEntry)
		entry.node = node
		entry.lastAccess = now
		m.lru.MoveToFront(e)
		return
	}
	m.entries[name] = m.lru.PushFront(&cacheEntry{name: name, node: node, lastAccess: now})
	for m.lru.Len() > m.options.Capacity {
		oldest := m.lru.Back()
		m.lru.Remove(oldest)
		delete(m.entries, oldest.Value.(*cacheEntry).name)
		m.metrics.CacheEvictions.WithLabelValues(metrics.ReasonCapacity).Inc()
	}
	m.metrics.CacheEntries.Set(float64(m.lru.Len()))
}

func (m *CachingNodeManager) removeLocked(name string) {
	if e, ok := m.entries[name]; ok {
		m.lru.Remove(e)
		delete(m.entries, name)
		m.metrics.CacheEntries.Set(float64(m.lru.Len()))
	}
}
