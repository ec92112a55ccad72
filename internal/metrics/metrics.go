// Package metrics exposes Prometheus instrumentation for the node cache, node
// storage and indexing transactions.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "xref"

// Label values
const (
	ResultHit             = "hit"
	ResultMiss            = "miss"
	ResultOK              = "ok"
	ResultError           = "error"
	ResultNotFound        = "not_found"
	ResultVersionMismatch = "version_mismatch"
	ResultCorrupt         = "corrupt"
	ResultRejected        = "rejected"

	OpRead   = "read"
	OpWrite  = "write"
	OpRemove = "remove"
	OpClear  = "clear"

	ReasonCapacity = "capacity"
	ReasonExpired  = "expired"

	KindDart = "dart"
	KindHTML = "html"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	// CacheRequests counts node cache lookups. Labels: result (hit, miss)
	CacheRequests *prometheus.CounterVec

	// CacheEvictions counts nodes dropped from the cache. Labels: reason (capacity, expired)
	CacheEvictions *prometheus.CounterVec

	// CacheEntries is the number of nodes currently cached.
	CacheEntries prometheus.Gauge

	// StorageOperations counts node reads/writes/removals.
	// Labels: op (read, write, remove, clear), result (ok, error, not_found, version_mismatch, corrupt)
	StorageOperations *prometheus.CounterVec

	// StoredLocations is the aggregate location count of persisted nodes.
	StoredLocations prometheus.Gauge

	// Transactions counts indexing transactions. Labels: kind (dart, html), result (ok, error, rejected)
	Transactions *prometheus.CounterVec
}

// New creates and registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node_cache",
			Name:      "requests_total",
			Help:      "Node cache lookups by result",
		}, []string{"result"}),
		CacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node_cache",
			Name:      "evictions_total",
			Help:      "Nodes evicted from the cache by reason",
		}, []string{"reason"}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node_cache",
			Name:      "entries",
			Help:      "Nodes currently held by the cache",
		}),
		StorageOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node_storage",
			Name:      "operations_total",
			Help:      "Node storage operations by kind and result",
		}, []string{"op", "result"}),
		StoredLocations: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node_storage",
			Name:      "locations",
			Help:      "Locations held by persisted nodes",
		}),
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "transactions_total",
			Help:      "Indexing transactions by unit kind and result",
		}, []string{"kind", "result"}),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the collectors registered with prometheus.DefaultRegisterer.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// NewUnregistered returns collectors attached to a private registry, for tests
// and for tools that do not export metrics.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Or returns m, or Default() when m is nil.
func Or(m *Metrics) *Metrics {
	if m == nil {
		return Default()
	}
	return m
}
