package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CacheRequests.WithLabelValues(ResultHit).Inc()
	m.StorageOperations.WithLabelValues(OpWrite, ResultOK).Add(2)
	m.StoredLocations.Set(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(ResultHit)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StorageOperations.WithLabelValues(OpWrite, ResultOK)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.StoredLocations))

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "xref_node_cache_requests_total")
	assert.Contains(t, names, "xref_node_storage_locations")
}

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.Same(t, Default(), Or(nil))

	m := NewUnregistered()
	assert.Same(t, m, Or(m))
}
