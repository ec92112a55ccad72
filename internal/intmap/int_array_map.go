// Package intmap provides hash tables keyed by int32 arrays and by single int32 values.
// They avoid the per-entry allocations of map[string]... keys built from integer paths,
// which matters on the element encoding hot path.
package intmap

const (
	// DefaultCapacity is the initial number of buckets.
	DefaultCapacity = 16
	// DefaultLoadFactor triggers a rehash once size >= capacity*loadFactor.
	DefaultLoadFactor = 0.75
)

type arrayEntry struct {
	key   []int32
	hash  int32
	value int32
	next  *arrayEntry
}

// IntArrayToIntMap maps int32 arrays (compared by content) to int32 values.
// It is not safe for concurrent use.
type IntArrayToIntMap struct {
	loadFactor float64
	threshold  int
	size       int
	buckets    []*arrayEntry
}

// NewIntArrayToIntMap creates a map with the given initial capacity and load factor.
// Non-positive arguments select the defaults.
func NewIntArrayToIntMap(capacity int, loadFactor float64) *IntArrayToIntMap {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if loadFactor <= 0 {
		loadFactor = DefaultLoadFactor
	}
	m := &IntArrayToIntMap{loadFactor: loadFactor}
	m.resize(capacity)
	return m
}

// HashArray is the polynomial hash h = 31*h + e over the array, masked to non-negative.
func HashArray(key []int32) int32 {
	var h int32
	for _, e := range key {
		h = 31*h + e
	}
	return h & 0x7FFFFFFF
}

// Capacity returns the current number of buckets.
func (m *IntArrayToIntMap) Capacity() int {
	return len(m.buckets)
}

// Size returns the number of entries.
func (m *IntArrayToIntMap) Size() int {
	return m.size
}

// Get returns the value for key, or def if the key is absent.
func (m *IntArrayToIntMap) Get(key []int32, def int32) int32 {
	hash := HashArray(key)
	for e := m.buckets[int(hash)%len(m.buckets)]; e != nil; e = e.next {
		if e.hash == hash && equalArrays(e.key, key) {
			return e.value
		}
	}
	return def
}

// Put associates value with key. The key is copied.
func (m *IntArrayToIntMap) Put(key []int32, value int32) {
	hash := HashArray(key)
	index := int(hash) % len(m.buckets)
	for e := m.buckets[index]; e != nil; e = e.next {
		if e.hash == hash && equalArrays(e.key, key) {
			e.value = value
			return
		}
	}
	m.buckets[index] = &arrayEntry{
		key:   append([]int32(nil), key...),
		hash:  hash,
		value: value,
		next:  m.buckets[index],
	}
	m.size++
	if m.size >= m.threshold {
		m.resize(len(m.buckets)*2 + 1)
	}
}

// Remove deletes key and returns its value, or def if the key was absent.
func (m *IntArrayToIntMap) Remove(key []int32, def int32) int32 {
	hash := HashArray(key)
	index := int(hash) % len(m.buckets)
	var prev *arrayEntry
	for e := m.buckets[index]; e != nil; e = e.next {
		if e.hash == hash && equalArrays(e.key, key) {
			if prev == nil {
				m.buckets[index] = e.next
			} else {
				prev.next = e.next
			}
			m.size--
			return e.value
		}
		prev = e
	}
	return def
}

// Clear removes all entries, keeping the current capacity.
func (m *IntArrayToIntMap) Clear() {
	for i := range m.buckets {
		m.buckets[i] = nil
	}
	m.size = 0
}

// Range calls fn for every entry until fn returns false. The key must not be modified.
func (m *IntArrayToIntMap) Range(fn func(key []int32, value int32) bool) {
	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

func (m *IntArrayToIntMap) resize(capacity int) {
	old := m.buckets
	m.buckets = make([]*arrayEntry, capacity)
	m.threshold = int(float64(capacity) * m.loadFactor)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			index := int(e.hash) % capacity
			e.next = m.buckets[index]
			m.buckets[index] = e
			e = next
		}
	}
}

func equalArrays(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
