package intmap

import (
	xerrors "github.com/standardbeagle/xref/internal/errors"
)

type setEntry struct {
	key    int32
	values []int32
	next   *setEntry
}

// IntToIntSetMap maps non-negative int32 keys to small sets of int32 values.
// Sets preserve insertion order. It is not safe for concurrent use.
type IntToIntSetMap struct {
	loadFactor float64
	threshold  int
	size       int
	buckets    []*setEntry
}

// NewIntToIntSetMap creates a map with the given initial capacity and load factor.
// Non-positive arguments select the defaults.
func NewIntToIntSetMap(capacity int, loadFactor float64) *IntToIntSetMap {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if loadFactor <= 0 {
		loadFactor = DefaultLoadFactor
	}
	m := &IntToIntSetMap{loadFactor: loadFactor}
	m.resize(capacity)
	return m
}

// Capacity returns the current number of buckets.
func (m *IntToIntSetMap) Capacity() int {
	return len(m.buckets)
}

// Size returns the number of keys.
func (m *IntToIntSetMap) Size() int {
	return m.size
}

// Add adds value to the set of key. Adding a value that is already present is a no-op.
func (m *IntToIntSetMap) Add(key, value int32) error {
	if key < 0 {
		return xerrors.NewInvalidArgumentError("key", key)
	}
	if e := m.find(key); e != nil {
		for _, v := range e.values {
			if v == value {
				return nil
			}
		}
		e.values = append(e.values, value)
		return nil
	}
	m.insert(key, []int32{value})
	return nil
}

// Put replaces the set of key. Duplicates in values are dropped.
func (m *IntToIntSetMap) Put(key int32, values []int32) error {
	if key < 0 {
		return xerrors.NewInvalidArgumentError("key", key)
	}
	set := make([]int32, 0, len(values))
	for _, v := range values {
		if !containsInt(set, v) {
			set = append(set, v)
		}
	}
	if e := m.find(key); e != nil {
		e.values = set
		return nil
	}
	m.insert(key, set)
	return nil
}

// Get returns a copy of the set of key, or def if the key is absent.
func (m *IntToIntSetMap) Get(key int32, def []int32) []int32 {
	if key < 0 {
		return def
	}
	if e := m.find(key); e != nil {
		return append([]int32(nil), e.values...)
	}
	return def
}

// Remove deletes key and returns its set, or def if the key was absent.
func (m *IntToIntSetMap) Remove(key int32, def []int32) []int32 {
	if key < 0 {
		return def
	}
	index := int(key) % len(m.buckets)
	var prev *setEntry
	for e := m.buckets[index]; e != nil; e = e.next {
		if e.key == key {
			if prev == nil {
				m.buckets[index] = e.next
			} else {
				prev.next = e.next
			}
			m.size--
			return e.values
		}
		prev = e
	}
	return def
}

// RemoveValue removes value from the set of key and reports whether it was present.
// A key whose set becomes empty is removed.
func (m *IntToIntSetMap) RemoveValue(key, value int32) bool {
	if key < 0 {
		return false
	}
	e := m.find(key)
	if e == nil {
		return false
	}
	for i, v := range e.values {
		if v == value {
			e.values = append(e.values[:i], e.values[i+1:]...)
			if len(e.values) == 0 {
				m.Remove(key, nil)
			}
			return true
		}
	}
	return false
}

// Clear removes all entries, keeping the current capacity.
func (m *IntToIntSetMap) Clear() {
	for i := range m.buckets {
		m.buckets[i] = nil
	}
	m.size = 0
}

func (m *IntToIntSetMap) find(key int32) *setEntry {
	for e := m.buckets[int(key)%len(m.buckets)]; e != nil; e = e.next {
		if e.key == key {
			return e
		}
	}
	return nil
}

func (m *IntToIntSetMap) insert(key int32, values []int32) {
	index := int(key) % len(m.buckets)
	m.buckets[index] = &setEntry{key: key, values: values, next: m.buckets[index]}
	m.size++
	if m.size >= m.threshold {
		m.resize(len(m.buckets)*2 + 1)
	}
}

func (m *IntToIntSetMap) resize(capacity int) {
	old := m.buckets
	m.buckets = make([]*setEntry, capacity)
	m.threshold = int(float64(capacity) * m.loadFactor)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			index := int(e.key) % capacity
			e.next = m.buckets[index]
			m.buckets[index] = e
			e = next
		}
	}
}

func containsInt(values []int32, v int32) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
