// Package codec interns the values the index stores (strings, analysis contexts,
// element locations and relationship kinds) as dense int32 ids.
//
// Ids are assigned 0, 1, 2, ... in first-seen order and are stable for the
// lifetime of the codec. They are not persisted, so an id is only meaningful
// relative to the codec instance that produced it.
package codec

import "sync"

// StringCodec interns strings.
// Safe for concurrent use; lookups of known strings only take a read lock.
type StringCodec struct {
	mu    sync.RWMutex
	ids   map[string]int32
	names []string
}

// NewStringCodec creates an empty codec.
func NewStringCodec() *StringCodec {
	return &StringCodec{ids: make(map[string]int32)}
}

// Encode returns the id of s, assigning the next id on first sight.
func (c *StringCodec) Encode(s string) int32 {
	c.mu.RLock()
	if id, ok := c.ids[s]; ok {
		c.mu.RUnlock()
		return id
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[s]; ok {
		return id
	}
	id := int32(len(c.names))
	c.names = append(c.names, s)
	c.ids[s] = id
	return id
}

// Lookup returns the id of s without assigning one.
func (c *StringCodec) Lookup(s string) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[s]
	return id, ok
}

// Decode returns the string for id. ok is false for ids this codec never produced.
func (c *StringCodec) Decode(id int32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || int(id) >= len(c.names) {
		return "", false
	}
	return c.names[id], true
}

// Size returns the number of interned strings.
func (c *StringCodec) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
