package codec

import (
	"sync"

	"github.com/standardbeagle/xref/internal/types"
)

// ContextCodec interns analysis contexts by identity.
// Callers should pass unwrapped contexts (see types.UnwrapContext).
type ContextCodec struct {
	mu       sync.RWMutex
	ids      map[types.Context]int32
	contexts []types.Context
}

// NewContextCodec creates an empty codec.
func NewContextCodec() *ContextCodec {
	return &ContextCodec{ids: make(map[types.Context]int32)}
}

// Encode returns the id of ctx, assigning the next id on first sight.
func (c *ContextCodec) Encode(ctx types.Context) int32 {
	c.mu.RLock()
	if id, ok := c.ids[ctx]; ok {
		c.mu.RUnlock()
		return id
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[ctx]; ok {
		return id
	}
	id := int32(len(c.contexts))
	c.contexts = append(c.contexts, ctx)
	c.ids[ctx] = id
	return id
}

// Decode returns the context for id. ok is false for unknown or removed contexts.
func (c *ContextCodec) Decode(id int32) (types.Context, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || int(id) >= len(c.contexts) {
		return nil, false
	}
	ctx := c.contexts[id]
	return ctx, ctx != nil
}

// Remove forgets ctx. Its id is never reassigned, so nodes persisted under it
// decode to "no context" from now on.
func (c *ContextCodec) Remove(ctx types.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[ctx]
	if !ok {
		return
	}
	delete(c.ids, ctx)
	c.contexts[id] = nil
}

// Size returns the number of live contexts.
func (c *ContextCodec) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
