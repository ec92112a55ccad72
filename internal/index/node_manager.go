package index

import (
	"sync"

	"github.com/standardbeagle/xref/internal/codec"
	"github.com/standardbeagle/xref/internal/types"
)

// NodeManager stores IndexNodes by name.
//
// All nodes handled by one manager chain share the same codec Set; ids inside a node
// are meaningless outside of it. GetNode returns nil for absent or unreadable nodes;
// storage failures never surface from reads.
type NodeManager interface {
	// Codecs returns the codecs shared by every node of the manager.
	Codecs() *codec.Set

	// LocationCount returns the number of locations in all stored nodes.
	LocationCount() int

	// GetNode returns the named node, or nil.
	GetNode(name string) *IndexNode

	// PutNode stores node under name, replacing any previous node.
	PutNode(name string, node *IndexNode) error

	// RemoveNode deletes the named node. Removing an absent node is not an error.
	RemoveNode(name string) error

	// NewNode creates an empty node bound to ctx.
	NewNode(ctx types.Context) *IndexNode

	// Clear removes every node.
	Clear() error

	// Close releases background tasks and storage held by the manager.
	Close() error
}

// MemoryNodeManager keeps nodes in a map. It is used by tests and by the
// "memory" storage backend.
type MemoryNodeManager struct {
	codecs *codec.Set

	mu    sync.RWMutex
	nodes map[string]*IndexNode
}

// NewMemoryNodeManager creates an empty manager with fresh codecs.
func NewMemoryNodeManager() *MemoryNodeManager {
	return &MemoryNodeManager{
		codecs: codec.NewSet(),
		nodes:  make(map[string]*IndexNode),
	}
}

// Codecs implements NodeManager.
func (m *MemoryNodeManager) Codecs() *codec.Set {
	return m.codecs
}

// LocationCount implements NodeManager.
func (m *MemoryNodeManager) LocationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, node := range m.nodes {
		count += node.LocationCount()
	}
	return count
}

// GetNode implements NodeManager.
func (m *MemoryNodeManager) GetNode(name string) *IndexNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[name]
}

// PutNode implements NodeManager.
func (m *MemoryNodeManager) PutNode(name string, node *IndexNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[name] = node
	return nil
}

// RemoveNode implements NodeManager.
func (m *MemoryNodeManager) RemoveNode(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, name)
	return nil
}

// NewNode implements NodeManager.
func (m *MemoryNodeManager) NewNode(ctx types.Context) *IndexNode {
	return NewIndexNode(ctx, m.codecs)
}

// Clear implements NodeManager.
func (m *MemoryNodeManager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[string]*IndexNode)
	return nil
}

// Close implements NodeManager.
func (m *MemoryNodeManager) Close() error {
	return nil
}

// IsEmpty reports whether no node is stored.
func (m *MemoryNodeManager) IsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes) == 0
}

// Names returns the names of the stored nodes.
func (m *MemoryNodeManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.nodes))
	for name := range m.nodes {
		names = append(names, name)
	}
	return names
}
