// Package store is the cross-reference index: per-unit indexing transactions,
// relationship queries through a reverse name index, and invalidation of
// sources and contexts.
package store

import (
	"fmt"
	"sync"

	"github.com/standardbeagle/xref/internal/codec"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/encoding"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/index"
	"github.com/standardbeagle/xref/internal/intmap"
	"github.com/standardbeagle/xref/internal/metrics"
	"github.com/standardbeagle/xref/internal/types"
)

// transaction is the unit being indexed between AboutToIndex* and DoneIndex.
type transaction struct {
	kind    string
	context types.Context
	name    string
	nameID  int32
	node    *index.IndexNode

	// display names recorded so far; published to the reverse index on DoneIndex
	displayNames map[int32]struct{}
}

// SplitIndexStore keeps one IndexNode per indexable unit (a library unit or a
// markup source) and finds the nodes relevant to a query by element display name.
//
// Indexing is driven by a single goroutine at a time: AboutToIndexDart or
// AboutToIndexHTML, any number of RecordRelationship calls, then DoneIndex.
// Queries and invalidation may run concurrently with it. A query never sees the
// relationships of a transaction that has not reached DoneIndex.
type SplitIndexStore struct {
	nodes   index.NodeManager
	codecs  *codec.Set
	metrics *metrics.Metrics

	txMu sync.Mutex
	tx   *transaction

	// mu guards graphs and names; lock order is txMu then mu
	mu     sync.RWMutex
	graphs map[types.Context]*sourceGraph
	// display name id -> node name ids
	names *intmap.IntToIntSetMap
}

// Stats is a snapshot of the store's size.
type Stats struct {
	Locations int
	Sources   int
	Names     int
	Contexts  int
}

func (s Stats) String() string {
	return fmt.Sprintf("[%d locations, %d sources, %d names]", s.Locations, s.Sources, s.Names)
}

// NewSplitIndexStore creates a store over nodes. A nil m uses metrics.Default().
func NewSplitIndexStore(nodes index.NodeManager, m *metrics.Metrics) *SplitIndexStore {
	return &SplitIndexStore{
		nodes:   nodes,
		codecs:  nodes.Codecs(),
		metrics: metrics.Or(m),
		graphs:  make(map[types.Context]*sourceGraph),
		names:   intmap.NewIntToIntSetMap(intmap.DefaultCapacity, intmap.DefaultLoadFactor),
	}
}

// NodeManager returns the node storage used by the store.
func (s *SplitIndexStore) NodeManager() index.NodeManager {
	return s.nodes
}

// AboutToIndexDart opens a transaction for unit. It returns false, and opens
// nothing, when the context is disposed or the unit, its library or the
// library's defining unit is unknown.
//
// Indexing the defining unit of a library drops the nodes of units that are no
// longer parts of it.
func (s *SplitIndexStore) AboutToIndexDart(ctx types.Context, unit types.UnitElement) bool {
	ctx = types.UnwrapContext(ctx)
	if ctx == nil || ctx.IsDisposed() || unit == nil {
		s.reject(metrics.KindDart)
		return false
	}
	library := unit.Library()
	if library == nil {
		s.reject(metrics.KindDart)
		return false
	}
	defining := library.DefiningUnit()
	if defining == nil {
		s.reject(metrics.KindDart)
		return false
	}
	librarySource, unitSource := library.Source(), unit.Source()
	if librarySource == nil || unitSource == nil {
		s.reject(metrics.KindDart)
		return false
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.discardLocked()

	s.mu.Lock()
	graph := s.graphLocked(ctx)
	if definingSource := defining.Source(); definingSource != nil && definingSource.FullName() == unitSource.FullName() {
		s.updatePartsLocked(graph, librarySource, unitSource, library.Parts())
	}
	graph.link(librarySource, unitSource)
	s.mu.Unlock()

	s.open(metrics.KindDart, ctx, s.nodeName(librarySource.FullName(), unitSource.FullName()))
	return true
}

// updatePartsLocked makes the recorded units of library exactly its defining unit
// plus parts, removing the nodes of dropped units.
func (s *SplitIndexStore) updatePartsLocked(graph *sourceGraph, library, definingUnit types.Source, parts []types.UnitElement) {
	current := map[string]types.Source{definingUnit.FullName(): definingUnit}
	for _, part := range parts {
		if part == nil || part.Source() == nil {
			continue
		}
		current[part.Source().FullName()] = part.Source()
	}
	libraryName := library.FullName()
	for _, unit := range graph.units(libraryName) {
		if _, ok := current[unit]; ok {
			continue
		}
		name := s.nodeName(libraryName, unit)
		if err := s.nodes.RemoveNode(name); err != nil {
			debug.LogError("STORE", err, "removing dropped part %s", unit)
		}
		graph.unlink(libraryName, unit)
		debug.LogStore("%s is no longer a part of %s, removed %s\n", unit, libraryName, name)
	}
	for _, unit := range current {
		graph.link(library, unit)
	}
}

// AboutToIndexHTML opens a transaction for a markup unit, replacing whatever was
// indexed for its source before. It returns false when the context is disposed.
func (s *SplitIndexStore) AboutToIndexHTML(ctx types.Context, html types.HTMLElement) bool {
	ctx = types.UnwrapContext(ctx)
	if ctx == nil || ctx.IsDisposed() || html == nil || html.Source() == nil {
		s.reject(metrics.KindHTML)
		return false
	}
	source := html.Source()

	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.discardLocked()

	s.mu.Lock()
	graph := s.graphLocked(ctx)
	if err := s.removeSourceLocked(graph, source); err != nil {
		debug.LogError("STORE", err, "removing previous index of %s", source.FullName())
	}
	graph.link(source, source)
	s.mu.Unlock()

	s.open(metrics.KindHTML, ctx, s.nodeName(source.FullName(), source.FullName()))
	return true
}

// RecordRelationship records that location is related to element by relationship
// in the open transaction. It does nothing without an open transaction or when
// element or location is nil.
func (s *SplitIndexStore) RecordRelationship(element types.Element, relationship types.Relationship, location *types.Location) {
	if element == nil || location == nil || location.Element == nil {
		return
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.tx == nil {
		return
	}
	s.tx.node.RecordRelationship(element, relationship, location)
	s.tx.displayNames[s.codecs.Strings.Encode(element.DisplayName())] = struct{}{}
}

// DoneIndex stores the node of the open transaction and makes it visible to
// queries. Without an open transaction it does nothing. A failed write is logged,
// the transaction is abandoned and the error returned.
func (s *SplitIndexStore) DoneIndex() error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	tx := s.tx
	if tx == nil {
		return nil
	}
	s.tx = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nodes.PutNode(tx.name, tx.node); err != nil {
		s.metrics.Transactions.WithLabelValues(tx.kind, metrics.ResultError).Inc()
		debug.LogError("STORE", err, "storing %s", tx.name)
		return err
	}
	for nameID := range tx.displayNames {
		if err := s.names.Add(nameID, tx.nameID); err != nil {
			return err
		}
	}
	s.metrics.Transactions.WithLabelValues(tx.kind, metrics.ResultOK).Inc()
	debug.LogStore("indexed %s: %d locations, %d names\n", tx.name, tx.node.LocationCount(), len(tx.displayNames))
	return nil
}

// GetRelationships returns the locations related to element by relationship
// across all nodes that mention element's display name. Node names that no
// longer resolve to a node are forgotten.
func (s *SplitIndexStore) GetRelationships(element types.Element, relationship types.Relationship) []*types.Location {
	locations := []*types.Location{}
	if element == nil {
		return locations
	}
	nameID, ok := s.codecs.Strings.Lookup(element.DisplayName())
	if !ok {
		return locations
	}

	s.mu.RLock()
	candidates := s.names.Get(nameID, nil)
	s.mu.RUnlock()

	var stale []int32
	for _, candidate := range candidates {
		name, ok := s.codecs.Strings.Decode(candidate)
		if !ok {
			stale = append(stale, candidate)
			continue
		}
		node := s.nodes.GetNode(name)
		if node == nil {
			stale = append(stale, candidate)
			continue
		}
		locations = append(locations, node.Relationships(element, relationship)...)
	}

	if len(stale) > 0 {
		s.forget(nameID, stale)
	}
	return locations
}

// forget drops node names from the reverse index entry of nameID, unless the
// node has reappeared meanwhile.
func (s *SplitIndexStore) forget(nameID int32, stale []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, candidate := range stale {
		if name, ok := s.codecs.Strings.Decode(candidate); ok && s.nodes.GetNode(name) != nil {
			continue
		}
		s.names.RemoveValue(nameID, candidate)
	}
}

// RemoveSource removes the nodes source takes part in, as a unit or as a
// library, within ctx.
func (s *SplitIndexStore) RemoveSource(ctx types.Context, source types.Source) error {
	ctx = types.UnwrapContext(ctx)
	if ctx == nil || source == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	graph := s.graphs[ctx]
	if graph == nil {
		return nil
	}
	err := s.removeSourceLocked(graph, source)
	s.dropIfEmptyLocked(ctx, graph)
	return err
}

// RemoveSources removes every source of ctx that container contains, or every
// source of ctx when container is nil.
func (s *SplitIndexStore) RemoveSources(ctx types.Context, container types.SourceContainer) error {
	ctx = types.UnwrapContext(ctx)
	if ctx == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	graph := s.graphs[ctx]
	if graph == nil {
		return nil
	}
	var errs []error
	for _, source := range graph.sources() {
		if container != nil && !container.Contains(source) {
			continue
		}
		if err := s.removeSourceLocked(graph, source); err != nil {
			errs = append(errs, err)
		}
	}
	s.dropIfEmptyLocked(ctx, graph)
	return xerrors.NewMultiError(errs).ErrorOrNil()
}

// RemoveContext removes everything indexed under ctx and forgets the context.
func (s *SplitIndexStore) RemoveContext(ctx types.Context) error {
	ctx = types.UnwrapContext(ctx)
	if ctx == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if graph := s.graphs[ctx]; graph != nil {
		for _, source := range graph.sources() {
			if err := s.removeSourceLocked(graph, source); err != nil {
				errs = append(errs, err)
			}
		}
		delete(s.graphs, ctx)
	}
	s.codecs.Contexts.Remove(ctx)
	debug.LogStore("removed context %v\n", ctx)
	return xerrors.NewMultiError(errs).ErrorOrNil()
}

// Clear removes every node, every source graph and the reverse index, and
// abandons an open transaction.
func (s *SplitIndexStore) Clear() error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.tx = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs = make(map[types.Context]*sourceGraph)
	s.names.Clear()
	return s.nodes.Clear()
}

// Stats returns the current size of the store.
func (s *SplitIndexStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{
		Locations: s.nodes.LocationCount(),
		Names:     s.names.Size(),
		Contexts:  len(s.graphs),
	}
	for _, graph := range s.graphs {
		stats.Sources += graph.size()
	}
	return stats
}

// Statistics returns a human-readable summary such as
// "[120 locations, 14 sources, 37 names]".
func (s *SplitIndexStore) Statistics() string {
	return s.Stats().String()
}

// Contexts returns the contexts with indexed sources.
func (s *SplitIndexStore) Contexts() []types.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contexts := make([]types.Context, 0, len(s.graphs))
	for ctx := range s.graphs {
		contexts = append(contexts, ctx)
	}
	return contexts
}

// Close abandons an open transaction and closes the node storage.
func (s *SplitIndexStore) Close() error {
	s.txMu.Lock()
	s.tx = nil
	s.txMu.Unlock()
	return s.nodes.Close()
}

func (s *SplitIndexStore) open(kind string, ctx types.Context, name string) {
	s.tx = &transaction{
		kind:         kind,
		context:      ctx,
		name:         name,
		nameID:       s.codecs.Strings.Encode(name),
		node:         s.nodes.NewNode(ctx),
		displayNames: make(map[int32]struct{}),
	}
}

func (s *SplitIndexStore) discardLocked() {
	if s.tx != nil {
		debug.LogStore("abandoning unfinished transaction for %s\n", s.tx.name)
		s.tx = nil
	}
}

func (s *SplitIndexStore) reject(kind string) {
	s.metrics.Transactions.WithLabelValues(kind, metrics.ResultRejected).Inc()
}

func (s *SplitIndexStore) graphLocked(ctx types.Context) *sourceGraph {
	graph, ok := s.graphs[ctx]
	if !ok {
		graph = newSourceGraph()
		s.graphs[ctx] = graph
	}
	return graph
}

func (s *SplitIndexStore) dropIfEmptyLocked(ctx types.Context, graph *sourceGraph) {
	if graph.isEmpty() {
		delete(s.graphs, ctx)
	}
}

// removeSourceLocked removes the nodes of source in both of its roles and purges
// its edges from graph.
func (s *SplitIndexStore) removeSourceLocked(graph *sourceGraph, source types.Source) error {
	var errs []error
	name := source.FullName()
	for _, unit := range graph.units(name) {
		if err := s.nodes.RemoveNode(s.nodeName(name, unit)); err != nil {
			errs = append(errs, err)
		}
		graph.unlink(name, unit)
	}
	for _, library := range graph.libraries(name) {
		if err := s.nodes.RemoveNode(s.nodeName(library, name)); err != nil {
			errs = append(errs, err)
		}
		graph.unlink(library, name)
	}
	return xerrors.NewMultiError(errs).ErrorOrNil()
}

// nodeName derives the node name of a unit from the full names of its library
// and itself.
func (s *SplitIndexStore) nodeName(library, unit string) string {
	return encoding.NodeName(s.codecs.Strings.Encode(library), s.codecs.Strings.Encode(unit))
}
