// Package index holds the in-memory relation table of one indexable unit and the
// NodeManager contract used to store such tables.
package index

import (
	"github.com/standardbeagle/xref/internal/codec"
	"github.com/standardbeagle/xref/internal/types"
)

// IndexNode maps relation keys to the locations recorded for them, for one
// indexable unit analyzed under one context.
//
// A node is filled by a single indexing transaction and treated as immutable once
// handed to a NodeManager, so it carries no lock.
type IndexNode struct {
	codecs    *codec.Set
	context   types.Context
	keys      []RelationKeyData
	relations map[RelationKeyData][]LocationData
}

// NewIndexNode creates an empty node bound to ctx.
func NewIndexNode(ctx types.Context, codecs *codec.Set) *IndexNode {
	return &IndexNode{
		codecs:    codecs,
		context:   ctx,
		relations: make(map[RelationKeyData][]LocationData),
	}
}

// Context returns the context the node was built under.
func (n *IndexNode) Context() types.Context {
	return n.context
}

// RecordRelationship appends location to the list of (element, relationship).
func (n *IndexNode) RecordRelationship(element types.Element, relationship types.Relationship, location *types.Location) {
	key := NewRelationKeyData(n.codecs, element, relationship)
	n.add(key, NewLocationData(n.codecs.Elements, location))
}

// Relationships returns the locations related to element by relationship, in
// recording order. Locations whose element can no longer be resolved are omitted.
func (n *IndexNode) Relationships(element types.Element, relationship types.Relationship) []*types.Location {
	key := NewRelationKeyData(n.codecs, element, relationship)
	data := n.relations[key]
	locations := make([]*types.Location, 0, len(data))
	for _, d := range data {
		if location := d.Location(n.context, n.codecs.Elements); location != nil {
			locations = append(locations, location)
		}
	}
	return locations
}

// LocationCount returns the number of recorded locations across all keys.
func (n *IndexNode) LocationCount() int {
	count := 0
	for _, data := range n.relations {
		count += len(data)
	}
	return count
}

// RelationCount returns the number of distinct relation keys.
func (n *IndexNode) RelationCount() int {
	return len(n.keys)
}

// Range calls fn for each relation key in first-recorded order until fn returns false.
// The slice passed to fn must not be modified.
func (n *IndexNode) Range(fn func(key RelationKeyData, locations []LocationData) bool) {
	for _, key := range n.keys {
		if !fn(key, n.relations[key]) {
			return
		}
	}
}

// AddRelation appends already-encoded locations to key. Used when decoding stored nodes.
func (n *IndexNode) AddRelation(key RelationKeyData, locations ...LocationData) {
	for _, d := range locations {
		n.add(key, d)
	}
	if len(locations) == 0 {
		if _, ok := n.relations[key]; !ok {
			n.keys = append(n.keys, key)
			n.relations[key] = nil
		}
	}
}

func (n *IndexNode) add(key RelationKeyData, d LocationData) {
	data, ok := n.relations[key]
	if !ok {
		n.keys = append(n.keys, key)
	}
	n.relations[key] = append(data, d)
}
