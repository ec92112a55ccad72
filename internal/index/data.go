package index

import (
	"math"

	"github.com/standardbeagle/xref/internal/codec"
	"github.com/standardbeagle/xref/internal/types"
)

// LocationData is the compact form of a types.Location.
type LocationData struct {
	ElementID int32
	Offset    int32
	Length    int32
}

// NewLocationData encodes location with the element codec.
func NewLocationData(elements *codec.ElementCodec, location *types.Location) LocationData {
	return LocationData{
		ElementID: elements.Encode(location.Element, false),
		Offset:    clampInt32(location.Offset),
		Length:    clampInt32(location.Length),
	}
}

func clampInt32(v int) int32 {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

// Location resolves the data back to a location in ctx.
// Returns nil if the element can no longer be resolved.
func (d LocationData) Location(ctx types.Context, elements *codec.ElementCodec) *types.Location {
	element := elements.Decode(ctx, d.ElementID)
	if element == nil {
		return nil
	}
	return types.NewLocation(element, int(d.Offset), int(d.Length))
}

// RelationKeyData identifies one (element, relationship) pair inside a node.
type RelationKeyData struct {
	ElementID      int32
	RelationshipID int32
}

// NewRelationKeyData encodes the key of element and relationship.
func NewRelationKeyData(codecs *codec.Set, element types.Element, relationship types.Relationship) RelationKeyData {
	return RelationKeyData{
		ElementID:      codecs.Elements.Encode(element, true),
		RelationshipID: codecs.Relationships.Encode(relationship),
	}
}
