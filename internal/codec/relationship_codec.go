package codec

import "github.com/standardbeagle/xref/internal/types"

// RelationshipCodec encodes relationship kinds through a StringCodec.
type RelationshipCodec struct {
	strings *StringCodec
}

// NewRelationshipCodec creates a codec sharing strings.
func NewRelationshipCodec(strings *StringCodec) *RelationshipCodec {
	return &RelationshipCodec{strings: strings}
}

// Encode returns the id of the relationship identifier.
func (c *RelationshipCodec) Encode(relationship types.Relationship) int32 {
	return c.strings.Encode(relationship.Identifier())
}

// Decode returns the relationship for id.
func (c *RelationshipCodec) Decode(id int32) (types.Relationship, bool) {
	identifier, ok := c.strings.Decode(id)
	if !ok {
		return "", false
	}
	return types.Relationship(identifier), true
}

// Set is the group of codecs shared by every node of one store.
type Set struct {
	Strings       *StringCodec
	Contexts      *ContextCodec
	Elements      *ElementCodec
	Relationships *RelationshipCodec
}

// NewSet creates a fresh set of codecs sharing one StringCodec.
func NewSet() *Set {
	strings := NewStringCodec()
	return &Set{
		Strings:       strings,
		Contexts:      NewContextCodec(),
		Elements:      NewElementCodec(strings),
		Relationships: NewRelationshipCodec(strings),
	}
}
