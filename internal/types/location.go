package types

import "fmt"

// Location is a span inside a source file, attributed to the element occupying it.
// Offset and Length are in the analyzer's units; the index never converts them.
// They are stored as 32-bit values, so anything beyond the int32 range is
// clamped to it.
type Location struct {
	Element Element
	Offset  int
	Length  int
}

// NewLocation creates a location.
func NewLocation(element Element, offset, length int) *Location {
	return &Location{Element: element, Offset: offset, Length: length}
}

func (l *Location) String() string {
	if l == nil {
		return "<nil>"
	}
	name := "<nil>"
	if l.Element != nil {
		name = l.Element.DisplayName()
	}
	return fmt.Sprintf("[%d - %d) in %s", l.Offset, l.Offset+l.Length, name)
}

// Relationship is a named kind of association between an element and a location.
type Relationship string

// Identifier returns the unique identifier of the relationship kind.
func (r Relationship) Identifier() string { return string(r) }

func (r Relationship) String() string { return string(r) }

// Relationship kinds reported by the analyzer.
const (
	IsDefinedBy               Relationship = "is-defined-by"
	IsExtendedBy              Relationship = "is-extended-by"
	IsImplementedBy           Relationship = "is-implemented-by"
	IsMixedInBy               Relationship = "is-mixed-in-by"
	IsInvokedBy               Relationship = "is-invoked-by"
	IsInvokedByQualified      Relationship = "is-invoked-by-qualified"
	IsInvokedByUnqualified    Relationship = "is-invoked-by-unqualified"
	IsReadBy                  Relationship = "is-read-by"
	IsReadWrittenBy           Relationship = "is-read-written-by"
	IsWrittenBy               Relationship = "is-written-by"
	IsReferencedBy            Relationship = "is-referenced-by"
	IsReferencedByQualified   Relationship = "is-referenced-by-qualified"
	IsReferencedByUnqualified Relationship = "is-referenced-by-unqualified"
	IsAccessedBy              Relationship = "is-accessed-by"
	IsOverriddenBy            Relationship = "is-overridden-by"
	DefinesClass              Relationship = "defines-class"
	DefinesFunction           Relationship = "defines-function"
	DefinesVariable           Relationship = "defines-variable"
)
