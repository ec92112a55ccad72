package types

import (
	"math"
	"strconv"
	"strings"
)

// Context is an isolated analysis universe (typically one project) as seen by the index.
// Implementations are used as map keys, so they must be comparable and should have
// identity semantics (pointer receivers).
type Context interface {
	// IsDisposed reports whether the context has been shut down.
	IsDisposed() bool

	// GetElement resolves a location back to a live element.
	// Returns nil when the context no longer knows the location.
	GetElement(location ElementLocation) Element
}

// Basis is implemented by instrumentation wrappers around a Context.
// The index always keys its state by the innermost context.
type Basis interface {
	Basis() Context
}

// UnwrapContext returns the canonical context behind any number of instrumentation wrappers.
func UnwrapContext(ctx Context) Context {
	for ctx != nil {
		wrapper, ok := ctx.(Basis)
		if !ok {
			return ctx
		}
		inner := wrapper.Basis()
		if inner == ctx {
			return ctx
		}
		ctx = inner
	}
	return nil
}

// Element is a named or structural program entity discovered by the analyzer.
type Element interface {
	// Location is the structural path that identifies the element inside its context.
	Location() ElementLocation

	// DisplayName is the user-visible name, used for the reverse name index.
	DisplayName() string

	// Library is the library that owns the element, or nil if it is not owned by one.
	Library() LibraryElement

	// Source is the source of the compilation unit (or markup file) that declares the element.
	// May be nil for synthetic elements.
	Source() Source
}

// LibraryElement is a library: a defining compilation unit plus zero or more parts.
type LibraryElement interface {
	Element

	// DefiningUnit returns the defining compilation unit, or nil if it is not known yet.
	DefiningUnit() UnitElement

	// Parts returns the part units included by the library, excluding the defining unit.
	Parts() []UnitElement
}

// UnitElement is a single compilation unit (a library's defining unit or one of its parts).
type UnitElement interface {
	Element
}

// HTMLElement is a standalone markup source indexed as its own unit.
type HTMLElement interface {
	Element
}

// ElementLocation is the ordered list of components identifying an element.
// A component may carry a local offset suffix ("name@offset") for elements
// without a stable name, such as closures.
type ElementLocation struct {
	components []string
}

// NewElementLocation builds a location from its components.
func NewElementLocation(components ...string) ElementLocation {
	return ElementLocation{components: append([]string(nil), components...)}
}

// Components returns a copy of the location components.
func (l ElementLocation) Components() []string {
	return append([]string(nil), l.components...)
}

// Len returns the number of components.
func (l ElementLocation) Len() int {
	return len(l.components)
}

// Key returns a string that is equal for equal locations; usable as a map key.
func (l ElementLocation) Key() string {
	return strings.Join(l.components, ";")
}

// Equal reports whether both locations have the same components.
func (l ElementLocation) Equal(other ElementLocation) bool {
	if len(l.components) != len(other.components) {
		return false
	}
	for i, c := range l.components {
		if other.components[i] != c {
			return false
		}
	}
	return true
}

func (l ElementLocation) String() string {
	return l.Key()
}

// SplitLocalOffset splits a "name@offset" component into its parts.
// Only a canonical non-negative decimal suffix is an offset, so that
// JoinLocalOffset reproduces the component; anything else returns ok=false.
func SplitLocalOffset(component string) (name string, offset int, ok bool) {
	at := strings.LastIndexByte(component, '@')
	if at < 0 || at == len(component)-1 {
		return component, 0, false
	}
	suffix := component[at+1:]
	offset, err := strconv.Atoi(suffix)
	if err != nil || offset < 0 || offset > math.MaxInt32 || strconv.Itoa(offset) != suffix {
		return component, 0, false
	}
	return component[:at], offset, true
}

// JoinLocalOffset is the inverse of SplitLocalOffset.
func JoinLocalOffset(name string, offset int) string {
	return name + "@" + strconv.Itoa(offset)
}

// UniverseName is the display name and only location component of Universe.
const UniverseName = "--universe--"

type universeElement struct{}

func (universeElement) Location() ElementLocation { return NewElementLocation(UniverseName) }
func (universeElement) DisplayName() string       { return UniverseName }
func (universeElement) Library() LibraryElement   { return nil }
func (universeElement) Source() Source            { return nil }

// Universe is a pseudo element that stands for "everything". Relations recorded against it
// (for example top-level declarations) are queried like relations of any other element.
var Universe Element = universeElement{}
