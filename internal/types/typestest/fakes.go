// Package typestest provides in-memory implementations of the analyzer contracts
// for tests of the index packages.
package typestest

import (
	"sync"

	"github.com/standardbeagle/xref/internal/types"
)

// Context is a fake analysis context that resolves locations of registered elements.
type Context struct {
	name string

	mu       sync.RWMutex
	disposed bool
	elements map[string]types.Element
}

// NewContext creates an empty context.
func NewContext(name string) *Context {
	return &Context{name: name, elements: make(map[string]types.Element)}
}

// IsDisposed implements types.Context.
func (c *Context) IsDisposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

// Dispose marks the context as disposed.
func (c *Context) Dispose() {
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
}

// GetElement implements types.Context.
func (c *Context) GetElement(location types.ElementLocation) types.Element {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elements[location.Key()]
}

// Register makes the elements resolvable by their locations.
func (c *Context) Register(elements ...types.Element) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range elements {
		c.elements[e.Location().Key()] = e
	}
}

// Forget makes the element unresolvable, as if its source was removed.
func (c *Context) Forget(element types.Element) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.elements, element.Location().Key())
}

func (c *Context) String() string { return c.name }

// Instrumented wraps a context the way an instrumentation layer would.
type Instrumented struct {
	Inner types.Context
}

// Basis implements types.Basis.
func (i *Instrumented) Basis() types.Context { return i.Inner }

// IsDisposed implements types.Context.
func (i *Instrumented) IsDisposed() bool { return i.Inner.IsDisposed() }

// GetElement implements types.Context.
func (i *Instrumented) GetElement(location types.ElementLocation) types.Element {
	return i.Inner.GetElement(location)
}

// Element is a fake element. The zero Lib and Src mean "none".
type Element struct {
	Name string
	Loc  types.ElementLocation
	Lib  types.LibraryElement
	Src  types.Source
}

// Location implements types.Element.
func (e *Element) Location() types.ElementLocation { return e.Loc }

// DisplayName implements types.Element.
func (e *Element) DisplayName() string { return e.Name }

// Library implements types.Element.
func (e *Element) Library() types.LibraryElement { return e.Lib }

// Source implements types.Element.
func (e *Element) Source() types.Source { return e.Src }

func (e *Element) String() string { return e.Name }

// Library is a fake library element.
type Library struct {
	Element
	Defining  types.UnitElement
	PartUnits []types.UnitElement
}

// DefiningUnit implements types.LibraryElement.
func (l *Library) DefiningUnit() types.UnitElement { return l.Defining }

// Parts implements types.LibraryElement.
func (l *Library) Parts() []types.UnitElement { return l.PartUnits }

// NewLibrary creates a library whose defining unit lives in path.
func NewLibrary(path string) (*Library, *Element) {
	src := types.FileSource(path)
	lib := &Library{Element: Element{Name: path, Loc: types.NewElementLocation(path), Src: src}}
	unit := &Element{Name: path, Loc: types.NewElementLocation(path, path), Src: src}
	unit.Lib = lib
	lib.Defining = unit
	return lib, unit
}

// NewPart creates a part unit of lib in path. It is not added to lib's parts.
func NewPart(lib *Library, path string) *Element {
	return &Element{
		Name: path,
		Loc:  types.NewElementLocation(lib.Src.FullName(), path),
		Lib:  lib,
		Src:  types.FileSource(path),
	}
}

// SetParts replaces the library parts.
func (l *Library) SetParts(parts ...*Element) {
	l.PartUnits = l.PartUnits[:0]
	for _, p := range parts {
		l.PartUnits = append(l.PartUnits, p)
	}
}

// NewDeclaration creates an element named name declared in unit.
func NewDeclaration(unit *Element, name string) *Element {
	components := append(unit.Loc.Components(), name)
	return &Element{
		Name: name,
		Loc:  types.NewElementLocation(components...),
		Lib:  unit.Lib,
		Src:  unit.Src,
	}
}

// NewHTML creates a standalone markup unit.
func NewHTML(path string) *Element {
	return &Element{Name: path, Loc: types.NewElementLocation(path), Src: types.FileSource(path)}
}
