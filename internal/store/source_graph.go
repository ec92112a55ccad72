package store

import (
	"github.com/standardbeagle/xref/internal/types"
)

type nameSet map[string]struct{}

func (s nameSet) add(name string) {
	s[name] = struct{}{}
}

// sourceGraph records which units belong to which libraries in one context.
// Sources are identified by FullName, the same identity node names use, so a
// re-resolved Source instance replaces the recorded one. Both directions are
// kept in sync.
type sourceGraph struct {
	libraryToUnits  map[string]nameSet
	unitToLibraries map[string]nameSet
	// latest Source seen for every name in either role
	known map[string]types.Source
}

func newSourceGraph() *sourceGraph {
	return &sourceGraph{
		libraryToUnits:  make(map[string]nameSet),
		unitToLibraries: make(map[string]nameSet),
		known:           make(map[string]types.Source),
	}
}

func (g *sourceGraph) link(library, unit types.Source) {
	libraryName, unitName := library.FullName(), unit.FullName()
	g.known[libraryName] = library
	g.known[unitName] = unit

	units, ok := g.libraryToUnits[libraryName]
	if !ok {
		units = make(nameSet)
		g.libraryToUnits[libraryName] = units
	}
	units.add(unitName)

	libraries, ok := g.unitToLibraries[unitName]
	if !ok {
		libraries = make(nameSet)
		g.unitToLibraries[unitName] = libraries
	}
	libraries.add(libraryName)
}

func (g *sourceGraph) unlink(library, unit string) {
	if units, ok := g.libraryToUnits[library]; ok {
		delete(units, unit)
		if len(units) == 0 {
			delete(g.libraryToUnits, library)
		}
	}
	if libraries, ok := g.unitToLibraries[unit]; ok {
		delete(libraries, library)
		if len(libraries) == 0 {
			delete(g.unitToLibraries, unit)
		}
	}
	g.forgetIfUnused(library)
	g.forgetIfUnused(unit)
}

func (g *sourceGraph) forgetIfUnused(name string) {
	if _, ok := g.libraryToUnits[name]; ok {
		return
	}
	if _, ok := g.unitToLibraries[name]; ok {
		return
	}
	delete(g.known, name)
}

// units returns a copy of the unit names recorded for library.
func (g *sourceGraph) units(library string) []string {
	return keys(g.libraryToUnits[library])
}

// libraries returns a copy of the library names recorded for unit.
func (g *sourceGraph) libraries(unit string) []string {
	return keys(g.unitToLibraries[unit])
}

// sources returns every source that appears in the graph in either role.
func (g *sourceGraph) sources() []types.Source {
	out := make([]types.Source, 0, len(g.known))
	for _, src := range g.known {
		out = append(out, src)
	}
	return out
}

func (g *sourceGraph) size() int {
	return len(g.known)
}

func (g *sourceGraph) isEmpty() bool {
	return len(g.libraryToUnits) == 0 && len(g.unitToLibraries) == 0
}

func keys(set nameSet) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}
