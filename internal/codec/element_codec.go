package codec

import (
	"math"
	"sync"

	"github.com/standardbeagle/xref/internal/intmap"
	"github.com/standardbeagle/xref/internal/types"
)

// approximateMarker starts every approximate path. String ids are non-negative and
// local offsets only ever follow a component, so no precise path can start with it.
const approximateMarker = math.MinInt32

// ElementCodec encodes element locations as int32 ids.
//
// A location is turned into an int32 path: one string id per component, and for a
// component carrying a local offset ("name@offset") an extra entry -(offset+1) right
// after the name's id. Precise and approximate encodings share one id space.
type ElementCodec struct {
	strings *StringCodec

	mu    sync.RWMutex
	table *intmap.IntArrayToIntMap
	paths [][]int32
}

// NewElementCodec creates a codec that interns components with strings.
func NewElementCodec(strings *StringCodec) *ElementCodec {
	return &ElementCodec{
		strings: strings,
		table:   intmap.NewIntArrayToIntMap(0, 0),
	}
}

// Encode returns the id of the element's location.
//
// When forKey is true the first two components (library and unit) are replaced by the
// full paths of the library and unit sources, so the same file reached through
// different URIs gets one id.
func (c *ElementCodec) Encode(element types.Element, forKey bool) int32 {
	components := element.Location().Components()
	if forKey {
		substituteSourcePaths(element, components)
	}
	path := make([]int32, 0, len(components)+1)
	for _, component := range components {
		name, offset, ok := types.SplitLocalOffset(component)
		path = append(path, c.strings.Encode(name))
		if ok {
			path = append(path, int32(-offset-1))
		}
	}
	return c.pathToID(path)
}

// EncodeHash returns a coarse id built only from the owning library path and the
// display name. Distinct elements may share it.
func (c *ElementCodec) EncodeHash(element types.Element) int32 {
	libraryID := int32(-1)
	if library := element.Library(); library != nil && library.Source() != nil {
		libraryID = c.strings.Encode(library.Source().FullName())
	}
	nameID := c.strings.Encode(element.DisplayName())
	return c.pathToID([]int32{approximateMarker, libraryID, nameID})
}

// Decode resolves id back to a live element through ctx.
// Returns nil if the id is unknown, approximate, or ctx no longer knows the location.
func (c *ElementCodec) Decode(ctx types.Context, id int32) types.Element {
	if ctx == nil {
		return nil
	}
	location, ok := c.Location(id)
	if !ok {
		return nil
	}
	return ctx.GetElement(location)
}

// Location rebuilds the location of a precise id.
func (c *ElementCodec) Location(id int32) (types.ElementLocation, bool) {
	c.mu.RLock()
	if id < 0 || int(id) >= len(c.paths) {
		c.mu.RUnlock()
		return types.ElementLocation{}, false
	}
	path := c.paths[id]
	c.mu.RUnlock()

	if len(path) > 0 && path[0] == approximateMarker {
		return types.ElementLocation{}, false
	}
	components := make([]string, 0, len(path))
	for _, v := range path {
		if v < 0 {
			if len(components) == 0 {
				return types.ElementLocation{}, false
			}
			last := len(components) - 1
			components[last] = types.JoinLocalOffset(components[last], int(-v-1))
			continue
		}
		name, ok := c.strings.Decode(v)
		if !ok {
			return types.ElementLocation{}, false
		}
		components = append(components, name)
	}
	return types.NewElementLocation(components...), true
}

// Size returns the number of distinct encoded paths.
func (c *ElementCodec) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}

func (c *ElementCodec) pathToID(path []int32) int32 {
	c.mu.RLock()
	id := c.table.Get(path, -1)
	c.mu.RUnlock()
	if id != -1 {
		return id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id := c.table.Get(path, -1); id != -1 {
		return id
	}
	id = int32(len(c.paths))
	c.paths = append(c.paths, path)
	c.table.Put(path, id)
	return id
}

func substituteSourcePaths(element types.Element, components []string) {
	library := element.Library()
	if library == nil || library.Source() == nil || len(components) == 0 {
		return
	}
	components[0] = library.Source().FullName()
	if len(components) > 1 && element.Source() != nil {
		components[1] = element.Source().FullName()
	}
}
