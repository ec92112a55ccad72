package store

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/xref/internal/index"
	"github.com/standardbeagle/xref/internal/metrics"
	"github.com/standardbeagle/xref/internal/types"
	"github.com/standardbeagle/xref/internal/types/typestest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testRelationship types.Relationship = "test-relationship"

type storeFixture struct {
	ctx     *typestest.Context
	nodes   *index.MemoryNodeManager
	metrics *metrics.Metrics
	store   *SplitIndexStore

	library *typestest.Library
	unitLib *typestest.Element
	unitA   *typestest.Element
	unitB   *typestest.Element
	unitC   *typestest.Element

	target     *typestest.Element
	elementLib *typestest.Element
	elementA   *typestest.Element
	elementB   *typestest.Element
	elementC   *typestest.Element
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	library, unitLib := typestest.NewLibrary("/home/user/lib.dart")
	f := &storeFixture{
		ctx:     typestest.NewContext("ctx"),
		nodes:   index.NewMemoryNodeManager(),
		metrics: metrics.NewUnregistered(),
		library: library,
		unitLib: unitLib,
		unitA:   typestest.NewPart(library, "/home/user/sourceA.dart"),
		unitB:   typestest.NewPart(library, "/home/user/sourceB.dart"),
		unitC:   typestest.NewPart(library, "/home/user/sourceC.dart"),
	}
	library.SetParts(f.unitA, f.unitB, f.unitC)

	f.target = typestest.NewDeclaration(unitLib, "target")
	f.elementLib = typestest.NewDeclaration(unitLib, "elementLib")
	f.elementA = typestest.NewDeclaration(f.unitA, "elementA")
	f.elementB = typestest.NewDeclaration(f.unitB, "elementB")
	f.elementC = typestest.NewDeclaration(f.unitC, "elementC")
	f.ctx.Register(f.target, f.elementLib, f.elementA, f.elementB, f.elementC)

	f.store = NewSplitIndexStore(f.nodes, f.metrics)
	t.Cleanup(func() { f.store.Close() })
	return f
}

// index runs one complete transaction recording target relations at locations.
func (f *storeFixture) index(t *testing.T, ctx types.Context, unit types.UnitElement, locations ...*types.Location) {
	t.Helper()
	require.True(t, f.store.AboutToIndexDart(ctx, unit))
	for _, location := range locations {
		f.store.RecordRelationship(f.target, testRelationship, location)
	}
	require.NoError(t, f.store.DoneIndex())
}

func (f *storeFixture) query() []string {
	return describe(f.store.GetRelationships(f.target, testRelationship))
}

func describe(locations []*types.Location) []string {
	out := make([]string, 0, len(locations))
	for _, l := range locations {
		out = append(out, fmt.Sprintf("%s@%d:%d", l.Element.DisplayName(), l.Offset, l.Length))
	}
	return out
}

func TestSplitIndexStore_RecordAndQuery(t *testing.T) {
	f := newStoreFixture(t)

	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))

	locations := f.store.GetRelationships(f.target, testRelationship)
	require.Len(t, locations, 1)
	assert.Same(t, f.elementA, locations[0].Element)
	assert.Equal(t, 1, locations[0].Offset)
	assert.Equal(t, 2, locations[0].Length)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Transactions.WithLabelValues(metrics.KindDart, metrics.ResultOK)))
}

func TestSplitIndexStore_QueryAcrossUnits(t *testing.T) {
	f := newStoreFixture(t)

	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	f.index(t, f.ctx, f.unitB, types.NewLocation(f.elementB, 10, 20), types.NewLocation(f.elementB, 30, 40))
	f.index(t, f.ctx, f.unitC)

	assert.ElementsMatch(t, []string{"elementA@1:2", "elementB@10:20", "elementB@30:40"}, f.query())
	assert.Empty(t, f.store.GetRelationships(f.target, types.IsInvokedBy))
}

func TestSplitIndexStore_UnknownNameReturnsEmpty(t *testing.T) {
	f := newStoreFixture(t)
	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))

	locations := f.store.GetRelationships(f.elementC, testRelationship)
	assert.NotNil(t, locations)
	assert.Empty(t, locations)

	locations = f.store.GetRelationships(nil, testRelationship)
	assert.NotNil(t, locations)
	assert.Empty(t, locations)
}

func TestSplitIndexStore_InvocationAcrossLibraries(t *testing.T) {
	ctx := typestest.NewContext("ctx")
	_, libUnit := typestest.NewLibrary("/home/user/lib.dart")
	_, mainUnit := typestest.NewLibrary("/home/user/main.dart")
	square := typestest.NewDeclaration(libUnit, "square")
	main := typestest.NewDeclaration(mainUnit, "main")
	ctx.Register(square, main)

	store := NewSplitIndexStore(index.NewMemoryNodeManager(), metrics.NewUnregistered())
	defer store.Close()

	require.True(t, store.AboutToIndexDart(ctx, mainUnit))
	store.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(main, 120, 6))
	require.NoError(t, store.DoneIndex())

	locations := store.GetRelationships(square, types.IsInvokedBy)
	require.Len(t, locations, 1)
	assert.Same(t, main, locations[0].Element)
	assert.Equal(t, 120, locations[0].Offset)
	assert.Equal(t, 6, locations[0].Length)
	assert.Equal(t, "[1 locations, 1 sources, 1 names]", store.Statistics())
}

func TestSplitIndexStore_DroppedPartIsRemoved(t *testing.T) {
	ctx := typestest.NewContext("ctx")
	_, libUnit := typestest.NewLibrary("/home/user/lib.dart")
	mainLib, mainUnit := typestest.NewLibrary("/home/user/main.dart")
	helperUnit := typestest.NewPart(mainLib, "/home/user/helper.dart")
	mainLib.SetParts(helperUnit)
	square := typestest.NewDeclaration(libUnit, "square")
	main := typestest.NewDeclaration(mainUnit, "main")
	helper := typestest.NewDeclaration(helperUnit, "helper")
	ctx.Register(square, main, helper)

	nodes := index.NewMemoryNodeManager()
	store := NewSplitIndexStore(nodes, metrics.NewUnregistered())
	defer store.Close()

	require.True(t, store.AboutToIndexDart(ctx, mainUnit))
	store.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(main, 120, 6))
	require.NoError(t, store.DoneIndex())
	require.True(t, store.AboutToIndexDart(ctx, helperUnit))
	store.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(helper, 10, 6))
	store.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(helper, 40, 6))
	require.NoError(t, store.DoneIndex())
	require.Equal(t, 3, nodes.LocationCount())

	mainLib.SetParts()
	require.True(t, store.AboutToIndexDart(ctx, mainUnit))
	assert.Equal(t, 1, nodes.LocationCount(), "the helper node is gone before the new main node is stored")
	store.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(main, 120, 6))
	require.NoError(t, store.DoneIndex())

	assert.Equal(t, []string{"main@120:6"}, describe(store.GetRelationships(square, types.IsInvokedBy)))
	assert.Equal(t, 1, store.Stats().Sources)
}

// pointerSource is a source compared by instance, as an analyzer may hand out
// a fresh one every time it resolves a file.
type pointerSource struct{ path string }

func (s *pointerSource) FullName() string { return s.path }

func TestSplitIndexStore_SourcesMatchByFullName(t *testing.T) {
	ctx := typestest.NewContext("ctx")
	_, libUnit := typestest.NewLibrary("/home/user/lib.dart")
	mainLib, mainUnit := typestest.NewLibrary("/home/user/main.dart")
	helperUnit := typestest.NewPart(mainLib, "/home/user/helper.dart")
	mainLib.SetParts(helperUnit)
	square := typestest.NewDeclaration(libUnit, "square")
	main := typestest.NewDeclaration(mainUnit, "main")
	helper := typestest.NewDeclaration(helperUnit, "helper")
	ctx.Register(square, main, helper)

	resolve := func() {
		src := &pointerSource{path: "/home/user/main.dart"}
		mainLib.Src, mainUnit.Src = src, src
		helperUnit.Src = &pointerSource{path: "/home/user/helper.dart"}
	}

	nodes := index.NewMemoryNodeManager()
	store := NewSplitIndexStore(nodes, metrics.NewUnregistered())
	defer store.Close()

	resolve()
	require.True(t, store.AboutToIndexDart(ctx, mainUnit))
	store.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(main, 120, 6))
	require.NoError(t, store.DoneIndex())
	require.True(t, store.AboutToIndexDart(ctx, helperUnit))
	store.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(helper, 10, 6))
	require.NoError(t, store.DoneIndex())
	require.Equal(t, "[2 locations, 2 sources, 1 names]", store.Statistics())

	resolve()
	mainLib.SetParts()
	require.True(t, store.AboutToIndexDart(ctx, mainUnit))
	store.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(main, 120, 6))
	require.NoError(t, store.DoneIndex())

	assert.Equal(t, []string{"main@120:6"}, describe(store.GetRelationships(square, types.IsInvokedBy)))
	assert.Equal(t, "[1 locations, 1 sources, 1 names]", store.Statistics())

	require.NoError(t, store.RemoveSource(ctx, &pointerSource{path: "/home/user/main.dart"}))
	assert.Empty(t, store.GetRelationships(square, types.IsInvokedBy))
	assert.Zero(t, store.Stats().Sources)
	assert.Zero(t, nodes.LocationCount())
}

func TestSplitIndexStore_DefiningUnitReindexDropsUnlistedUnits(t *testing.T) {
	f := newStoreFixture(t)

	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	f.index(t, f.ctx, f.unitB, types.NewLocation(f.elementB, 10, 20))
	require.ElementsMatch(t, []string{"elementA@1:2", "elementB@10:20"}, f.query())

	f.library.SetParts(f.unitB)
	f.index(t, f.ctx, f.unitLib, types.NewLocation(f.elementLib, 100, 1))

	assert.ElementsMatch(t, []string{"elementB@10:20", "elementLib@100:1"}, f.query())
	assert.Len(t, f.nodes.Names(), 2)
}

func TestSplitIndexStore_ReindexReplacesNode(t *testing.T) {
	f := newStoreFixture(t)

	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2), types.NewLocation(f.elementA, 3, 4))
	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 5, 6))

	assert.Equal(t, []string{"elementA@5:6"}, f.query())
	assert.Equal(t, 1, f.nodes.LocationCount())
}

func TestSplitIndexStore_UncommittedTransactionIsInvisible(t *testing.T) {
	f := newStoreFixture(t)

	require.True(t, f.store.AboutToIndexDart(f.ctx, f.unitA))
	f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(f.elementA, 1, 2))
	assert.Empty(t, f.query())

	require.NoError(t, f.store.DoneIndex())
	assert.Equal(t, []string{"elementA@1:2"}, f.query())
}

func TestSplitIndexStore_UnfinishedTransactionIsAbandoned(t *testing.T) {
	f := newStoreFixture(t)

	require.True(t, f.store.AboutToIndexDart(f.ctx, f.unitA))
	f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(f.elementA, 1, 2))
	f.index(t, f.ctx, f.unitB, types.NewLocation(f.elementB, 10, 20))

	assert.Equal(t, []string{"elementB@10:20"}, f.query())
	assert.Len(t, f.nodes.Names(), 1)
}

func TestSplitIndexStore_NoTransaction(t *testing.T) {
	f := newStoreFixture(t)

	f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(f.elementA, 1, 2))
	assert.NoError(t, f.store.DoneIndex())
	assert.True(t, f.nodes.IsEmpty())
}

func TestSplitIndexStore_NilArgumentsAreIgnored(t *testing.T) {
	f := newStoreFixture(t)

	require.True(t, f.store.AboutToIndexDart(f.ctx, f.unitA))
	f.store.RecordRelationship(nil, testRelationship, types.NewLocation(f.elementA, 1, 2))
	f.store.RecordRelationship(f.target, testRelationship, nil)
	f.store.RecordRelationship(f.target, testRelationship, &types.Location{Offset: 1, Length: 2})
	require.NoError(t, f.store.DoneIndex())

	assert.Empty(t, f.query())
	assert.Zero(t, f.nodes.LocationCount())
	assert.Zero(t, f.store.Stats().Names)
}

func TestSplitIndexStore_RejectedDartUnits(t *testing.T) {
	orphan := &typestest.Element{
		Name: "orphan",
		Loc:  types.NewElementLocation("/home/user/orphan.dart"),
		Src:  types.FileSource("/home/user/orphan.dart"),
	}
	undefined := &typestest.Library{Element: typestest.Element{
		Name: "undefined",
		Loc:  types.NewElementLocation("/home/user/undefined.dart"),
		Src:  types.FileSource("/home/user/undefined.dart"),
	}}
	undefinedUnit := &typestest.Element{
		Name: "undefinedUnit",
		Loc:  types.NewElementLocation("/home/user/undefined.dart", "/home/user/undefined.dart"),
		Lib:  undefined,
		Src:  types.FileSource("/home/user/undefined.dart"),
	}
	disposed := typestest.NewContext("disposed")
	disposed.Dispose()

	tests := []struct {
		name string
		ctx  func(f *storeFixture) types.Context
		unit func(f *storeFixture) types.UnitElement
	}{
		{
			name: "disposed context",
			ctx:  func(*storeFixture) types.Context { return disposed },
			unit: func(f *storeFixture) types.UnitElement { return f.unitA },
		},
		{
			name: "disposed instrumented context",
			ctx:  func(*storeFixture) types.Context { return &typestest.Instrumented{Inner: disposed} },
			unit: func(f *storeFixture) types.UnitElement { return f.unitA },
		},
		{
			name: "nil context",
			ctx:  func(*storeFixture) types.Context { return nil },
			unit: func(f *storeFixture) types.UnitElement { return f.unitA },
		},
		{
			name: "nil unit",
			ctx:  func(f *storeFixture) types.Context { return f.ctx },
			unit: func(*storeFixture) types.UnitElement { return nil },
		},
		{
			name: "unit without library",
			ctx:  func(f *storeFixture) types.Context { return f.ctx },
			unit: func(*storeFixture) types.UnitElement { return orphan },
		},
		{
			name: "library without defining unit",
			ctx:  func(f *storeFixture) types.Context { return f.ctx },
			unit: func(*storeFixture) types.UnitElement { return undefinedUnit },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newStoreFixture(t)

			assert.False(t, f.store.AboutToIndexDart(tc.ctx(f), tc.unit(f)))
			f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(f.elementA, 1, 2))
			require.NoError(t, f.store.DoneIndex())

			assert.True(t, f.nodes.IsEmpty())
			assert.Empty(t, f.store.Contexts())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Transactions.WithLabelValues(metrics.KindDart, metrics.ResultRejected)))
		})
	}
}

func TestSplitIndexStore_HTML(t *testing.T) {
	f := newStoreFixture(t)
	html := typestest.NewHTML("/home/user/index.html")
	div := typestest.NewDeclaration(html, "div")
	f.ctx.Register(div)

	require.True(t, f.store.AboutToIndexHTML(f.ctx, html))
	f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(div, 5, 3))
	f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(div, 50, 3))
	require.NoError(t, f.store.DoneIndex())
	assert.Equal(t, []string{"div@5:3", "div@50:3"}, f.query())

	require.True(t, f.store.AboutToIndexHTML(f.ctx, html))
	f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(div, 7, 3))
	require.NoError(t, f.store.DoneIndex())

	assert.Equal(t, []string{"div@7:3"}, f.query())
	assert.Equal(t, "[1 locations, 1 sources, 1 names]", f.store.Statistics())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Transactions.WithLabelValues(metrics.KindHTML, metrics.ResultOK)))

	require.NoError(t, f.store.RemoveSource(f.ctx, html.Source()))
	assert.Empty(t, f.query())
	assert.True(t, f.nodes.IsEmpty())
}

func TestSplitIndexStore_HTMLDisposedContext(t *testing.T) {
	f := newStoreFixture(t)
	f.ctx.Dispose()

	assert.False(t, f.store.AboutToIndexHTML(f.ctx, typestest.NewHTML("/home/user/index.html")))
	assert.False(t, f.store.AboutToIndexHTML(f.ctx, nil))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Transactions.WithLabelValues(metrics.KindHTML, metrics.ResultRejected)))
}

func TestSplitIndexStore_Universe(t *testing.T) {
	f := newStoreFixture(t)

	require.True(t, f.store.AboutToIndexDart(f.ctx, f.unitA))
	f.store.RecordRelationship(types.Universe, types.DefinesClass, types.NewLocation(f.elementA, 0, 8))
	require.NoError(t, f.store.DoneIndex())

	assert.Equal(t, []string{"elementA@0:8"}, describe(f.store.GetRelationships(types.Universe, types.DefinesClass)))

	f.index(t, f.ctx, f.unitA)
	assert.Empty(t, f.store.GetRelationships(types.Universe, types.DefinesClass))
	assert.Zero(t, f.nodes.LocationCount())
}

func TestSplitIndexStore_InstrumentedContext(t *testing.T) {
	f := newStoreFixture(t)
	instrumented := &typestest.Instrumented{Inner: f.ctx}

	f.index(t, instrumented, f.unitA, types.NewLocation(f.elementA, 1, 2))

	assert.Equal(t, []string{"elementA@1:2"}, f.query())
	contexts := f.store.Contexts()
	require.Len(t, contexts, 1)
	assert.Same(t, f.ctx, contexts[0])

	require.NoError(t, f.store.RemoveContext(&typestest.Instrumented{Inner: instrumented}))
	assert.Empty(t, f.query())
	assert.Empty(t, f.store.Contexts())
}

func TestSplitIndexStore_RemoveContextKeepsOtherContexts(t *testing.T) {
	f := newStoreFixture(t)
	other := typestest.NewContext("other")
	other.Register(f.target, f.elementA, f.elementB, f.elementC)

	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	f.index(t, other, f.unitB, types.NewLocation(f.elementB, 10, 20))
	require.Len(t, f.store.Contexts(), 2)

	require.NoError(t, f.store.RemoveContext(f.ctx))

	assert.Equal(t, []string{"elementB@10:20"}, f.query())
	assert.Equal(t, []types.Context{other}, f.store.Contexts())

	require.NoError(t, f.store.RemoveContext(typestest.NewContext("unknown")))
	require.NoError(t, f.store.RemoveContext(nil))
	assert.Equal(t, []string{"elementB@10:20"}, f.query())
}

func TestSplitIndexStore_RemoveSource(t *testing.T) {
	f := newStoreFixture(t)
	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	f.index(t, f.ctx, f.unitB, types.NewLocation(f.elementB, 10, 20))
	f.index(t, f.ctx, f.unitC, types.NewLocation(f.elementC, 100, 200))

	require.NoError(t, f.store.RemoveSource(f.ctx, f.unitA.Source()))
	assert.ElementsMatch(t, []string{"elementB@10:20", "elementC@100:200"}, f.query())
	assert.Equal(t, 3, f.store.Stats().Sources)

	require.NoError(t, f.store.RemoveSource(f.ctx, f.library.Source()))
	assert.Empty(t, f.query())
	assert.True(t, f.nodes.IsEmpty())
	assert.Empty(t, f.store.Contexts())

	assert.NoError(t, f.store.RemoveSource(f.ctx, types.FileSource("/home/user/unknown.dart")))
	assert.NoError(t, f.store.RemoveSource(nil, f.unitA.Source()))
}

func TestSplitIndexStore_RemoveSources(t *testing.T) {
	f := newStoreFixture(t)
	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	f.index(t, f.ctx, f.unitB, types.NewLocation(f.elementB, 10, 20))
	f.index(t, f.ctx, f.unitC, types.NewLocation(f.elementC, 100, 200))

	onlyA := types.ContainerFunc(func(source types.Source) bool {
		return strings.HasSuffix(source.FullName(), "sourceA.dart")
	})
	require.NoError(t, f.store.RemoveSources(f.ctx, onlyA))
	assert.ElementsMatch(t, []string{"elementB@10:20", "elementC@100:200"}, f.query())

	require.NoError(t, f.store.RemoveSources(f.ctx, types.DirectoryContainer{Dir: "/elsewhere"}))
	assert.ElementsMatch(t, []string{"elementB@10:20", "elementC@100:200"}, f.query())

	require.NoError(t, f.store.RemoveSources(f.ctx, nil))
	assert.Empty(t, f.query())
	assert.True(t, f.nodes.IsEmpty())
	assert.Empty(t, f.store.Contexts())
}

func TestSplitIndexStore_RemoveSourcesInDirectory(t *testing.T) {
	f := newStoreFixture(t)
	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))

	require.NoError(t, f.store.RemoveSources(f.ctx, types.DirectoryContainer{Dir: "/home/user"}))
	assert.Empty(t, f.query())
	assert.True(t, f.nodes.IsEmpty())
}

func TestSplitIndexStore_Clear(t *testing.T) {
	f := newStoreFixture(t)
	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	require.True(t, f.store.AboutToIndexDart(f.ctx, f.unitB))
	f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(f.elementB, 10, 20))

	require.NoError(t, f.store.Clear())
	require.NoError(t, f.store.DoneIndex())

	assert.True(t, f.nodes.IsEmpty())
	assert.Empty(t, f.query())
	assert.Equal(t, Stats{}, f.store.Stats())
	assert.Equal(t, "[0 locations, 0 sources, 0 names]", f.store.Statistics())
}

func TestSplitIndexStore_Statistics(t *testing.T) {
	f := newStoreFixture(t)

	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	f.index(t, f.ctx, f.unitB, types.NewLocation(f.elementB, 10, 20))

	assert.Equal(t, "[2 locations, 3 sources, 1 names]", f.store.Statistics())
	assert.Equal(t, Stats{Locations: 2, Sources: 3, Names: 1, Contexts: 1}, f.store.Stats())
}

func TestSplitIndexStore_ForgetsMissingNodes(t *testing.T) {
	f := newStoreFixture(t)
	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	require.Equal(t, 1, f.store.Stats().Names)

	for _, name := range f.nodes.Names() {
		require.NoError(t, f.nodes.RemoveNode(name))
	}

	assert.Empty(t, f.query())
	assert.Zero(t, f.store.Stats().Names)

	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 3, 4))
	assert.Equal(t, []string{"elementA@3:4"}, f.query())
}

// failingNodes refuses every write.
type failingNodes struct {
	*index.MemoryNodeManager
}

func (failingNodes) PutNode(string, *index.IndexNode) error {
	return assert.AnError
}

func TestSplitIndexStore_FailedWrite(t *testing.T) {
	f := newStoreFixture(t)
	m := metrics.NewUnregistered()
	store := NewSplitIndexStore(failingNodes{f.nodes}, m)
	defer store.Close()

	require.True(t, store.AboutToIndexDart(f.ctx, f.unitA))
	store.RecordRelationship(f.target, testRelationship, types.NewLocation(f.elementA, 1, 2))
	err := store.DoneIndex()

	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, store.GetRelationships(f.target, testRelationship))
	assert.Zero(t, store.Stats().Names)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues(metrics.KindDart, metrics.ResultError)))
	assert.NoError(t, store.DoneIndex(), "the failed transaction is closed")
}

func TestSplitIndexStore_ConcurrentQueries(t *testing.T) {
	f := newStoreFixture(t)
	const rounds = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			unit, element := f.unitA, f.elementA
			if i%2 == 1 {
				unit, element = f.unitB, f.elementB
			}
			if f.store.AboutToIndexDart(f.ctx, unit) {
				f.store.RecordRelationship(f.target, testRelationship, types.NewLocation(element, i, 1))
				_ = f.store.DoneIndex()
			}
			if i%10 == 0 {
				_ = f.store.RemoveSource(f.ctx, f.unitA.Source())
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				locations := f.store.GetRelationships(f.target, testRelationship)
				assert.LessOrEqual(t, len(locations), 2)
				_ = f.store.Stats()
			}
		}()
	}
	wg.Wait()

	f.index(t, f.ctx, f.unitA, types.NewLocation(f.elementA, 1, 2))
	f.index(t, f.ctx, f.unitB, types.NewLocation(f.elementB, 10, 20))
	assert.ElementsMatch(t, []string{"elementA@1:2", "elementB@10:20"}, f.query())
}
