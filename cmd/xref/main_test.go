package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/metrics"
	"github.com/standardbeagle/xref/internal/storage"
	"github.com/standardbeagle/xref/internal/types"
	"github.com/standardbeagle/xref/internal/types/typestest"
)

// setupTestIndex writes two nodes into the default storage directory of a new root
func setupTestIndex(t *testing.T) (string, *storage.SeparateFileManager) {
	t.Helper()
	root := t.TempDir()
	files, err := storage.NewSeparateFileManager(filepath.Join(root, config.DefaultStorageDir))
	require.NoError(t, err)
	manager := storage.NewFileNodeManager(files, nil, metrics.NewUnregistered())

	ctx := typestest.NewContext("ctx")
	_, libUnit := typestest.NewLibrary("/home/user/lib.dart")
	_, mainUnit := typestest.NewLibrary("/home/user/main.dart")
	square := typestest.NewDeclaration(libUnit, "square")
	main := typestest.NewDeclaration(mainUnit, "main")

	node := manager.NewNode(ctx)
	node.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(main, 120, 6))
	node.RecordRelationship(square, types.IsInvokedBy, types.NewLocation(main, 140, 6))
	require.NoError(t, manager.PutNode("AB-CD.index", node))

	node = manager.NewNode(ctx)
	node.RecordRelationship(main, types.IsReferencedBy, types.NewLocation(square, 3, 4))
	require.NoError(t, manager.PutNode("AB-EF.index", node))
	return root, files
}

func runApp(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"xref", "--root", root}, args...))
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	root, _ := setupTestIndex(t)

	out, err := runApp(t, root, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "2 nodes")
	assert.Contains(t, out, "2 relations, 3 locations (0 invalid)")

	out, err = runApp(t, root, "stats", "--json")
	require.NoError(t, err)
	var report StatsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, config.BackendFile, report.Backend)
	assert.Equal(t, 2, report.Nodes)
	assert.Equal(t, 3, report.Locations)
}

func TestListCommand(t *testing.T) {
	root, _ := setupTestIndex(t)

	out, err := runApp(t, root, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "AB-CD.index")
	assert.Contains(t, out, "2 locations")
	assert.Contains(t, out, "AB-EF.index")

	out, err = runApp(t, root, "ls", "--json")
	require.NoError(t, err)
	var reports []blobReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "AB-CD.index", reports[0].Name)
	assert.Equal(t, storage.FormatVersion, reports[0].Version)
}

func TestDumpCommand(t *testing.T) {
	root, _ := setupTestIndex(t)

	out, err := runApp(t, root, "dump", "AB-CD.index")
	require.NoError(t, err)
	assert.Contains(t, out, "node AB-CD.index: format 1")
	assert.Contains(t, out, "1 relations, 2 locations")

	_, err = runApp(t, root, "dump", "AB-CD.indx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean: AB-CD.index")

	_, err = runApp(t, root, "dump", "zzzzzzzzzzzzzzzzzzzzzz")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")

	_, err = runApp(t, root, "dump")
	assert.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	root, files := setupTestIndex(t)

	out, err := runApp(t, root, "verify", "-j", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "2 nodes ok")

	require.NoError(t, files.Write("AB-XY.index", []byte{0, 0, 0, 1, 0}))
	out, err = runApp(t, root, "verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 nodes are invalid")
	assert.Contains(t, out, "AB-XY.index")
}

func TestClearCommand(t *testing.T) {
	root, files := setupTestIndex(t)

	out, err := runApp(t, root, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared")

	names, err := files.Names()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStorageOverrides(t *testing.T) {
	root, _ := setupTestIndex(t)

	_, err := runApp(t, root, "--backend", "memory", "list")
	assert.Error(t, err)

	_, err = runApp(t, root, "--backend", "s3", "list")
	assert.Error(t, err)

	out, err := runApp(t, root, "--dir", t.TempDir(), "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "0 nodes")
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "xref 0.1.0")
	assert.Contains(t, out, "build id:")
}

func TestDebugLogFile(t *testing.T) {
	t.Cleanup(func() { debug.EnableDebug = "false" })
	root, _ := setupTestIndex(t)
	logDir := t.TempDir()

	_, err := runApp(t, root, "--debug-log", logDir, "verify")
	require.NoError(t, err)

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
