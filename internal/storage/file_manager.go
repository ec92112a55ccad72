// Package storage persists IndexNodes as named binary blobs.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/encoding"
	xerrors "github.com/standardbeagle/xref/internal/errors"
)

// FileManager stores named blobs.
// Read of a missing blob returns an error wrapping os.ErrNotExist.
type FileManager interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	// Delete removes the blob; deleting a missing blob is not an error.
	Delete(name string) error
	// Names lists the stored blobs in lexical order.
	Names() ([]string, error)
	// Clear deletes every blob.
	Clear() error
	Close() error
}

const tempSuffix = ".tmp"

// SeparateFileManager keeps one file per blob under a root directory. Names and
// Clear only consider files named like nodes (and their leftover temp files),
// so the directory may hold other files.
type SeparateFileManager struct {
	root string

	// serializes writers of the same root; readers rely on atomic renames
	mu sync.Mutex
}

// NewSeparateFileManager creates the root directory if needed.
func NewSeparateFileManager(root string) (*SeparateFileManager, error) {
	if root == "" {
		return nil, errors.New("storage root directory is required")
	}
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", root, err)
	}
	return &SeparateFileManager{root: root}, nil
}

// Root returns the directory holding the blobs.
func (m *SeparateFileManager) Root() string {
	return m.root
}

func (m *SeparateFileManager) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(m.root, name), nil
}

// Read implements FileManager.
func (m *SeparateFileManager) Read(name string) ([]byte, error) {
	path, err := m.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Write implements FileManager. The blob is replaced atomically.
func (m *SeparateFileManager) Write(name string, data []byte) error {
	path, err := m.path(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tmp := path + tempSuffix
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Delete implements FileManager.
func (m *SeparateFileManager) Delete(name string) error {
	path, err := m.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Names implements FileManager.
func (m *SeparateFileManager) Names() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !encoding.IsNodeName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Clear implements FileManager.
func (m *SeparateFileManager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.root)
	if err != nil {
		return err
	}
	var errs []error
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !encoding.IsNodeName(strings.TrimSuffix(e.Name(), tempSuffix)) {
			continue
		}
		if err := os.Remove(filepath.Join(m.root, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	debug.LogStorage("cleared %d blobs in %s\n", removed, m.root)
	return xerrors.NewMultiError(errs).ErrorOrNil()
}

// Close implements FileManager.
func (m *SeparateFileManager) Close() error {
	return nil
}
