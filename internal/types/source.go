package types

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/xref/pkg/pathutil"
)

// Source is a source file known to the analyzer. A source is identified by its
// full name; distinct instances with the same full name are the same source.
type Source interface {
	// FullName is the absolute path of the file; it identifies the source inside a context.
	FullName() string
}

// FileSource is the default Source: a file identified by its full path.
type FileSource string

// FullName implements Source.
func (s FileSource) FullName() string { return string(s) }

func (s FileSource) String() string { return string(s) }

// SourceContainer selects a subset of sources, e.g. everything under a directory.
type SourceContainer interface {
	Contains(source Source) bool
}

// ContainerFunc adapts a function to SourceContainer.
type ContainerFunc func(source Source) bool

// Contains implements SourceContainer.
func (f ContainerFunc) Contains(source Source) bool { return f(source) }

// DirectoryContainer contains every source whose full name lies under Dir.
type DirectoryContainer struct {
	Dir string
}

// Contains implements SourceContainer.
func (c DirectoryContainer) Contains(source Source) bool {
	if source == nil {
		return false
	}
	return pathutil.IsWithin(source.FullName(), c.Dir)
}

// GlobContainer contains every source whose full name matches one of the doublestar patterns.
type GlobContainer struct {
	Patterns []string
}

// NewGlobContainer validates the patterns and returns a container.
func NewGlobContainer(patterns ...string) (*GlobContainer, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, doublestar.ErrBadPattern
		}
	}
	return &GlobContainer{Patterns: patterns}, nil
}

// Contains implements SourceContainer.
func (c *GlobContainer) Contains(source Source) bool {
	if source == nil {
		return false
	}
	name := filepath.ToSlash(source.FullName())
	for _, pattern := range c.Patterns {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
