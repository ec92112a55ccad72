// Package pathutil converts between the absolute paths sources are indexed by
// and the root-relative paths used by exclude patterns and user-facing output.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails, the path is already
// relative or it lies outside root.
//
// Examples:
//   - ToRelative("/home/user/project/lib/main.dart", "/home/user/project") → "lib/main.dart"
//   - ToRelative("/other/lib.dart", "/home/user/project") → "/other/lib.dart"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" || !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	relPath, err := filepath.Rel(filepath.Clean(rootDir), absPath)
	if err != nil || isOutside(relPath) {
		return absPath
	}
	return relPath
}

// ToRelativeAll converts every path with ToRelative into a new slice.
func ToRelativeAll(paths []string, rootDir string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = ToRelative(p, rootDir)
	}
	return out
}

// IsWithin reports whether path is dir or lies below it.
func IsWithin(path, dir string) bool {
	if path == "" || dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	return err == nil && !isOutside(rel)
}

func isOutside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
