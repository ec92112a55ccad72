package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GitignorePatterns converts the .gitignore of root into doublestar exclude
// patterns. Negated entries are skipped. A missing file yields no patterns.
func GitignorePatterns(root string) ([]string, error) {
	file, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read .gitignore: %w", err)
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, gitignoreToGlob(line)...)
	}
	return patterns, scanner.Err()
}

// gitignoreToGlob returns the patterns matching the entry and, for entries that
// may name a directory, everything below it.
func gitignoreToGlob(line string) []string {
	dirOnly := strings.HasSuffix(line, "/")
	line = strings.TrimSuffix(line, "/")

	var base string
	if strings.HasPrefix(line, "/") || strings.Contains(line, "/") {
		// anchored to root
		base = strings.TrimPrefix(line, "/")
	} else {
		base = "**/" + line
	}

	if dirOnly {
		return []string{base + "/**"}
	}
	return []string{base, base + "/**"}
}
