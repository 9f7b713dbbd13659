package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandGlobs expands glob patterns among the given file names, keeping the
// order they were given in and dropping duplicates. Names of existing files
// are never expanded, even when they contain glob metacharacters. Names
// without metacharacters, and patterns that match nothing, are passed
// through as-is so that opening them reports the name the user typed.
func ExpandGlobs(patterns []string) ([]string, error) {
	files := make([]string, 0, len(patterns))
	seen := make(map[string]struct{})

	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		files = append(files, name)
	}

	for _, pattern := range patterns {
		if !hasGlobMeta(pattern) {
			add(pattern)
			continue
		}
		if _, err := os.Lstat(pattern); err == nil {
			add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, match := range matches {
			add(match)
		}
	}

	return files, nil
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
