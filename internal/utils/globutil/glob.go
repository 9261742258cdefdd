package globutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Expand evaluates patterns against fs in declaration order. Matches of a
// single pattern are sorted; a path matched twice is kept at its first
// position. Patterns are evaluated on every call.
func Expand(fs afero.Fs, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		matches, err := afero.Glob(fs, filepath.FromSlash(p))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, m := range matches {
			m = filepath.ToSlash(m)
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// Match reports whether the slash-separated relative path matches any pattern.
func Match(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(filepath.FromSlash(p), filepath.FromSlash(path)); err == nil && ok {
			return true
		}
	}
	return false
}

// Dirs returns the distinct non-wildcard directories of patterns.
func Dirs(patterns []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		dir := filepath.Dir(filepath.FromSlash(p))
		for hasMeta(dir) {
			dir = filepath.Dir(dir)
		}
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	return out
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}
