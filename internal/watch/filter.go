package watch

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are build, dependency and version-control directories
// that are never watched.
var DefaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	"dist",
	"build",
	".next",
	"target",
	".venv",
	"__pycache__",
	".idea",
	".vscode",
	"coverage",
	".cache",
}

// scratchPatterns are editor swap and temp files
var scratchPatterns = []string{"*.swp", "*.swx", "*.tmp", "*~", ".#*", ".DS_Store", "4913"}

// Filter decides which root-relative paths are watched
type Filter struct {
	include []string
	exclude []string
}

// NewFilter creates a filter. Empty include matches everything.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{include: include, exclude: exclude}
}

// SkipDir reports whether a directory subtree should not be watched
func (f *Filter) SkipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	if isDefaultExcluded(filepath.Base(rel)) {
		return true
	}
	return matchesAny(rel, f.exclude)
}

// Match reports whether a file is watched
func (f *Filter) Match(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, part := range strings.Split(normalized, "/") {
		if isDefaultExcluded(part) {
			return false
		}
	}
	if matchesAny(normalized, scratchPatterns) {
		return false
	}
	if matchesAny(normalized, f.exclude) {
		return false
	}
	if len(f.include) == 0 {
		return true
	}
	return matchesAny(normalized, f.include)
}

func isDefaultExcluded(name string) bool {
	for _, excl := range DefaultExcludes {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// matchesAny checks the path and its base name against doublestar globs
func matchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	base := filepath.Base(normalized)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
