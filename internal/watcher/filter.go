package watcher

import (
	"path/filepath"
	"strings"
)

// DefaultIgnorePatterns returns glob patterns for files that are usually
// still being written by another program.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		"*.partial",
		".~*", // editor lock files, e.g. .~lock
		"*.swp",
	}
}

// FileFilter decides which file names to leave alone.
type FileFilter struct {
	patterns []string
}

// NewFileFilter creates a FileFilter. If patterns is empty, the defaults are used.
func NewFileFilter(patterns []string) *FileFilter {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns()
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &FileFilter{patterns: lowered}
}

// ShouldIgnore reports whether the base name of path matches any pattern.
// Matching is case-insensitive. A pattern with a leading dot and no
// wildcard, such as ".tmp", also matches as a plain suffix.
func (f *FileFilter) ShouldIgnore(path string) bool {
	name := strings.ToLower(filepath.Base(path))

	for _, pattern := range f.patterns {
		if matched, err := filepath.Match(pattern, name); err == nil && matched {
			return true
		}
		if strings.HasPrefix(pattern, ".") && !strings.ContainsAny(pattern, "*?[") {
			if strings.HasSuffix(name, pattern) {
				return true
			}
		}
	}
	return false
}

// Patterns returns a copy of the (lower-cased) patterns in use.
func (f *FileFilter) Patterns() []string {
	result := make([]string, len(f.patterns))
	copy(result, f.patterns)
	return result
}
