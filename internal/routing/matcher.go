package routing

import (
	"strings"

	"github.com/vyrodovalexey/edgegate/internal/config"
)

// PathMatcher matches cleaned request paths.
type PathMatcher interface {
	Match(path string) bool
	Type() string
	Pattern() string
}

// ExactMatcher matches one path.
type ExactMatcher struct {
	path string
}

// NewExactMatcher creates a new exact path matcher.
func NewExactMatcher(path string) *ExactMatcher {
	return &ExactMatcher{path: path}
}

// Match checks if the path matches exactly.
func (m *ExactMatcher) Match(path string) bool {
	return path == m.path
}

// Type returns the matcher type.
func (m *ExactMatcher) Type() string {
	return config.MatchExact
}

// Pattern returns the pattern.
func (m *ExactMatcher) Pattern() string {
	return m.path
}

// PrefixMatcher matches a path and everything below it.
type PrefixMatcher struct {
	prefix string
}

// NewPrefixMatcher creates a new prefix path matcher.
func NewPrefixMatcher(prefix string) *PrefixMatcher {
	return &PrefixMatcher{prefix: prefix}
}

// Match checks if the path starts with the prefix at a segment boundary.
func (m *PrefixMatcher) Match(path string) bool {
	if !strings.HasPrefix(path, m.prefix) {
		return false
	}
	if len(path) == len(m.prefix) || strings.HasSuffix(m.prefix, "/") {
		return true
	}
	return path[len(m.prefix)] == '/'
}

// Type returns the matcher type.
func (m *PrefixMatcher) Type() string {
	return config.MatchPrefix
}

// Pattern returns the pattern.
func (m *PrefixMatcher) Pattern() string {
	return m.prefix
}
