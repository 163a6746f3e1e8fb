package changeset

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchPath reports whether the slash-separated path p matches the glob
// pattern. "**" matches any number of directories, including none. A pattern
// without a slash matches the base name, so "*.go" matches at any depth.
// Invalid patterns match nothing.
func MatchPath(pattern, p string) bool {
	if !strings.Contains(pattern, "/") {
		p = path.Base(p)
	}
	ok, err := doublestar.Match(pattern, p)
	return err == nil && ok
}

// MatchAny reports whether p matches any of the patterns.
func MatchAny(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if MatchPath(pattern, p) {
			return true
		}
	}
	return false
}

// ValidPattern reports whether pattern is a well-formed glob.
func ValidPattern(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}
