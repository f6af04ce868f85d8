package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
)

// ignorePattern is one parsed line of an ignore list.
type ignorePattern struct {
	pattern   string
	matchPath bool // Anchored at the content root rather than matched against a single segment
	negate    bool // "!pattern" re-includes what an earlier pattern ignored
}

// IgnoreMatcher decides which slug paths of the content tree are hidden from
// the index. Patterns without '/' match any single path segment; patterns
// with '/' match the leading segments of a path. Slug paths are lowercase,
// so patterns are too. The last matching pattern wins.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{}
		if strings.HasPrefix(raw, "!") {
			p.negate = true
			raw = raw[1:]
		}
		raw = strings.ToLower(strings.Trim(raw, "/"))
		if raw == "" {
			continue
		}
		p.pattern = raw
		p.matchPath = strings.Contains(raw, "/")
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// MatchTree reports whether the slug path is hidden, either itself or
// through one of its ancestors, so ignoring "drafts" hides "drafts/post".
func (m *IgnoreMatcher) MatchTree(slugPath string) bool {
	if len(m.patterns) == 0 {
		return false
	}
	for i := 0; i <= len(slugPath); i++ {
		if i == len(slugPath) || slugPath[i] == '/' {
			if m.match(slugPath[:i]) {
				return true
			}
		}
	}
	return false
}

// match applies every pattern to one prefix of a slug path.
func (m *IgnoreMatcher) match(prefix string) bool {
	base := path.Base(prefix)
	ignored := false
	for _, p := range m.patterns {
		subject := base
		if p.matchPath {
			subject = prefix
		}
		matched, err := path.Match(p.pattern, subject)
		if err != nil {
			// Bad pattern, skip it.
			continue
		}
		if matched {
			ignored = !p.negate
		}
	}
	return ignored
}

// ParseIgnoreFile reads a .blogdexignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
