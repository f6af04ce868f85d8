package testutil

import (
	"sync"

	"blogdex/internal/blog"
)

// CountingParser wraps a Parser and records which paths it parsed.
type CountingParser struct {
	Parser blog.Parser

	mu    sync.Mutex
	calls map[string]int
}

// NewCountingParser wraps p.
func NewCountingParser(p blog.Parser) *CountingParser {
	return &CountingParser{Parser: p, calls: make(map[string]int)}
}

func (c *CountingParser) Parse(src *blog.Source, data []byte) (*blog.Parsed, error) {
	c.mu.Lock()
	c.calls[src.Path]++
	c.mu.Unlock()
	return c.Parser.Parse(src, data)
}

// Calls returns how many times path was parsed.
func (c *CountingParser) Calls(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

var _ blog.Parser = (*CountingParser)(nil)
