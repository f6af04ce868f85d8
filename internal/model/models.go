package model

import "time"

// DocumentState tags an indexed document as cleanly parsed or degraded.
type DocumentState int

const (
	StateOK DocumentState = iota
	StateDegraded
)

func (s DocumentState) String() string {
	if s == StateDegraded {
		return "degraded"
	}
	return "ok"
}

// Document is one indexed content item (a blog post or a page).
type Document struct {
	Path        string // Canonical slug path, primary key
	IsPage      bool   // Standalone page rather than a blog post
	Title       string
	Description string
	BodyHTML    string
	PlainText   string // Body with markup stripped, used for snippets
	Thumbnail   string
	PublishedAt *time.Time // nil = unpublished
	UpdatedAt   time.Time  // Source file mtime at last index time
	Featured    bool
	AuthorKey   string // "" = no author
	ParseError  string // Non-empty when the source failed to parse

	CategoryPaths []string // Directory-derived chain, most specific last
	TagKeys       []string // Front-matter order
	SearchText    string   // Analyzed terms, sentences separated by search.Boundary
}

// State reports whether the document was indexed from a degraded parse.
func (d *Document) State() DocumentState {
	if d.ParseError != "" {
		return StateDegraded
	}
	return StateOK
}

// Published reports whether the document has a publication time.
func (d *Document) Published() bool {
	return d.PublishedAt != nil
}

// Category is a hierarchical grouping derived from directory paths.
type Category struct {
	Path      string // Full slug path, e.g. "a/b"
	Name      string
	Thumbnail string
	Parent    string // "" at the top level
}

// Tag is a flat keyword attached to documents.
type Tag struct {
	Key       string
	Name      string
	Thumbnail string
}

// Author is the (single) author of a document.
type Author struct {
	Key       string
	Name      string
	Thumbnail string
}

// TagCount is a tag together with its usage among published posts.
type TagCount struct {
	Tag
	Count  int
	Latest time.Time
	Rank   int // Popularity band 1..5
}

// AuthorCount is an author together with their published post statistics.
type AuthorCount struct {
	Author
	Count  int
	Latest time.Time
}

// CategoryCount is a category with its recursive document count and,
// when requested, its immediate subcategories.
type CategoryCount struct {
	Category
	Count int
	Subs  []CategoryCount
}
