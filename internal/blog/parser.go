package blog

import "time"

// Parsed is the structured form of one content file.
type Parsed struct {
	Title       string
	Description string
	BodyHTML    string
	Thumbnail   string

	// PublishedNow marks the document as published at index time.
	PublishedNow bool
	// PublishedAt is set when the front matter names a date.
	PublishedAt *time.Time

	IsPage   bool
	Featured bool
	Author   string   // Display name, "" if none
	Tags     []string // Display names in front-matter order
}

// Parser turns the bytes of a content file into a Parsed document.
// A malformed document yields a *ParseError; other errors are treated as
// I/O failures.
type Parser interface {
	Parse(src *Source, data []byte) (*Parsed, error)
}

// Overrides is the read-only configuration lookup for display names and
// thumbnails. kind is one of the Kind* constants.
type Overrides interface {
	Lookup(kind, key string) (name, thumbnail string, ok bool)
}

const (
	KindCategories = "categories"
	KindTags       = "tags"
	KindAuthors    = "authors"
)

// NoOverrides never overrides anything.
type NoOverrides struct{}

func (NoOverrides) Lookup(string, string) (string, string, bool) { return "", "", false }
