package blog

import "time"

// Source is a located content file on disk.
type Source struct {
	Path    string // Canonical slug path
	File    string // Absolute path of the content file
	ModTime time.Time
}

// ContentTree is the authoritative reader of the content directory.
// Slug paths map to directories; each document directory holds one content
// file.
type ContentTree interface {
	// Locate finds the content file for a canonical slug path. Directories
	// along the way whose names only differ from the canonical slug are
	// renamed to it. Returns nil, nil when the directory is missing or holds
	// no content file.
	Locate(path string) (*Source, error)

	// Normalize renames every directory along the (non-canonical) path to
	// its canonical form when the canonical name is free. It reports whether
	// anything was renamed.
	Normalize(path string) (bool, error)

	// Read returns the contents of a located source.
	Read(src *Source) ([]byte, error)

	// Ignored reports whether path is excluded from the index.
	Ignored(path string) bool
}
