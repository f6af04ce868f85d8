package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"blogdex/internal/blog"
	"blogdex/internal/slug"
)

// IgnoreFileName is read from the content root and merged with configured patterns.
const IgnoreFileName = ".blogdexignore"

// ContentFiles are the recognized content file names of a document directory,
// in lookup order.
var ContentFiles = []string{"index.md", "index.markdown", "index.html"}

// OSContentTree is the real filesystem implementation of blog.ContentTree.
// Every slug path maps to a directory under root.
type OSContentTree struct {
	root   string
	ignore *IgnoreMatcher
}

// NewOSContentTree creates a content tree rooted at root. patterns are
// combined with the root's ignore file, if any.
func NewOSContentTree(root string, patterns []string) (*OSContentTree, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving content root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat content root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root is not a directory: %s", absRoot)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(absRoot, IgnoreFileName))
	if err != nil {
		return nil, err
	}

	all := append(append([]string(nil), patterns...), filePatterns...)
	return &OSContentTree{
		root:   absRoot,
		ignore: NewIgnoreMatcher(all),
	}, nil
}

// Root returns the absolute content root.
func (t *OSContentTree) Root() string {
	return t.root
}

// Locate finds the content file for a canonical slug path. A segment that only
// exists on disk under a divergent spelling is renamed to its canonical form.
func (t *OSContentTree) Locate(path string) (*blog.Source, error) {
	dir := t.root
	for _, seg := range strings.Split(path, "/") {
		next, err := t.resolveSegment(dir, seg)
		if err != nil {
			return nil, err
		}
		if next == "" {
			return nil, nil
		}
		dir = next
	}

	for _, name := range ContentFiles {
		file := filepath.Join(dir, name)
		info, err := os.Lstat(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat content file: %w", err)
		}
		// Symlinks, devices, pipes and sockets are never content.
		if !info.Mode().IsRegular() {
			continue
		}
		return &blog.Source{Path: path, File: file, ModTime: info.ModTime()}, nil
	}
	return nil, nil
}

// resolveSegment returns the directory for canonical segment seg under dir,
// renaming a divergent sibling into place. It returns "" when there is none.
func (t *OSContentTree) resolveSegment(dir, seg string) (string, error) {
	target := filepath.Join(dir, seg)
	info, err := os.Lstat(target)
	switch {
	case err == nil:
		if info.IsDir() {
			return target, nil
		}
		return "", nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("stat directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || slug.Make(entry.Name()) != seg {
			continue
		}
		if err := os.Rename(filepath.Join(dir, entry.Name()), target); err != nil {
			return "", fmt.Errorf("renaming %s to canonical name: %w", entry.Name(), err)
		}
		return target, nil
	}
	return "", nil
}

// Normalize renames every directory along the raw request path whose name is
// not canonical, as long as the canonical name is free.
func (t *OSContentTree) Normalize(path string) (bool, error) {
	renamed := false
	dir := t.root
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		canon := slug.Make(seg)
		if canon == "" {
			return renamed, nil
		}
		target := filepath.Join(dir, canon)
		if seg == canon {
			dir = target
			continue
		}

		current := filepath.Join(dir, seg)
		info, err := os.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				// Nothing on disk under the raw name; follow the canonical one.
				dir = target
				continue
			}
			return renamed, fmt.Errorf("stat directory: %w", err)
		}
		if !info.IsDir() {
			return renamed, nil
		}

		ok, err := renameDir(current, target, info)
		if err != nil {
			return renamed, err
		}
		if !ok {
			return renamed, nil
		}
		renamed = true
		dir = target
	}
	return renamed, nil
}

// renameDir moves from to to unless to is a different existing entry. On a
// case-insensitive filesystem from and to may be the same directory, which is
// renamed through a temporary name.
func renameDir(from, to string, fromInfo os.FileInfo) (bool, error) {
	toInfo, err := os.Lstat(to)
	switch {
	case err == nil && !os.SameFile(fromInfo, toInfo):
		return false, nil
	case err == nil:
		tmp := to + ".blogdex-rename"
		if err := os.Rename(from, tmp); err != nil {
			return false, fmt.Errorf("renaming %s: %w", from, err)
		}
		from = tmp
	case !os.IsNotExist(err):
		return false, fmt.Errorf("stat directory: %w", err)
	}

	if err := os.Rename(from, to); err != nil {
		return false, fmt.Errorf("renaming %s: %w", from, err)
	}
	return true, nil
}

// Read returns the contents of a located source.
func (t *OSContentTree) Read(src *blog.Source) ([]byte, error) {
	data, err := os.ReadFile(src.File)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src.File, err)
	}
	return data, nil
}

// Ignored reports whether the slug path or any of its ancestors matches an
// ignore pattern.
func (t *OSContentTree) Ignored(path string) bool {
	return t.ignore.MatchTree(path)
}

// SlugPath maps a file or directory under the content root to the slug path
// of the document it belongs to. A content file maps to its directory.
func (t *OSContentTree) SlugPath(name string) (string, bool) {
	rel, err := filepath.Rel(t.root, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, cf := range ContentFiles {
		if rel == cf {
			return "", false
		}
		if strings.HasSuffix(rel, "/"+cf) {
			rel = strings.TrimSuffix(rel, "/"+cf)
			break
		}
	}
	p := slug.Path(rel)
	return p, p != ""
}

// Compile-time check that OSContentTree implements blog.ContentTree interface
var _ blog.ContentTree = (*OSContentTree)(nil)
