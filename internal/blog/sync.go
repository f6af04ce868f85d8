package blog

import (
	"context"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"blogdex/internal/model"
	"blogdex/internal/search"
	"blogdex/internal/slug"
)

// RootPath is the slug path of the site's front document.
const RootPath = "index"

// EnsureCurrent reconciles the index with the content tree for one path and
// returns the current document.
//
// A request for a non-canonical path renames its directories to the
// canonical form and returns ErrNotFound: every document has exactly one
// address. Concurrent calls for the same path share one reconciliation.
func (s *Service) EnsureCurrent(ctx context.Context, rawPath string) (*model.Document, error) {
	requested := strings.Trim(rawPath, "/")
	if requested == "" {
		requested = RootPath
	}

	path := slug.Path(requested)
	if path == "" {
		return nil, ErrNotFound
	}
	if path != requested {
		renamed, err := s.tree.Normalize(requested)
		if err != nil {
			return nil, fmt.Errorf("normalizing %s: %w", requested, err)
		}
		if renamed {
			s.logger.Info("content directory renamed", "from", requested, "to", path)
		}
		return nil, ErrNotFound
	}

	v, err, _ := s.syncs.Do(path, func() (any, error) {
		return s.sync(ctx, path)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Document), nil
}

func (s *Service) sync(ctx context.Context, path string) (*model.Document, error) {
	if s.tree.Ignored(path) {
		return nil, s.remove(ctx, path)
	}

	src, err := s.tree.Locate(path)
	if err != nil {
		return nil, fmt.Errorf("locating %s: %w", path, err)
	}
	if src == nil {
		return nil, s.remove(ctx, path)
	}

	existing, err := s.database.FindDocument(ctx, path)
	if err != nil {
		return nil, storeErr("find document", err)
	}
	if existing != nil && existing.UpdatedAt.Equal(src.ModTime) {
		return existing, nil
	}

	data, err := s.tree.Read(src)
	if err != nil {
		return nil, err
	}

	var (
		doc *model.Document
		m   Membership
		pe  *ParseError
	)
	parsed, err := s.parser.Parse(src, data)
	switch {
	case err == nil:
		doc, m = s.build(src, parsed)
	case errors.As(err, &pe):
		s.logger.Warn("document failed to parse", "path", path, "error", pe.Error())
		doc, m = s.degraded(src, pe, existing)
	default:
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := s.database.SaveDocument(ctx, doc, m); err != nil {
		return nil, storeErr("save document", err)
	}

	s.logger.Debug("document indexed", "path", path, "state", doc.State().String())
	return doc, nil
}

// remove deletes any row for path and reports the path as not found.
func (s *Service) remove(ctx context.Context, path string) error {
	if err := s.database.DeleteDocument(ctx, path); err != nil {
		return storeErr("delete document", err)
	}
	return ErrNotFound
}

func (s *Service) build(src *Source, p *Parsed) (*model.Document, Membership) {
	doc := &model.Document{
		Path:        src.Path,
		IsPage:      p.IsPage,
		Title:       p.Title,
		Description: p.Description,
		BodyHTML:    p.BodyHTML,
		Thumbnail:   p.Thumbnail,
		UpdatedAt:   storedMtime(src.ModTime),
		Featured:    p.Featured,
	}
	if doc.Title == "" {
		doc.Title = slug.Title(slug.Base(src.Path))
	}

	switch {
	case p.PublishedNow:
		now := storedPublished(s.clock.Now())
		doc.PublishedAt = &now
	case p.PublishedAt != nil:
		t := storedPublished(*p.PublishedAt)
		doc.PublishedAt = &t
	}

	m := Membership{Categories: categoryChain(src.Path)}

	seen := make(map[string]bool)
	for _, name := range p.Tags {
		key := slug.Make(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		m.Tags = append(m.Tags, model.Tag{Key: key, Name: name})
	}

	if key := slug.Make(p.Author); key != "" {
		m.Author = &model.Author{Key: key, Name: p.Author}
		doc.AuthorKey = key
	}

	doc.PlainText = search.PlainText(doc.BodyHTML)
	doc.SearchText = s.analyzer.SearchText(doc.Title, doc.Description, doc.PlainText)
	applyMembership(doc, m)
	return doc, m
}

// degraded synthesizes a servable record for a document that failed to
// parse. A previously indexed document keeps its place in listings.
func (s *Service) degraded(src *Source, pe *ParseError, existing *model.Document) (*model.Document, Membership) {
	doc := &model.Document{
		Path:       src.Path,
		Title:      slug.Title(slug.Base(src.Path)),
		UpdatedAt:  storedMtime(src.ModTime),
		ParseError: pe.Error(),
	}
	doc.BodyHTML = fmt.Sprintf(`<p class="parse-error">%s could not be parsed: %s</p>`,
		html.EscapeString(filepath.Base(src.File)), html.EscapeString(pe.Error()))
	if existing != nil {
		doc.IsPage = existing.IsPage
		doc.PublishedAt = existing.PublishedAt
	}

	m := Membership{Categories: categoryChain(src.Path)}
	doc.PlainText = search.PlainText(doc.BodyHTML)
	doc.SearchText = s.analyzer.SearchText(doc.Title)
	applyMembership(doc, m)
	return doc, m
}

func categoryChain(path string) []model.Category {
	var out []model.Category
	for _, p := range slug.Chain(path) {
		out = append(out, model.Category{
			Path:   p,
			Name:   slug.Title(slug.Base(p)),
			Parent: slug.Parent(p),
		})
	}
	return out
}

func applyMembership(doc *model.Document, m Membership) {
	for _, c := range m.Categories {
		doc.CategoryPaths = append(doc.CategoryPaths, c.Path)
	}
	for _, t := range m.Tags {
		doc.TagKeys = append(doc.TagKeys, t.Key)
	}
}

// The store keeps publication times in seconds and mtimes in nanoseconds,
// both in UTC. Building records at the same precision keeps a freshly
// indexed document identical to the one read back later.

func storedPublished(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0).UTC()
}

func storedMtime(t time.Time) time.Time {
	return time.Unix(0, t.UnixNano()).UTC()
}
