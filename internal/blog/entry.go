package blog

import (
	"context"

	"blogdex/internal/model"
	"blogdex/internal/slug"
)

// Breadcrumb is one step of the trail from the top level to a document.
type Breadcrumb struct {
	Path string
	Name string
}

// Entry is a single document with its resolved entities.
type Entry struct {
	Document    *model.Document
	Categories  []model.Category // Outermost first
	Tags        []model.Tag
	Author      *model.Author
	Breadcrumbs []Breadcrumb // Category chain, then the document itself
}

// Entry synchronizes path and returns the document with its categories,
// tags and author, display overrides applied.
func (s *Service) Entry(ctx context.Context, path string) (*Entry, error) {
	doc, err := s.EnsureCurrent(ctx, path)
	if err != nil {
		return nil, err
	}

	e := &Entry{Document: doc}
	for _, p := range doc.CategoryPaths {
		c, err := s.database.FindCategory(ctx, p)
		if err != nil {
			return nil, storeErr("find category", err)
		}
		if c == nil {
			continue
		}
		s.overrideCategory(c)
		e.Categories = append(e.Categories, *c)
		e.Breadcrumbs = append(e.Breadcrumbs, Breadcrumb{Path: c.Path, Name: c.Name})
	}
	e.Breadcrumbs = append(e.Breadcrumbs, Breadcrumb{Path: doc.Path, Name: doc.Title})

	for _, key := range doc.TagKeys {
		t, err := s.database.FindTag(ctx, key)
		if err != nil {
			return nil, storeErr("find tag", err)
		}
		if t == nil {
			continue
		}
		s.overrideTag(t)
		e.Tags = append(e.Tags, *t)
	}

	if doc.AuthorKey != "" {
		a, err := s.database.FindAuthor(ctx, doc.AuthorKey)
		if err != nil {
			return nil, storeErr("find author", err)
		}
		if a != nil {
			s.overrideAuthor(a)
			e.Author = a
		}
	}
	return e, nil
}

// Category looks up a materialized category by path.
func (s *Service) Category(ctx context.Context, path string) (*model.Category, error) {
	c, err := s.database.FindCategory(ctx, slug.Path(path))
	if err != nil {
		return nil, storeErr("find category", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	s.overrideCategory(c)
	return c, nil
}

// Tag looks up a materialized tag by key or display name.
func (s *Service) Tag(ctx context.Context, key string) (*model.Tag, error) {
	t, err := s.database.FindTag(ctx, slug.Make(key))
	if err != nil {
		return nil, storeErr("find tag", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	s.overrideTag(t)
	return t, nil
}

// Author looks up a materialized author by key or display name.
func (s *Service) Author(ctx context.Context, key string) (*model.Author, error) {
	a, err := s.database.FindAuthor(ctx, slug.Make(key))
	if err != nil {
		return nil, storeErr("find author", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	s.overrideAuthor(a)
	return a, nil
}
