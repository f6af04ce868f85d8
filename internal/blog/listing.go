package blog

import (
	"context"
	"sort"
	"strconv"

	"blogdex/internal/model"
	"blogdex/internal/query"
	"blogdex/internal/search"
)

// Row is one listed document. Snippet, Words and Score are only set for
// search listings.
type Row struct {
	Document *model.Document
	Snippet  string
	Words    []string
	Score    float64
}

// Listing is one page of a query result together with the total number of
// matching documents.
type Listing struct {
	Rows  []Row
	Total int
}

// Link names an adjacent document.
type Link struct {
	Path  string
	Title string
}

// Neighbors are the documents around one entry of a listing. Previous is
// the older entry that follows it, Next the newer entry that precedes it.
type Neighbors struct {
	Previous *Link
	Next     *Link
}

// Query returns one page of the documents matching spec. Invalid filters
// never fail the call; they only narrow the result to nothing.
func (s *Service) Query(ctx context.Context, spec query.Spec, page query.Page) (*Listing, error) {
	plan := s.compile(spec)

	if plan.Search != nil {
		rows, err := s.ranked(ctx, plan)
		if err != nil {
			return nil, err
		}
		listing := &Listing{Total: len(rows), Rows: window(rows, page)}
		for i := range listing.Rows {
			s.decorate(&listing.Rows[i], plan.Search)
		}
		return listing, nil
	}

	docs, err := s.database.ListDocuments(ctx, plan, page)
	if err != nil {
		return nil, storeErr("list documents", err)
	}
	total, err := s.database.CountDocuments(ctx, plan)
	if err != nil {
		return nil, storeErr("count documents", err)
	}

	listing := &Listing{Total: total, Rows: make([]Row, len(docs))}
	for i, d := range docs {
		listing.Rows[i] = Row{Document: d}
	}
	return listing, nil
}

// Count returns the number of documents matching spec, computed from the
// same predicate as Query.
func (s *Service) Count(ctx context.Context, spec query.Spec) (int, error) {
	n, err := s.database.CountDocuments(ctx, s.compile(spec))
	if err != nil {
		return 0, storeErr("count documents", err)
	}
	return n, nil
}

// Neighbors finds the entries adjacent to path in the listing produced by
// spec. A document outside the listing has no neighbors.
func (s *Service) Neighbors(ctx context.Context, path string, spec query.Spec) (*Neighbors, error) {
	doc, err := s.EnsureCurrent(ctx, path)
	if err != nil {
		return nil, err
	}

	plan := s.compile(spec)
	var docs []*model.Document
	if plan.Search != nil {
		rows, err := s.ranked(ctx, plan)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			docs = append(docs, r.Document)
		}
	} else {
		docs, err = s.database.ListDocuments(ctx, plan, query.All)
		if err != nil {
			return nil, storeErr("list documents", err)
		}
	}

	n := &Neighbors{}
	for i, d := range docs {
		if d.Path != doc.Path {
			continue
		}
		if i > 0 {
			n.Next = &Link{Path: docs[i-1].Path, Title: docs[i-1].Title}
		}
		if i+1 < len(docs) {
			n.Previous = &Link{Path: docs[i+1].Path, Title: docs[i+1].Title}
		}
		break
	}
	return n, nil
}

func (s *Service) compile(spec query.Spec) query.Plan {
	for _, inv := range spec.Invalid() {
		s.logger.Debug("invalid filter", "kind", string(inv.For), "reason", inv.Reason)
	}
	return query.Compile(spec)
}

// ranked loads every match of a search plan and orders it by score, then
// publication time, then path.
func (s *Service) ranked(ctx context.Context, plan query.Plan) ([]Row, error) {
	docs, err := s.database.ListDocuments(ctx, plan, query.All)
	if err != nil {
		return nil, storeErr("list documents", err)
	}

	rows := make([]Row, len(docs))
	for i, d := range docs {
		rows[i] = Row{Document: d, Score: plan.Search.Score(d.Title, d.SearchText)}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return newer(a.Document, b.Document)
	})
	return rows, nil
}

func (s *Service) decorate(row *Row, q *search.Query) {
	d := row.Document
	key := d.Path + "@" + strconv.FormatInt(d.UpdatedAt.UnixNano(), 10)
	m := s.snippets.Highlight(key, search.Text{
		Title:       d.Title,
		Description: d.Description,
		Body:        d.PlainText,
	}, q)
	row.Snippet = m.Snippet
	row.Words = m.Words
}

// newer orders documents by publication time descending, then path.
func newer(a, b *model.Document) bool {
	if !a.PublishedAt.Equal(*b.PublishedAt) {
		return a.PublishedAt.After(*b.PublishedAt)
	}
	return a.Path < b.Path
}

func window(rows []Row, page query.Page) []Row {
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []Row{}
	}
	rows = rows[offset:]
	if page.Limit > 0 && page.Limit < len(rows) {
		rows = rows[:page.Limit]
	}
	return rows
}
