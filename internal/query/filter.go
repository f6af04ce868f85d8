package query

import (
	"time"

	"blogdex/internal/search"
)

// Kind identifies a filter family. Filters of the same kind OR together,
// different kinds AND together.
type Kind string

const (
	KindCategories Kind = "categories"
	KindTags       Kind = "tags"
	KindAuthors    Kind = "authors"
	KindArchives   Kind = "archives"
	KindSearch     Kind = "search"
	KindPosts      Kind = "posts"
)

// Filter is one validated clause of a query. The set of implementations is
// closed: Categories, Tag, Author, Archive, Search, Posts and Invalid.
type Filter interface {
	Kind() Kind
	filter()
}

// Categories matches documents in any of the given categories or their
// descendants.
type Categories struct {
	Paths []string
}

// Tag matches documents tagged with Key.
type Tag struct {
	Key string
}

// Author matches documents written by Key.
type Author struct {
	Key string
}

// Archive matches documents published within [From, To], inclusive.
type Archive struct {
	From time.Time
	To   time.Time
}

// Search matches documents containing every clause of Query.
type Search struct {
	Query *search.Query
}

// Posts matches exactly the listed paths.
type Posts struct {
	Paths []string
}

// Invalid is a filter whose input could not be validated. It matches nothing.
type Invalid struct {
	For    Kind
	Reason string
}

func (Categories) Kind() Kind { return KindCategories }
func (Tag) Kind() Kind        { return KindTags }
func (Author) Kind() Kind     { return KindAuthors }
func (Archive) Kind() Kind    { return KindArchives }
func (Search) Kind() Kind     { return KindSearch }
func (Posts) Kind() Kind      { return KindPosts }
func (f Invalid) Kind() Kind  { return f.For }

func (Categories) filter() {}
func (Tag) filter()        {}
func (Author) filter()     {}
func (Archive) filter()    {}
func (Search) filter()     {}
func (Posts) filter()      {}
func (Invalid) filter()    {}

// Spec is a complete listing request: the filters plus listing options.
type Spec struct {
	Filters []Filter

	// IncludePages lists pages alongside posts.
	IncludePages bool
	// FeaturedFirst pins featured documents ahead of the date ordering.
	FeaturedFirst bool
}

// With returns a copy of s with f appended.
func (s Spec) With(f Filter) Spec {
	out := s
	out.Filters = append(append([]Filter(nil), s.Filters...), f)
	return out
}

// Invalid returns the filters that failed validation.
func (s Spec) Invalid() []Invalid {
	var out []Invalid
	for _, f := range s.Filters {
		if inv, ok := f.(Invalid); ok {
			out = append(out, inv)
		}
	}
	return out
}

// Search returns the combined search query of the spec, or nil.
func (s Spec) Search() *search.Query {
	var q *search.Query
	for _, f := range s.Filters {
		sf, ok := f.(Search)
		if !ok || sf.Query == nil {
			continue
		}
		if q == nil {
			q = sf.Query
		} else {
			q = q.Union(sf.Query)
		}
	}
	return q
}

// Page selects a window of a listing. Limit <= 0 means no limit.
type Page struct {
	Offset int
	Limit  int
}

// All is the unbounded page.
var All = Page{}
