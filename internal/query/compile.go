package query

import (
	"strings"

	"blogdex/internal/search"
)

// Predicate is a boolean SQL expression over the documents table aliased as
// d, with its positional arguments.
type Predicate struct {
	SQL  string
	Args []any
}

// Plan is a compiled Spec. Page and count queries are both built from Where,
// so they always agree on membership.
type Plan struct {
	Where   Predicate
	OrderBy string
	// Search is the combined search query when the listing is search ranked.
	Search *search.Query
	// Empty is true when a filter kind can never match.
	Empty bool
}

const (
	orderByDate         = "d.published_at DESC, d.path ASC"
	orderByFeaturedDate = "d.featured DESC, d.published_at DESC, d.path ASC"
)

// Compile turns spec into an executable plan.
func Compile(spec Spec) Plan {
	var (
		clauses []string
		args    []any
		empty   bool
	)

	clauses = append(clauses, "d.published_at IS NOT NULL")
	if !spec.IncludePages {
		clauses = append(clauses, "d.is_page = 0")
	}

	// Group by kind in order of first appearance so the SQL is deterministic.
	var kinds []Kind
	groups := make(map[Kind][]Filter)
	for _, f := range spec.Filters {
		k := f.Kind()
		if _, seen := groups[k]; !seen {
			kinds = append(kinds, k)
		}
		groups[k] = append(groups[k], f)
	}

	for _, k := range kinds {
		var alts []string
		for _, f := range groups[k] {
			sql, fargs, ok := clause(f)
			if !ok {
				continue
			}
			alts = append(alts, sql)
			args = append(args, fargs...)
		}
		switch len(alts) {
		case 0:
			clauses = append(clauses, "0")
			empty = true
		case 1:
			clauses = append(clauses, alts[0])
		default:
			clauses = append(clauses, "("+strings.Join(alts, " OR ")+")")
		}
	}

	order := orderByDate
	if spec.FeaturedFirst {
		order = orderByFeaturedDate
	}

	return Plan{
		Where:   Predicate{SQL: strings.Join(clauses, " AND "), Args: args},
		OrderBy: order,
		Search:  spec.Search(),
		Empty:   empty,
	}
}

// clause renders one filter. ok is false for filters that match nothing.
func clause(f Filter) (sql string, args []any, ok bool) {
	switch f := f.(type) {
	case Categories:
		// Documents carry their whole category chain, so membership of an
		// ancestor already covers every descendant.
		return "EXISTS (SELECT 1 FROM document_categories dc WHERE dc.document_path = d.path AND dc.category_path IN (" +
			placeholders(len(f.Paths)) + "))", stringArgs(f.Paths), true
	case Tag:
		return "EXISTS (SELECT 1 FROM document_tags dt WHERE dt.document_path = d.path AND dt.tag_key = ?)", []any{f.Key}, true
	case Author:
		return "d.author_key = ?", []any{f.Key}, true
	case Archive:
		return "d.published_at BETWEEN ? AND ?", []any{f.From.Unix(), f.To.Unix()}, true
	case Search:
		if f.Query == nil || len(f.Query.Clauses) == 0 {
			return "", nil, false
		}
		parts := make([]string, len(f.Query.Clauses))
		args := make([]any, len(f.Query.Clauses))
		for i, c := range f.Query.Clauses {
			parts[i] = `(' ' || d.search_text || ' ') LIKE ? ESCAPE '\'`
			args[i] = c.Pattern()
		}
		return "(" + strings.Join(parts, " AND ") + ")", args, true
	case Posts:
		return "d.path IN (" + placeholders(len(f.Paths)) + ")", stringArgs(f.Paths), true
	default:
		return "", nil, false
	}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
