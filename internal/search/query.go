package search

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned when a search string has no searchable terms
// after analysis (blank input, punctuation or stop words only).
var ErrEmptyQuery = errors.New("search query has no searchable terms")

// TitleWeight multiplies occurrences of a clause in the document title.
const TitleWeight = 3

// Clause is one unit of a search query: a single term, or a quoted phrase
// matched as a contiguous run of terms.
type Clause struct {
	Terms  []string
	Phrase bool
}

func (c Clause) key() string {
	k := strings.Join(c.Terms, " ")
	if c.Phrase {
		return `"` + k + `"`
	}
	return k
}

// Pattern returns the SQL LIKE pattern matching the clause against a
// space-padded search_text column. Use with ESCAPE '\'.
func (c Clause) Pattern() string {
	return "% " + escapeLike(strings.Join(c.Terms, " ")) + " %"
}

// Query is a parsed free-text search. All clauses must be present for a
// document to match.
type Query struct {
	Text     string
	Clauses  []Clause
	analyzer *Analyzer
}

// ParseQuery parses text with the default analyzer.
func ParseQuery(text string) (*Query, error) {
	return Default().ParseQuery(text)
}

// ParseQuery splits text into quoted phrases and free terms.
// An unbalanced quote is treated as ordinary punctuation.
func (a *Analyzer) ParseQuery(text string) (*Query, error) {
	q := &Query{Text: text, analyzer: a}
	seen := make(map[string]bool)
	add := func(c Clause) {
		if seen[c.key()] {
			return
		}
		seen[c.key()] = true
		q.Clauses = append(q.Clauses, c)
	}
	addFree := func(s string) {
		for _, t := range a.Terms(s) {
			add(Clause{Terms: []string{t}})
		}
	}

	rest := text
	for {
		open := strings.IndexByte(rest, '"')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open+1:], '"')
		if end < 0 {
			break
		}
		addFree(rest[:open])
		terms := a.Terms(rest[open+1 : open+1+end])
		switch {
		case len(terms) == 1:
			add(Clause{Terms: terms})
		case len(terms) > 1:
			add(Clause{Terms: terms, Phrase: true})
		}
		rest = rest[open+1+end+1:]
	}
	addFree(rest)

	if len(q.Clauses) == 0 {
		return nil, ErrEmptyQuery
	}
	return q, nil
}

// Union merges the clauses of other into a copy of q. Used for ranking when
// several search filters are OR'ed together.
func (q *Query) Union(other *Query) *Query {
	merged := &Query{Text: q.Text, analyzer: q.analyzer}
	seen := make(map[string]bool)
	for _, src := range []*Query{q, other} {
		for _, c := range src.Clauses {
			if !seen[c.key()] {
				seen[c.key()] = true
				merged.Clauses = append(merged.Clauses, c)
			}
		}
	}
	if other.Text != "" && other.Text != q.Text {
		merged.Text = q.Text + " " + other.Text
	}
	return merged
}

// Score is the sum over clauses of their occurrences in searchText plus
// TitleWeight times their occurrences in title.
func (q *Query) Score(title, searchText string) float64 {
	a := q.analyzer
	if a == nil {
		a = Default()
	}
	body := strings.Fields(searchText)
	head := a.Terms(title)

	var score float64
	for _, c := range q.Clauses {
		score += float64(occurrences(body, c.Terms))
		score += TitleWeight * float64(occurrences(head, c.Terms))
	}
	return score
}

// occurrences counts the positions at which seq appears contiguously in terms.
func occurrences(terms, seq []string) int {
	if len(seq) == 0 || len(seq) > len(terms) {
		return 0
	}
	n := 0
	for i := 0; i+len(seq) <= len(terms); i++ {
		if matchAt(terms, seq, i) {
			n++
		}
	}
	return n
}

func matchAt(terms, seq []string, i int) bool {
	for j, t := range seq {
		if terms[i+j] != t {
			return false
		}
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
