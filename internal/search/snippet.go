package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SnippetOptions configures a Highlighter. Zero values select the defaults.
type SnippetOptions struct {
	Open      string // default "<b>"
	Close     string // default "</b>"
	CacheSize int    // documents kept analyzed, default 256
	Fallback  int    // characters of plain text used when nothing matches, default 160
}

// Text is the rendered text of a document that snippets are drawn from.
type Text struct {
	Title       string
	Description string
	Body        string // plain text, block boundaries as newlines
}

// Match is the per-document search decoration returned with result rows.
type Match struct {
	Snippet string
	Words   []string
}

type sentence struct {
	text   string
	tokens []Token
}

// Highlighter picks the best sentence of a document for a query and wraps
// matched terms in emphasis markers.
type Highlighter struct {
	analyzer *Analyzer
	open     string
	close    string
	fallback int
	cache    *lru.Cache[string, []sentence]
}

// NewHighlighter creates a Highlighter using the default analyzer.
func NewHighlighter(opts SnippetOptions) (*Highlighter, error) {
	if opts.Open == "" && opts.Close == "" {
		opts.Open, opts.Close = "<b>", "</b>"
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.Fallback <= 0 {
		opts.Fallback = 160
	}

	cache, err := lru.New[string, []sentence](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating snippet cache: %w", err)
	}

	return &Highlighter{
		analyzer: Default(),
		open:     opts.Open,
		close:    opts.Close,
		fallback: opts.Fallback,
		cache:    cache,
	}, nil
}

// Highlight returns the snippet and matched words of t for q.
// key identifies the document version for caching; "" disables the cache.
func (h *Highlighter) Highlight(key string, t Text, q *Query) Match {
	sents := h.sentences(key, t)

	best, bestHits := -1, 0
	for i, s := range sents {
		hits := 0
		for _, c := range q.Clauses {
			if len(find(s.tokens, c.Terms)) > 0 {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if hits > bestHits || (hits == bestHits && len(s.text) < len(sents[best].text)) {
			best, bestHits = i, hits
		}
	}

	m := Match{Words: words(sents, q)}
	if best < 0 {
		m.Snippet = h.fallbackSnippet(t)
		return m
	}
	m.Snippet = h.emphasize(sents[best], q)
	return m
}

func (h *Highlighter) sentences(key string, t Text) []sentence {
	if key != "" {
		if cached, ok := h.cache.Get(key); ok {
			return cached
		}
	}

	var out []sentence
	for _, part := range []string{t.Title, t.Description, t.Body} {
		for _, s := range splitSentences(part) {
			out = append(out, sentence{text: s, tokens: h.analyzer.Tokens(s)})
		}
	}

	if key != "" {
		h.cache.Add(key, out)
	}
	return out
}

func (h *Highlighter) emphasize(s sentence, q *Query) string {
	marked := make([]bool, len(s.tokens))
	for _, c := range q.Clauses {
		for _, i := range find(s.tokens, c.Terms) {
			for j := range c.Terms {
				marked[i+j] = true
			}
		}
	}

	var b strings.Builder
	last := 0
	for i, tok := range s.tokens {
		if !marked[i] {
			continue
		}
		b.WriteString(escapeText(s.text[last:tok.Start]))
		b.WriteString(h.open)
		b.WriteString(escapeText(s.text[tok.Start:tok.End]))
		b.WriteString(h.close)
		last = tok.End
	}
	b.WriteString(escapeText(s.text[last:]))
	return b.String()
}

func (h *Highlighter) fallbackSnippet(t Text) string {
	if t.Description != "" {
		return escapeText(t.Description)
	}
	body := strings.Join(strings.Fields(t.Body), " ")
	if utf8.RuneCountInString(body) > h.fallback {
		body = string([]rune(body)[:h.fallback])
	}
	return escapeText(body)
}

// words collects the lowercased surface forms matched by each clause, in
// clause order, without duplicates.
func words(sents []sentence, q *Query) []string {
	var out []string
	seen := make(map[string]bool)
	for _, c := range q.Clauses {
		for _, s := range sents {
			for _, i := range find(s.tokens, c.Terms) {
				parts := make([]string, len(c.Terms))
				for j := range c.Terms {
					tok := s.tokens[i+j]
					parts[j] = strings.ToLower(s.text[tok.Start:tok.End])
				}
				w := strings.Join(parts, " ")
				if !seen[w] {
					seen[w] = true
					out = append(out, w)
				}
			}
		}
	}
	return out
}

// find returns the token indexes at which terms start as a contiguous run.
func find(tokens []Token, terms []string) []int {
	if len(terms) == 0 || len(terms) > len(tokens) {
		return nil
	}
	var at []int
	for i := 0; i+len(terms) <= len(tokens); i++ {
		ok := true
		for j, t := range terms {
			if tokens[i+j].Term != t {
				ok = false
				break
			}
		}
		if ok {
			at = append(at, i)
		}
	}
	return at
}

// splitSentences breaks text on newlines and on sentence punctuation
// followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	emit := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			out = append(out, s)
		}
	}

	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			emit(text[start:i])
			start = i + 1
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\t' || text[i+1] == '\n' {
				emit(text[start : i+1])
				start = i + 1
			}
		}
	}
	emit(text[start:])
	return out
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
