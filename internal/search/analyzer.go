package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
)

// Token is one analyzed term with the byte offsets of its surface form.
type Token struct {
	Term  string
	Start int
	End   int
}

// Analyzer tokenizes text with bleve's English analyzer: unicode word
// segmentation, possessive stripping, lowercasing, English stop words and
// Porter stemming. It is safe for concurrent use.
type Analyzer struct {
	analyzer analysis.Analyzer
}

// NewAnalyzer looks up the English analyzer in a fresh bleve index mapping.
func NewAnalyzer() (*Analyzer, error) {
	a := bleve.NewIndexMapping().AnalyzerNamed(en.AnalyzerName)
	if a == nil {
		return nil, fmt.Errorf("analyzer %q not registered", en.AnalyzerName)
	}
	return &Analyzer{analyzer: a}, nil
}

var (
	defaultOnce     sync.Once
	defaultAnalyzer *Analyzer
)

// Default returns the shared English analyzer.
func Default() *Analyzer {
	defaultOnce.Do(func() {
		a, err := NewAnalyzer()
		if err != nil {
			panic(err)
		}
		defaultAnalyzer = a
	})
	return defaultAnalyzer
}

// Tokens analyzes text and returns its tokens in order.
func (a *Analyzer) Tokens(text string) []Token {
	if text == "" {
		return nil
	}
	stream := a.analyzer.Analyze([]byte(text))
	tokens := make([]Token, 0, len(stream))
	for _, tok := range stream {
		tokens = append(tokens, Token{Term: string(tok.Term), Start: tok.Start, End: tok.End})
	}
	return tokens
}

// Terms analyzes text and returns only the terms.
func (a *Analyzer) Terms(text string) []string {
	tokens := a.Tokens(text)
	if len(tokens) == 0 {
		return nil
	}
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// Boundary separates the sentences of the stored search text. The analyzer
// never emits it as a term, so a phrase pattern cannot match across it.
const Boundary = "|"

// SearchText is the normalized projection stored in the index for a document.
// Every part is split into the same sentences the highlighter uses, so a
// phrase matches in the index only where a snippet can show it.
func (a *Analyzer) SearchText(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		for _, s := range splitSentences(p) {
			terms := a.Terms(s)
			if len(terms) == 0 {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(" " + Boundary + " ")
			}
			b.WriteString(strings.Join(terms, " "))
		}
	}
	return b.String()
}
