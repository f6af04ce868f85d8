package blog

import (
	"context"
	"math"
	"sort"

	"blogdex/internal/model"
	"blogdex/internal/slug"
)

// Match is a document scored by the tags it shares with a reference set.
type Match struct {
	Document *model.Document
	Score    float64
}

// Similar ranks published posts by the tags they share with the document at
// path. Each tag weighs 1/ln(n+e), where n is the number of documents
// carrying it, so rare tags count more. limit <= 0 means all.
func (s *Service) Similar(ctx context.Context, path string, limit int) ([]Match, error) {
	doc, err := s.EnsureCurrent(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(doc.TagKeys) == 0 {
		return []Match{}, nil
	}

	counts, err := s.database.TagDocumentCounts(ctx, doc.TagKeys)
	if err != nil {
		return nil, storeErr("count tag documents", err)
	}

	weights := make(map[string]float64, len(doc.TagKeys))
	for _, key := range doc.TagKeys {
		weights[key] = 1 / math.Log(float64(counts[key])+math.E)
	}
	return s.rankByTags(ctx, weights, doc.Path, limit)
}

// SimilarTo ranks published posts by an explicit tag weighting. Keys may be
// tag keys or display names.
func (s *Service) SimilarTo(ctx context.Context, weights map[string]float64, limit int) ([]Match, error) {
	canonical := make(map[string]float64, len(weights))
	for k, w := range weights {
		if key := slug.Make(k); key != "" {
			canonical[key] += w
		}
	}
	return s.rankByTags(ctx, canonical, "", limit)
}

func (s *Service) rankByTags(ctx context.Context, weights map[string]float64, exclude string, limit int) ([]Match, error) {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	docs, err := s.database.DocumentsWithTags(ctx, keys)
	if err != nil {
		return nil, storeErr("list documents by tag", err)
	}

	matches := []Match{}
	for _, d := range docs {
		if d.Path == exclude {
			continue
		}
		var score float64
		for _, key := range d.TagKeys {
			score += weights[key]
		}
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{Document: d, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return newer(matches[i].Document, matches[j].Document)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
