package blog

import (
	"context"
	"sort"
	"time"

	"blogdex/internal/model"
	"blogdex/internal/search"
	"blogdex/internal/slug"
)

// ArchiveYear is one year of the archive with its number of posts.
type ArchiveYear struct {
	Year  int
	Count int
}

// ArchiveMonth is one month of an archive calendar. Time is the 15th of the
// month at midnight, for building links.
type ArchiveMonth struct {
	Month time.Month
	Label string
	Count int
	Time  time.Time
}

// Categories returns the subcategories of parent ("" for the top level) with
// their recursive post counts, each with its own subcategories one level
// deep. limit < 0 means all.
func (s *Service) Categories(ctx context.Context, parent string, limit int) ([]model.CategoryCount, error) {
	if parent != "" {
		if parent = slug.Path(parent); parent == "" {
			return []model.CategoryCount{}, nil
		}
	}
	if limit == 0 {
		return []model.CategoryCount{}, nil
	}

	counts, err := s.database.CategoryCounts(ctx, parent)
	if err != nil {
		return nil, storeErr("count categories", err)
	}

	s.overrideCategories(counts)
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

func (s *Service) overrideCategories(counts []model.CategoryCount) {
	for i := range counts {
		s.overrideCategory(&counts[i].Category)
		s.overrideCategories(counts[i].Subs)
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Name != counts[j].Name {
			return counts[i].Name < counts[j].Name
		}
		return counts[i].Path < counts[j].Path
	})
}

// TagCloud returns tags with their post counts and rank bands, sorted by
// name. Bands are relative to every tag; limit keeps the most used ones,
// ties broken by name. limit <= 0 means all.
func (s *Service) TagCloud(ctx context.Context, limit int) ([]model.TagCount, error) {
	tags, err := s.database.TagCounts(ctx)
	if err != nil {
		return nil, storeErr("count tags", err)
	}

	counts := make([]int, len(tags))
	for i, t := range tags {
		counts[i] = t.Count
	}
	for i, rank := range search.RankBands(counts) {
		tags[i].Rank = rank
	}
	for i := range tags {
		s.overrideTag(&tags[i].Tag)
	}

	byName := func(i, j int) bool {
		if tags[i].Name != tags[j].Name {
			return tags[i].Name < tags[j].Name
		}
		return tags[i].Key < tags[j].Key
	}

	if limit > 0 && len(tags) > limit {
		sort.SliceStable(tags, func(i, j int) bool {
			if tags[i].Count != tags[j].Count {
				return tags[i].Count > tags[j].Count
			}
			return byName(i, j)
		})
		tags = tags[:limit]
	}
	sort.SliceStable(tags, byName)
	return tags, nil
}

// Authors returns every author of a published post, sorted by name.
// limit <= 0 means all.
func (s *Service) Authors(ctx context.Context, limit int) ([]model.AuthorCount, error) {
	authors, err := s.database.AuthorCounts(ctx)
	if err != nil {
		return nil, storeErr("count authors", err)
	}

	for i := range authors {
		s.overrideAuthor(&authors[i].Author)
	}
	sort.SliceStable(authors, func(i, j int) bool {
		if authors[i].Name != authors[j].Name {
			return authors[i].Name < authors[j].Name
		}
		return authors[i].Key < authors[j].Key
	})

	if limit > 0 && len(authors) > limit {
		authors = authors[:limit]
	}
	return authors, nil
}

// ArchiveYears returns one entry per year holding posts, newest first.
func (s *Service) ArchiveYears(ctx context.Context) ([]ArchiveYear, error) {
	times, err := s.database.PublishedTimes(ctx)
	if err != nil {
		return nil, storeErr("list publication times", err)
	}

	counts := make(map[int]int)
	for _, t := range times {
		counts[t.In(s.loc).Year()]++
	}

	years := make([]ArchiveYear, 0, len(counts))
	for y, n := range counts {
		years = append(years, ArchiveYear{Year: y, Count: n})
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year > years[j].Year })
	return years, nil
}

// ArchiveCalendar returns the twelve months of year with their post counts,
// empty months included.
func (s *Service) ArchiveCalendar(ctx context.Context, year int) ([]ArchiveMonth, error) {
	times, err := s.database.PublishedTimes(ctx)
	if err != nil {
		return nil, storeErr("list publication times", err)
	}

	months := make([]ArchiveMonth, 12)
	for i := range months {
		m := time.Month(i + 1)
		months[i] = ArchiveMonth{
			Month: m,
			Label: m.String()[:3],
			Time:  time.Date(year, m, 15, 0, 0, 0, 0, s.loc),
		}
	}
	for _, t := range times {
		local := t.In(s.loc)
		if local.Year() == year {
			months[local.Month()-1].Count++
		}
	}
	return months, nil
}

func (s *Service) overrideCategory(c *model.Category) {
	if name, thumb, ok := s.overrides.Lookup(KindCategories, c.Path); ok {
		if name != "" {
			c.Name = name
		}
		c.Thumbnail = thumb
	}
}

func (s *Service) overrideTag(t *model.Tag) {
	if name, thumb, ok := s.overrides.Lookup(KindTags, t.Key); ok {
		if name != "" {
			t.Name = name
		}
		t.Thumbnail = thumb
	}
}

func (s *Service) overrideAuthor(a *model.Author) {
	if name, thumb, ok := s.overrides.Lookup(KindAuthors, a.Key); ok {
		if name != "" {
			a.Name = name
		}
		a.Thumbnail = thumb
	}
}
