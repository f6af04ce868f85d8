package blog_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"blogdex/internal/blog"
	"blogdex/internal/config"
	"blogdex/internal/model"
)

func TestService_Categories(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.syncCorpus(t)

	t.Run("top level with subcategories", func(t *testing.T) {
		got, err := env.svc.Categories(ctx, "", -1)
		if err != nil {
			t.Fatalf("Categories() error = %v", err)
		}
		want := []model.CategoryCount{
			{
				Category: model.Category{Path: "category", Name: "Category"},
				Count:    3,
				Subs: []model.CategoryCount{
					{Category: model.Category{Path: "category/subcategory", Name: "Subcategory", Parent: "category"}, Count: 2},
				},
			},
		}
		if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("Categories() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("zero limit returns nothing", func(t *testing.T) {
		got, err := env.svc.Categories(ctx, "", 0)
		if err != nil {
			t.Fatalf("Categories() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Categories() = %v, want empty", got)
		}
	})

	t.Run("malformed parent returns nothing", func(t *testing.T) {
		got, err := env.svc.Categories(ctx, "!!", -1)
		if err != nil {
			t.Fatalf("Categories() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Categories() = %v, want empty", got)
		}
	})

	t.Run("lookup by path", func(t *testing.T) {
		c, err := env.svc.Category(ctx, "Category/Subcategory")
		if err != nil {
			t.Fatalf("Category() error = %v", err)
		}
		if c.Name != "Subcategory" {
			t.Errorf("Name = %q, want %q", c.Name, "Subcategory")
		}
		if _, err := env.svc.Category(ctx, "nowhere"); !errors.Is(err, blog.ErrNotFound) {
			t.Errorf("Category(nowhere) error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_TagCloud(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.syncCorpus(t)

	t.Run("all tags sorted by name with bands", func(t *testing.T) {
		tags, err := env.svc.TagCloud(ctx, 0)
		if err != nil {
			t.Fatalf("TagCloud() error = %v", err)
		}

		type row struct {
			Key, Name   string
			Count, Rank int
		}
		var got []row
		for _, tc := range tags {
			got = append(got, row{tc.Key, tc.Name, tc.Count, tc.Rank})
		}
		// First-seen names win, and the index page was indexed first.
		want := []row{
			{"featured", "Featured", 1, 1},
			{"flowers", "Flowers", 1, 1},
			{"markdown", "markDown", 2, 5},
			{"nature", "nature", 1, 1},
			{"simple", "simple", 1, 1},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("TagCloud() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("limit keeps the most used", func(t *testing.T) {
		tags, err := env.svc.TagCloud(ctx, 2)
		if err != nil {
			t.Fatalf("TagCloud() error = %v", err)
		}
		var keys []string
		var ranks []int
		for _, tc := range tags {
			keys = append(keys, tc.Key)
			ranks = append(ranks, tc.Rank)
		}
		if diff := cmp.Diff([]string{"featured", "markdown"}, keys); diff != "" {
			t.Errorf("TagCloud() keys mismatch (-want +got):\n%s", diff)
		}
		// Bands come from every tag, not only the kept ones: counts 1 and 2
		// keep bands 1 and 5 rather than being re-banded among themselves.
		if diff := cmp.Diff([]int{1, 5}, ranks); diff != "" {
			t.Errorf("TagCloud() ranks mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("lookup by display name", func(t *testing.T) {
		tag, err := env.svc.Tag(ctx, "MarkDown")
		if err != nil {
			t.Fatalf("Tag() error = %v", err)
		}
		if tag.Key != "markdown" {
			t.Errorf("Key = %q, want %q", tag.Key, "markdown")
		}
	})
}

func TestService_Authors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.syncCorpus(t)

	authors, err := env.svc.Authors(ctx, 0)
	if err != nil {
		t.Fatalf("Authors() error = %v", err)
	}
	if len(authors) != 1 {
		t.Fatalf("Authors() returned %d authors, want 1", len(authors))
	}
	a := authors[0]
	if a.Key != "joe-bloggs" {
		t.Errorf("Key = %q, want %q", a.Key, "joe-bloggs")
	}
	if a.Name != "Joe Bloggs" {
		t.Errorf("Name = %q, want %q", a.Name, "Joe Bloggs")
	}
	if a.Count != 2 {
		t.Errorf("Count = %d, want 2", a.Count)
	}
	wantLatest := time.Date(2010, 9, 12, 0, 0, 0, 0, time.UTC)
	if !a.Latest.Equal(wantLatest) {
		t.Errorf("Latest = %v, want %v", a.Latest, wantLatest)
	}

	if _, err := env.svc.Author(ctx, "JOE BLOGGS"); err != nil {
		t.Errorf("Author() error = %v", err)
	}
	if _, err := env.svc.Author(ctx, "someone"); !errors.Is(err, blog.ErrNotFound) {
		t.Errorf("Author(someone) error = %v, want ErrNotFound", err)
	}
}

func TestService_Archives(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.syncCorpus(t)

	t.Run("years", func(t *testing.T) {
		years, err := env.svc.ArchiveYears(ctx)
		if err != nil {
			t.Fatalf("ArchiveYears() error = %v", err)
		}
		if diff := cmp.Diff([]blog.ArchiveYear{{Year: 2010, Count: 4}}, years); diff != "" {
			t.Errorf("ArchiveYears() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("calendar lists every month", func(t *testing.T) {
		months, err := env.svc.ArchiveCalendar(ctx, 2010)
		if err != nil {
			t.Fatalf("ArchiveCalendar() error = %v", err)
		}
		if len(months) != 12 {
			t.Fatalf("ArchiveCalendar() returned %d months, want 12", len(months))
		}

		counts := make(map[time.Month]int)
		for _, m := range months {
			counts[m.Month] = m.Count
		}
		want := map[time.Month]int{
			time.January: 0, time.February: 0, time.March: 0, time.April: 0,
			time.May: 0, time.June: 0, time.July: 0, time.August: 1,
			time.September: 2, time.October: 1, time.November: 0, time.December: 0,
		}
		if diff := cmp.Diff(want, counts); diff != "" {
			t.Errorf("ArchiveCalendar() counts mismatch (-want +got):\n%s", diff)
		}
		if months[8].Label != "Sep" {
			t.Errorf("Label = %q, want %q", months[8].Label, "Sep")
		}
		if want := time.Date(2010, time.September, 15, 0, 0, 0, 0, time.UTC); !months[8].Time.Equal(want) {
			t.Errorf("Time = %v, want %v", months[8].Time, want)
		}
	})

	t.Run("empty year", func(t *testing.T) {
		months, err := env.svc.ArchiveCalendar(ctx, 1999)
		if err != nil {
			t.Fatalf("ArchiveCalendar() error = %v", err)
		}
		for _, m := range months {
			if m.Count != 0 {
				t.Errorf("%s count = %d, want 0", m.Label, m.Count)
			}
		}
	})
}

func TestService_Similar(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.syncCorpus(t)

	t.Run("by shared tags of a document", func(t *testing.T) {
		matches, err := env.svc.Similar(ctx, "category/simple-post", 0)
		if err != nil {
			t.Fatalf("Similar() error = %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("Similar() returned %d matches, want 1", len(matches))
		}
		if matches[0].Document.Path != "category/subcategory/featured-post" {
			t.Errorf("Path = %q, want featured-post", matches[0].Document.Path)
		}
		// markdown is carried by the index page and two posts.
		want := 1 / math.Log(3+math.E)
		if math.Abs(matches[0].Score-want) > 1e-9 {
			t.Errorf("Score = %v, want %v", matches[0].Score, want)
		}
	})

	t.Run("untagged document", func(t *testing.T) {
		matches, err := env.svc.Similar(ctx, "uncategorized-post", 0)
		if err != nil {
			t.Fatalf("Similar() error = %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("Similar() = %v, want none", matches)
		}
	})

	t.Run("explicit weights", func(t *testing.T) {
		matches, err := env.svc.SimilarTo(ctx, map[string]float64{"Flowers": 2, "markdown": 1}, 0)
		if err != nil {
			t.Fatalf("SimilarTo() error = %v", err)
		}
		var got []string
		for _, m := range matches {
			got = append(got, m.Document.Path)
		}
		want := []string{
			"category/subcategory/flowery-post",
			"category/subcategory/featured-post",
			"category/simple-post",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("SimilarTo() mismatch (-want +got):\n%s", diff)
		}

		limited, err := env.svc.SimilarTo(ctx, map[string]float64{"Flowers": 2, "markdown": 1}, 1)
		if err != nil {
			t.Fatalf("SimilarTo() error = %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("SimilarTo() with limit returned %d matches, want 1", len(limited))
		}
	})
}

func TestService_Entry(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves entities and breadcrumbs", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.syncCorpus(t)

		e, err := env.svc.Entry(ctx, "category/simple-post")
		if err != nil {
			t.Fatalf("Entry() error = %v", err)
		}
		want := []blog.Breadcrumb{
			{Path: "category", Name: "Category"},
			{Path: "category/simple-post", Name: "A Simple Post"},
		}
		if diff := cmp.Diff(want, e.Breadcrumbs); diff != "" {
			t.Errorf("Breadcrumbs mismatch (-want +got):\n%s", diff)
		}
		var tags []string
		for _, tag := range e.Tags {
			tags = append(tags, tag.Name)
		}
		if diff := cmp.Diff([]string{"simple", "markDown"}, tags); diff != "" {
			t.Errorf("Tags mismatch (-want +got):\n%s", diff)
		}
		if e.Author == nil || e.Author.Name != "Joe Bloggs" {
			t.Errorf("Author = %+v, want Joe Bloggs", e.Author)
		}
	})

	t.Run("applies display overrides", func(t *testing.T) {
		cfg := &config.Config{
			Categories: map[string]config.Override{"category": {Name: "Things"}},
			Tags:       map[string]config.Override{"markdown": {Name: "Markdown", Thumbnail: "md.png"}},
			Authors:    map[string]config.Override{"joe-bloggs": {Thumbnail: "joe.jpg"}},
		}
		env := newTestEnv(t, cfg)
		env.syncCorpus(t)

		e, err := env.svc.Entry(ctx, "category/simple-post")
		if err != nil {
			t.Fatalf("Entry() error = %v", err)
		}
		if e.Breadcrumbs[0].Name != "Things" {
			t.Errorf("Breadcrumbs[0].Name = %q, want %q", e.Breadcrumbs[0].Name, "Things")
		}
		if e.Tags[1].Name != "Markdown" || e.Tags[1].Thumbnail != "md.png" {
			t.Errorf("Tags[1] = %+v, want overridden markdown", e.Tags[1])
		}
		if e.Author.Name != "Joe Bloggs" || e.Author.Thumbnail != "joe.jpg" {
			t.Errorf("Author = %+v, want Joe Bloggs with joe.jpg", e.Author)
		}

		cats, err := env.svc.Categories(ctx, "", -1)
		if err != nil {
			t.Fatalf("Categories() error = %v", err)
		}
		if cats[0].Name != "Things" {
			t.Errorf("Categories()[0].Name = %q, want %q", cats[0].Name, "Things")
		}
	})
}
