package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"blogdex/internal/blog"
	"blogdex/internal/model"
	"blogdex/internal/query"
)

func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()
	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type fixture struct {
	doc *model.Document
	m   blog.Membership
}

func post(path string, published *time.Time, author string, categories []string, tags ...string) fixture {
	doc := &model.Document{
		Path:        path,
		Title:       path,
		PublishedAt: published,
		UpdatedAt:   time.Unix(0, 1700000000123456789).UTC(),
		AuthorKey:   author,
	}
	var m blog.Membership
	for _, c := range categories {
		m.Categories = append(m.Categories, model.Category{Path: c, Name: c, Parent: parentOf(c)})
	}
	for _, tag := range tags {
		m.Tags = append(m.Tags, model.Tag{Key: tag, Name: tag})
	}
	if author != "" {
		m.Author = &model.Author{Key: author, Name: author}
	}
	return fixture{doc: doc, m: m}
}

func parentOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return ""
}

func seed(t *testing.T, db *SQLiteDatabase, fixtures ...fixture) {
	t.Helper()
	for _, f := range fixtures {
		if err := db.SaveDocument(context.Background(), f.doc, f.m); err != nil {
			t.Fatalf("SaveDocument(%s) error = %v", f.doc.Path, err)
		}
	}
}

func corpus() []fixture {
	return []fixture{
		post("category/simple-post", date(2010, 8, 3), "joe", []string{"category"}, "simple", "markdown"),
		post("category/sub/featured-post", date(2010, 9, 12), "", []string{"category", "category/sub"}, "featured", "markdown"),
		post("category/sub/flowery-post", date(2010, 9, 12), "", []string{"category", "category/sub"}, "flowers", "nature"),
		post("uncategorized-post", date(2010, 10, 3), "", nil),
		post("draft", nil, "", []string{"drafts"}, "draft"),
	}
}

func paths(docs []*model.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Path
	}
	return out
}

func TestSaveDocument_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := post("category/simple-post", date(2010, 8, 3), "joe", []string{"category"}, "simple", "markdown")
	f.doc.Featured = true
	f.doc.SearchText = "simpl post"
	seed(t, db, f)

	got, err := db.FindDocument(ctx, "category/simple-post")
	if err != nil {
		t.Fatalf("FindDocument() error = %v", err)
	}

	want := *f.doc
	want.CategoryPaths = []string{"category"}
	want.TagKeys = []string{"simple", "markdown"}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("FindDocument() mismatch (-want +got):\n%s", diff)
	}
}

func TestFindDocument_Missing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.FindDocument(context.Background(), "nope")
	if err != nil {
		t.Fatalf("FindDocument() error = %v", err)
	}
	if got != nil {
		t.Errorf("FindDocument() = %+v, want nil", got)
	}
}

func TestSaveDocument_ReplacesMemberships(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, post("p", date(2010, 1, 1), "joe", []string{"a"}, "one", "two"))
	seed(t, db, post("p", date(2010, 1, 1), "ann", []string{"b"}, "two"))

	got, err := db.FindDocument(ctx, "p")
	if err != nil {
		t.Fatalf("FindDocument() error = %v", err)
	}
	if diff := cmp.Diff([]string{"two"}, got.TagKeys); diff != "" {
		t.Errorf("TagKeys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, got.CategoryPaths); diff != "" {
		t.Errorf("CategoryPaths mismatch (-want +got):\n%s", diff)
	}

	// Entities that lost their last reference are pruned.
	if tag, _ := db.FindTag(ctx, "one"); tag != nil {
		t.Errorf("FindTag(one) = %+v, want nil", tag)
	}
	if cat, _ := db.FindCategory(ctx, "a"); cat != nil {
		t.Errorf("FindCategory(a) = %+v, want nil", cat)
	}
	if author, _ := db.FindAuthor(ctx, "joe"); author != nil {
		t.Errorf("FindAuthor(joe) = %+v, want nil", author)
	}
	if author, _ := db.FindAuthor(ctx, "ann"); author == nil {
		t.Error("FindAuthor(ann) = nil, want author")
	}
}

func TestSaveDocument_FirstNameWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := post("a", date(2010, 1, 1), "", nil)
	a.m.Tags = []model.Tag{{Key: "markdown", Name: "Markdown"}}
	b := post("b", date(2010, 1, 2), "", nil)
	b.m.Tags = []model.Tag{{Key: "markdown", Name: "markdown"}}
	seed(t, db, a, b)

	tag, err := db.FindTag(ctx, "markdown")
	if err != nil {
		t.Fatalf("FindTag() error = %v", err)
	}
	if tag.Name != "Markdown" {
		t.Errorf("Name = %q, want %q", tag.Name, "Markdown")
	}
}

func TestDeleteDocument(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, corpus()...)

	if err := db.DeleteDocument(ctx, "category/sub/flowery-post"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	if doc, _ := db.FindDocument(ctx, "category/sub/flowery-post"); doc != nil {
		t.Error("document still present after delete")
	}
	if tag, _ := db.FindTag(ctx, "nature"); tag != nil {
		t.Error("tag nature still present after its only document was deleted")
	}
	if tag, _ := db.FindTag(ctx, "markdown"); tag == nil {
		t.Error("tag markdown pruned although other documents use it")
	}
	if cat, _ := db.FindCategory(ctx, "category/sub"); cat == nil {
		t.Error("category/sub pruned although featured-post is still in it")
	}

	t.Run("missing path is a no-op", func(t *testing.T) {
		if err := db.DeleteDocument(ctx, "nope"); err != nil {
			t.Errorf("DeleteDocument() error = %v", err)
		}
	})
}

func TestListDocuments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, corpus()...)

	tests := []struct {
		name  string
		spec  query.Spec
		page  query.Page
		want  []string
		count int
	}{
		{
			name:  "all posts",
			spec:  query.Spec{},
			want:  []string{"uncategorized-post", "category/sub/featured-post", "category/sub/flowery-post", "category/simple-post"},
			count: 4,
		},
		{
			name:  "category rollup",
			spec:  query.Parse(map[string]any{"categories": "category"}),
			want:  []string{"category/sub/featured-post", "category/sub/flowery-post", "category/simple-post"},
			count: 3,
		},
		{
			name:  "tag and author",
			spec:  query.Parse(map[string]any{"tags": "markdown", "authors": "joe"}),
			want:  []string{"category/simple-post"},
			count: 1,
		},
		{
			name:  "page",
			spec:  query.Spec{},
			page:  query.Page{Offset: 1, Limit: 2},
			want:  []string{"category/sub/featured-post", "category/sub/flowery-post"},
			count: 4,
		},
		{
			name:  "invalid filter matches nothing",
			spec:  query.Parse(map[string]any{"tags": []string{"a", "b"}}),
			want:  []string{},
			count: 0,
		},
		{
			name:  "unpublished never listed",
			spec:  query.Parse(map[string]any{"posts": []string{"draft"}}),
			want:  []string{},
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := query.Compile(tt.spec)
			docs, err := db.ListDocuments(ctx, plan, tt.page)
			if err != nil {
				t.Fatalf("ListDocuments() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, paths(docs)); diff != "" {
				t.Errorf("ListDocuments() mismatch (-want +got):\n%s", diff)
			}

			n, err := db.CountDocuments(ctx, plan)
			if err != nil {
				t.Fatalf("CountDocuments() error = %v", err)
			}
			if n != tt.count {
				t.Errorf("CountDocuments() = %d, want %d", n, tt.count)
			}
		})
	}
}

func TestListDocuments_PagesConcatenate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seed(t, db, corpus()...)

	plan := query.Compile(query.Spec{})
	all, err := db.ListDocuments(ctx, plan, query.All)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}

	var joined []*model.Document
	for offset := 0; offset < len(all); offset += 3 {
		page, err := db.ListDocuments(ctx, plan, query.Page{Offset: offset, Limit: 3})
		if err != nil {
			t.Fatalf("ListDocuments() error = %v", err)
		}
		joined = append(joined, page...)
	}
	if diff := cmp.Diff(paths(all), paths(joined)); diff != "" {
		t.Errorf("concatenated pages mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentsWithTags(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, corpus()...)

	docs, err := db.DocumentsWithTags(context.Background(), []string{"markdown", "nature", "draft"})
	if err != nil {
		t.Fatalf("DocumentsWithTags() error = %v", err)
	}
	want := []string{"category/sub/featured-post", "category/sub/flowery-post", "category/simple-post"}
	if diff := cmp.Diff(want, paths(docs)); diff != "" {
		t.Errorf("DocumentsWithTags() mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoryCounts(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, corpus()...)

	got, err := db.CategoryCounts(context.Background(), "")
	if err != nil {
		t.Fatalf("CategoryCounts() error = %v", err)
	}

	// "drafts" only holds an unpublished document.
	want := []model.CategoryCount{{
		Category: model.Category{Path: "category", Name: "category"},
		Count:    3,
		Subs: []model.CategoryCount{{
			Category: model.Category{Path: "category/sub", Name: "category/sub", Parent: "category"},
			Count:    2,
		}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CategoryCounts() mismatch (-want +got):\n%s", diff)
	}
}

func TestTagCounts(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, corpus()...)

	got, err := db.TagCounts(context.Background())
	if err != nil {
		t.Fatalf("TagCounts() error = %v", err)
	}

	counts := make(map[string]int)
	for _, tc := range got {
		counts[tc.Key] = tc.Count
	}
	want := map[string]int{"featured": 1, "flowers": 1, "markdown": 2, "nature": 1, "simple": 1}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("TagCounts() mismatch (-want +got):\n%s", diff)
	}

	for _, tc := range got {
		if tc.Key == "markdown" && !tc.Latest.Equal(*date(2010, 9, 12)) {
			t.Errorf("markdown Latest = %v, want 2010-09-12", tc.Latest)
		}
	}
}

func TestAuthorCounts(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, corpus()...)

	got, err := db.AuthorCounts(context.Background())
	if err != nil {
		t.Fatalf("AuthorCounts() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(AuthorCounts()) = %d, want 1", len(got))
	}
	if got[0].Key != "joe" || got[0].Count != 1 {
		t.Errorf("AuthorCounts()[0] = %+v, want joe with 1 post", got[0])
	}
}

func TestTagDocumentCounts(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, corpus()...)

	got, err := db.TagDocumentCounts(context.Background(), []string{"markdown", "draft", "missing"})
	if err != nil {
		t.Fatalf("TagDocumentCounts() error = %v", err)
	}
	want := map[string]int{"markdown": 2, "draft": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TagDocumentCounts() mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishedTimes(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, corpus()...)

	got, err := db.PublishedTimes(context.Background())
	if err != nil {
		t.Fatalf("PublishedTimes() error = %v", err)
	}
	want := []time.Time{*date(2010, 10, 3), *date(2010, 9, 12), *date(2010, 9, 12), *date(2010, 8, 3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PublishedTimes() mismatch (-want +got):\n%s", diff)
	}
}

func TestBackupTo(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, corpus()...)

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := db.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	restored, err := NewSQLiteDatabase(dest)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase(backup) error = %v", err)
	}
	defer restored.Close()

	doc, err := restored.FindDocument(context.Background(), "category/simple-post")
	if err != nil {
		t.Fatalf("FindDocument() error = %v", err)
	}
	if doc == nil {
		t.Fatal("backup is missing category/simple-post")
	}
}

func TestChunks(t *testing.T) {
	keys := make([]string, maxInArgs*2+1)
	got := chunks(keys)
	if len(got) != 3 {
		t.Fatalf("len(chunks()) = %d, want 3", len(got))
	}
	if len(got[2]) != 1 {
		t.Errorf("len(last chunk) = %d, want 1", len(got[2]))
	}
	if chunks(nil) != nil {
		t.Error("chunks(nil) != nil")
	}
}
