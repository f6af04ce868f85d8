package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteDocument writes a content file at root/<dir>/<name> and returns its
// absolute path. dir uses forward slashes.
func WriteDocument(t *testing.T, root, dir, name, content string) string {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(dir))
	if err := os.MkdirAll(full, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", full, err)
	}
	file := filepath.Join(full, name)
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", file, err)
	}
	return file
}

// Touch sets the modification time of file.
func Touch(t *testing.T, file string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(file, mtime, mtime); err != nil {
		t.Fatalf("failed to touch %s: %v", file, err)
	}
}

// CorpusDocument is one file of the standard test blog.
type CorpusDocument struct {
	Dir     string
	Name    string
	Content string
}

// Corpus is a small blog exercising pages, nested categories, featured
// posts, both content formats and case-varying tags and authors.
var Corpus = []CorpusDocument{
	{
		Dir:     "about",
		Name:    "index.html",
		Content: "---\ntitle: About\npublished: true\n---\nThis is my website.\n",
	},
	{
		Dir:     "index",
		Name:    "index.md",
		Content: "---\ntitle: Welcome to My Website\nkeywords: simple, markDown\npublished: true\n---\nThis is the index page.\n",
	},
	{
		Dir:  "category/simple-post",
		Name: "index.md",
		Content: "---\ntitle: A Simple Post\nkeywords: Simple, Markdown\npublished: Aug 3, 2010\n" +
			"author:  Joe Bloggs\n---\n\n### Header\n\nParagraph\n",
	},
	{
		Dir:  "category/subcategory/featured-post",
		Name: "index.md",
		Content: "---\ntitle: A Featured Post\nkeywords: Featured, markdown\npublished: Sep 12, 2010\n" +
			"author: jOe bLoGgS\nfeatured: true\n---\n\n1. One\n2. Two\n3. Three\n",
	},
	{
		Dir:  "category/subcategory/flowery-post",
		Name: "index.html",
		Content: "---\nTitle: A Flowery Post\nDescription: Aren't they beautiful?\nKeywords: Flowers, nature\n" +
			"Published: Sep 12, 2010\n---\n<p>A Flowery Post</p>\n<p><img src=\"flowers.jpg\"></p>\n<p>Aren't they beautiful?</p>\n",
	},
	{
		Dir:     "uncategorized-post",
		Name:    "index.html",
		Content: "---\nTitle: Uncategorized Post\nPublished: Oct 3, 2010\n---\n<p>A post without a category</p>\n",
	},
}

// CorpusPaths are the slug paths of Corpus, in Corpus order.
var CorpusPaths = []string{
	"about",
	"index",
	"category/simple-post",
	"category/subcategory/featured-post",
	"category/subcategory/flowery-post",
	"uncategorized-post",
}

// SeedCorpus writes Corpus below root.
func SeedCorpus(t *testing.T, root string) {
	t.Helper()
	for _, d := range Corpus {
		WriteDocument(t, root, d.Dir, d.Name, d.Content)
	}
}
