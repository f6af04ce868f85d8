package blog

import (
	"context"
	"time"

	"blogdex/internal/model"
	"blogdex/internal/query"
)

// Membership is the set of entities a document references. The store
// materializes missing entities when the document is saved and prunes
// entities that lose their last reference.
type Membership struct {
	Categories []model.Category // Chain, outermost first
	Tags       []model.Tag      // Front-matter order
	Author     *model.Author
}

// Database is the relational index store. Every row in it is derivable from
// the content tree. Write methods are transactional and serialized.
type Database interface {
	// Documents

	// FindDocument returns the indexed document at path, or nil if none.
	FindDocument(ctx context.Context, path string) (*model.Document, error)

	// SaveDocument upserts doc and replaces all of its memberships.
	SaveDocument(ctx context.Context, doc *model.Document, m Membership) error

	// DeleteDocument removes the document at path, if any, together with its
	// memberships and any entities left unreferenced.
	DeleteDocument(ctx context.Context, path string) error

	// ListDocuments returns the documents matching plan in plan order.
	ListDocuments(ctx context.Context, plan query.Plan, page query.Page) ([]*model.Document, error)

	// CountDocuments counts the documents matching plan.
	CountDocuments(ctx context.Context, plan query.Plan) (int, error)

	// DocumentsWithTags returns published posts carrying any of keys.
	DocumentsWithTags(ctx context.Context, keys []string) ([]*model.Document, error)

	// Entities

	FindCategory(ctx context.Context, path string) (*model.Category, error)
	FindTag(ctx context.Context, key string) (*model.Tag, error)
	FindAuthor(ctx context.Context, key string) (*model.Author, error)

	// Aggregates over published posts

	// CategoryCounts returns the children and grandchildren of parent ("" for
	// the top level) with recursive document counts, zero counts omitted.
	CategoryCounts(ctx context.Context, parent string) ([]model.CategoryCount, error)

	// TagCounts returns every tag used by a published post.
	TagCounts(ctx context.Context) ([]model.TagCount, error)

	// AuthorCounts returns every author of a published post.
	AuthorCounts(ctx context.Context) ([]model.AuthorCount, error)

	// TagDocumentCounts returns the number of documents carrying each key.
	TagDocumentCounts(ctx context.Context, keys []string) (map[string]int, error)

	// PublishedTimes returns the publication time of every published post.
	PublishedTimes(ctx context.Context) ([]time.Time, error)

	// Maintenance

	// BackupTo writes a consistent copy of the store to destPath.
	BackupTo(destPath string) error

	Close() error
}
