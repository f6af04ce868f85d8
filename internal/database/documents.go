package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blogdex/internal/blog"
	"blogdex/internal/model"
	"blogdex/internal/query"
)

const documentColumns = `d.path, d.is_page, d.title, d.description, d.body_html, d.plain_text, d.thumbnail,
	d.published_at, d.updated_at, d.featured, d.author_key, d.search_text, d.parse_error`

// publishedPosts is the base predicate of every aggregate.
const publishedPosts = "d.published_at IS NOT NULL AND d.is_page = 0"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc       model.Document
		published sql.NullInt64
		updated   int64
		author    sql.NullString
	)
	err := row.Scan(&doc.Path, &doc.IsPage, &doc.Title, &doc.Description, &doc.BodyHTML, &doc.PlainText,
		&doc.Thumbnail, &published, &updated, &doc.Featured, &author, &doc.SearchText, &doc.ParseError)
	if err != nil {
		return nil, err
	}
	if published.Valid {
		t := time.Unix(published.Int64, 0).UTC()
		doc.PublishedAt = &t
	}
	doc.UpdatedAt = time.Unix(0, updated).UTC()
	doc.AuthorKey = author.String
	return &doc, nil
}

func (s *SQLiteDatabase) FindDocument(ctx context.Context, path string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents d WHERE d.path = ?", path)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding document: %w", err)
	}

	if err := s.loadMemberships(ctx, []*model.Document{doc}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteDatabase) SaveDocument(ctx context.Context, doc *model.Document, m blog.Membership) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		if m.Author != nil {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO authors (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
				m.Author.Key, m.Author.Name); err != nil {
				return fmt.Errorf("inserting author: %w", err)
			}
		}
		for _, c := range m.Categories {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO categories (path, name, parent) VALUES (?, ?, ?) ON CONFLICT(path) DO NOTHING",
				c.Path, c.Name, c.Parent); err != nil {
				return fmt.Errorf("inserting category: %w", err)
			}
		}
		for _, t := range m.Tags {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO tags (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
				t.Key, t.Name); err != nil {
				return fmt.Errorf("inserting tag: %w", err)
			}
		}

		var published sql.NullInt64
		if doc.PublishedAt != nil {
			published = sql.NullInt64{Int64: doc.PublishedAt.Unix(), Valid: true}
		}
		var author sql.NullString
		if doc.AuthorKey != "" {
			author = sql.NullString{String: doc.AuthorKey, Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (path, is_page, title, description, body_html, plain_text, thumbnail,
				published_at, updated_at, featured, author_key, search_text, parse_error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				is_page = excluded.is_page,
				title = excluded.title,
				description = excluded.description,
				body_html = excluded.body_html,
				plain_text = excluded.plain_text,
				thumbnail = excluded.thumbnail,
				published_at = excluded.published_at,
				updated_at = excluded.updated_at,
				featured = excluded.featured,
				author_key = excluded.author_key,
				search_text = excluded.search_text,
				parse_error = excluded.parse_error`,
			doc.Path, doc.IsPage, doc.Title, doc.Description, doc.BodyHTML, doc.PlainText, doc.Thumbnail,
			published, doc.UpdatedAt.UnixNano(), doc.Featured, author, doc.SearchText, doc.ParseError)
		if err != nil {
			return fmt.Errorf("upserting document: %w", err)
		}

		// Replace-all memberships.
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_categories WHERE document_path = ?", doc.Path); err != nil {
			return fmt.Errorf("clearing categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_tags WHERE document_path = ?", doc.Path); err != nil {
			return fmt.Errorf("clearing tags: %w", err)
		}
		for i, c := range m.Categories {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO document_categories (document_path, category_path, depth) VALUES (?, ?, ?)",
				doc.Path, c.Path, i); err != nil {
				return fmt.Errorf("linking category: %w", err)
			}
		}
		for i, t := range m.Tags {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO document_tags (document_path, tag_key, position) VALUES (?, ?, ?)",
				doc.Path, t.Key, i); err != nil {
				return fmt.Errorf("linking tag: %w", err)
			}
		}

		return pruneEntities(ctx, tx)
	})
}

func (s *SQLiteDatabase) DeleteDocument(ctx context.Context, path string) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path)
		if err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return pruneEntities(ctx, tx)
	})
}

func (s *SQLiteDatabase) ListDocuments(ctx context.Context, plan query.Plan, page query.Page) ([]*model.Document, error) {
	if plan.Empty {
		return nil, nil
	}

	limit := page.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	q := "SELECT " + documentColumns + " FROM documents d WHERE " + plan.Where.SQL +
		" ORDER BY " + plan.OrderBy + " LIMIT ? OFFSET ?"
	args := append(append([]any(nil), plan.Where.Args...), limit, offset)

	return s.queryDocuments(ctx, q, args...)
}

func (s *SQLiteDatabase) CountDocuments(ctx context.Context, plan query.Plan) (int, error) {
	if plan.Empty {
		return 0, nil
	}

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents d WHERE "+plan.Where.SQL, plan.Where.Args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *SQLiteDatabase) DocumentsWithTags(ctx context.Context, keys []string) ([]*model.Document, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var docs []*model.Document
	seen := make(map[string]bool)
	for _, chunk := range chunks(keys) {
		in, args := inList(chunk)
		found, err := s.queryDocuments(ctx,
			"SELECT "+documentColumns+" FROM documents d WHERE "+publishedPosts+
				" AND EXISTS (SELECT 1 FROM document_tags dt WHERE dt.document_path = d.path AND dt.tag_key IN ("+in+"))"+
				" ORDER BY d.published_at DESC, d.path ASC", args...)
		if err != nil {
			return nil, err
		}
		for _, d := range found {
			if !seen[d.Path] {
				seen[d.Path] = true
				docs = append(docs, d)
			}
		}
	}
	return docs, nil
}

func (s *SQLiteDatabase) queryDocuments(ctx context.Context, q string, args ...any) ([]*model.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	if err := s.loadMemberships(ctx, docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// loadMemberships fills CategoryPaths and TagKeys of docs in two queries per
// chunk of documents.
func (s *SQLiteDatabase) loadMemberships(ctx context.Context, docs []*model.Document) error {
	if len(docs) == 0 {
		return nil
	}

	byPath := make(map[string]*model.Document, len(docs))
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		byPath[d.Path] = d
		paths = append(paths, d.Path)
	}

	for _, chunk := range chunks(paths) {
		in, args := inList(chunk)

		err := s.eachPair(ctx,
			"SELECT document_path, category_path FROM document_categories WHERE document_path IN ("+in+") ORDER BY document_path, depth",
			args, func(doc, cat string) {
				d := byPath[doc]
				d.CategoryPaths = append(d.CategoryPaths, cat)
			})
		if err != nil {
			return fmt.Errorf("loading document categories: %w", err)
		}

		err = s.eachPair(ctx,
			"SELECT document_path, tag_key FROM document_tags WHERE document_path IN ("+in+") ORDER BY document_path, position",
			args, func(doc, tag string) {
				d := byPath[doc]
				d.TagKeys = append(d.TagKeys, tag)
			})
		if err != nil {
			return fmt.Errorf("loading document tags: %w", err)
		}
	}
	return nil
}

func (s *SQLiteDatabase) eachPair(ctx context.Context, q string, args []any, fn func(a, b string)) error {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		fn(a, b)
	}
	return rows.Err()
}
