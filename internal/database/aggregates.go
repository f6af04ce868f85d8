package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"blogdex/internal/model"
)

func (s *SQLiteDatabase) FindCategory(ctx context.Context, path string) (*model.Category, error) {
	var c model.Category
	err := s.db.QueryRowContext(ctx, "SELECT path, name, parent FROM categories WHERE path = ?", path).
		Scan(&c.Path, &c.Name, &c.Parent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding category: %w", err)
	}
	return &c, nil
}

func (s *SQLiteDatabase) FindTag(ctx context.Context, key string) (*model.Tag, error) {
	var t model.Tag
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM tags WHERE id = ?", key).Scan(&t.Key, &t.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding tag: %w", err)
	}
	return &t, nil
}

func (s *SQLiteDatabase) FindAuthor(ctx context.Context, key string) (*model.Author, error) {
	var a model.Author
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM authors WHERE id = ?", key).Scan(&a.Key, &a.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding author: %w", err)
	}
	return &a, nil
}

// CategoryCounts counts published posts under the children and grandchildren
// of parent in one query. A post is linked to every category of its chain, so
// counting links yields the recursive count.
func (s *SQLiteDatabase) CategoryCounts(ctx context.Context, parent string) ([]model.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.path, c.name, c.parent, COUNT(DISTINCT d.path)
		FROM categories c
		JOIN document_categories dc ON dc.category_path = c.path
		JOIN documents d ON d.path = dc.document_path
		WHERE `+publishedPosts+`
		  AND (c.parent = ? OR c.parent IN (SELECT path FROM categories WHERE parent = ?))
		GROUP BY c.path, c.name, c.parent
		ORDER BY c.name, c.path`, parent, parent)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	defer rows.Close()

	var children []model.CategoryCount
	subs := make(map[string][]model.CategoryCount)
	for rows.Next() {
		var cc model.CategoryCount
		if err := rows.Scan(&cc.Path, &cc.Name, &cc.Parent, &cc.Count); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		if cc.Parent == parent {
			children = append(children, cc)
		} else {
			subs[cc.Parent] = append(subs[cc.Parent], cc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}

	for i := range children {
		children[i].Subs = subs[children[i].Path]
	}
	return children, nil
}

func (s *SQLiteDatabase) TagCounts(ctx context.Context) ([]model.TagCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(DISTINCT d.path), MAX(d.published_at)
		FROM tags t
		JOIN document_tags dt ON dt.tag_key = t.id
		JOIN documents d ON d.path = dt.document_path
		WHERE `+publishedPosts+`
		GROUP BY t.id, t.name
		ORDER BY t.name, t.id`)
	if err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}
	defer rows.Close()

	var tags []model.TagCount
	for rows.Next() {
		var (
			tc     model.TagCount
			latest int64
		)
		if err := rows.Scan(&tc.Key, &tc.Name, &tc.Count, &latest); err != nil {
			return nil, fmt.Errorf("scanning tag count: %w", err)
		}
		tc.Latest = time.Unix(latest, 0).UTC()
		tags = append(tags, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}
	return tags, nil
}

func (s *SQLiteDatabase) AuthorCounts(ctx context.Context) ([]model.AuthorCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, COUNT(d.path), MAX(d.published_at)
		FROM authors a
		JOIN documents d ON d.author_key = a.id
		WHERE `+publishedPosts+`
		GROUP BY a.id, a.name
		ORDER BY a.name, a.id`)
	if err != nil {
		return nil, fmt.Errorf("counting authors: %w", err)
	}
	defer rows.Close()

	var authors []model.AuthorCount
	for rows.Next() {
		var (
			ac     model.AuthorCount
			latest int64
		)
		if err := rows.Scan(&ac.Key, &ac.Name, &ac.Count, &latest); err != nil {
			return nil, fmt.Errorf("scanning author count: %w", err)
		}
		ac.Latest = time.Unix(latest, 0).UTC()
		authors = append(authors, ac)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting authors: %w", err)
	}
	return authors, nil
}

// TagDocumentCounts counts every document (published or not) carrying each
// key. Keys without documents are absent from the result.
func (s *SQLiteDatabase) TagDocumentCounts(ctx context.Context, keys []string) (map[string]int, error) {
	counts := make(map[string]int, len(keys))
	for _, chunk := range chunks(keys) {
		in, args := inList(chunk)
		rows, err := s.db.QueryContext(ctx,
			"SELECT tag_key, COUNT(*) FROM document_tags WHERE tag_key IN ("+in+") GROUP BY tag_key", args...)
		if err != nil {
			return nil, fmt.Errorf("counting tag documents: %w", err)
		}
		for rows.Next() {
			var (
				key string
				n   int
			)
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning tag document count: %w", err)
			}
			counts[key] = n
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("counting tag documents: %w", err)
		}
	}
	return counts, nil
}

func (s *SQLiteDatabase) PublishedTimes(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT d.published_at FROM documents d WHERE "+publishedPosts)
	if err != nil {
		return nil, fmt.Errorf("listing publication times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var sec int64
		if err := rows.Scan(&sec); err != nil {
			return nil, fmt.Errorf("scanning publication time: %w", err)
		}
		times = append(times, time.Unix(sec, 0).UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing publication times: %w", err)
	}

	sort.Slice(times, func(i, j int) bool { return times[i].After(times[j]) })
	return times, nil
}
