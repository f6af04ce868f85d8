package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"blogdex/internal/blog"
	"blogdex/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements blog.Database on SQLite.
// Reads run concurrently; write transactions are serialized by writeMu.
type SQLiteDatabase struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex
}

// NewSQLiteDatabase opens the index at path (a file path or ":memory:") and
// migrates it to the latest schema.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens a SQLite connection configured for the index:
// foreign keys on every pooled connection, a busy timeout, and WAL for
// file databases. An in-memory database is limited to one connection so
// every query sees the same database.
func OpenConnection(path string) (*sql.DB, error) {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if path != ":memory:" {
		params += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", path+"?"+params)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	return db, nil
}

// Path returns the database file path ("" when wrapping a connection).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations reports whether the schema is current.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.Check(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up index: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// write runs fn inside a serialized transaction.
func (s *SQLiteDatabase) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// pruneEntities removes categories, tags and authors that no document
// references any more.
func pruneEntities(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		"DELETE FROM tags WHERE id NOT IN (SELECT tag_key FROM document_tags)",
		"DELETE FROM categories WHERE path NOT IN (SELECT category_path FROM document_categories)",
		"DELETE FROM authors WHERE id NOT IN (SELECT author_key FROM documents WHERE author_key IS NOT NULL)",
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pruning entities: %w", err)
		}
	}
	return nil
}

// maxInArgs bounds the number of bound parameters in one IN list.
const maxInArgs = 500

// chunks splits keys into slices of at most maxInArgs.
func chunks(keys []string) [][]string {
	var out [][]string
	for len(keys) > maxInArgs {
		out = append(out, keys[:maxInArgs])
		keys = keys[maxInArgs:]
	}
	if len(keys) > 0 {
		out = append(out, keys)
	}
	return out
}

func inList(keys []string) (string, []any) {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return strings.Repeat("?, ", len(keys)-1) + "?", args
}

// Compile-time check that SQLiteDatabase implements blog.Database.
var _ blog.Database = (*SQLiteDatabase)(nil)
