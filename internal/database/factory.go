package database

import (
	"fmt"
	"os"
	"path/filepath"

	"blogdex/internal/config"
)

// DatabasePath returns the index file for a site, or ":memory:".
func DatabasePath(cfg config.DatabaseConfig, siteID string) (string, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return "", fmt.Errorf("data_dir required for sqlite database")
		}
		return filepath.Join(cfg.DataDir, siteID+".db"), nil
	case "memory":
		return ":memory:", nil
	default:
		return "", fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// NewDatabaseFromConfig creates the index store based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, siteID string) (*SQLiteDatabase, error) {
	path, err := DatabasePath(cfg, siteID)
	if err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return NewSQLiteDatabase(path)
}
