package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for blogdex.
type Config struct {
	SiteID     string           `toml:"site_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level,omitempty"` // debug, info, warn or error; defaults to info
	ContentDir string           `toml:"content_dir"`
	Timezone   string           `toml:"timezone,omitempty"` // IANA name, defaults to UTC
	Vaults     []VaultConfig    `toml:"vaults"`
	Database   DatabaseConfig   `toml:"database"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Search     SearchConfig     `toml:"search"`

	// Display overrides keyed by category path, tag key or author key.
	Categories map[string]Override `toml:"categories,omitempty"`
	Tags       map[string]Override `toml:"tags,omitempty"`
	Authors    map[string]Override `toml:"authors,omitempty"`
}

// Override replaces the derived display name and/or thumbnail of an entity.
type Override struct {
	Name      string `toml:"name,omitempty"`
	Thumbnail string `toml:"thumbnail,omitempty"`
}

// FilesystemConfig holds content-tree settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// SearchConfig holds snippet settings. Empty values fall back to defaults.
type SearchConfig struct {
	SnippetOpen  string `toml:"snippet_open,omitempty"`
	SnippetClose string `toml:"snippet_close,omitempty"`
	CacheSize    int    `toml:"cache_size,omitempty"`
}

// VaultConfig represents configuration for a snapshot vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	// Optional endpoint for S3-compatible services; enables path-style addressing.
	S3Endpoint string `toml:"s3_endpoint,omitempty"`
	// Static credentials. When empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the index store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with the provided values and default directories.
func NewConfig(siteID, baseDir string) *Config {
	return &Config{
		SiteID:     siteID,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		ContentDir: filepath.Join(baseDir, "content"),
		Timezone:   "UTC",
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Location resolves Timezone. An empty value is UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Lookup returns the configured override for an entity. kind is
// "categories", "tags" or "authors".
func (c *Config) Lookup(kind, key string) (name, thumbnail string, ok bool) {
	var table map[string]Override
	switch kind {
	case "categories":
		table = c.Categories
	case "tags":
		table = c.Tags
	case "authors":
		table = c.Authors
	}
	o, ok := table[key]
	if !ok {
		return "", "", false
	}
	return o.Name, o.Thumbnail, true
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
