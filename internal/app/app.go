package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"blogdex/internal/blog"
	"blogdex/internal/config"
	"blogdex/internal/database"
	"blogdex/internal/document"
	"blogdex/internal/fs"
	"blogdex/internal/model"
	"blogdex/internal/query"
	"blogdex/internal/search"
	"blogdex/internal/vault"
	"blogdex/internal/watcher"
)

// BlogApp is the application layer between the CLI and the index service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw command-line input, and manages the store lifecycle on Close.
type BlogApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	tree    *fs.OSContentTree
	vault   blog.Vault
	service *blog.Service
	op      *Operation
	clock   blog.Clock
	logger  *slog.Logger
	logFile *os.File
}

// NewBlogApp creates a fully wired BlogApp from the given config.
// operation identifies the CLI command being run (e.g. "List", "PushSnapshot").
// The caller must call Close when done.
func NewBlogApp(cfg *config.Config, operation string) (*BlogApp, error) {
	clock := blog.RealClock{}
	op := NewOperation(operation, clock.Now())

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a, err := newBlogApp(cfg, op, clock, logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.logFile = logFile
	return a, nil
}

func newBlogApp(cfg *config.Config, op *Operation, clock blog.Clock, logger *slog.Logger) (*BlogApp, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	tree, err := fs.NewOSContentTree(cfg.ContentDir, cfg.Filesystem.Ignore)
	if err != nil {
		return nil, fmt.Errorf("opening content tree: %w", err)
	}

	var v blog.Vault
	if len(cfg.Vaults) > 0 {
		v, err = vault.NewVaultFromConfig(cfg.Vaults[0])
		if err != nil {
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	dbPath, err := database.DatabasePath(cfg.Database, cfg.SiteID)
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}
	fresh := dbPath != ":memory:" && !fileExists(dbPath)

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.SiteID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	// A new local index works, it just starts cold. Point out a faster start.
	if fresh && v != nil {
		if remote, err := v.SnapshotVersion(cfg.SiteID); err == nil && remote > 0 {
			logger.Info("index snapshot available in vault, run 'blogdex snapshot pull' to use it", "version", remote)
		}
	}

	svc, err := blog.NewService(db, tree, document.NewParser(loc), &slogAdapter{l: logger}, clock, blog.Options{
		SiteID:    cfg.SiteID,
		Location:  loc,
		Overrides: cfg,
		Vault:     v,
		Snippets: search.SnippetOptions{
			Open:      cfg.Search.SnippetOpen,
			Close:     cfg.Search.SnippetClose,
			CacheSize: cfg.Search.CacheSize,
		},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index service: %w", err)
	}

	return &BlogApp{
		cfg:     cfg,
		db:      db,
		tree:    tree,
		vault:   v,
		service: svc,
		op:      op,
		clock:   clock,
		logger:  logger,
	}, nil
}

// ListOptions are the listing filters accepted from the command line.
// Zero values leave a filter out.
type ListOptions struct {
	Categories []string
	Tag        string
	Author     string
	Search     string
	Posts      []string
	Year       int
	Month      int
	Day        int

	IncludePages  bool
	FeaturedFirst bool
}

// Spec validates opts into a query spec. Unlike request input, a malformed
// command-line filter is an error rather than an empty listing.
func (a *BlogApp) Spec(opts ListOptions) (query.Spec, error) {
	raw := map[string]any{}
	if len(opts.Categories) > 0 {
		raw[string(query.KindCategories)] = opts.Categories
	}
	if opts.Tag != "" {
		raw[string(query.KindTags)] = opts.Tag
	}
	if opts.Author != "" {
		raw[string(query.KindAuthors)] = opts.Author
	}
	if opts.Search != "" {
		raw[string(query.KindSearch)] = opts.Search
	}
	if len(opts.Posts) > 0 {
		raw[string(query.KindPosts)] = opts.Posts
	}

	spec := query.Parse(raw)
	spec.IncludePages = opts.IncludePages
	spec.FeaturedFirst = opts.FeaturedFirst

	loc := a.service.Location()
	switch {
	case opts.Year == 0 && (opts.Month != 0 || opts.Day != 0):
		return query.Spec{}, fmt.Errorf("--month and --day require --year")
	case opts.Day != 0 && opts.Month == 0:
		return query.Spec{}, fmt.Errorf("--day requires --month")
	case opts.Day != 0:
		spec = spec.With(query.DayRange(opts.Year, time.Month(opts.Month), opts.Day, loc))
	case opts.Month != 0:
		spec = spec.With(query.MonthRange(opts.Year, time.Month(opts.Month), loc))
	case opts.Year != 0:
		spec = spec.With(query.YearRange(opts.Year, loc))
	}

	if invalid := spec.Invalid(); len(invalid) > 0 {
		reasons := make([]string, len(invalid))
		for i, inv := range invalid {
			reasons[i] = fmt.Sprintf("%s: %s", inv.For, inv.Reason)
		}
		return query.Spec{}, fmt.Errorf("invalid filter: %s", strings.Join(reasons, "; "))
	}
	return spec, nil
}

// Get returns the document at rawPath with its resolved entities.
func (a *BlogApp) Get(ctx context.Context, rawPath string) (*blog.Entry, error) {
	e, err := a.service.Entry(ctx, cleanPath(rawPath))
	return e, a.op.Record(err)
}

// List returns a window of the listing selected by spec.
func (a *BlogApp) List(ctx context.Context, spec query.Spec, page query.Page) (*blog.Listing, error) {
	l, err := a.service.Query(ctx, spec, page)
	return l, a.op.Record(err)
}

// Count returns the number of documents selected by spec.
func (a *BlogApp) Count(ctx context.Context, spec query.Spec) (int, error) {
	n, err := a.service.Count(ctx, spec)
	return n, a.op.Record(err)
}

// Neighbors returns the adjacent entries of rawPath within spec.
func (a *BlogApp) Neighbors(ctx context.Context, rawPath string, spec query.Spec) (*blog.Neighbors, error) {
	n, err := a.service.Neighbors(ctx, cleanPath(rawPath), spec)
	return n, a.op.Record(err)
}

// Similar ranks posts by the tags they share with rawPath.
func (a *BlogApp) Similar(ctx context.Context, rawPath string, limit int) ([]blog.Match, error) {
	m, err := a.service.Similar(ctx, cleanPath(rawPath), limit)
	return m, a.op.Record(err)
}

// SimilarTo ranks posts by an explicit tag weighting.
func (a *BlogApp) SimilarTo(ctx context.Context, weights map[string]float64, limit int) ([]blog.Match, error) {
	m, err := a.service.SimilarTo(ctx, weights, limit)
	return m, a.op.Record(err)
}

// Categories returns category counts under parent ("" for the top level).
func (a *BlogApp) Categories(ctx context.Context, parent string, limit int) ([]model.CategoryCount, error) {
	c, err := a.service.Categories(ctx, cleanPath(parent), limit)
	return c, a.op.Record(err)
}

// Tags returns the tag cloud.
func (a *BlogApp) Tags(ctx context.Context, limit int) ([]model.TagCount, error) {
	t, err := a.service.TagCloud(ctx, limit)
	return t, a.op.Record(err)
}

// Authors returns authors with their post counts.
func (a *BlogApp) Authors(ctx context.Context, limit int) ([]model.AuthorCount, error) {
	au, err := a.service.Authors(ctx, limit)
	return au, a.op.Record(err)
}

// ArchiveYears returns the years with published posts.
func (a *BlogApp) ArchiveYears(ctx context.Context) ([]blog.ArchiveYear, error) {
	y, err := a.service.ArchiveYears(ctx)
	return y, a.op.Record(err)
}

// ArchiveCalendar returns the months of year with published posts.
func (a *BlogApp) ArchiveCalendar(ctx context.Context, year int) ([]blog.ArchiveMonth, error) {
	m, err := a.service.ArchiveCalendar(ctx, year)
	return m, a.op.Record(err)
}

// PushSnapshot uploads the index to the configured vault.
func (a *BlogApp) PushSnapshot() (int64, error) {
	version, err := a.service.PushSnapshot()
	return version, a.op.Record(err)
}

// Watch synchronizes documents as their files change until ctx is cancelled.
func (a *BlogApp) Watch(ctx context.Context) error {
	w, err := watcher.New(a.tree, a.service, &slogAdapter{l: a.logger}, watcher.DefaultDebounceWindow)
	if err != nil {
		return a.op.Record(err)
	}
	a.logger.Info("watching content tree", "root", a.tree.Root())
	return a.op.Record(w.Run(ctx))
}

// Close closes the index store and the log file.
func (a *BlogApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
		a.op.Status = "error"
	}

	a.logger.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status, "elapsed", a.op.Elapsed(a.clock.Now()))

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// PullSnapshot replaces the local index of the configured site with the
// snapshot held by its first vault. It must run while no BlogApp has the
// store open. A version of 0 means the vault holds no snapshot.
func PullSnapshot(cfg *config.Config) (int64, error) {
	if len(cfg.Vaults) == 0 {
		return 0, blog.ErrNoVault
	}
	v, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return 0, fmt.Errorf("creating vault: %w", err)
	}

	dbPath, err := database.DatabasePath(cfg.Database, cfg.SiteID)
	if err != nil {
		return 0, fmt.Errorf("resolving database path: %w", err)
	}
	if dbPath == ":memory:" {
		return 0, fmt.Errorf("cannot pull a snapshot into an in-memory database")
	}

	return blog.PullSnapshot(v, cfg.SiteID, dbPath)
}

// cleanPath turns a URL-ish argument ("/a/b.html", "a/b/") into a slug path
// candidate. Case and spelling are left for the service to canonicalize.
func cleanPath(raw string) string {
	return strings.TrimSuffix(strings.Trim(strings.TrimSpace(raw), "/"), ".html")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
