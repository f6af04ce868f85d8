// Package watcher eagerly reconciles the index when the content tree changes
// on disk. Lazy reconciliation on access keeps working without it.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"blogdex/internal/blog"
	"blogdex/internal/model"
)

// DefaultDebounceWindow is how long the watcher waits for a burst of file
// events to settle before synchronizing.
const DefaultDebounceWindow = 250 * time.Millisecond

// Syncer reconciles one slug path. *blog.Service implements it.
type Syncer interface {
	EnsureCurrent(ctx context.Context, path string) (*model.Document, error)
}

// PathMapper maps files in the content tree to slug paths.
// *fs.OSContentTree implements it.
type PathMapper interface {
	Root() string
	SlugPath(name string) (string, bool)
}

// Watcher watches a content tree recursively and hands changed slug paths
// to a Syncer.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	tree      PathMapper
	syncer    Syncer
	logger    blog.Logger
	debouncer *Debouncer
}

// New creates a watcher over every directory below tree.Root().
func New(tree PathMapper, syncer Syncer, logger blog.Logger, window time.Duration) (*Watcher, error) {
	if window <= 0 {
		window = DefaultDebounceWindow
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		tree:      tree,
		syncer:    syncer,
		logger:    logger,
		debouncer: NewDebouncer(window),
	}
	if err := w.addRecursive(tree.Root()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching content tree: %w", err)
	}
	return w, nil
}

// Run processes file events until ctx is cancelled, then releases the
// underlying watcher. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsWatcher.Close()
	defer w.debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case paths := <-w.debouncer.Output():
			w.syncAll(ctx, paths)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
			}
		}
	}

	path, ok := w.tree.SlugPath(event.Name)
	if !ok {
		return
	}
	w.logger.Debug("content changed", "file", event.Name, "path", path, "op", event.Op.String())
	w.debouncer.Add(path)
}

func (w *Watcher) syncAll(ctx context.Context, paths []string) {
	for _, p := range paths {
		if ctx.Err() != nil {
			return
		}
		doc, err := w.syncer.EnsureCurrent(ctx, p)
		switch {
		case errors.Is(err, blog.ErrNotFound):
			w.logger.Debug("document gone", "path", p)
		case err != nil:
			w.logger.Error("sync failed", "path", p, "error", err)
		default:
			w.logger.Info("document synchronized", "path", doc.Path)
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsWatcher.Add(path)
	})
}
