package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"blogdex/internal/blog"
	contentfs "blogdex/internal/fs"
	"blogdex/internal/model"
)

// recordingSyncer records every path it is asked to synchronize.
type recordingSyncer struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func newRecordingSyncer() *recordingSyncer {
	return &recordingSyncer{seen: make(chan string, 64)}
}

func (r *recordingSyncer) EnsureCurrent(ctx context.Context, path string) (*model.Document, error) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.seen <- path
	if path == "gone" {
		return nil, blog.ErrNotFound
	}
	return &model.Document{Path: path}, nil
}

func waitForPath(t *testing.T, r *recordingSyncer, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-r.seen:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("EnsureCurrent(%q) was not called", want)
		}
	}
}

func startWatcher(t *testing.T, root string) *recordingSyncer {
	t.Helper()

	tree, err := contentfs.NewOSContentTree(root, nil)
	if err != nil {
		t.Fatalf("NewOSContentTree() error = %v", err)
	}
	syncer := newRecordingSyncer()
	w, err := New(tree, syncer, blog.NewNopLogger(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	return syncer
}

func TestWatcher_ModifiedDocument(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "category", "hello-world")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	file := filepath.Join(dir, "index.md")
	if err := os.WriteFile(file, []byte("---\ntitle: Hello\n---\nbody"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	syncer := startWatcher(t, root)

	if err := os.WriteFile(file, []byte("---\ntitle: Hello again\n---\nbody"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	waitForPath(t, syncer, "category/hello-world")
}

func TestWatcher_NewDirectory(t *testing.T) {
	root := t.TempDir()
	syncer := startWatcher(t, root)

	dir := filepath.Join(root, "fresh")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	waitForPath(t, syncer, "fresh")

	// The new directory is watched as well.
	if err := os.WriteFile(filepath.Join(dir, "index.md"), []byte("body"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	waitForPath(t, syncer, "fresh")
}

func TestWatcher_RemovedDocument(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "gone")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.md"), []byte("body"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	syncer := startWatcher(t, root)

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	waitForPath(t, syncer, "gone")
}
