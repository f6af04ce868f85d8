package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"blogdex/internal/blog"
)

// MemoryVault keeps snapshots in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	snapshots map[string][]byte // siteID -> snapshot
	versions  map[string]int64  // siteID -> version
	mu        sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string][]byte),
		versions:  make(map[string]int64),
	}
}

// PutSnapshot stores the snapshot of a site, replacing any previous one.
func (m *MemoryVault) PutSnapshot(siteID string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[siteID] = data
	m.versions[siteID] = version
	return nil
}

// GetSnapshot writes the stored snapshot of a site to w.
func (m *MemoryVault) GetSnapshot(siteID string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[siteID]
	if !ok {
		return fmt.Errorf("snapshot not found for site: %s", siteID)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// SnapshotVersion returns 0 if no snapshot has been stored for the site.
func (m *MemoryVault) SnapshotVersion(siteID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.versions[siteID], nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements blog.Vault interface
var _ blog.Vault = (*MemoryVault)(nil)
