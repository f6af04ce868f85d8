package blog

import "io"

// Vault stores snapshots of the index store so a fresh instance can start
// warm instead of re-parsing the whole content tree on first access.
type Vault interface {
	// PutSnapshot stores the snapshot for a site. size is the number of bytes
	// that will be read from r. version is stored alongside it.
	PutSnapshot(siteID string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the stored snapshot for a site to w.
	GetSnapshot(siteID string, w io.Writer) error

	// SnapshotVersion returns the stored snapshot version, 0 if none.
	SnapshotVersion(siteID string) (int64, error)

	// ValidateSetup verifies that the vault is reachable.
	ValidateSetup() error
}
