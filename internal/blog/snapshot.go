package blog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoVault is returned by snapshot operations when no vault is configured.
var ErrNoVault = errors.New("no vault configured")

// PushSnapshot uploads a consistent copy of the index store to the vault and
// returns the snapshot version (the clock time in unix seconds).
func (s *Service) PushSnapshot() (int64, error) {
	if s.vault == nil {
		return 0, ErrNoVault
	}

	tmpDir, err := os.MkdirTemp("", "blogdex-snapshot-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp dir for snapshot: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// VACUUM INTO refuses to overwrite, so the target must not exist yet.
	tmpPath := filepath.Join(tmpDir, "index.db")
	if err := s.database.BackupTo(tmpPath); err != nil {
		return 0, storeErr("backup", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat snapshot: %w", err)
	}

	version := s.clock.Now().Unix()
	if err := s.vault.PutSnapshot(s.siteID, f, info.Size(), version); err != nil {
		return 0, fmt.Errorf("uploading snapshot to vault: %w", err)
	}

	s.logger.Info("snapshot pushed", "site", s.siteID, "version", version, "size", info.Size())
	return version, nil
}

// PullSnapshot downloads the stored snapshot of a site to destPath, replacing
// any file there. It returns the snapshot version, 0 when the vault holds
// none (destPath is then left untouched). The index store at destPath must
// not be open.
func PullSnapshot(v Vault, siteID, destPath string) (int64, error) {
	if v == nil {
		return 0, ErrNoVault
	}

	version, err := v.SnapshotVersion(siteID)
	if err != nil {
		return 0, fmt.Errorf("checking snapshot version: %w", err)
	}
	if version == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("creating data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".snapshot-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := v.GetSnapshot(siteID, tmp); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("downloading snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}

	// Stale WAL files would be replayed over the new database.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(destPath + suffix); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("removing %s: %w", destPath+suffix, err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("installing snapshot: %w", err)
	}
	return version, nil
}
