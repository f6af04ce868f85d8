package vault

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryVault_PutAndGetSnapshot(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		siteID  string
		content string
	}{
		{name: "store and retrieve snapshot", siteID: "blog", content: "sqlite bytes"},
		{name: "store empty snapshot", siteID: "empty", content: ""},
		{name: "store large snapshot", siteID: "large", content: strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := vault.PutSnapshot(tt.siteID, strings.NewReader(tt.content), int64(len(tt.content)), 42); err != nil {
				t.Fatalf("PutSnapshot() error = %v", err)
			}

			var buf bytes.Buffer
			if err := vault.GetSnapshot(tt.siteID, &buf); err != nil {
				t.Fatalf("GetSnapshot() error = %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetSnapshot() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_SnapshotVersion(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	version, err := vault.SnapshotVersion("blog")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("SnapshotVersion() before put = %d, want 0", version)
	}

	for _, v := range []int64{100, 200} {
		data := "snapshot"
		if err := vault.PutSnapshot("blog", strings.NewReader(data), int64(len(data)), v); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}
		got, err := vault.SnapshotVersion("blog")
		if err != nil {
			t.Fatalf("SnapshotVersion() error = %v", err)
		}
		if got != v {
			t.Errorf("SnapshotVersion() = %d, want %d", got, v)
		}
	}
}

func TestMemoryVault_SizeMismatch(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	if err := vault.PutSnapshot("blog", strings.NewReader("hello"), 100, 1); err == nil {
		t.Error("PutSnapshot() expected error for size mismatch")
	}

	version, _ := vault.SnapshotVersion("blog")
	if version != 0 {
		t.Errorf("SnapshotVersion() after failed put = %d, want 0", version)
	}
}

func TestMemoryVault_SnapshotNotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	err := vault.GetSnapshot("nonexistent", &buf)
	if err == nil {
		t.Fatal("GetSnapshot() expected error for nonexistent snapshot")
	}
	if !strings.Contains(err.Error(), "snapshot not found") {
		t.Errorf("error = %v, want error containing 'snapshot not found'", err)
	}
}

func TestMemoryVault_SitesAreIsolated(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	for _, site := range []string{"one", "two"} {
		if err := vault.PutSnapshot(site, strings.NewReader(site), int64(len(site)), 7); err != nil {
			t.Fatalf("PutSnapshot(%q) error = %v", site, err)
		}
	}

	var buf bytes.Buffer
	if err := vault.GetSnapshot("one", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != "one" {
		t.Errorf("GetSnapshot(one) = %q, want %q", buf.String(), "one")
	}
}
