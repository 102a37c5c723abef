package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesFileThenEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte("listenAddr: \":9090\"\n" +
		"database:\n  path: /data/catalog.sqlite\n" +
		"snapshot:\n  directory: /data/snaps\n  retentionCount: 5\n" +
		"refresh:\n  intervalHours: 2\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LINEUP_LISTEN_ADDR", ":9191")
	t.Setenv("LINEUP_SNAPSHOT_RETENTION_COUNT", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":9191" {
		t.Fatalf("ListenAddr = %q, want :9191 (env overrides file)", cfg.ListenAddr)
	}
	if cfg.DatabasePath != "/data/catalog.sqlite" {
		t.Fatalf("DatabasePath = %q, want file value", cfg.DatabasePath)
	}
	if cfg.SnapshotDirectory != "/data/snaps" {
		t.Fatalf("SnapshotDirectory = %q, want file value", cfg.SnapshotDirectory)
	}
	if cfg.SnapshotRetentionCount != 7 {
		t.Fatalf("SnapshotRetentionCount = %d, want 7 (env overrides file)", cfg.SnapshotRetentionCount)
	}
	if cfg.RefreshInterval != 2*time.Hour {
		t.Fatalf("RefreshInterval = %v, want 2h", cfg.RefreshInterval)
	}
}

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.ListenAddr != want.ListenAddr || cfg.DatabasePath != want.DatabasePath {
		t.Fatalf("Load with missing file = %+v, want defaults %+v", cfg, want)
	}
}

func TestParseIntFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("LINEUP_TEST_INT", "not-a-number")
	if got := ParseInt("LINEUP_TEST_INT", 42); got != 42 {
		t.Fatalf("ParseInt = %d, want 42 (fallback)", got)
	}
}
