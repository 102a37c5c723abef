package epg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmptyGuideIsWellFormed(t *testing.T) {
	tv := Empty()
	if len(tv.Channels) != 0 || len(tv.Programs) != 0 {
		t.Fatalf("Empty() = %+v, want no channels or programmes", tv)
	}

	path := filepath.Join(t.TempDir(), "guide.xml")
	if err := Write(tv, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "<?xml") {
		t.Errorf("missing xml header: %s", data)
	}
	if !strings.Contains(string(data), "<tv ") {
		t.Errorf("missing tv element: %s", data)
	}

	parsed, err := Parse(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("round-trip Parse: %v", err)
	}
	if parsed.Generator != "lineupd" {
		t.Errorf("Generator = %q, want lineupd", parsed.Generator)
	}
}

func TestWriteIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.xml")
	if err := os.WriteFile(path, []byte("stale content"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	if err := Write(Empty(), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "stale content") {
		t.Fatal("stale content survived the write")
	}
}
