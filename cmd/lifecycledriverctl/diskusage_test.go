package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunDiskUsageWalksRequestDirectories(t *testing.T) {
	base := t.TempDir()
	req1 := filepath.Join(base, "req-1")
	if err := os.MkdirAll(req1, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(req1, "f"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	// a stray file directly under base is ignored: only subdirectories
	// are treated as request trees.
	if err := os.WriteFile(filepath.Join(base, "stray"), []byte("xyz"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runDiskUsage(base); err != nil {
		t.Fatalf("runDiskUsage: %v", err)
	}
}

func TestRunDiskUsageMissingBaseDir(t *testing.T) {
	if err := runDiskUsage(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected an error for a missing base dir")
	}
}
