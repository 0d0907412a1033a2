package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunKeysValidateRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-key.pem")
	if err := os.WriteFile(path, []byte("this is not a private key"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := runKeysValidate(path); err == nil {
		t.Fatal("expected an error for a non-key file")
	}
}

func TestRunKeysValidateMissingFile(t *testing.T) {
	if err := runKeysValidate(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
