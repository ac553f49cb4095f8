package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPolicyOverlayEmptyPathIsNotError(t *testing.T) {
	overlay, err := LoadPolicyOverlay("")
	if err != nil {
		t.Fatalf("LoadPolicyOverlay(\"\") error = %v", err)
	}
	if len(overlay.ExtraTables) != 0 {
		t.Error("expected no extra tables with no overlay configured")
	}
}

func TestLoadPolicyOverlayParsesExtraTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("extra_tables:\n  - inventory\n  - warehouses\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	overlay, err := LoadPolicyOverlay(path)
	if err != nil {
		t.Fatalf("LoadPolicyOverlay() error = %v", err)
	}
	if len(overlay.ExtraTables) != 2 {
		t.Fatalf("ExtraTables = %v, want 2 entries", overlay.ExtraTables)
	}
}

func TestLoadPolicyOverlayRejectsUsers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("extra_tables:\n  - users\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPolicyOverlay(path); err == nil {
		t.Fatal("expected an overlay adding \"users\" to be rejected")
	}
}

func TestLoadPolicyOverlayMissingFile(t *testing.T) {
	if _, err := LoadPolicyOverlay("/nonexistent/policy.yaml"); err == nil {
		t.Fatal("expected an error reading a missing overlay file")
	}
}
