//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestFileBackendRoundTrip sets, reads, and deletes keys through the JSON file backend.
func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	b := &fileBackend{path: path, data: make(map[string]any)}

	if err := b.SetString("watch.dir", "/tmp/papers"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := b.SetInt("server.port", 8080); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	// Reload from disk to verify persistence.
	b2 := &fileBackend{path: path, data: make(map[string]any)}
	b2.load()

	s, ok, err := b2.GetString("watch.dir")
	if err != nil || !ok {
		t.Fatalf("GetString: ok=%v err=%v", ok, err)
	}
	if s != "/tmp/papers" {
		t.Errorf("watch.dir = %q, want %q", s, "/tmp/papers")
	}

	i, ok, err := b2.GetInt("server.port")
	if err != nil || !ok {
		t.Fatalf("GetInt: ok=%v err=%v", ok, err)
	}
	if i != 8080 {
		t.Errorf("server.port = %d, want 8080", i)
	}

	if err := b2.Delete("watch.dir"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := b2.GetString("watch.dir"); ok {
		t.Error("watch.dir still present after Delete")
	}
}

// TestFileBackendMissingFile verifies a missing config file yields no values and no error.
func TestFileBackendMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	b := &fileBackend{path: path, data: make(map[string]any)}
	b.load()

	if _, ok, err := b.GetString("watch.dir"); ok || err != nil {
		t.Errorf("GetString on missing file: ok=%v err=%v, want absent", ok, err)
	}
}

// TestFileBackendCorruptFile verifies unparseable JSON falls back to defaults.
func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	b := &fileBackend{path: path, data: make(map[string]any)}
	b.load()

	if _, ok, _ := b.GetString("watch.dir"); ok {
		t.Error("corrupt file produced a value")
	}
}
