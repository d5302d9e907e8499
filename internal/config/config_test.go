package config

import (
	"testing"
)

// mockBackend is a test double for the ConfigBackend interface.
type mockBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (m mockBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m mockBackend) SetString(key, val string) error { return nil }
func (m mockBackend) SetInt(key string, val int) error { return nil }
func (m mockBackend) Delete(key string) error          { return nil }

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	cfg, err := loadWith(mockBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Watch.Dir != "papers" {
		t.Errorf("Watch.Dir = %q, want %q", cfg.Watch.Dir, "papers")
	}
	if cfg.Watch.Interval != "5s" {
		t.Errorf("Watch.Interval = %q, want %q", cfg.Watch.Interval, "5s")
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q, want %q", cfg.Ollama.BaseURL, "http://localhost:11434")
	}
	if cfg.Ollama.Model != "phi3.5" {
		t.Errorf("Ollama.Model = %q, want %q", cfg.Ollama.Model, "phi3.5")
	}
	if cfg.Classify.Timeout != "60s" {
		t.Errorf("Classify.Timeout = %q, want %q", cfg.Classify.Timeout, "60s")
	}
	if cfg.Fetch.Timeout != "10s" {
		t.Errorf("Fetch.Timeout = %q, want %q", cfg.Fetch.Timeout, "10s")
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Classify.Topic == "" {
		t.Error("Classify.Topic default is empty")
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir default is empty")
	}
}

// TestBackendValues verifies backend values override defaults.
func TestBackendValues(t *testing.T) {
	b := mockBackend{
		strings: map[string]string{
			"watch.dir":        "/data/papers",
			"watch.interval":   "30s",
			"ollama.model":     "mistral-nemo",
			"classify.topic":   "KRAS inhibitors",
			"classify.timeout": "2m",
		},
		ints: map[string]int{
			"server.port": 5000,
		},
	}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Watch.Dir != "/data/papers" {
		t.Errorf("Watch.Dir = %q, want %q", cfg.Watch.Dir, "/data/papers")
	}
	if cfg.Watch.Interval != "30s" {
		t.Errorf("Watch.Interval = %q, want %q", cfg.Watch.Interval, "30s")
	}
	if cfg.Ollama.Model != "mistral-nemo" {
		t.Errorf("Ollama.Model = %q, want %q", cfg.Ollama.Model, "mistral-nemo")
	}
	if cfg.Classify.Topic != "KRAS inhibitors" {
		t.Errorf("Classify.Topic = %q, want %q", cfg.Classify.Topic, "KRAS inhibitors")
	}
	if cfg.Classify.Timeout != "2m" {
		t.Errorf("Classify.Timeout = %q, want %q", cfg.Classify.Timeout, "2m")
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	// Keys absent from the backend keep their defaults.
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q, want default", cfg.Ollama.BaseURL)
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	b := mockBackend{
		strings: map[string]string{"ollama.model": "backend-model"},
		ints:    map[string]int{"server.port": 5000},
	}

	t.Setenv("PAPERSIFT_OLLAMA_MODEL", "env-model")
	t.Setenv("PAPERSIFT_SERVER_PORT", "6000")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ollama.Model != "env-model" {
		t.Errorf("Ollama.Model = %q, want %q", cfg.Ollama.Model, "env-model")
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
}

// TestEnvOverride_BadInt verifies a malformed integer env var is ignored.
func TestEnvOverride_BadInt(t *testing.T) {
	t.Setenv("PAPERSIFT_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(mockBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want default 4000", cfg.Server.Port)
	}
}

// TestShowAll lists every config key with its current value.
func TestShowAll(t *testing.T) {
	cfg, err := loadWith(mockBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	infos := ShowAll(cfg)
	if len(infos) != len(specs) {
		t.Fatalf("got %d keys, want %d", len(infos), len(specs))
	}

	byKey := make(map[string]KeyInfo, len(infos))
	for _, ki := range infos {
		byKey[ki.Key] = ki
	}
	if got := byKey["watch.dir"].Value; got != "papers" {
		t.Errorf("watch.dir value = %q, want %q", got, "papers")
	}
	if got := byKey["watch.dir"].EnvVar; got != "PAPERSIFT_WATCH_DIR" {
		t.Errorf("watch.dir env = %q, want %q", got, "PAPERSIFT_WATCH_DIR")
	}
}

// TestSetKey_Unknown rejects keys outside the key table.
func TestSetKey_Unknown(t *testing.T) {
	if err := SetKey("nonsense.key", "v"); err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
}

// TestValidKeys includes the watch and classify keys.
func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	want := map[string]bool{"watch.dir": false, "watch.interval": false, "classify.topic": false}
	for _, k := range keys {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("ValidKeys() missing %q", k)
		}
	}
}
