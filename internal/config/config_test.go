package config

import (
	"os"
	"path/filepath"
	"testing"

	"crosscursors/internal/protocol"
)

// TestDefaults tests the defaults match the documented preferences.
func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.CornerEnabled {
		t.Error("Expected corner trigger enabled by default")
	}
	if cfg.CornerSize != 60 {
		t.Errorf("Expected corner size 60, got %d", cfg.CornerSize)
	}
	if cfg.CornerPosition != "bottom-left" {
		t.Errorf("Expected bottom-left, got %s", cfg.CornerPosition)
	}
	if cfg.ServerEnabled {
		t.Error("Expected server disabled by default")
	}
	if cfg.ServerPort != protocol.DefaultPort {
		t.Errorf("Expected port %d, got %d", protocol.DefaultPort, cfg.ServerPort)
	}
}

// TestSaveLoadRoundTrip tests persisting and reloading a modified config.
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	m := NewManagerAt(path)
	cfg := m.Get()
	cfg.CornerPosition = "top-right"
	cfg.ServerEnabled = true
	cfg.ServerPort = 9100
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	m2 := NewManagerAt(path)
	if err := m2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := m2.Get()
	if got.CornerPosition != "top-right" || !got.ServerEnabled || got.ServerPort != 9100 {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

// TestLoadMissingFileKeepsDefaults tests that a missing config file is not
// an error.
func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "missing.json"))
	if err := m.Load(); err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if m.Get().CornerSize != 60 {
		t.Errorf("Expected defaults, got %+v", m.Get())
	}
}

// TestLoadSanitizesValues tests clamping of out-of-range persisted values.
func TestLoadSanitizesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"corner_size": 0, "server_port": -1, "poll_interval_ms": 0}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()
	if cfg.CornerSize != 1 {
		t.Errorf("Expected corner size clamped to 1, got %d", cfg.CornerSize)
	}
	if cfg.ServerPort != protocol.DefaultPort {
		t.Errorf("Expected server port %d, got %d", protocol.DefaultPort, cfg.ServerPort)
	}
	if cfg.PollIntervalMs != 5 {
		t.Errorf("Expected poll interval clamped to 5, got %d", cfg.PollIntervalMs)
	}
}

// TestChangeCallback tests the registered callback fires on Set.
func TestChangeCallback(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))

	called := 0
	m.RegisterChangeCallback(func() { called++ })
	m.Set(DefaultConfig())
	if called != 1 {
		t.Errorf("Expected 1 callback, got %d", called)
	}
}
