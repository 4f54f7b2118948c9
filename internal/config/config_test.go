package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoad_Defaults verifies defaults apply without a config file.
func TestLoad_Defaults(t *testing.T) {
	m, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	cfg := m.Current()
	if cfg.ScriptsRoot != "scripts" {
		t.Errorf("ScriptsRoot = %q, want %q", cfg.ScriptsRoot, "scripts")
	}
	if !cfg.Recursive {
		t.Error("Recursive = false, want true")
	}
	if cfg.Debounce != 100*time.Millisecond {
		t.Errorf("Debounce = %v, want 100ms", cfg.Debounce)
	}
	if cfg.ServerPort != 7531 {
		t.Errorf("ServerPort = %d, want 7531", cfg.ServerPort)
	}
}

// TestLoad_File verifies values are read from a YAML config file.
func TestLoad_File(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sqlscripts.yaml")
	content := "scripts:\n  root: /srv/queries\n  recursive: false\ndebounce: 250ms\nserver:\n  port: 9000\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	cfg := m.Current()
	if cfg.ScriptsRoot != "/srv/queries" {
		t.Errorf("ScriptsRoot = %q, want /srv/queries", cfg.ScriptsRoot)
	}
	if cfg.Recursive {
		t.Error("Recursive = true, want false")
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v, want 250ms", cfg.Debounce)
	}
	if cfg.ServerPort != 9000 {
		t.Errorf("ServerPort = %d, want 9000", cfg.ServerPort)
	}
}

// TestLoad_MissingFile verifies a named but missing config file fails.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Load(missing) succeeded, want error")
	}
}

// TestWatch_RootChange verifies a rewrite of the config file triggers
// onChange with the new snapshot.
func TestWatch_RootChange(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sqlscripts.yaml")
	if err := os.WriteFile(path, []byte("scripts:\n  root: first\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	changes := make(chan Config, 4)
	m.Watch(func(cfg Config) { changes <- cfg })

	if err := os.WriteFile(path, []byte("scripts:\n  root: second\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.ScriptsRoot == "second" {
				return
			}
		case <-deadline:
			t.Fatalf("No change notification; current root = %q", m.Current().ScriptsRoot)
		}
	}
}
