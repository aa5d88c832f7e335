package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDatabasePath_EnvOverride(t *testing.T) {
	t.Setenv("ATLAS_DB", "/var/lib/atlas/steps.db")

	configPath := filepath.Join(t.TempDir(), "atlas.yaml")
	if err := os.WriteFile(configPath, []byte("database-path: file.db\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	path, err := LoadDatabasePath(configPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if path != "/var/lib/atlas/steps.db" {
		t.Fatalf("expected env path to win, got %q", path)
	}
}

func TestLoadDatabasePath_FromFile(t *testing.T) {
	t.Setenv("ATLAS_DB", "")

	configPath := filepath.Join(t.TempDir(), "atlas.yaml")
	if err := os.WriteFile(configPath, []byte("database-path: steps.db\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	path, err := LoadDatabasePath(configPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if path != "steps.db" {
		t.Fatalf("expected path from flat key, got %q", path)
	}

	if err := os.WriteFile(configPath, []byte("database:\n  path: nested.db\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	path, err = LoadDatabasePath(configPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if path != "nested.db" {
		t.Fatalf("expected path from nested key, got %q", path)
	}
}

func TestLoadDatabasePath_Defaults(t *testing.T) {
	t.Setenv("ATLAS_DB", "")

	missingPath := filepath.Join(t.TempDir(), "missing.yaml")
	path, err := LoadDatabasePath(missingPath)
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if path != DefaultDatabasePath {
		t.Fatalf("expected default path, got %q", path)
	}

	emptyPath := filepath.Join(t.TempDir(), "atlas.yaml")
	if errWrite := os.WriteFile(emptyPath, []byte("# no database settings\n"), 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	path, err = LoadDatabasePath(emptyPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if path != DefaultDatabasePath {
		t.Fatalf("expected default path, got %q", path)
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("  "); !filepath.IsAbs(got) {
		t.Fatalf("expected absolute default path, got %q", got)
	}
	got := ResolveConfigPath("conf/atlas.yaml")
	if !filepath.IsAbs(got) {
		t.Fatalf("expected absolute path, got %q", got)
	}
}
