package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ScreenplayDashboard.config")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// First run writes the default config next to the binary
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file was not created: %v", err)
	}
	if cfg.Server.Port != 8089 {
		t.Errorf("expected default port 8089, got %d", cfg.Server.Port)
	}
	if !cfg.Storage.EnablePersistence {
		t.Error("persistence should default to enabled")
	}
	if !cfg.Storage.EnableArchive {
		t.Error("archive should default to enabled")
	}

	// Relative storage paths resolve against the config directory
	if !filepath.IsAbs(cfg.Storage.DataDirectory) {
		t.Errorf("data directory not resolved: %s", cfg.Storage.DataDirectory)
	}
	if !strings.HasPrefix(cfg.Storage.ScriptsDirectory, dir) {
		t.Errorf("scripts directory outside config dir: %s", cfg.Storage.ScriptsDirectory)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ScreenplayDashboard.config")

	cfg := DefaultConfig()
	cfg.Server.Port = 9100
	cfg.Security.AllowJobDeletion = false
	cfg.Storage.RegistryFile = "jobs.json"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", loaded.Server.Port)
	}
	if loaded.Security.AllowJobDeletion {
		t.Error("expected job deletion disabled")
	}
	if got := filepath.Base(loaded.GetRegistryPath()); got != "jobs.json" {
		t.Errorf("expected registry file jobs.json, got %s", got)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ScreenplayDashboard.config")
	if err := os.WriteFile(path, []byte("<ScreenplayDashboard><Server>"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DATA_DIR", "/srv/screenplays")

	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "ScreenplayDashboard.config"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("PORT override not applied, got %d", cfg.Server.Port)
	}
	if cfg.Storage.DataDirectory != "/srv/screenplays" {
		t.Errorf("DATA_DIR override not applied, got %s", cfg.Storage.DataDirectory)
	}
	if cfg.Storage.ScriptsDirectory != "/srv/screenplays/scripts" {
		t.Errorf("scripts directory should follow DATA_DIR, got %s", cfg.Storage.ScriptsDirectory)
	}
	if cfg.GetRegistryPath() != "/srv/screenplays/upload-registry.json" {
		t.Errorf("registry path should follow DATA_DIR, got %s", cfg.GetRegistryPath())
	}
}

func TestGetAllowedFileTypes(t *testing.T) {
	cfg := DefaultConfig()
	got := cfg.GetAllowedFileTypes()
	want := []string{".pdf", ".txt", ".fountain", ".fdx"}
	if len(got) != len(want) {
		t.Fatalf("expected %d types, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, got[i])
		}
	}

	cfg.Security.AllowedFileTypes = " .pdf , .txt ,, "
	got = cfg.GetAllowedFileTypes()
	if len(got) != 2 || got[0] != ".pdf" || got[1] != ".txt" {
		t.Errorf("expected trimmed list, got %v", got)
	}
}

func TestGetServerAddr(t *testing.T) {
	cfg := DefaultConfig()
	if addr := cfg.GetServerAddr(); addr != "0.0.0.0:8089" {
		t.Errorf("expected 0.0.0.0:8089, got %s", addr)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(dir, "data")
	cfg.Storage.ScriptsDirectory = filepath.Join(dir, "data", "scripts")
	cfg.Storage.AnalysisDirectory = filepath.Join(dir, "data", "analysis")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}
	for _, d := range []string{cfg.Storage.DataDirectory, cfg.Storage.ScriptsDirectory, cfg.Storage.AnalysisDirectory} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s was not created", d)
		}
	}
}
