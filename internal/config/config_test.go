package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load() on a missing file failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v; want defaults", cfg)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
brew_path: /opt/homebrew/bin/brew
appdir: /Applications
no_quarantine: true
greedy: true
refresh_policy: weekly
taps_enabled: false
proxy: socks5://127.0.0.1:1080
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.BrewPath != "/opt/homebrew/bin/brew" {
		t.Errorf("BrewPath = %q", cfg.BrewPath)
	}
	if !cfg.NoQuarantine || !cfg.Greedy {
		t.Errorf("bool flags not parsed: %+v", cfg)
	}
	if cfg.RefreshPolicy != "weekly" {
		t.Errorf("RefreshPolicy = %q", cfg.RefreshPolicy)
	}
	if cfg.TapsEnabled {
		t.Error("taps_enabled: false should override the default")
	}
	if cfg.Proxy != "socks5://127.0.0.1:1080" {
		t.Errorf("Proxy = %q", cfg.Proxy)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("greedy: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !cfg.Greedy {
		t.Error("greedy not applied")
	}
	if cfg.BrewPath != "brew" || cfg.RefreshPolicy != "daily" || !cfg.TapsEnabled {
		t.Errorf("unset keys should keep defaults: %+v", cfg)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("brew_path: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load() on malformed yaml should fail")
	}
}
