// Package config loads the caskctl configuration file. All pipeline
// behaviour knobs live in one explicit struct injected into constructors, so
// components are testable with fixed configurations.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all user-tunable settings.
type Config struct {
	// BrewPath is the package manager executable. Empty means "brew" on
	// PATH.
	BrewPath string `yaml:"brew_path"`

	// Appdir overrides the installation target directory for casks.
	Appdir string `yaml:"appdir"`

	// NoQuarantine disables the quarantine attribute on installed apps.
	NoQuarantine bool `yaml:"no_quarantine"`

	// Greedy includes self-updating casks in the outdated report.
	Greedy bool `yaml:"greedy"`

	// RefreshPolicy controls catalog cache staleness: "launch", "hourly",
	// "daily" or "weekly".
	RefreshPolicy string `yaml:"refresh_policy"`

	// TapsEnabled turns on best-effort tap catalog fetching.
	TapsEnabled bool `yaml:"taps_enabled"`

	// TapScript is the script invoked to collect tap-contributed entries.
	TapScript string `yaml:"tap_script"`

	// Proxy, when set, is exported as ALL_PROXY to spawned processes.
	Proxy string `yaml:"proxy"`

	// AskpassPath and AskpassSHA256 identify the privileged password
	// prompt helper and its recorded checksum.
	AskpassPath   string `yaml:"askpass_path"`
	AskpassSHA256 string `yaml:"askpass_sha256"`

	// CacheDir overrides the catalog cache directory.
	CacheDir string `yaml:"cache_dir"`

	// HistoryDB overrides the operation history database path.
	HistoryDB string `yaml:"history_db"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BrewPath:      "brew",
		RefreshPolicy: "daily",
		TapsEnabled:   true,
	}
}

// Dir returns the caskctl config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/caskctl.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "caskctl"), nil
}

// DefaultPath returns {Dir()}/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path. A missing file returns defaults
// without an error; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.BrewPath == "" {
		cfg.BrewPath = "brew"
	}
	return cfg, nil
}
