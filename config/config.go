package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Config holds persistent client settings stored at <profileDir>/config.json.
type Config struct {
	Theme              string `json:"theme,omitempty"`
	BackendURL         string `json:"backend_url,omitempty"`
	SessionCookie      string `json:"session_cookie,omitempty"`
	HistoryTokenBudget int    `json:"history_token_budget,omitempty"`
	LogLevel           string `json:"log_level,omitempty"`
}

const (
	filename = "config.json"

	// DefaultBackendURL is used when neither the config nor the environment names one.
	DefaultBackendURL = "http://localhost:9000"

	EnvURL      = "VAULTX_URL"
	EnvLogLevel = "VAULTX_LOG_LEVEL"
)

// ProfileDir returns ~/.vaultx, or ~/.vaultx/profiles/<name> for a named profile.
func ProfileDir(profile string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if profile == "" {
		return filepath.Join(home, ".vaultx")
	}
	return filepath.Join(home, ".vaultx", "profiles", profile)
}

// Load reads <profileDir>/config.json and returns the parsed Config.
// If the file is absent or unreadable, a default Config is returned.
// Environment overrides are applied last.
func Load(profileDir string) Config {
	cfg := defaults()
	data, err := os.ReadFile(filepath.Join(profileDir, filename))
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			cfg = defaults()
		}
	}
	applyEnv(&cfg)
	fill(&cfg)
	return cfg
}

// Save writes cfg to <profileDir>/config.json, creating the directory if needed.
func Save(profileDir string, cfg Config) error {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(profileDir, filename), data, 0o644)
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvURL)); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
}

// fill restores defaults for fields a config file blanked out.
func fill(cfg *Config) {
	d := defaults()
	if cfg.Theme == "" {
		cfg.Theme = d.Theme
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = d.BackendURL
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = d.SessionCookie
	}
	if cfg.HistoryTokenBudget < 0 {
		cfg.HistoryTokenBudget = 0
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = d.LogLevel
	}
}

func defaults() Config {
	return Config{
		Theme:         "dark",
		BackendURL:    DefaultBackendURL,
		SessionCookie: "token",
		LogLevel:      "info",
	}
}
