// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/scholar-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete scholar configuration.
type Config struct {
	Version string `toml:"version"`

	// DataDir holds local state (chat list, logs). Default: ~/.scholar
	DataDir string `toml:"data_dir"`

	API      APIConfig      `toml:"api"`
	Registry RegistryConfig `toml:"registry"`
	UI       UIConfig       `toml:"ui"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig contains remote API settings.
type APIConfig struct {
	// BaseURL is the API root, e.g. http://127.0.0.1:8000/api/
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds non-streaming requests. Streams are context controlled.
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerSecond throttles client-side request bursts (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second"`
	// Burst is the limiter bucket size
	Burst int `toml:"burst"`
	// MetaCacheTTLSecs is how long categories and search paths are cached
	MetaCacheTTLSecs int `toml:"meta_cache_ttl_secs"`
}

// RegistryConfig controls persistence of the local chat list.
type RegistryConfig struct {
	// Backend is "file" (JSON) or "sqlite"
	Backend string `toml:"backend"`
	// Path overrides the default location inside DataDir
	Path string `toml:"path"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme"`
	// PageSize is the initial document table page size
	PageSize int `toml:"page_size"`
	// Markdown renders finished assistant answers with glamour
	Markdown bool `toml:"markdown"`
	// ToastSeconds is how long notifications stay visible
	ToastSeconds int `toml:"toast_seconds"`
	// AltScreen runs the TUI on the alternate screen buffer
	AltScreen bool `toml:"alt_screen"`
}

// LogConfig contains log file settings.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:           "http://127.0.0.1:8000/api/",
			TimeoutSecs:       30,
			RequestsPerSecond: 10,
			Burst:             5,
			MetaCacheTTLSecs:  300,
		},
		Registry: RegistryConfig{
			Backend: "file",
		},
		UI: UIConfig{
			Theme:        "auto",
			PageSize:     10,
			Markdown:     true,
			ToastSeconds: 3,
			AltScreen:    true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the scholar configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SCHOLAR_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".scholar"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default location. A missing file is not
// an error; defaults are used instead.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return load(path, false)
}

// LoadFromPath loads configuration from an explicit file, which must exist.
func LoadFromPath(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, explicit bool) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, statErr)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// loadDotEnv loads KEY=VALUE pairs from a .env file without overriding
// variables already present in the environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported variables:
//   - SCHOLAR_API_URL: overrides api.base_url
//   - SCHOLAR_REGISTRY_BACKEND: overrides registry.backend
//   - SCHOLAR_LOG_LEVEL: overrides log.level
//   - SCHOLAR_DATA_DIR: overrides data_dir
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SCHOLAR_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SCHOLAR_REGISTRY_BACKEND"); v != "" {
		c.Registry.Backend = v
	}
	if v := os.Getenv("SCHOLAR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SCHOLAR_DATA_DIR"); v != "" {
		c.DataDir = v
	}
}

// SetDefaults fills zero values that depend on the environment.
func (c *Config) SetDefaults() error {
	if c.DataDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	if c.Registry.Path == "" {
		name := "state.json"
		if strings.EqualFold(c.Registry.Backend, "sqlite") {
			name = "state.db"
		}
		c.Registry.Path = filepath.Join(c.DataDir, name)
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.DataDir, "logs", "scholar.log")
	}
	if !strings.HasSuffix(c.API.BaseURL, "/") {
		c.API.BaseURL += "/"
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// MetaCacheTTL returns the metadata cache TTL as a duration.
func (c *Config) MetaCacheTTL() time.Duration {
	return time.Duration(c.API.MetaCacheTTLSecs) * time.Second
}

// ToastDuration returns how long notifications stay visible.
func (c *Config) ToastDuration() time.Duration {
	return time.Duration(c.UI.ToastSeconds) * time.Second
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to a TOML file with 0600 permissions.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# scholar configuration file")
	fmt.Fprintln(&buf, "")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
		})
	}

	if c.API.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{Field: "api.timeout_secs", Message: "must be positive"})
	}
	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "api.requests_per_second", Message: "must not be negative"})
	}
	if c.API.RequestsPerSecond > 0 && c.API.Burst <= 0 {
		errs = append(errs, ValidationError{Field: "api.burst", Message: "must be positive when rate limiting is enabled"})
	}
	if c.API.MetaCacheTTLSecs < 0 {
		errs = append(errs, ValidationError{Field: "api.meta_cache_ttl_secs", Message: "must not be negative"})
	}

	switch strings.ToLower(c.Registry.Backend) {
	case "file", "sqlite":
	default:
		errs = append(errs, ValidationError{
			Field:   "registry.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite", c.Registry.Backend),
		})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.PageSize < 1 || c.UI.PageSize > 500 {
		errs = append(errs, ValidationError{Field: "ui.page_size", Message: "must be between 1 and 500"})
	}
	if c.UI.ToastSeconds < 1 {
		errs = append(errs, ValidationError{Field: "ui.toast_seconds", Message: "must be at least 1"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
