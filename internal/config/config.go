package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the shot roots and the directories sbsconv writes to.
type Paths struct {
	SourceRoot      string `toml:"source_root"`
	DestinationRoot string `toml:"destination_root"`
	LogDir          string `toml:"log_dir"`
	StateDir        string `toml:"state_dir"`
}

// Converter contains the external tool settings applied to every frame.
type Converter struct {
	Binary      string `toml:"binary"`
	Compression string `toml:"compression"`
	PixelType   string `toml:"pixel_type"`
	MaxWorkers  int    `toml:"max_workers"`
}

// Live contains timing for automatic conversion and promotion.
type Live struct {
	Enabled             bool    `toml:"enabled"`
	PollIntervalSeconds int     `toml:"poll_interval_seconds"`
	MinIdleDelaySeconds int     `toml:"min_idle_delay_seconds"`
	IdleMultiplier      float64 `toml:"idle_multiplier"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Promotion      bool   `toml:"promotion"`
	RunComplete    bool   `toml:"run_complete"`
	Errors         bool   `toml:"errors"`
}

// History controls the SQLite conversion ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for sbsconv.
//
// Configuration sections by subsystem:
//   - Paths: shot roots, log and state directories
//   - Converter: oiiotool location, compression, pixel type, worker count
//   - Live: polling interval and idle-render heuristic parameters
//   - Notifications: ntfy push notification settings
//   - History: SQLite conversion ledger
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Converter     Converter     `toml:"converter"`
	Live          Live          `toml:"live"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sbsconv/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sbsconv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories. The destination
// root is created on a best-effort basis so live mode can start while a
// network share is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.DestinationRoot) != "" {
		_ = os.MkdirAll(c.Paths.DestinationRoot, 0o755)
	}
	return nil
}

// SetRoots overrides the source and destination roots (CLI flags) and
// re-applies path normalization and validation.
func (c *Config) SetRoots(source, destination string) error {
	if strings.TrimSpace(source) != "" {
		c.Paths.SourceRoot = source
	}
	if strings.TrimSpace(destination) != "" {
		c.Paths.DestinationRoot = destination
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	return c.Validate()
}

// PollInterval returns the live-mode polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Live.PollIntervalSeconds) * time.Second
}

// MinIdleDelay returns the floor applied by the idle-render heuristic.
func (c *Config) MinIdleDelay() time.Duration {
	return time.Duration(c.Live.MinIdleDelaySeconds) * time.Second
}

// LockPath returns the single-instance lock file used by live mode.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "sbsconv.lock")
}

// HistoryPath returns the SQLite ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
