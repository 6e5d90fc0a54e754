package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP listener and manual-trigger credentials.
type Server struct {
	Bind       string `toml:"bind"`
	ManualUser string `toml:"manual_user"`
	ManualPass string `toml:"manual_pass"`
}

// Plex contains the media-library connection settings.
type Plex struct {
	URL              string  `toml:"url"`
	Token            string  `toml:"token"`
	ClientIdentifier string  `toml:"client_identifier"`
	Timeout          Seconds `toml:"timeout"`
}

// Rclone contains the optional VFS cache-refresh integration settings.
type Rclone struct {
	Enabled   bool   `toml:"enabled"`
	RCURL     string `toml:"rc_url"`
	User      string `toml:"user"`
	Pass      string `toml:"pass"`
	MountRoot string `toml:"mount_root"`
}

// Sync contains the worker timing and capacity knobs.
type Sync struct {
	WebhookDelay      Seconds `toml:"webhook_delay"`
	MinimumAge        Seconds `toml:"minimum_age"`
	SettlePeriod      Seconds `toml:"settle_period"`
	LookupInterval    Seconds `toml:"lookup_interval"`
	RetryBackoff      Seconds `toml:"retry_backoff"`
	QueuePollInterval Seconds `toml:"queue_poll_interval"`
	TaskCooldown      Seconds `toml:"task_cooldown"`
	QueueSize         int     `toml:"queue_size"`
	HistorySize       int     `toml:"history_size"`
}

// Mappings contains the path rewrite tables and section roots.
type Mappings struct {
	Library  map[string]string `toml:"library"`
	Cache    map[string]string `toml:"cache"`
	Sections map[string]string `toml:"sections"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Paths contains directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Config encapsulates all configuration values for servarrsync.
//
// Configuration sections by subsystem:
//   - Server: webhook listener bind address and manual-trigger credentials
//   - Plex: media-library URL, token, client identity, request timeout
//   - Rclone: optional VFS cache refresh via the rclone remote control API
//   - Sync: worker delays, gates, retry spacing, queue/history capacity
//   - Mappings: library/cache path rewrite tables and section roots
//   - Logging: log format and level
//   - Paths: log and state directories
type Config struct {
	Server   Server   `toml:"server"`
	Plex     Plex     `toml:"plex"`
	Rclone   Rclone   `toml:"rclone"`
	Sync     Sync     `toml:"sync"`
	Mappings Mappings `toml:"mappings"`
	Logging  Logging  `toml:"logging"`
	Paths    Paths    `toml:"paths"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/servarrsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
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

	projectPath, err := filepath.Abs("servarrsync.toml")
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

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
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
