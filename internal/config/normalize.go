package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	if err := c.normalizePlex(); err != nil {
		return err
	}
	c.normalizeRclone()
	c.normalizeSync()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.ManualUser = strings.TrimSpace(c.Server.ManualUser)
	if c.Server.ManualUser == "" {
		c.Server.ManualUser = defaultManualUser
	}
	if c.Server.ManualPass == "" {
		if value, ok := os.LookupEnv("MANUAL_PASS"); ok {
			c.Server.ManualPass = value
		}
	}
}

func (c *Config) normalizePlex() error {
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	if c.Plex.URL == "" {
		c.Plex.URL = defaultPlexURL
	}
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	if c.Plex.Token == "" {
		if value, ok := os.LookupEnv("PLEX_TOKEN"); ok {
			c.Plex.Token = strings.TrimSpace(value)
		}
	}
	if c.Plex.Timeout.Duration() <= 0 {
		c.Plex.Timeout = NewSeconds(defaultPlexTimeout)
	}
	c.Plex.ClientIdentifier = strings.TrimSpace(c.Plex.ClientIdentifier)
	if c.Plex.ClientIdentifier == "" {
		identifier, err := loadOrCreateClientIdentifier(c.Paths.StateDir)
		if err != nil {
			return fmt.Errorf("plex.client_identifier: %w", err)
		}
		c.Plex.ClientIdentifier = identifier
	}
	return nil
}

// loadOrCreateClientIdentifier keeps the library connection identity stable
// across restarts so the remote server does not register a new device each
// time the daemon launches.
func loadOrCreateClientIdentifier(stateDir string) (string, error) {
	path := filepath.Join(stateDir, "client_id")
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	identifier := uuid.NewString()
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(identifier+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist client identifier: %w", err)
	}
	return identifier, nil
}

func (c *Config) normalizeRclone() {
	c.Rclone.RCURL = strings.TrimRight(strings.TrimSpace(c.Rclone.RCURL), "/")
	c.Rclone.User = strings.TrimSpace(c.Rclone.User)
	if c.Rclone.Pass == "" {
		if value, ok := os.LookupEnv("RCLONE_RC_PASS"); ok {
			c.Rclone.Pass = value
		}
	}
	c.Rclone.MountRoot = strings.TrimRight(strings.TrimSpace(c.Rclone.MountRoot), "/")
}

func (c *Config) normalizeSync() {
	if c.Sync.QueuePollInterval.Duration() <= 0 {
		c.Sync.QueuePollInterval = NewSeconds(defaultQueuePollInterval)
	}
	if c.Sync.QueueSize <= 0 {
		c.Sync.QueueSize = defaultQueueSize
	}
	if c.Sync.HistorySize <= 0 {
		c.Sync.HistorySize = defaultHistorySize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
