// Package testsupport provides helpers shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and all waiting periods zeroed so tests run without sleeping. It applies
// any provided options on top.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Plex.Token = "test-token"
	cfg.Plex.ClientIdentifier = "test-client"
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Server.ManualPass = "test-pass"
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Sync.WebhookDelay = config.Seconds{}
	cfg.Sync.MinimumAge = config.Seconds{}
	cfg.Sync.SettlePeriod = config.Seconds{}
	cfg.Sync.LookupInterval = config.Seconds{}
	cfg.Sync.RetryBackoff = config.Seconds{}
	cfg.Sync.QueuePollInterval = config.NewSeconds(10 * time.Second)
	cfg.Sync.TaskCooldown = config.Seconds{}
	cfg.Mappings.Library = map[string]string{"/x/": "/y/"}
	cfg.Mappings.Cache = map[string]string{"/x/": "/cache/"}
	cfg.Mappings.Sections = map[string]string{"/y/": "2"}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMappings replaces the library, cache, and section tables.
func WithMappings(library, cache, sections map[string]string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Mappings.Library = library
		cfg.Mappings.Cache = cache
		cfg.Mappings.Sections = sections
	}
}

// WithQueueSize overrides the intake queue capacity.
func WithQueueSize(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.QueueSize = n
	}
}
