package plex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
)

// DialFunc establishes a verified library connection.
type DialFunc func(ctx context.Context) (Library, error)

// Facade holds at most one live library connection, created lazily on first
// use. Invalidate drops the cached connection so the next use reconnects.
// The guarding lock is never held across a network call.
type Facade struct {
	dial   DialFunc
	logger *slog.Logger

	mu  sync.Mutex
	lib Library
}

// NewFacade builds a facade that dials the configured Plex server.
func NewFacade(cfg *config.Config, logger *slog.Logger) *Facade {
	return NewFacadeWithDial(dialFromConfig(cfg, logger), logger)
}

// NewFacadeWithDial builds a facade around a custom dial function (used in
// tests and wiring code).
func NewFacadeWithDial(dial DialFunc, logger *slog.Logger) *Facade {
	return &Facade{
		dial:   dial,
		logger: logging.NewComponentLogger(logger, "plex"),
	}
}

// Get returns the live connection, dialing one if none is cached.
func (f *Facade) Get(ctx context.Context) (Library, error) {
	f.mu.Lock()
	lib := f.lib
	f.mu.Unlock()
	if lib != nil {
		return lib, nil
	}
	if f.dial == nil {
		return nil, ErrNotConnected
	}

	dialed, err := f.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect library: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lib == nil {
		f.lib = dialed
	}
	return f.lib, nil
}

// Invalidate drops the cached connection so the next Get reconnects.
func (f *Facade) Invalidate() {
	f.mu.Lock()
	f.lib = nil
	f.mu.Unlock()
	f.logger.Debug("library connection invalidated")
}

// Connected reports whether a connection is currently cached.
func (f *Facade) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lib != nil
}

func dialFromConfig(cfg *config.Config, logger *slog.Logger) DialFunc {
	scoped := logging.NewComponentLogger(logger, "plex")
	return func(ctx context.Context) (Library, error) {
		client := &http.Client{Timeout: cfg.Plex.Timeout.Duration()}
		lib := NewHTTPLibrary(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.ClientIdentifier, client)
		name, err := lib.Identity(ctx)
		if err != nil {
			return nil, err
		}
		scoped.Info("connected to media server", logging.String("server", name))
		return lib, nil
	}
}
