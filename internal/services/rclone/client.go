// Package rclone issues VFS cache refresh calls through the rclone remote
// control API.
//
// The integration is advisory only: when it is disabled a noop service is
// returned, and every network failure is reported to the caller to log and
// swallow rather than fail the task.
package rclone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
)

const requestTimeout = 15 * time.Second

// Service triggers a VFS cache drop and reload for a directory.
type Service interface {
	// Enabled reports whether refresh calls will actually be issued.
	Enabled() bool
	// Refresh forgets and re-reads the VFS cache below hostPath.
	Refresh(ctx context.Context, hostPath string) error
}

// NewService builds a refresh service from configuration. When the
// integration is disabled a noop implementation is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil || !cfg.Rclone.Enabled || strings.TrimSpace(cfg.Rclone.RCURL) == "" {
		return noopService{}
	}
	return &httpService{
		baseURL:   strings.TrimRight(cfg.Rclone.RCURL, "/"),
		user:      cfg.Rclone.User,
		pass:      cfg.Rclone.Pass,
		mountRoot: strings.TrimRight(cfg.Rclone.MountRoot, "/"),
		client:    &http.Client{Timeout: requestTimeout},
		logger:    logging.NewComponentLogger(logger, "rclone"),
	}
}

type noopService struct{}

func (noopService) Enabled() bool { return false }

func (noopService) Refresh(context.Context, string) error { return nil }

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type httpService struct {
	baseURL   string
	user      string
	pass      string
	mountRoot string
	client    HTTPDoer
	logger    *slog.Logger
}

// NewHTTPService constructs a refresh service around a custom HTTP backend.
func NewHTTPService(baseURL, user, pass, mountRoot string, client HTTPDoer, logger *slog.Logger) Service {
	return &httpService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		user:      user,
		pass:      pass,
		mountRoot: strings.TrimRight(mountRoot, "/"),
		client:    client,
		logger:    logging.NewComponentLogger(logger, "rclone"),
	}
}

func (s *httpService) Enabled() bool { return true }

// Refresh issues vfs/forget for the directory followed by an asynchronous
// recursive vfs/refresh. The host path is translated to a mount-relative
// directory first; paths outside the mount root pass through unchanged with
// a warning.
func (s *httpService) Refresh(ctx context.Context, hostPath string) error {
	target := s.relativize(hostPath)

	if err := s.call(ctx, "/vfs/forget", map[string]any{"dir": target}); err != nil {
		return fmt.Errorf("vfs forget %q: %w", target, err)
	}
	s.logger.Debug("vfs forget issued", logging.String("dir", target))

	if err := s.call(ctx, "/vfs/refresh", map[string]any{"dir": target, "recursive": true, "_async": true}); err != nil {
		return fmt.Errorf("vfs refresh %q: %w", target, err)
	}
	s.logger.Debug("vfs refresh issued", logging.String("dir", target))
	return nil
}

func (s *httpService) relativize(hostPath string) string {
	full := strings.TrimRight(strings.TrimSpace(hostPath), "/")
	if s.mountRoot == "" {
		return strings.TrimLeft(full, "/")
	}
	if strings.HasPrefix(full, s.mountRoot) {
		return strings.TrimLeft(full[len(s.mountRoot):], "/")
	}
	s.logger.Warn("path is not under mount root, passing through",
		logging.String(logging.FieldPath, full),
		logging.String("mount_root", s.mountRoot),
	)
	return full
}

func (s *httpService) call(ctx context.Context, endpoint string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.user != "" {
		req.SetBasicAuth(s.user, s.pass)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("rclone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rclone %s returned %d", endpoint, resp.StatusCode)
	}
	return nil
}
