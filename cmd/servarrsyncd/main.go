// Command servarrsyncd runs the webhook listener and sync worker daemon.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
	"github.com/JohnFawkes/plex-servarr-sync/internal/daemon"
	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, path, exists, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewWriters(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if exists {
		logger.Info("loaded config", logging.String("path", path))
	} else {
		logger.Warn("no config file found, running on defaults and environment",
			logging.String("path", path),
		)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("servarrsyncd shutting down")
}
