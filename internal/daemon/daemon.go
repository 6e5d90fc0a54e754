package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
	"github.com/JohnFawkes/plex-servarr-sync/internal/history"
	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
	"github.com/JohnFawkes/plex-servarr-sync/internal/services/plex"
	"github.com/JohnFawkes/plex-servarr-sync/internal/services/rclone"
	"github.com/JohnFawkes/plex-servarr-sync/internal/syncer"
)

// Daemon owns the sync pipeline: intake, worker, webhook API, and the
// single-instance lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	intake   *syncer.Intake
	worker   *syncer.Worker
	recorder *history.Recorder
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	WorkerAlive  bool
	QueueDepth   int
	InFlight     int
	LockFilePath string
}

// New constructs a daemon with its pipeline wired from the config.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	clock := clockwork.NewRealClock()
	refresh := rclone.NewService(cfg, logger)
	facade := plex.NewFacade(cfg, logger)
	recorder := history.NewRecorder(cfg.Sync.HistorySize)
	intake := syncer.NewIntake(cfg, refresh.Enabled(), clock, logger)
	worker := syncer.NewWorker(cfg, intake, facade, refresh, recorder, clock, logger)

	lockPath := filepath.Join(cfg.Paths.StateDir, "servarrsyncd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		intake:   intake,
		worker:   worker,
		recorder: recorder,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the worker and API listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another servarrsync daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.group = &errgroup.Group{}
	d.group.Go(func() error {
		d.worker.Run(runCtx)
		return nil
	})

	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.group.Wait()
		_ = d.lock.Unlock()
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the listener, waits for the worker to finish its current
// task, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.group != nil {
		_ = d.group.Wait()
		d.group = nil
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status reports runtime information for the status endpoint and CLI.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		WorkerAlive:  d.worker.Alive(),
		QueueDepth:   d.intake.Depth(),
		InFlight:     d.intake.InFlight(),
		LockFilePath: d.lockPath,
	}
}

// Addr reports the API listener address, empty until started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}
