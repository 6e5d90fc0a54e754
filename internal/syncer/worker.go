package syncer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
	"github.com/JohnFawkes/plex-servarr-sync/internal/history"
	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
	"github.com/JohnFawkes/plex-servarr-sync/internal/services/plex"
	"github.com/JohnFawkes/plex-servarr-sync/internal/services/rclone"
)

// scanAttempts bounds how many times a rescan is retried after a
// timeout-class library error.
const scanAttempts = 3

// Worker is the single consumer draining the intake queue. Tasks are
// processed one at a time so the library never sees overlapping rescans.
type Worker struct {
	cfg      *config.Config
	intake   *Intake
	library  *plex.Facade
	refresh  rclone.Service
	recorder *history.Recorder
	clock    clockwork.Clock
	logger   *slog.Logger

	// stat is swappable so tests can simulate path visibility.
	stat func(string) (fs.FileInfo, error)

	alive atomic.Bool
}

// NewWorker wires the sync worker with its collaborators.
func NewWorker(
	cfg *config.Config,
	intake *Intake,
	library *plex.Facade,
	refresh rclone.Service,
	recorder *history.Recorder,
	clock clockwork.Clock,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		cfg:      cfg,
		intake:   intake,
		library:  library,
		refresh:  refresh,
		recorder: recorder,
		clock:    clock,
		logger:   logging.NewComponentLogger(logger, "worker"),
		stat:     os.Stat,
	}
}

// Alive reports whether the worker loop is running.
func (w *Worker) Alive() bool {
	return w.alive.Load()
}

// Run drains the queue until ctx is canceled. Shutdown is observed between
// tasks and at the poll timeout; a task already mid-processing runs to
// completion.
func (w *Worker) Run(ctx context.Context) {
	w.alive.Store(true)
	defer w.alive.Store(false)
	w.logger.Info("sync worker started")

	pollInterval := w.cfg.Sync.QueuePollInterval.Duration()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sync worker stopped")
			return
		case task := <-w.intake.queue:
			w.consolidate(task)
			w.handle(ctx, task)
			if !w.waitOrShutdown(ctx, w.cfg.Sync.TaskCooldown.Duration()) {
				w.logger.Info("sync worker stopped")
				return
			}
		case <-w.clock.After(pollInterval):
		}
	}
}

// consolidate drops any queued tasks for the same target; they are redundant
// once one representative task is running. Other tasks go back on the queue.
func (w *Worker) consolidate(task *Task) {
	var keep []*Task
	for {
		select {
		case extra := <-w.intake.queue:
			if extra.Key == task.Key {
				w.logger.Debug("consolidated duplicate task",
					logging.String(logging.FieldPath, extra.LibraryPath),
				)
				continue
			}
			keep = append(keep, extra)
		default:
			for _, pending := range keep {
				select {
				case w.intake.queue <- pending:
				default:
					// The queue shrank during the drain; give the slot back.
					w.intake.release(pending.Key)
					w.logger.Warn("dropped task while consolidating, queue full",
						logging.String(logging.FieldPath, pending.LibraryPath),
					)
				}
			}
			return
		}
	}
}

// handle processes a task, releases its in-flight reservation, and records
// the outcome. Failures never propagate past this boundary.
func (w *Worker) handle(ctx context.Context, task *Task) {
	start := w.clock.Now()
	err := w.process(ctx, task)
	duration := w.clock.Since(start)

	w.intake.release(task.Key)

	entry := history.Entry{
		Timestamp: time.Now(),
		Label:     task.Label,
		Path:      task.LibraryPath,
		Status:    history.StatusOK,
		Duration:  duration,
	}
	if err != nil {
		entry.Status = history.StatusError
		entry.Error = err.Error()
		w.logger.Error("task failed",
			logging.String(logging.FieldLabel, task.Label),
			logging.String(logging.FieldPath, task.LibraryPath),
			logging.Duration("duration", duration),
			logging.Error(err),
		)
	} else {
		w.logger.Info("task completed",
			logging.String(logging.FieldLabel, task.Label),
			logging.String(logging.FieldPath, task.LibraryPath),
			logging.Duration("duration", duration),
		)
	}
	w.recorder.Append(entry)
}

func (w *Worker) process(ctx context.Context, task *Task) error {
	// Network calls outlive a shutdown signal: an in-progress task is never
	// interrupted, only observed between tasks.
	taskCtx := context.WithoutCancel(ctx)

	w.delayGate(task)

	if w.refresh.Enabled() && task.CacheRefreshPath != "" {
		if err := w.refresh.Refresh(taskCtx, task.CacheRefreshPath); err != nil {
			// Cache refresh is an optimization, not a correctness requirement.
			w.logger.Warn("cache refresh failed, continuing",
				logging.String(logging.FieldLabel, task.Label),
				logging.String(logging.FieldPath, task.CacheRefreshPath),
				logging.Error(err),
			)
		}
	}

	w.ageGate(task)

	return w.scanAndReconcile(taskCtx, task)
}

// delayGate sleeps out the remainder of the post-event grace period so the
// upstream file move can finish writing before the scan starts.
func (w *Worker) delayGate(task *Task) {
	delay := w.cfg.Sync.WebhookDelay.Duration()
	if delay <= 0 {
		return
	}
	if elapsed := w.clock.Since(task.QueuedAt); elapsed < delay {
		remainder := delay - elapsed
		w.logger.Debug("delay gate",
			logging.String(logging.FieldPath, task.LibraryPath),
			logging.Duration("wait", remainder),
		)
		w.sleep(remainder)
	}
}

// ageGate waits until the target is at least the configured minimum age. A
// path that is not visible in this process's filesystem namespace is logged
// and skipped without waiting.
func (w *Worker) ageGate(task *Task) {
	minimumAge := w.cfg.Sync.MinimumAge.Duration()
	if minimumAge <= 0 {
		return
	}
	info, err := w.stat(task.AgeCheckPath)
	if err != nil {
		w.logger.Warn("age gate path not visible, proceeding",
			logging.String(logging.FieldLabel, task.Label),
			logging.String(logging.FieldPath, task.AgeCheckPath),
		)
		return
	}
	if age := w.clock.Now().Sub(info.ModTime()); age < minimumAge {
		remainder := minimumAge - age
		w.logger.Info("target too young, waiting",
			logging.String(logging.FieldPath, task.AgeCheckPath),
			logging.Duration("wait", remainder),
		)
		w.sleep(remainder)
	}
}

// scanAndReconcile requests a targeted rescan and confirms the result via
// the metadata reconciliation loop, reconnecting and retrying on
// timeout-class library errors up to the attempt budget.
func (w *Worker) scanAndReconcile(ctx context.Context, task *Task) error {
	var lastErr error
	for attempt := 1; attempt <= scanAttempts; attempt++ {
		if attempt > 1 {
			w.logger.Warn("retrying library scan after reconnect",
				logging.Int("attempt", attempt),
				logging.String(logging.FieldPath, task.LibraryPath),
				logging.Error(lastErr),
			)
		}

		err := w.scanOnce(ctx, task)
		if err == nil {
			return nil
		}
		if !plex.IsTimeout(err) {
			return err
		}

		lastErr = err
		w.library.Invalidate()
		w.sleep(w.cfg.Sync.RetryBackoff.Duration())
	}
	return fmt.Errorf("library scan timed out after %d attempts: %w", scanAttempts, lastErr)
}

func (w *Worker) scanOnce(ctx context.Context, task *Task) error {
	lib, err := w.library.Get(ctx)
	if err != nil {
		return err
	}

	w.logger.Info("triggering library scan",
		logging.String(logging.FieldLabel, task.Label),
		logging.String(logging.FieldSection, task.SectionID),
		logging.String(logging.FieldPath, task.LibraryPath),
	)
	if err := lib.ScanPath(ctx, task.SectionID, task.LibraryPath); err != nil {
		return fmt.Errorf("trigger scan: %w", err)
	}

	// Give the library time to ingest before reading anything back.
	w.sleep(w.cfg.Sync.SettlePeriod.Duration())

	found, err := w.reconcile(ctx, lib, task)
	if err != nil {
		return err
	}
	if !found {
		// The library may ingest asynchronously beyond the loop's patience
		// window; the scan itself was issued, so the task still succeeds.
		w.logger.Warn("metadata confirmation failed, scan was issued",
			logging.String(logging.FieldLabel, task.Label),
			logging.String(logging.FieldPath, task.LibraryPath),
		)
	}
	return nil
}

// sleep blocks the worker without observing shutdown; only the bounded retry
// and round counts limit a task's lifetime.
func (w *Worker) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-w.clock.After(d)
}

// waitOrShutdown pauses between tasks, returning false when ctx is canceled.
func (w *Worker) waitOrShutdown(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-w.clock.After(d):
		return true
	}
}
