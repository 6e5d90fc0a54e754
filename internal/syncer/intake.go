package syncer

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
	"github.com/JohnFawkes/plex-servarr-sync/internal/pathmap"
)

// Decision enumerates admission outcomes.
type Decision string

const (
	DecisionQueued       Decision = "queued"
	DecisionSkipped      Decision = "skipped"
	DecisionDeduplicated Decision = "deduplicated"
)

// Admission is the synchronous result of an enqueue attempt.
type Admission struct {
	Decision    Decision
	Reason      string
	LibraryPath string
}

func skipped(reason string) Admission {
	return Admission{Decision: DecisionSkipped, Reason: reason}
}

// Intake resolves candidate paths and admits at most one pending or active
// task per resolved library folder. It is safe for concurrent producers.
type Intake struct {
	library        *pathmap.Table
	cache          *pathmap.Table
	sections       *pathmap.SectionMap
	refreshEnabled bool
	clock          clockwork.Clock
	logger         *slog.Logger

	mu       sync.Mutex
	inflight map[TaskKey]struct{}

	queue chan *Task
}

// NewIntake builds an intake from the configured mapping tables.
func NewIntake(cfg *config.Config, refreshEnabled bool, clock clockwork.Clock, logger *slog.Logger) *Intake {
	return &Intake{
		library:        pathmap.NewTable(cfg.Mappings.Library),
		cache:          pathmap.NewTable(cfg.Mappings.Cache),
		sections:       pathmap.NewSectionMap(cfg.Mappings.Sections),
		refreshEnabled: refreshEnabled,
		clock:          clock,
		logger:         logging.NewComponentLogger(logger, "intake"),
		inflight:       make(map[TaskKey]struct{}),
		queue:          make(chan *Task, cfg.Sync.QueueSize),
	}
}

// Enqueue admits a raw notification path. The check-and-insert on the
// in-flight set is atomic with respect to other producers, so concurrent
// webhooks for the same folder can never both admit a task.
func (in *Intake) Enqueue(rawPath, label string) Admission {
	if strings.TrimSpace(rawPath) == "" {
		return skipped("empty path")
	}

	libraryPath := in.library.Apply(rawPath, true)
	var cachePath string
	if in.refreshEnabled {
		cachePath = in.cache.Apply(rawPath, false)
	}

	sectionID, ok := in.sections.Resolve(libraryPath)
	if !ok {
		in.logger.Info("no section mapping, skipping",
			logging.String(logging.FieldLabel, label),
			logging.String(logging.FieldPath, libraryPath),
		)
		return skipped("no section mapping")
	}

	key := KeyForLibraryPath(libraryPath)
	in.mu.Lock()
	if _, exists := in.inflight[key]; exists {
		in.mu.Unlock()
		// Expected steady-state behavior under webhook storms, not a fault.
		in.logger.Debug("target already in flight",
			logging.String(logging.FieldLabel, label),
			logging.String(logging.FieldPath, libraryPath),
		)
		return Admission{Decision: DecisionDeduplicated, LibraryPath: libraryPath}
	}
	in.inflight[key] = struct{}{}
	in.mu.Unlock()

	task := &Task{
		Key:              key,
		SectionID:        sectionID,
		RawPath:          rawPath,
		CacheRefreshPath: cachePath,
		AgeCheckPath:     strings.TrimRight(libraryPath, "/"),
		LibraryPath:      libraryPath,
		Label:            label,
		QueuedAt:         in.clock.Now(),
	}

	select {
	case in.queue <- task:
	default:
		in.release(key)
		in.logger.Warn("queue full, rejecting task",
			logging.String(logging.FieldLabel, label),
			logging.String(logging.FieldPath, libraryPath),
		)
		return skipped("queue full")
	}

	in.logger.Info("task queued",
		logging.String(logging.FieldLabel, label),
		logging.String(logging.FieldPath, libraryPath),
		logging.String(logging.FieldSection, sectionID),
	)
	return Admission{Decision: DecisionQueued, LibraryPath: libraryPath}
}

// release frees the in-flight reservation for a key. Called by the worker
// only after a task's processing fully completes.
func (in *Intake) release(key TaskKey) {
	in.mu.Lock()
	delete(in.inflight, key)
	in.mu.Unlock()
}

// Depth reports the number of queued tasks.
func (in *Intake) Depth() int {
	return len(in.queue)
}

// InFlight reports the number of reserved targets (queued or processing).
func (in *Intake) InFlight() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.inflight)
}
