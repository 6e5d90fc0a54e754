package syncer

import "time"

// TaskKey identifies a sync target. It is derived from the mapped library
// path alone, so two tasks for the same destination folder share a key even
// when their raw inputs differ.
type TaskKey string

// KeyForLibraryPath derives the dedup key for a mapped library path.
func KeyForLibraryPath(libraryPath string) TaskKey {
	return TaskKey(libraryPath)
}

// Task is the unit of work flowing from intake to the worker. It is created
// on admission, consumed exactly once, and discarded after its outcome is
// recorded.
type Task struct {
	Key              TaskKey
	SectionID        string
	RawPath          string
	CacheRefreshPath string
	AgeCheckPath     string
	LibraryPath      string
	Label            string
	QueuedAt         time.Time
}
