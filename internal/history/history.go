// Package history keeps a fixed-capacity in-memory log of sync task outcomes.
//
// Entries are observability data, not an audit trail: the oldest entries are
// evicted silently and nothing survives a restart.
package history

import (
	"sync"
	"time"
)

// Status describes how a task finished.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// DefaultCapacity bounds the recorder when no explicit capacity is given.
const DefaultCapacity = 100

// Entry records the outcome of a single sync task.
type Entry struct {
	Timestamp time.Time     `json:"timestamp"`
	Label     string        `json:"label"`
	Path      string        `json:"path"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Recorder is a fixed-capacity append log of task outcomes, newest first.
type Recorder struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
}

// NewRecorder constructs a recorder holding at most capacity entries.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{capacity: capacity}
}

// Append records an outcome, evicting the oldest entry when full.
func (r *Recorder) Append(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]Entry{entry}, r.entries...)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[:r.capacity]
	}
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every retained entry.
func (r *Recorder) Recent(limit int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]Entry, limit)
	copy(out, r.entries[:limit])
	return out
}

// Len reports the number of retained entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
