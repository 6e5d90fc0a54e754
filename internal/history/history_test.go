package history_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/JohnFawkes/plex-servarr-sync/internal/history"
)

func TestRecorderNewestFirst(t *testing.T) {
	t.Parallel()

	recorder := history.NewRecorder(10)
	recorder.Append(history.Entry{Path: "/a", Status: history.StatusOK})
	recorder.Append(history.Entry{Path: "/b", Status: history.StatusError, Error: "boom"})

	entries := recorder.Recent(0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Path != "/b" || entries[1].Path != "/a" {
		t.Fatalf("expected newest first, got %v", entries)
	}
	if entries[0].Error != "boom" {
		t.Fatalf("expected error message preserved, got %q", entries[0].Error)
	}
}

func TestRecorderEvictsOldestSilently(t *testing.T) {
	t.Parallel()

	recorder := history.NewRecorder(3)
	for i := 0; i < 5; i++ {
		recorder.Append(history.Entry{Path: fmt.Sprintf("/p%d", i)})
	}

	entries := recorder.Recent(0)
	if len(entries) != 3 {
		t.Fatalf("expected capacity 3, got %d", len(entries))
	}
	if entries[0].Path != "/p4" || entries[2].Path != "/p2" {
		t.Fatalf("unexpected retained entries: %v", entries)
	}
}

func TestRecorderRecentLimit(t *testing.T) {
	t.Parallel()

	recorder := history.NewRecorder(10)
	for i := 0; i < 4; i++ {
		recorder.Append(history.Entry{Path: fmt.Sprintf("/p%d", i)})
	}
	if got := recorder.Recent(2); len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if recorder.Len() != 4 {
		t.Fatalf("expected 4 retained entries, got %d", recorder.Len())
	}
}

func TestRecorderStampsMissingTimestamp(t *testing.T) {
	t.Parallel()

	recorder := history.NewRecorder(2)
	recorder.Append(history.Entry{Path: "/a"})
	entry := recorder.Recent(1)[0]
	if entry.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be stamped")
	}
	if time.Since(entry.Timestamp) > time.Minute {
		t.Fatalf("timestamp too old: %v", entry.Timestamp)
	}
}
