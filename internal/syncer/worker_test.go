package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/JohnFawkes/plex-servarr-sync/internal/history"
	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
	"github.com/JohnFawkes/plex-servarr-sync/internal/services/plex"
	"github.com/JohnFawkes/plex-servarr-sync/internal/services/rclone"
	"github.com/JohnFawkes/plex-servarr-sync/internal/testsupport"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "request timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type stubLibrary struct {
	mu sync.Mutex

	scanErr      error
	scanCalls    int
	findItems    []plex.Item
	findErr      error
	findPaths    []string
	searchItems  []plex.Item
	searchTitles []string
	analyzed     []string
}

func (s *stubLibrary) ScanPath(_ context.Context, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanCalls++
	return s.scanErr
}

func (s *stubLibrary) FindByPath(_ context.Context, _, path string) ([]plex.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findPaths = append(s.findPaths, path)
	return s.findItems, s.findErr
}

func (s *stubLibrary) Search(_ context.Context, _, title string) ([]plex.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchTitles = append(s.searchTitles, title)
	return s.searchItems, nil
}

func (s *stubLibrary) Analyze(_ context.Context, item plex.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzed = append(s.analyzed, item.RatingKey)
	return nil
}

func (s *stubLibrary) snapshot() (scans int, analyzed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanCalls, append([]string(nil), s.analyzed...)
}

type workerFixture struct {
	worker   *Worker
	intake   *Intake
	library  *stubLibrary
	recorder *history.Recorder
	dials    int
}

func newWorkerFixture(t *testing.T, lib *stubLibrary) *workerFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	clock := clockwork.NewRealClock()

	fixture := &workerFixture{library: lib}
	facade := plex.NewFacadeWithDial(func(context.Context) (plex.Library, error) {
		fixture.dials++
		return lib, nil
	}, logger)

	fixture.intake = NewIntake(cfg, false, clock, logger)
	fixture.recorder = history.NewRecorder(10)
	fixture.worker = NewWorker(cfg, fixture.intake, facade, rclone.NewService(cfg, logger), fixture.recorder, clock, logger)
	return fixture
}

func (f *workerFixture) runOne(t *testing.T, rawPath string) history.Entry {
	t.Helper()
	if got := f.intake.Enqueue(rawPath, "radarr"); got.Decision != DecisionQueued {
		t.Fatalf("enqueue = %+v", got)
	}
	task := <-f.intake.queue
	f.worker.handle(context.Background(), task)
	entries := f.recorder.Recent(1)
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	return entries[0]
}

func TestWorkerConfirmsViaExactPath(t *testing.T) {
	lib := &stubLibrary{
		findItems: []plex.Item{{RatingKey: "101", Title: "Heat", Locations: []string{"/y/Movies/Heat (1995)/Heat.mkv"}}},
	}
	f := newWorkerFixture(t, lib)

	entry := f.runOne(t, "/x/Movies/Heat (1995)")
	if entry.Status != history.StatusOK {
		t.Fatalf("entry = %+v", entry)
	}
	scans, analyzed := lib.snapshot()
	if scans != 1 {
		t.Fatalf("scan calls = %d, want 1", scans)
	}
	if len(analyzed) != 1 || analyzed[0] != "101" {
		t.Fatalf("analyzed = %v, want [101]", analyzed)
	}
	if f.intake.InFlight() != 0 {
		t.Fatalf("reservation not released, inflight=%d", f.intake.InFlight())
	}
}

func TestWorkerConfirmsViaTitleSearch(t *testing.T) {
	lib := &stubLibrary{
		searchItems: []plex.Item{
			{RatingKey: "7", Title: "Heat", Locations: []string{"/srv/other/Heat"}},
			{RatingKey: "8", Title: "Heat", Locations: []string{"/y/Movies/Heat (1995)"}},
		},
	}
	f := newWorkerFixture(t, lib)

	entry := f.runOne(t, "/x/Movies/Heat (1995)")
	if entry.Status != history.StatusOK {
		t.Fatalf("entry = %+v", entry)
	}
	_, analyzed := lib.snapshot()
	if len(analyzed) != 1 || analyzed[0] != "8" {
		t.Fatalf("analyzed = %v, want the location-matched item", analyzed)
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if len(lib.searchTitles) == 0 || lib.searchTitles[0] != "Heat" {
		t.Fatalf("search titles = %v, want the cleaned folder name", lib.searchTitles)
	}
	if len(lib.findPaths) == 0 || lib.findPaths[0] != "/y/Movies/Heat (1995)" {
		t.Fatalf("find paths = %v, want the folder path without a trailing separator", lib.findPaths)
	}
}

func TestWorkerUnconfirmedScanStillSucceeds(t *testing.T) {
	f := newWorkerFixture(t, &stubLibrary{})

	entry := f.runOne(t, "/x/Movies/Heat (1995)")
	if entry.Status != history.StatusOK {
		t.Fatalf("entry = %+v, want ok despite missing confirmation", entry)
	}
}

func TestWorkerRetriesTimeoutsWithReconnect(t *testing.T) {
	lib := &stubLibrary{scanErr: timeoutError{}}
	f := newWorkerFixture(t, lib)

	entry := f.runOne(t, "/x/Movies/Heat (1995)")
	if entry.Status != history.StatusError {
		t.Fatalf("entry = %+v, want error after retry budget", entry)
	}
	scans, _ := lib.snapshot()
	if scans != scanAttempts {
		t.Fatalf("scan calls = %d, want %d", scans, scanAttempts)
	}
	if f.dials != scanAttempts {
		t.Fatalf("dials = %d, want a reconnect per attempt", f.dials)
	}
	if f.intake.InFlight() != 0 {
		t.Fatalf("reservation not released after failure, inflight=%d", f.intake.InFlight())
	}
}

func TestWorkerNonTimeoutErrorFailsWithoutRetry(t *testing.T) {
	lib := &stubLibrary{scanErr: context.Canceled}
	f := newWorkerFixture(t, lib)

	entry := f.runOne(t, "/x/Movies/Heat (1995)")
	if entry.Status != history.StatusError {
		t.Fatalf("entry = %+v", entry)
	}
	scans, _ := lib.snapshot()
	if scans != 1 {
		t.Fatalf("scan calls = %d, want no retry for non-timeout errors", scans)
	}
}

func TestWorkerRunDrainsQueueAndStops(t *testing.T) {
	lib := &stubLibrary{
		findItems: []plex.Item{{RatingKey: "101", Title: "Heat", Locations: []string{"/y/Movies/Heat (1995)/Heat.mkv"}}},
	}
	f := newWorkerFixture(t, lib)
	if got := f.intake.Enqueue("/x/Movies/Heat (1995)", "radarr"); got.Decision != DecisionQueued {
		t.Fatalf("enqueue = %+v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.worker.Run(ctx)
	}()

	deadline := time.After(5 * time.Second)
	for f.recorder.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("task never processed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !f.worker.Alive() {
		t.Fatal("worker should report alive while running")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	if f.worker.Alive() {
		t.Fatal("worker should report not alive after stopping")
	}
}

func TestWorkerEndToEndWithEmptyMappingTable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMappings(
		nil,
		nil,
		map[string]string{"/downloads/": "sectionA"},
	))
	logger := logging.NewNop()
	clock := clockwork.NewRealClock()

	lib := &stubLibrary{}
	var scannedSection, scannedPath string
	facade := plex.NewFacadeWithDial(func(context.Context) (plex.Library, error) {
		return lib, nil
	}, logger)

	intake := NewIntake(cfg, false, clock, logger)
	recorder := history.NewRecorder(10)
	worker := NewWorker(cfg, intake, facade, rclone.NewService(cfg, logger), recorder, clock, logger)

	admission := intake.Enqueue("/downloads/tv/Show Name (2021)", "sonarr")
	if admission.Decision != DecisionQueued {
		t.Fatalf("admission = %+v", admission)
	}
	if admission.LibraryPath != "/downloads/tv/Show Name (2021)/" {
		t.Fatalf("library path = %q", admission.LibraryPath)
	}

	task := <-intake.queue
	scannedSection, scannedPath = task.SectionID, task.LibraryPath
	worker.handle(context.Background(), task)

	if scannedSection != "sectionA" {
		t.Fatalf("section = %q", scannedSection)
	}
	if scannedPath != "/downloads/tv/Show Name (2021)/" {
		t.Fatalf("scan path = %q", scannedPath)
	}
	scans, _ := lib.snapshot()
	if scans != 1 {
		t.Fatalf("scan calls = %d, want 1", scans)
	}
	entries := recorder.Recent(1)
	if len(entries) != 1 || entries[0].Status != history.StatusOK {
		t.Fatalf("history = %+v", entries)
	}
}

func TestWorkerConsolidatesDuplicateQueueEntries(t *testing.T) {
	f := newWorkerFixture(t, &stubLibrary{})

	task := &Task{Key: "a", LibraryPath: "/y/a/", Label: "radarr", QueuedAt: time.Now()}
	dup := &Task{Key: "a", LibraryPath: "/y/a/", Label: "sonarr", QueuedAt: time.Now()}
	other := &Task{Key: "b", LibraryPath: "/y/b/", Label: "radarr", QueuedAt: time.Now()}
	f.intake.queue <- dup
	f.intake.queue <- other

	f.worker.consolidate(task)

	if depth := f.intake.Depth(); depth != 1 {
		t.Fatalf("queue depth after consolidation = %d, want 1", depth)
	}
	kept := <-f.intake.queue
	if kept.Key != "b" {
		t.Fatalf("kept task = %q, want the distinct target", kept.Key)
	}
}
