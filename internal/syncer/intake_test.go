package syncer

import (
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/JohnFawkes/plex-servarr-sync/internal/logging"
	"github.com/JohnFawkes/plex-servarr-sync/internal/testsupport"
)

func TestIntakeAdmissionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := NewIntake(cfg, false, clockwork.NewRealClock(), logging.NewNop())

	first := in.Enqueue("/x/Movies/Heat (1995)", "radarr")
	if first.Decision != DecisionQueued {
		t.Fatalf("first enqueue = %q (%s), want queued", first.Decision, first.Reason)
	}
	if first.LibraryPath != "/y/Movies/Heat (1995)/" {
		t.Fatalf("library path = %q", first.LibraryPath)
	}

	second := in.Enqueue("/x/Movies/Heat (1995)/", "sonarr")
	if second.Decision != DecisionDeduplicated {
		t.Fatalf("second enqueue = %q, want deduplicated", second.Decision)
	}
	if in.Depth() != 1 || in.InFlight() != 1 {
		t.Fatalf("depth=%d inflight=%d, want 1/1", in.Depth(), in.InFlight())
	}

	task := <-in.queue
	in.release(task.Key)

	third := in.Enqueue("/x/Movies/Heat (1995)", "radarr")
	if third.Decision != DecisionQueued {
		t.Fatalf("enqueue after release = %q, want queued", third.Decision)
	}
}

func TestIntakeSkipReasons(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := NewIntake(cfg, false, clockwork.NewRealClock(), logging.NewNop())

	if got := in.Enqueue("   ", "radarr"); got.Decision != DecisionSkipped || got.Reason != "empty path" {
		t.Fatalf("blank path admission = %+v", got)
	}
	if got := in.Enqueue("/elsewhere/Show", "sonarr"); got.Decision != DecisionSkipped || got.Reason != "no section mapping" {
		t.Fatalf("unmapped path admission = %+v", got)
	}
	if in.InFlight() != 0 {
		t.Fatalf("skipped admissions must not reserve targets, inflight=%d", in.InFlight())
	}
}

func TestIntakeQueueFullReleasesReservation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueueSize(1))
	in := NewIntake(cfg, false, clockwork.NewRealClock(), logging.NewNop())

	if got := in.Enqueue("/x/Movies/A", "radarr"); got.Decision != DecisionQueued {
		t.Fatalf("first enqueue = %+v", got)
	}
	rejected := in.Enqueue("/x/Movies/B", "radarr")
	if rejected.Decision != DecisionSkipped || rejected.Reason != "queue full" {
		t.Fatalf("overflow admission = %+v", rejected)
	}
	if in.InFlight() != 1 {
		t.Fatalf("rejected task must release its reservation, inflight=%d", in.InFlight())
	}

	// The slot frees up once the queued task drains.
	task := <-in.queue
	in.release(task.Key)
	if got := in.Enqueue("/x/Movies/B", "radarr"); got.Decision != DecisionQueued {
		t.Fatalf("enqueue after drain = %+v", got)
	}
}

func TestIntakeCachePathOnlyWhenRefreshEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	in := NewIntake(cfg, true, clockwork.NewRealClock(), logging.NewNop())
	in.Enqueue("/x/Movies/Heat (1995)", "radarr")
	task := <-in.queue
	if task.CacheRefreshPath != "/cache/Movies/Heat (1995)" {
		t.Fatalf("cache path = %q", task.CacheRefreshPath)
	}
	if task.AgeCheckPath != "/y/Movies/Heat (1995)" {
		t.Fatalf("age check path = %q", task.AgeCheckPath)
	}

	in = NewIntake(cfg, false, clockwork.NewRealClock(), logging.NewNop())
	in.Enqueue("/x/Movies/Heat (1995)", "radarr")
	task = <-in.queue
	if task.CacheRefreshPath != "" {
		t.Fatalf("cache path with refresh disabled = %q, want empty", task.CacheRefreshPath)
	}
}
