package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/healthmon/healthmon/internal/logging"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	logger := &recordingLogger{}
	r := newRegistry(logger)

	id, size := r.register("theme-engine", &bareHandle{}, RegisterOptions{
		CriticalLevel:        LevelHigh,
		RequiredCapabilities: []string{"applyTheme"},
	})
	if id == "" {
		t.Fatal("expected non-empty record id")
	}
	if size != 1 {
		t.Errorf("size = %d, want 1", size)
	}

	rec := r.get("theme-engine")
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.CriticalLevel != LevelHigh {
		t.Errorf("level = %s, want high", rec.CriticalLevel)
	}
	if rec.Status != StatusUnknown {
		t.Errorf("initial status = %s, want unknown", rec.Status)
	}
	if rec.RecordID != id {
		t.Errorf("record id mismatch: %s vs %s", rec.RecordID, id)
	}
}

func TestRegistry_InvalidLevelDefaultsToMedium(t *testing.T) {
	r := newRegistry(&recordingLogger{})
	r.register("x", &bareHandle{}, RegisterOptions{CriticalLevel: CriticalLevel("nonsense")})

	if got := r.get("x").CriticalLevel; got != LevelMedium {
		t.Errorf("level = %s, want medium", got)
	}
}

func TestRegistry_ReregisterOverwritesWithWarning(t *testing.T) {
	logger := &recordingLogger{}
	r := newRegistry(logger)

	firstID, _ := r.register("a", &bareHandle{}, RegisterOptions{CriticalLevel: LevelLow})
	secondID, size := r.register("a", &bareHandle{}, RegisterOptions{CriticalLevel: LevelHigh})

	if size != 1 {
		t.Errorf("size after re-register = %d, want 1", size)
	}
	if firstID == secondID {
		t.Error("re-registration should mint a new record id")
	}
	if got := r.get("a").CriticalLevel; got != LevelHigh {
		t.Errorf("level = %s, want high (overwrite)", got)
	}

	warned := false
	for _, e := range logger.byComponent("registry") {
		if e.level == logging.LevelWarn {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning log for the duplicate registration")
	}
}

func TestRegistry_UnregisterUnknownIsIgnored(t *testing.T) {
	logger := &recordingLogger{}
	r := newRegistry(logger)

	removed, size := r.unregister("ghost")
	if removed {
		t.Error("unknown unregister should report not removed")
	}
	if size != 0 {
		t.Errorf("size = %d, want 0", size)
	}
	if len(logger.byComponent("registry")) == 0 {
		t.Error("expected a warning log")
	}
}

func TestRegistry_UpdateUnknownIsIgnored(t *testing.T) {
	logger := &recordingLogger{}
	r := newRegistry(logger)

	status := StatusHealthy
	if snap := r.update("ghost", recordUpdate{status: &status}); snap != nil {
		t.Error("update of unknown system should return nil")
	}
	if len(logger.byComponent("registry")) == 0 {
		t.Error("expected a warning log")
	}
}

func TestRegistry_UpdateCounters(t *testing.T) {
	r := newRegistry(&recordingLogger{})
	r.register("a", &bareHandle{}, RegisterOptions{})

	now := time.Now()
	failing := StatusFailing
	snap := r.update("a", recordUpdate{status: &failing, lastCheckAt: &now, incrementFailure: true})
	if snap.ConsecutiveFailures != 1 || snap.TotalFailures != 1 {
		t.Errorf("counters = %d/%d, want 1/1", snap.ConsecutiveFailures, snap.TotalFailures)
	}

	r.update("a", recordUpdate{incrementFailure: true})

	healthy := StatusHealthy
	snap = r.update("a", recordUpdate{status: &healthy, resetConsecutive: true})
	if snap.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures = %d, want 0 after reset", snap.ConsecutiveFailures)
	}
	if snap.TotalFailures != 2 {
		t.Errorf("total failures = %d, want 2 (reset keeps totals)", snap.TotalFailures)
	}
	if snap.LastCheckAt == nil || !snap.LastCheckAt.Equal(now) {
		t.Errorf("last check at = %v, want %v", snap.LastCheckAt, now)
	}
}

func TestRegistry_ListIsSortedSnapshot(t *testing.T) {
	r := newRegistry(&recordingLogger{})
	r.register("zeta", &bareHandle{}, RegisterOptions{})
	r.register("alpha", &bareHandle{}, RegisterOptions{})
	r.register("mid", &bareHandle{}, RegisterOptions{})

	list := r.list()
	if len(list) != 3 {
		t.Fatalf("list length = %d, want 3", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "mid" || list[2].Name != "zeta" {
		t.Errorf("list not sorted by name: %v, %v, %v", list[0].Name, list[1].Name, list[2].Name)
	}

	// Mutating the snapshot must not touch the registry
	list[0].ConsecutiveFailures = 99
	if got := r.get("alpha").ConsecutiveFailures; got != 0 {
		t.Errorf("snapshot mutation leaked into registry: %d", got)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := newRegistry(&recordingLogger{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			r.register(name, &bareHandle{}, RegisterOptions{})
			status := StatusHealthy
			r.update(name, recordUpdate{status: &status})
			r.list()
			r.get(name)
			if i%2 == 0 {
				r.unregister(name)
			}
		}(i)
	}
	wg.Wait()

	if got := r.size(); got != 5 {
		t.Errorf("size = %d, want 5", got)
	}
}
