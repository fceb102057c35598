package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/healthmon/healthmon/internal/logging"
)

// fakeHandle is a test handle exposing both optional contracts.
type fakeHandle struct {
	mu          sync.Mutex
	initialized bool
	caps        map[string]bool
	panicOnInit bool
}

func (h *fakeHandle) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicOnInit {
		panic("handle access exploded")
	}
	return h.initialized
}

func (h *fakeHandle) HasCapability(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.caps[name]
}

func (h *fakeHandle) setInitialized(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initialized = v
}

// bareHandle exposes neither optional contract.
type bareHandle struct{}

// logEntry is one recorded log call.
type logEntry struct {
	level     logging.Level
	component string
	message   string
	fields    logging.Fields
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) Log(level logging.Level, component, message string, fields logging.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, component: component, message: message, fields: fields})
}

func (l *recordingLogger) byComponent(component string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.component == component {
			out = append(out, e)
		}
	}
	return out
}

// newTestMonitor builds a monitor with a short-everything config suitable
// for unit tests and stops it on cleanup.
func newTestMonitor(t *testing.T, mutate func(*Config)) (*Monitor, *recordingLogger) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.CheckInterval = time.Hour // manual passes only, unless a test lowers it
	cfg.ProbeTimeout = 200 * time.Millisecond
	cfg.RecoveryTimeout = 200 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	logger := &recordingLogger{}
	m, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(m.StopMonitoring)
	return m, logger
}
