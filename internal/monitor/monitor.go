package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/healthmon/healthmon/internal/logging"
)

// Monitor is the health monitoring and recovery engine. It owns the registry
// of monitored systems, the periodic scheduler, and the supporting stores.
//
// The scheduler starts automatically when the first system is registered and
// stops when the last one is unregistered (or on StopMonitoring). All public
// methods are safe for concurrent use, including during an in-progress
// evaluation pass.
type Monitor struct {
	mu sync.Mutex

	cfg    *Config
	logger logging.Logger

	registry *registry
	history  *historyStore
	alerts   *alertManager
	recovery *recoveryCoordinator
	check    checker
	reporter *reporter

	// Scheduler state, guarded by mu
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	lastReport *Report
}

// New creates a monitoring engine. A nil config uses defaults; a nil logger
// discards all output.
func New(cfg *Config, logger logging.Logger) (*Monitor, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.Clone()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}

	m := &Monitor{
		cfg:      cfg,
		logger:   logger,
		registry: newRegistry(logger),
		history:  newHistoryStore(cfg.RetentionWindow, cfg.MaxHistoryEntries),
		alerts:   newAlertManager(cfg, logger),
		recovery: newRecoveryCoordinator(cfg, logger),
	}
	m.reporter = &reporter{history: m.history, recovery: m.recovery}
	return m, nil
}

// Register adds a system to the registry. Re-registering an existing name
// overwrites the previous record with a warning. Registering the first
// system starts the scheduler.
func (m *Monitor) Register(name string, handle interface{}, opts RegisterOptions) error {
	if name == "" {
		return fmt.Errorf("system name is required")
	}

	level := opts.CriticalLevel
	if !level.valid() {
		level = LevelMedium
	}

	recordID, size := m.registry.register(name, handle, opts)
	m.logger.Log(logging.LevelInfo, "registry", "system registered", logging.Fields{
		"system":    name,
		"record_id": recordID,
		"level":     string(level),
	})

	if size == 1 {
		m.startScheduler()
	}
	return nil
}

// Unregister removes a system, its history, and any pending recovery attempt
// counters. Removing the last system stops the scheduler. Unknown names are
// logged and ignored.
func (m *Monitor) Unregister(name string) {
	removed, size := m.registry.unregister(name)
	if !removed {
		return
	}

	m.history.remove(name)
	m.recovery.clear(name)
	m.logger.Log(logging.LevelInfo, "registry", "system unregistered", logging.Fields{
		"system": name,
	})

	if size == 0 {
		m.StopMonitoring()
	}
}

// CheckHealth runs one evaluation pass immediately, with the same semantics
// as a scheduled tick, and returns the resulting report.
func (m *Monitor) CheckHealth(ctx context.Context) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return m.runPass(ctx), nil
}

// Report returns the report from the most recent evaluation pass, or nil if
// no pass has run yet. The returned report is not mutated afterwards and is
// safe to read without synchronization.
func (m *Monitor) Report() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReport
}

// SystemInfo returns a snapshot of one system's record, or nil if the name
// is not registered.
func (m *Monitor) SystemInfo(name string) *SystemRecord {
	return m.registry.get(name)
}

// Alerts returns a copy of the alert log, oldest first.
func (m *Monitor) Alerts() []Alert {
	return m.alerts.alerts()
}

// ApplyConfig merges a partial configuration update. The patched config is
// validated as a whole; on rejection the previous configuration is retained
// and the error is returned. A changed check interval takes effect on the
// next tick.
func (m *Monitor) ApplyConfig(patch ConfigPatch) error {
	m.mu.Lock()
	next, err := m.cfg.apply(patch)
	if err != nil {
		m.mu.Unlock()
		m.logger.Log(logging.LevelWarn, "config", "config update rejected, previous config retained", logging.Fields{
			"error": err.Error(),
		})
		return err
	}
	m.cfg = next
	m.mu.Unlock()

	m.history.configure(next.RetentionWindow, next.MaxHistoryEntries)
	m.alerts.configure(next)
	m.recovery.configure(next)
	m.logger.Log(logging.LevelInfo, "config", "config updated", nil)
	return nil
}

// Config returns a copy of the current configuration.
func (m *Monitor) Config() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Clone()
}

// Running reports whether the scheduler is currently active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// StopMonitoring stops the scheduler and waits for any in-flight evaluation
// pass to drain. Registered systems are kept; registering another system
// restarts the scheduler.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Log(logging.LevelInfo, "scheduler", "monitoring stopped", nil)
}

// startScheduler launches the periodic evaluation loop if it isn't running.
func (m *Monitor) startScheduler() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.running = true

	m.wg.Add(1)
	go m.schedulerLoop(m.ctx)

	m.logger.Log(logging.LevelInfo, "scheduler", "monitoring started", logging.Fields{
		"check_interval": m.cfg.CheckInterval.String(),
	})
}

// schedulerLoop drives one evaluation pass per configured interval.
// A timer is used instead of a ticker so interval changes from ApplyConfig
// take effect on the next reset.
func (m *Monitor) schedulerLoop(ctx context.Context) {
	defer m.wg.Done()

	timer := time.NewTimer(m.checkInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			tickCtx, tickCancel := context.WithTimeout(ctx, m.tickTimeout())
			m.runPass(tickCtx)
			tickCancel()

			timer.Reset(m.checkInterval())
		}
	}
}

// runPass evaluates every registered system once, with bounded parallelism,
// and publishes a fresh report. A panic or slow probe in one system never
// prevents the others from being evaluated.
func (m *Monitor) runPass(ctx context.Context) *Report {
	cfg := m.configSnapshot()
	records := m.registry.list()

	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrentChecks))
	var wg sync.WaitGroup
	for _, rec := range records {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Pass canceled; skip the remaining systems this tick.
			break
		}
		wg.Add(1)
		go func(rec SystemRecord) {
			defer wg.Done()
			defer sem.Release(1)
			m.evaluateSystem(ctx, rec, cfg)
		}(rec)
	}
	wg.Wait()

	report := m.reporter.build(time.Now(), m.registry.list(), cfg)

	m.mu.Lock()
	m.lastReport = report
	m.mu.Unlock()
	return report
}

// evaluateSystem runs one system's evaluation and all follow-up bookkeeping:
// failure counters, history, alerts, and recovery.
func (m *Monitor) evaluateSystem(ctx context.Context, rec SystemRecord, cfg *Config) {
	now := time.Now()
	result := m.check.evaluate(ctx, rec, cfg, now)

	upd := recordUpdate{status: &result.Status, lastCheckAt: &now}
	if result.Status.IsFailure() {
		upd.incrementFailure = true
	} else {
		upd.resetConsecutive = true
	}

	snap := m.registry.update(rec.Name, upd)
	if snap == nil {
		// Unregistered while the evaluation was in flight; drop the result.
		return
	}

	m.history.push(result)
	m.alerts.evaluate(*snap, result)

	if m.recovery.maybeRecover(ctx, *snap) {
		// Successful recovery resets the failure streak; the next check
		// confirms (or refutes) the recovery.
		m.registry.update(rec.Name, recordUpdate{resetConsecutive: true})
	}

	m.logger.Log(logging.LevelDebug, "checker", "system evaluated", logging.Fields{
		"system": rec.Name,
		"status": string(result.Status),
		"score":  result.Score,
	})
}

func (m *Monitor) configSnapshot() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Clone()
}

func (m *Monitor) checkInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.CheckInterval
}

// tickTimeout bounds a whole scheduled pass: every probe and recovery action
// gets its own timeout, so the pass bound only needs to cover the worst case
// of both plus scheduling slack.
func (m *Monitor) tickTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.ProbeTimeout + m.cfg.RecoveryTimeout + 5*time.Second
}
