package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/healthmon/healthmon/internal/logging"
)

// alertManager derives alerts from health results and deduplicates them.
//
// Two guards bound alert volume: a per-(type, system) dedup window, and a
// global token-bucket limiter that caps overall emission rate during storms
// affecting many systems at once. The log itself is capped; oldest entries
// are dropped first.
type alertManager struct {
	mu          sync.RWMutex
	log         []Alert
	dedupWindow time.Duration
	maxLog      int
	thresholds  map[CriticalLevel]int
	limiter     *rate.Limiter
	logger      logging.Logger
}

func newAlertManager(cfg *Config, logger logging.Logger) *alertManager {
	am := &alertManager{
		logger: logger,
	}
	am.configure(cfg)
	return am
}

// configure applies alert-related settings from a validated config.
func (am *alertManager) configure(cfg *Config) {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.dedupWindow = cfg.AlertDedupWindow
	am.maxLog = cfg.MaxAlertLog
	am.thresholds = make(map[CriticalLevel]int, len(cfg.AlertThresholds))
	for k, v := range cfg.AlertThresholds {
		am.thresholds[k] = v
	}
	if cfg.AlertRatePerMinute > 0 {
		am.limiter = rate.NewLimiter(rate.Limit(cfg.AlertRatePerMinute)/60, cfg.AlertRatePerMinute)
	} else {
		am.limiter = nil
	}
}

// evaluate inspects a fresh result against its record and raises any alerts
// it warrants. Returns the alerts actually appended (after dedup and rate
// limiting).
func (am *alertManager) evaluate(rec SystemRecord, result *HealthResult) []Alert {
	am.mu.Lock()
	defer am.mu.Unlock()

	var raised []Alert

	threshold := am.thresholdLocked(rec.CriticalLevel)
	if rec.ConsecutiveFailures >= uint(threshold) {
		alert := Alert{
			ID:         uuid.NewString(),
			Type:       AlertSystemHealthDegraded,
			SystemName: rec.Name,
			Severity:   severityForLevel(rec.CriticalLevel),
			Message: fmt.Sprintf("system %s degraded: %d consecutive failures (threshold %d), status %s",
				rec.Name, rec.ConsecutiveFailures, threshold, result.Status),
			Timestamp: result.Timestamp,
		}
		if am.raiseLocked(alert) {
			raised = append(raised, alert)
		}
	}

	// A CRITICAL-level system reporting critical status alerts immediately,
	// regardless of the consecutive-failure threshold.
	if rec.CriticalLevel == LevelCritical && result.Status == StatusCritical {
		alert := Alert{
			ID:         uuid.NewString(),
			Type:       AlertCriticalSystemDown,
			SystemName: rec.Name,
			Severity:   SeverityCritical,
			Message:    fmt.Sprintf("critical system %s is down (score %d)", rec.Name, result.Score),
			Timestamp:  result.Timestamp,
		}
		if am.raiseLocked(alert) {
			raised = append(raised, alert)
		}
	}

	return raised
}

// thresholdLocked returns the failure threshold for a level, defaulting to
// medium semantics when unmapped. Caller must hold am.mu.
func (am *alertManager) thresholdLocked(level CriticalLevel) int {
	if t, ok := am.thresholds[level]; ok {
		return t
	}
	if t, ok := am.thresholds[LevelMedium]; ok {
		return t
	}
	return 3
}

// raiseLocked appends an alert unless it is a duplicate within the dedup
// window or the global rate limiter rejects it. Caller must hold am.mu.
func (am *alertManager) raiseLocked(alert Alert) bool {
	// Dedup: scan for an existing alert with the same (type, system) inside
	// the window. The log is capped, so this scan is bounded.
	for i := len(am.log) - 1; i >= 0; i-- {
		existing := am.log[i]
		if existing.Type == alert.Type && existing.SystemName == alert.SystemName {
			if alert.Timestamp.Sub(existing.Timestamp) < am.dedupWindow {
				return false
			}
			break
		}
	}

	if am.limiter != nil && !am.limiter.AllowN(alert.Timestamp, 1) {
		am.logger.Log(logging.LevelWarn, "alerts", "alert suppressed by global rate limit", logging.Fields{
			"type":   string(alert.Type),
			"system": alert.SystemName,
		})
		return false
	}

	am.log = append(am.log, alert)
	if len(am.log) > am.maxLog {
		copy(am.log, am.log[len(am.log)-am.maxLog:])
		am.log = am.log[:am.maxLog]
	}

	am.logger.Log(logging.LevelWarn, "alerts", alert.Message, logging.Fields{
		"type":     string(alert.Type),
		"system":   alert.SystemName,
		"severity": string(alert.Severity),
	})
	return true
}

// alerts returns a copy of the alert log, oldest first.
func (am *alertManager) alerts() []Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	out := make([]Alert, len(am.log))
	copy(out, am.log)
	return out
}
