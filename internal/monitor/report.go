package monitor

import (
	"fmt"
	"time"
)

// reporter aggregates registry and history state into a structured report.
// Rendering to console/log/UI is the caller's concern; the reporter only
// produces data and deterministic rule-based recommendations.
type reporter struct {
	history  *historyStore
	recovery *recoveryCoordinator
}

// build produces a report from a registry snapshot. Record ordering follows
// the snapshot (sorted by name), so identical input state yields an
// identical report.
func (rp *reporter) build(now time.Time, records []SystemRecord, cfg *Config) *Report {
	report := &Report{
		Timestamp:    now,
		SystemCount:  len(records),
		StatusCounts: make(map[Status]int),
	}

	overall := StatusHealthy
	notInitialized := 0
	overThreshold := 0
	recoveryExhausted := 0

	for _, rec := range records {
		latest := rp.history.latest(rec.Name)

		detail := SystemDetail{
			Name:                rec.Name,
			CriticalLevel:       rec.CriticalLevel,
			Status:              rec.Status,
			ConsecutiveFailures: rec.ConsecutiveFailures,
			TotalFailures:       rec.TotalFailures,
			LastCheckAt:         rec.LastCheckAt,
			RecoveryAttempts:    rp.recovery.attemptsFor(rec.Name),
		}
		if latest != nil {
			detail.Score = latest.Score
			detail.Issues = append([]string(nil), latest.Issues...)
			report.TotalIssues += len(latest.Issues)
			if hasFailedCheck(latest, checkInitialized) {
				notInitialized++
			}
		}

		report.StatusCounts[rec.Status]++
		if rec.Status == StatusHealthy {
			report.HealthySystems++
		}
		if rec.ConsecutiveFailures >= uint(cfg.thresholdFor(rec.CriticalLevel)) {
			overThreshold++
		}
		if rec.Recovery != nil && detail.RecoveryAttempts >= cfg.MaxRecoveryAttempts {
			recoveryExhausted++
		}

		contribution := weightedContribution(rec.CriticalLevel, rec.Status)
		if statusRank(contribution) > statusRank(overall) {
			overall = contribution
		}

		report.Systems = append(report.Systems, detail)
	}

	if len(records) == 0 {
		overall = StatusUnknown
	}
	report.OverallStatus = overall

	// Recommendation rules, applied in fixed order for determinism.
	if notInitialized > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d system(s) not initialized", notInitialized))
	}
	if overThreshold > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d system(s) exceeding failure threshold", overThreshold))
	}
	if recoveryExhausted > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d system(s) exhausted automatic recovery, manual intervention needed", recoveryExhausted))
	}

	return report
}

// weightedContribution caps how hard a system's status can pull the overall
// status, based on its critical level. A failing LOW-level helper should not
// mark the whole host degraded, while a CRITICAL-level system contributes its
// status in full and, when failing at all, forces at least degraded.
func weightedContribution(level CriticalLevel, status Status) Status {
	switch level {
	case LevelLow:
		return capStatus(status, StatusWarning)
	case LevelMedium:
		return capStatus(status, StatusDegraded)
	case LevelHigh:
		return capStatus(status, StatusFailing)
	default:
		// CRITICAL-level systems contribute their status in full. Since
		// failing ranks worse than degraded, a critical system in failing
		// status always pulls the overall status to at least degraded.
		return status
	}
}

// capStatus returns status, but never worse than cap.
func capStatus(status, cap Status) Status {
	if statusRank(status) > statusRank(cap) {
		return cap
	}
	return status
}

// hasFailedCheck reports whether a result contains a failed check by name.
func hasFailedCheck(result *HealthResult, name string) bool {
	for _, c := range result.Checks {
		if c.Name == name && !c.Passed {
			return true
		}
	}
	return false
}
