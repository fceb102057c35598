package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReporter(cfg *Config) (*reporter, *historyStore, *recoveryCoordinator) {
	history := newHistoryStore(cfg.RetentionWindow, cfg.MaxHistoryEntries)
	recovery := newRecoveryCoordinator(cfg, &recordingLogger{})
	return &reporter{history: history, recovery: recovery}, history, recovery
}

func reportRecord(name string, level CriticalLevel, status Status, consecutive uint) SystemRecord {
	return SystemRecord{
		Name:                name,
		CriticalLevel:       level,
		Status:              status,
		ConsecutiveFailures: consecutive,
	}
}

func TestReport_EmptyRegistry(t *testing.T) {
	cfg := DefaultConfig()
	rp, _, _ := newTestReporter(cfg)

	report := rp.build(time.Now(), nil, cfg)
	assert.Equal(t, StatusUnknown, report.OverallStatus)
	assert.Zero(t, report.SystemCount)
	assert.Empty(t, report.Recommendations)
}

func TestReport_AllHealthy(t *testing.T) {
	cfg := DefaultConfig()
	rp, _, _ := newTestReporter(cfg)

	records := []SystemRecord{
		reportRecord("a", LevelHigh, StatusHealthy, 0),
		reportRecord("b", LevelCritical, StatusHealthy, 0),
	}

	report := rp.build(time.Now(), records, cfg)
	assert.Equal(t, StatusHealthy, report.OverallStatus)
	assert.Equal(t, 2, report.HealthySystems)
	assert.Equal(t, 2, report.StatusCounts[StatusHealthy])
}

func TestReport_OverallWeighting(t *testing.T) {
	tests := []struct {
		name    string
		level   CriticalLevel
		status  Status
		overall Status
	}{
		{"low-level failure only warns", LevelLow, StatusCritical, StatusWarning},
		{"medium-level failure caps at degraded", LevelMedium, StatusCritical, StatusDegraded},
		{"high-level failure caps at failing", LevelHigh, StatusCritical, StatusFailing},
		{"critical-level failure counts in full", LevelCritical, StatusCritical, StatusCritical},
		{"critical-level failing forces at least degraded", LevelCritical, StatusFailing, StatusFailing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			rp, _, _ := newTestReporter(cfg)

			records := []SystemRecord{
				reportRecord("healthy", LevelHigh, StatusHealthy, 0),
				reportRecord("sick", tt.level, tt.status, 1),
			}
			report := rp.build(time.Now(), records, cfg)
			assert.Equal(t, tt.overall, report.OverallStatus)
			// A critical-level system in a failing state never leaves the
			// overall status better than degraded.
			if tt.level == LevelCritical && tt.status.IsFailure() {
				assert.GreaterOrEqual(t, statusRank(report.OverallStatus), statusRank(StatusDegraded))
			}
		})
	}
}

func TestReport_IssuesAndScoreFromHistory(t *testing.T) {
	cfg := DefaultConfig()
	rp, history, _ := newTestReporter(cfg)

	now := time.Now()
	history.push(&HealthResult{
		SystemName: "a",
		Timestamp:  now,
		Status:     StatusDegraded,
		Score:      50,
		Issues:     []string{"custom_probe: queue backed up"},
	})

	records := []SystemRecord{reportRecord("a", LevelMedium, StatusDegraded, 0)}
	report := rp.build(now, records, cfg)

	require.Len(t, report.Systems, 1)
	assert.Equal(t, 50, report.Systems[0].Score)
	assert.Equal(t, 1, report.TotalIssues)
	assert.Equal(t, []string{"custom_probe: queue backed up"}, report.Systems[0].Issues)
}

func TestReport_Recommendations(t *testing.T) {
	cfg := DefaultConfig()
	rp, history, recovery := newTestReporter(cfg)

	now := time.Now()
	// One system with a failed initialization check in its latest result
	history.push(&HealthResult{
		SystemName: "uninit",
		Timestamp:  now,
		Status:     StatusDegraded,
		Score:      50,
		Checks:     []CheckResult{{Name: checkInitialized, Passed: false, Message: "system reports not initialized"}},
		Issues:     []string{"initialized: system reports not initialized"},
	})

	// One system over its failure threshold (high => 2) with exhausted recovery
	for i := 0; i < cfg.MaxRecoveryAttempts; i++ {
		recovery.maybeRecover(context.Background(), failingRecord("flaky", func(ctx context.Context) error {
			return assert.AnError
		}))
	}

	records := []SystemRecord{
		{Name: "flaky", CriticalLevel: LevelHigh, Status: StatusFailing, ConsecutiveFailures: 3,
			Recovery: func(ctx context.Context) error { return nil }},
		reportRecord("uninit", LevelMedium, StatusDegraded, 0),
	}

	report := rp.build(now, records, cfg)
	require.Equal(t, []string{
		"1 system(s) not initialized",
		"1 system(s) exceeding failure threshold",
		"1 system(s) exhausted automatic recovery, manual intervention needed",
	}, report.Recommendations)

	// Determinism: identical input state yields an identical report body
	again := rp.build(now, records, cfg)
	assert.Equal(t, report.Recommendations, again.Recommendations)
	assert.Equal(t, report.OverallStatus, again.OverallStatus)
	assert.Equal(t, report.Systems, again.Systems)
}
