package monitor

import (
	"context"
	"math"
	"time"
)

// Status classifies the health of a monitored system after one evaluation.
type Status string

const (
	// StatusHealthy means the system passed (nearly) all checks (score >= 90)
	StatusHealthy Status = "healthy"
	// StatusWarning means minor degradation (70 <= score < 90)
	StatusWarning Status = "warning"
	// StatusDegraded means significant degradation (50 <= score < 70)
	StatusDegraded Status = "degraded"
	// StatusFailing means most checks failed (0 < score < 50)
	StatusFailing Status = "failing"
	// StatusCritical means every check failed (score == 0)
	StatusCritical Status = "critical"
	// StatusError means the evaluation itself blew up (handle access panicked);
	// score is forced to 0
	StatusError Status = "error"
	// StatusUnknown means the system has not been evaluated yet
	StatusUnknown Status = "unknown"
)

// IsFailure reports whether this status counts toward consecutive failures.
func (s Status) IsFailure() bool {
	switch s {
	case StatusFailing, StatusCritical, StatusError:
		return true
	default:
		return false
	}
}

// statusRank orders statuses from best to worst for overall-status aggregation.
// UNKNOWN sits between warning and degraded: unevaluated systems should pull
// the overall status down, but not as hard as observed failures.
func statusRank(s Status) int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusWarning:
		return 1
	case StatusUnknown:
		return 2
	case StatusDegraded:
		return 3
	case StatusFailing:
		return 4
	case StatusError:
		return 5
	case StatusCritical:
		return 6
	default:
		return 2
	}
}

// StatusFromScore maps a 0-100 health score to a status bucket.
// The thresholds are fixed and non-overlapping.
func StatusFromScore(score int) Status {
	switch {
	case score >= 90:
		return StatusHealthy
	case score >= 70:
		return StatusWarning
	case score >= 50:
		return StatusDegraded
	case score > 0:
		return StatusFailing
	default:
		return StatusCritical
	}
}

// CriticalLevel is the severity classification assigned to a system at
// registration. It governs alert thresholds and report weighting.
type CriticalLevel string

const (
	LevelLow      CriticalLevel = "low"
	LevelMedium   CriticalLevel = "medium"
	LevelHigh     CriticalLevel = "high"
	LevelCritical CriticalLevel = "critical"
)

// valid reports whether the level is one of the four defined values.
func (l CriticalLevel) valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	default:
		return false
	}
}

// AlertSeverity is the severity attached to an alert, derived from the
// critical level of the system that produced it.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// severityForLevel maps a system's critical level to the severity of alerts
// it generates.
func severityForLevel(level CriticalLevel) AlertSeverity {
	switch level {
	case LevelCritical:
		return SeverityCritical
	case LevelHigh:
		return SeverityHigh
	case LevelLow:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// AlertType categorizes an alert.
type AlertType string

const (
	// AlertSystemHealthDegraded fires when a system's consecutive failure
	// count reaches the threshold for its critical level.
	AlertSystemHealthDegraded AlertType = "SYSTEM_HEALTH_DEGRADED"
	// AlertCriticalSystemDown fires immediately when a CRITICAL-level system
	// reports a critical status, regardless of the failure threshold.
	AlertCriticalSystemDown AlertType = "CRITICAL_SYSTEM_DOWN"
)

// Alert is a deduplicated notification about a system's health.
type Alert struct {
	// ID uniquely identifies this alert instance
	ID string
	// Type categorizes the alert
	Type AlertType
	// SystemName is the system that triggered the alert
	SystemName string
	// Severity is derived from the system's critical level
	Severity AlertSeverity
	// Message describes what happened
	Message string
	// Timestamp is when the alert was raised
	Timestamp time.Time
}

// ProbeResult is what a custom health probe reports back.
type ProbeResult struct {
	// OK indicates the probe considers the system healthy
	OK bool
	// Details optionally explains the result
	Details string
}

// HealthCheckFunc is a custom health probe bound at registration time.
// It may block; the checker invokes it with a deadline context and treats
// errors, panics, and timeouts as a failed check, never as a crash.
type HealthCheckFunc func(ctx context.Context) (ProbeResult, error)

// RecoveryFunc is a recovery action bound at registration time.
// It may block; the coordinator invokes it with a deadline context and treats
// errors, panics, and timeouts as a failed attempt.
type RecoveryFunc func(ctx context.Context) error

// Initializable is the optional initialization signal a handle may expose.
type Initializable interface {
	Initialized() bool
}

// CapabilityProvider is the optional capability contract a handle may expose.
// Required capabilities declared at registration are resolved through it.
type CapabilityProvider interface {
	HasCapability(name string) bool
}

// RegisterOptions configures a system at registration time.
type RegisterOptions struct {
	// CriticalLevel classifies the system's importance (default: medium)
	CriticalLevel CriticalLevel
	// RequiredCapabilities are capability names that must resolve on the handle
	RequiredCapabilities []string
	// HealthCheck is an optional custom probe
	HealthCheck HealthCheckFunc
	// Recovery is an optional recovery action for failing states
	Recovery RecoveryFunc
}

// SystemRecord is the registry's view of one monitored system.
type SystemRecord struct {
	// RecordID uniquely identifies this registration
	RecordID string
	// Name is the stable string id supplied at registration
	Name string
	// Handle is the opaque monitored object. Borrowed, never copied.
	Handle interface{}
	// CriticalLevel governs alert thresholds and report weighting
	CriticalLevel CriticalLevel
	// RequiredCapabilities must all resolve on the handle
	RequiredCapabilities []string
	// HealthCheck is the bound custom probe (nil if none)
	HealthCheck HealthCheckFunc
	// Recovery is the bound recovery action (nil if none)
	Recovery RecoveryFunc
	// RegisteredAt is when the system was registered
	RegisteredAt time.Time
	// LastCheckAt is when the system was last evaluated (nil before first check)
	LastCheckAt *time.Time
	// ConsecutiveFailures counts back-to-back failing evaluations
	ConsecutiveFailures uint
	// TotalFailures counts failing evaluations since registration
	TotalFailures uint
	// Status is the most recent classification
	Status Status
}

// snapshot returns a copy safe to hand to concurrent readers.
// The handle itself is shared (borrowed); slices are copied.
func (r *SystemRecord) snapshot() SystemRecord {
	out := *r
	out.RequiredCapabilities = append([]string(nil), r.RequiredCapabilities...)
	if r.LastCheckAt != nil {
		t := *r.LastCheckAt
		out.LastCheckAt = &t
	}
	return out
}

// CheckResult is one pass/fail unit within an evaluation.
type CheckResult struct {
	// Name identifies the check (e.g. "handle_present", "capability:applyTheme")
	Name string
	// Passed indicates whether the check passed
	Passed bool
	// Message explains a failure (empty on pass)
	Message string
}

// HealthResult is the outcome of one evaluation of one system.
// Immutable once produced; owned by the history store after creation.
type HealthResult struct {
	// SystemName is the evaluated system
	SystemName string
	// Timestamp is when the evaluation ran
	Timestamp time.Time
	// Status is the classification derived from Score
	Status Status
	// Score is the 0-100 fraction of passed checks
	Score int
	// Checks is the ordered list of individual check outcomes
	Checks []CheckResult
	// Issues lists human-readable problems discovered
	Issues []string
	// Recommendations lists suggested follow-ups
	Recommendations []string
}

// scoreFromChecks computes round(passed/total*100), clamped to [0,100].
func scoreFromChecks(checks []CheckResult) int {
	if len(checks) == 0 {
		return 0
	}
	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}
	score := int(math.Round(float64(passed) / float64(len(checks)) * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// SystemDetail is one system's entry in a report.
type SystemDetail struct {
	Name                string
	CriticalLevel       CriticalLevel
	Status              Status
	Score               int
	ConsecutiveFailures uint
	TotalFailures       uint
	LastCheckAt         *time.Time
	Issues              []string
	RecoveryAttempts    int
}

// Report aggregates registry and history state at a point in time.
type Report struct {
	// Timestamp is when the report was produced
	Timestamp time.Time
	// OverallStatus is the worst present status, weighted by critical level
	OverallStatus Status
	// SystemCount is the number of registered systems
	SystemCount int
	// HealthySystems is the number of systems currently healthy
	HealthySystems int
	// TotalIssues is the number of issues across all systems
	TotalIssues int
	// StatusCounts is the number of systems per status
	StatusCounts map[Status]int
	// Systems holds per-system detail, sorted by name
	Systems []SystemDetail
	// Recommendations are deterministic rule-generated follow-ups
	Recommendations []string
}
