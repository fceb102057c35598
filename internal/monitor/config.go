package monitor

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete monitoring engine configuration.
type Config struct {
	// CheckInterval is how often the scheduler runs an evaluation pass
	// Default: 30 seconds
	CheckInterval time.Duration `yaml:"check_interval"`

	// RetentionWindow is the maximum age of a history entry before pruning
	// Default: 1 hour
	RetentionWindow time.Duration `yaml:"retention_window"`

	// MaxHistoryEntries caps history entries kept per system
	// Default: 50
	MaxHistoryEntries int `yaml:"max_history_entries"`

	// MaxRecoveryAttempts bounds recovery invocations per system without an
	// intervening success
	// Default: 3
	MaxRecoveryAttempts int `yaml:"max_recovery_attempts"`

	// AlertDedupWindow suppresses repeat alerts of the same (type, system)
	// Default: 5 minutes
	AlertDedupWindow time.Duration `yaml:"alert_dedup_window"`

	// AlertThresholds maps a system's critical level to the consecutive
	// failure count that triggers a degradation alert
	// Default: critical=1, high=2, medium=3, low=5
	AlertThresholds map[CriticalLevel]int `yaml:"alert_thresholds"`

	// MaxAlertLog caps the in-memory alert log
	// Default: 200
	MaxAlertLog int `yaml:"max_alert_log"`

	// AlertRatePerMinute is a global cap on alert emission, a final storm
	// guard on top of dedup. Zero disables the limiter.
	// Default: 30
	AlertRatePerMinute int `yaml:"alert_rate_per_minute"`

	// ProbeTimeout bounds each custom health probe invocation
	// Default: 5 seconds
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// RecoveryTimeout bounds each recovery action invocation
	// Default: 10 seconds
	RecoveryTimeout time.Duration `yaml:"recovery_timeout"`

	// MaxConcurrentChecks bounds per-system evaluation parallelism in a tick
	// Default: 8
	MaxConcurrentChecks int `yaml:"max_concurrent_checks"`

	// StrictInitGate, when true, treats a failed initialization check as a
	// hard gate: the system is immediately classified critical regardless of
	// other checks. When false the init check contributes one scoring unit
	// like any other.
	// Default: false
	StrictInitGate bool `yaml:"strict_init_gate"`
}

// DefaultConfig returns a configuration with conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:       30 * time.Second,
		RetentionWindow:     time.Hour,
		MaxHistoryEntries:   50,
		MaxRecoveryAttempts: 3,
		AlertDedupWindow:    5 * time.Minute,
		AlertThresholds: map[CriticalLevel]int{
			LevelCritical: 1,
			LevelHigh:     2,
			LevelMedium:   3,
			LevelLow:      5,
		},
		MaxAlertLog:         200,
		AlertRatePerMinute:  30,
		ProbeTimeout:        5 * time.Second,
		RecoveryTimeout:     10 * time.Second,
		MaxConcurrentChecks: 8,
		StrictInitGate:      false,
	}
}

// Validate checks that the configuration has safe and reasonable values.
func (c *Config) Validate() error {
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check_interval must be positive, got %v", ErrInvalidConfig, c.CheckInterval)
	}
	if c.RetentionWindow <= 0 {
		return fmt.Errorf("%w: retention_window must be positive, got %v", ErrInvalidConfig, c.RetentionWindow)
	}
	if c.MaxHistoryEntries <= 0 {
		return fmt.Errorf("%w: max_history_entries must be positive, got %d", ErrInvalidConfig, c.MaxHistoryEntries)
	}
	if c.MaxHistoryEntries > 10000 {
		return fmt.Errorf("%w: max_history_entries too large (maximum 10000), got %d", ErrInvalidConfig, c.MaxHistoryEntries)
	}
	if c.MaxRecoveryAttempts < 0 {
		return fmt.Errorf("%w: max_recovery_attempts must be non-negative, got %d", ErrInvalidConfig, c.MaxRecoveryAttempts)
	}
	if c.AlertDedupWindow <= 0 {
		return fmt.Errorf("%w: alert_dedup_window must be positive, got %v", ErrInvalidConfig, c.AlertDedupWindow)
	}
	if c.MaxAlertLog <= 0 {
		return fmt.Errorf("%w: max_alert_log must be positive, got %d", ErrInvalidConfig, c.MaxAlertLog)
	}
	if c.AlertRatePerMinute < 0 {
		return fmt.Errorf("%w: alert_rate_per_minute must be non-negative, got %d", ErrInvalidConfig, c.AlertRatePerMinute)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: probe_timeout must be positive, got %v", ErrInvalidConfig, c.ProbeTimeout)
	}
	if c.RecoveryTimeout <= 0 {
		return fmt.Errorf("%w: recovery_timeout must be positive, got %v", ErrInvalidConfig, c.RecoveryTimeout)
	}
	if c.MaxConcurrentChecks <= 0 {
		return fmt.Errorf("%w: max_concurrent_checks must be positive, got %d", ErrInvalidConfig, c.MaxConcurrentChecks)
	}
	for level, threshold := range c.AlertThresholds {
		if !level.valid() {
			return fmt.Errorf("%w: unknown critical level %q in alert_thresholds", ErrInvalidConfig, level)
		}
		if threshold <= 0 {
			return fmt.Errorf("%w: alert threshold for %s must be positive, got %d", ErrInvalidConfig, level, threshold)
		}
	}
	return nil
}

// UnmarshalYAML decodes the config from YAML. Durations are written as
// strings ("30s", "5m"), which yaml cannot decode into time.Duration on its
// own. Absent fields leave the existing value untouched, so decoding into a
// default config yields defaults for everything unspecified.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		CheckInterval       *string               `yaml:"check_interval"`
		RetentionWindow     *string               `yaml:"retention_window"`
		MaxHistoryEntries   *int                  `yaml:"max_history_entries"`
		MaxRecoveryAttempts *int                  `yaml:"max_recovery_attempts"`
		AlertDedupWindow    *string               `yaml:"alert_dedup_window"`
		AlertThresholds     map[CriticalLevel]int `yaml:"alert_thresholds"`
		MaxAlertLog         *int                  `yaml:"max_alert_log"`
		AlertRatePerMinute  *int                  `yaml:"alert_rate_per_minute"`
		ProbeTimeout        *string               `yaml:"probe_timeout"`
		RecoveryTimeout     *string               `yaml:"recovery_timeout"`
		MaxConcurrentChecks *int                  `yaml:"max_concurrent_checks"`
		StrictInitGate      *bool                 `yaml:"strict_init_gate"`
	}

	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}

	setDuration := func(dst *time.Duration, src *string, field string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field, err)
		}
		*dst = d
		return nil
	}

	if err := setDuration(&c.CheckInterval, r.CheckInterval, "check_interval"); err != nil {
		return err
	}
	if err := setDuration(&c.RetentionWindow, r.RetentionWindow, "retention_window"); err != nil {
		return err
	}
	if err := setDuration(&c.AlertDedupWindow, r.AlertDedupWindow, "alert_dedup_window"); err != nil {
		return err
	}
	if err := setDuration(&c.ProbeTimeout, r.ProbeTimeout, "probe_timeout"); err != nil {
		return err
	}
	if err := setDuration(&c.RecoveryTimeout, r.RecoveryTimeout, "recovery_timeout"); err != nil {
		return err
	}

	if r.MaxHistoryEntries != nil {
		c.MaxHistoryEntries = *r.MaxHistoryEntries
	}
	if r.MaxRecoveryAttempts != nil {
		c.MaxRecoveryAttempts = *r.MaxRecoveryAttempts
	}
	if r.AlertThresholds != nil {
		if c.AlertThresholds == nil {
			c.AlertThresholds = make(map[CriticalLevel]int, len(r.AlertThresholds))
		}
		for level, threshold := range r.AlertThresholds {
			c.AlertThresholds[level] = threshold
		}
	}
	if r.MaxAlertLog != nil {
		c.MaxAlertLog = *r.MaxAlertLog
	}
	if r.AlertRatePerMinute != nil {
		c.AlertRatePerMinute = *r.AlertRatePerMinute
	}
	if r.MaxConcurrentChecks != nil {
		c.MaxConcurrentChecks = *r.MaxConcurrentChecks
	}
	if r.StrictInitGate != nil {
		c.StrictInitGate = *r.StrictInitGate
	}
	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.AlertThresholds = make(map[CriticalLevel]int, len(c.AlertThresholds))
	for k, v := range c.AlertThresholds {
		out.AlertThresholds[k] = v
	}
	return &out
}

// thresholdFor returns the consecutive-failure alert threshold for a level,
// falling back to medium semantics when the level is unmapped.
func (c *Config) thresholdFor(level CriticalLevel) int {
	if t, ok := c.AlertThresholds[level]; ok {
		return t
	}
	if t, ok := c.AlertThresholds[LevelMedium]; ok {
		return t
	}
	return 3
}

// ConfigPatch is a partial configuration update. Nil fields are left
// unchanged. The patched result is validated as a whole before taking
// effect; on rejection the previous configuration is retained.
type ConfigPatch struct {
	CheckInterval       *time.Duration
	RetentionWindow     *time.Duration
	MaxHistoryEntries   *int
	MaxRecoveryAttempts *int
	AlertDedupWindow    *time.Duration
	AlertThresholds     map[CriticalLevel]int
	MaxAlertLog         *int
	AlertRatePerMinute  *int
	ProbeTimeout        *time.Duration
	RecoveryTimeout     *time.Duration
	MaxConcurrentChecks *int
	StrictInitGate      *bool
}

// apply merges the patch into a clone of c and validates the result.
func (c *Config) apply(patch ConfigPatch) (*Config, error) {
	next := c.Clone()

	if patch.CheckInterval != nil {
		next.CheckInterval = *patch.CheckInterval
	}
	if patch.RetentionWindow != nil {
		next.RetentionWindow = *patch.RetentionWindow
	}
	if patch.MaxHistoryEntries != nil {
		next.MaxHistoryEntries = *patch.MaxHistoryEntries
	}
	if patch.MaxRecoveryAttempts != nil {
		next.MaxRecoveryAttempts = *patch.MaxRecoveryAttempts
	}
	if patch.AlertDedupWindow != nil {
		next.AlertDedupWindow = *patch.AlertDedupWindow
	}
	if patch.AlertThresholds != nil {
		for level, threshold := range patch.AlertThresholds {
			next.AlertThresholds[level] = threshold
		}
	}
	if patch.MaxAlertLog != nil {
		next.MaxAlertLog = *patch.MaxAlertLog
	}
	if patch.AlertRatePerMinute != nil {
		next.AlertRatePerMinute = *patch.AlertRatePerMinute
	}
	if patch.ProbeTimeout != nil {
		next.ProbeTimeout = *patch.ProbeTimeout
	}
	if patch.RecoveryTimeout != nil {
		next.RecoveryTimeout = *patch.RecoveryTimeout
	}
	if patch.MaxConcurrentChecks != nil {
		next.MaxConcurrentChecks = *patch.MaxConcurrentChecks
	}
	if patch.StrictInitGate != nil {
		next.StrictInitGate = *patch.StrictInitGate
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// LoadConfigFile loads configuration from a YAML file.
// Returns defaults if the file doesn't exist; errors if it exists but is
// invalid.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables, which
// override defaults. Prefix: HEALTHMON_. Invalid values fall back to the
// default for that field.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if val := os.Getenv("HEALTHMON_CHECK_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.CheckInterval = d
		}
	}
	if val := os.Getenv("HEALTHMON_RETENTION_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RetentionWindow = d
		}
	}
	if val := os.Getenv("HEALTHMON_MAX_HISTORY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.MaxHistoryEntries = n
		}
	}
	if val := os.Getenv("HEALTHMON_MAX_RECOVERY_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			cfg.MaxRecoveryAttempts = n
		}
	}
	if val := os.Getenv("HEALTHMON_ALERT_DEDUP_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.AlertDedupWindow = d
		}
	}
	if val := os.Getenv("HEALTHMON_PROBE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.ProbeTimeout = d
		}
	}
	if val := os.Getenv("HEALTHMON_RECOVERY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RecoveryTimeout = d
		}
	}
	if val := os.Getenv("HEALTHMON_MAX_CONCURRENT_CHECKS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.MaxConcurrentChecks = n
		}
	}
	if val := os.Getenv("HEALTHMON_STRICT_INIT_GATE"); val != "" {
		cfg.StrictInitGate = parseBool(val)
	}

	if err := cfg.Validate(); err != nil {
		return DefaultConfig()
	}
	return cfg
}

// parseBool parses a boolean string, defaulting to false on unknown values.
func parseBool(val string) bool {
	switch val {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
