package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/healthmon/healthmon/internal/logging"
)

// recoveryCoordinator invokes bounded recovery actions for failing systems.
//
// Recovery fires only for StatusFailing. Critical and error states are left
// for the alert manager to escalate: repeatedly recovering a fundamentally
// broken system just masks the problem.
type recoveryCoordinator struct {
	mu          sync.Mutex
	attempts    map[string]int
	maxAttempts int
	timeout     time.Duration
	logger      logging.Logger
}

func newRecoveryCoordinator(cfg *Config, logger logging.Logger) *recoveryCoordinator {
	return &recoveryCoordinator{
		attempts:    make(map[string]int),
		maxAttempts: cfg.MaxRecoveryAttempts,
		timeout:     cfg.RecoveryTimeout,
		logger:      logger,
	}
}

// configure applies recovery-related settings from a validated config.
func (rc *recoveryCoordinator) configure(cfg *Config) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.maxAttempts = cfg.MaxRecoveryAttempts
	rc.timeout = cfg.RecoveryTimeout
}

// maybeRecover invokes the system's recovery action if it is eligible.
// Returns true only when the action completed without error, panic, or
// timeout; the caller then resets the system's consecutive failure count.
//
// Attempts are counted before invocation and retained on failure. Once the
// attempt budget is exhausted, invocation is skipped and the failing state is
// left for the alert manager to escalate.
func (rc *recoveryCoordinator) maybeRecover(ctx context.Context, rec SystemRecord) bool {
	if rec.Status != StatusFailing || rec.Recovery == nil {
		return false
	}

	rc.mu.Lock()
	if rc.attempts[rec.Name] >= rc.maxAttempts {
		attempts := rc.attempts[rec.Name]
		max := rc.maxAttempts
		rc.mu.Unlock()
		rc.logger.Log(logging.LevelWarn, "recovery", "recovery attempts exhausted, skipping", logging.Fields{
			"system":   rec.Name,
			"attempts": attempts,
			"max":      max,
		})
		return false
	}
	rc.attempts[rec.Name]++
	attempt := rc.attempts[rec.Name]
	timeout := rc.timeout
	rc.mu.Unlock()

	rc.logger.Log(logging.LevelInfo, "recovery", "invoking recovery action", logging.Fields{
		"system":  rec.Name,
		"attempt": attempt,
	})

	if err := rc.invoke(ctx, rec.Recovery, timeout); err != nil {
		// Attempt count is retained: only success resets it.
		rc.logger.Log(logging.LevelError, "recovery", "recovery attempt failed", logging.Fields{
			"system":  rec.Name,
			"attempt": attempt,
			"error":   err.Error(),
		})
		return false
	}

	rc.clear(rec.Name)
	rc.logger.Log(logging.LevelInfo, "recovery", "recovery succeeded", logging.Fields{
		"system":  rec.Name,
		"attempt": attempt,
	})
	return true
}

// invoke runs the recovery action with a deadline, capturing panics.
// A timed-out action keeps running in its goroutine until it returns; the
// coordinator just stops waiting for it.
func (rc *recoveryCoordinator) invoke(ctx context.Context, action RecoveryFunc, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("recovery action panicked: %v", r)
			}
		}()
		done <- action(runCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("recovery action failed: %w", err)
		}
		return nil
	case <-runCtx.Done():
		return fmt.Errorf("recovery action timed out after %v", timeout)
	}
}

// attemptsFor returns the current attempt count for a system.
func (rc *recoveryCoordinator) attemptsFor(name string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.attempts[name]
}

// clear resets the attempt counter for a system. Called on successful
// recovery and on unregistration.
func (rc *recoveryCoordinator) clear(name string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.attempts, name)
}
