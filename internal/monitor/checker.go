package monitor

import (
	"context"
	"fmt"
	"time"
)

// Check names, in evaluation order. Capability checks are named
// "capability:<name>".
const (
	checkHandlePresent = "handle_present"
	checkInitialized   = "initialized"
	checkCustomProbe   = "custom_probe"
)

// checker evaluates a single system: it runs the ordered check sequence,
// scores the outcome, and classifies the status. It holds no mutable state;
// all bookkeeping happens in the registry and history store.
type checker struct{}

// evaluate runs one evaluation of one system. It never panics: probe panics
// become failed checks, and a panic while accessing the handle itself (the
// initialization or capability accessors) classifies the system as ERROR
// with score 0.
func (checker) evaluate(ctx context.Context, rec SystemRecord, cfg *Config, now time.Time) (result *HealthResult) {
	result = &HealthResult{
		SystemName: rec.Name,
		Timestamp:  now,
	}

	defer func() {
		if r := recover(); r != nil {
			result.Status = StatusError
			result.Score = 0
			result.Issues = append(result.Issues, fmt.Sprintf("evaluation error: %v", r))
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("inspect handle for %s: access to it panicked during evaluation", rec.Name))
		}
	}()

	// Check 1: handle presence
	handleOK := rec.Handle != nil
	result.Checks = append(result.Checks, CheckResult{
		Name:    checkHandlePresent,
		Passed:  handleOK,
		Message: failMessage(handleOK, "handle is nil"),
	})

	// Check 2: initialization signal, if the handle exposes one.
	// A panic inside Initialized() propagates to the deferred recover above
	// and classifies the whole evaluation as ERROR.
	initFailed := false
	if init, ok := rec.Handle.(Initializable); ok {
		initialized := init.Initialized()
		initFailed = !initialized
		result.Checks = append(result.Checks, CheckResult{
			Name:    checkInitialized,
			Passed:  initialized,
			Message: failMessage(initialized, "system reports not initialized"),
		})
	}

	if initFailed && cfg.StrictInitGate {
		// Hard gate policy: a non-initialized system is immediately critical
		// regardless of the remaining checks.
		result.Score = 0
		result.Status = StatusCritical
		result.Issues = append(result.Issues, fmt.Sprintf("%s is not initialized", rec.Name))
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("initialize %s before it can be monitored further", rec.Name))
		return result
	}

	// Check 3: required capability presence
	provider, hasProvider := rec.Handle.(CapabilityProvider)
	for _, capName := range rec.RequiredCapabilities {
		passed := hasProvider && provider.HasCapability(capName)
		msg := ""
		if !passed {
			if hasProvider {
				msg = fmt.Sprintf("required capability %q not present", capName)
			} else {
				msg = fmt.Sprintf("handle does not expose capabilities, %q unresolvable", capName)
			}
		}
		result.Checks = append(result.Checks, CheckResult{
			Name:    "capability:" + capName,
			Passed:  passed,
			Message: msg,
		})
	}

	// Check 4: custom health probe, if bound
	if rec.HealthCheck != nil {
		passed, msg := runProbe(ctx, rec.HealthCheck, cfg.ProbeTimeout)
		result.Checks = append(result.Checks, CheckResult{
			Name:    checkCustomProbe,
			Passed:  passed,
			Message: msg,
		})
	}

	result.Score = scoreFromChecks(result.Checks)
	result.Status = StatusFromScore(result.Score)

	for _, c := range result.Checks {
		if !c.Passed {
			result.Issues = append(result.Issues, fmt.Sprintf("%s: %s", c.Name, c.Message))
		}
	}
	if initFailed {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("initialize %s before it can be monitored further", rec.Name))
	}
	if result.Status.IsFailure() {
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("investigate %s: %d of %d checks failing", rec.Name,
				len(result.Issues), len(result.Checks)))
	}

	return result
}

// runProbe invokes a custom health probe with a deadline, converting errors,
// panics, and timeouts into a failed check. Nothing a probe does can escape
// as a panic or stall the evaluation beyond the timeout; a timed-out probe
// keeps running in its goroutine until it returns.
func runProbe(ctx context.Context, probe HealthCheckFunc, timeout time.Duration) (passed bool, message string) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type probeOutcome struct {
		result ProbeResult
		err    error
	}

	done := make(chan probeOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- probeOutcome{err: fmt.Errorf("probe panicked: %v", r)}
			}
		}()
		res, err := probe(runCtx)
		done <- probeOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return false, out.err.Error()
		}
		if !out.result.OK {
			if out.result.Details != "" {
				return false, out.result.Details
			}
			return false, "probe reported unhealthy"
		}
		return true, out.result.Details
	case <-runCtx.Done():
		return false, fmt.Sprintf("probe timed out after %v", timeout)
	}
}

// failMessage returns msg when the check failed, empty string otherwise.
func failMessage(passed bool, msg string) string {
	if passed {
		return ""
	}
	return msg
}
