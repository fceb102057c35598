// Package monitor implements a health monitoring and recovery engine for
// registered subsystems.
//
// # Model
//
// Callers register systems by a stable string id together with an opaque
// handle and optional capability bindings (a custom health probe and a
// recovery action). A periodic scheduler evaluates every registered system
// once per interval:
//
//  1. Handle presence
//  2. Initialization signal (if the handle implements Initializable)
//  3. Required capability presence (resolved through CapabilityProvider)
//  4. Custom health probe (if bound at registration)
//
// Each check contributes one pass/fail unit toward a 0-100 score, which maps
// deterministically onto a status bucket (healthy, warning, degraded,
// failing, critical). Results feed a bounded per-system history, a
// deduplicating alert manager, and a bounded recovery coordinator.
//
// # Isolation
//
// Nothing a monitored system does can destabilize the engine: probe and
// recovery panics are captured and converted into failed checks or failed
// attempts, slow callbacks are cut off by per-invocation timeouts, and a
// misbehaving system never prevents the others from being evaluated within
// the same tick.
//
// # Example
//
//	m, _ := monitor.New(nil, logging.NewLogrusSink(os.Stderr, logging.LevelInfo))
//	err := m.Register("palette-engine", engine, monitor.RegisterOptions{
//	    CriticalLevel:        monitor.LevelHigh,
//	    RequiredCapabilities: []string{"applyTheme"},
//	    HealthCheck: func(ctx context.Context) (monitor.ProbeResult, error) {
//	        return monitor.ProbeResult{OK: engine.Ready()}, nil
//	    },
//	    Recovery: func(ctx context.Context) error { return engine.Restart(ctx) },
//	})
//
// The scheduler starts with the first registration and stops with the last
// unregistration; CheckHealth triggers a manual pass with identical
// semantics.
package monitor
