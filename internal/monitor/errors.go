package monitor

import "errors"

// Sentinel errors for the public API. Callback failures (probes, recovery
// actions) are never surfaced as errors; they are converted into failed
// checks or skipped attempts.
var (
	// ErrInvalidConfig indicates a rejected configuration; the previous
	// configuration remains in effect.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrDuplicateName indicates a re-registration under an existing name.
	// Registration still succeeds (overwrite semantics); the registry logs
	// a warning carrying this error.
	ErrDuplicateName = errors.New("duplicate system name")

	// ErrUnknownSystem indicates an operation on an unregistered name.
	ErrUnknownSystem = errors.New("unknown system")
)
