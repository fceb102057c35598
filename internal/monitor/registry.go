package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthmon/healthmon/internal/logging"
)

// registry holds the set of monitored system records.
//
// All mutation goes through locked methods so registration and unregistration
// are safe to call concurrently with an in-progress evaluation pass. Readers
// only ever see snapshot copies; the live records are never handed out.
type registry struct {
	mu      sync.RWMutex
	records map[string]*SystemRecord
	logger  logging.Logger
}

func newRegistry(logger logging.Logger) *registry {
	return &registry{
		records: make(map[string]*SystemRecord),
		logger:  logger,
	}
}

// register adds or overwrites a record. A re-register under an existing name
// is treated as an idempotent update (hot-reload re-registration is expected)
// and logged as a warning rather than rejected.
// Returns the new record's id and the registry size after insertion.
func (r *registry) register(name string, handle interface{}, opts RegisterOptions) (recordID string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[name]; exists {
		r.logger.Log(logging.LevelWarn, "registry", "re-registering existing system, overwriting", logging.Fields{
			"system": name,
			"error":  ErrDuplicateName.Error(),
		})
	}

	level := opts.CriticalLevel
	if !level.valid() {
		level = LevelMedium
	}

	rec := &SystemRecord{
		RecordID:             uuid.NewString(),
		Name:                 name,
		Handle:               handle,
		CriticalLevel:        level,
		RequiredCapabilities: append([]string(nil), opts.RequiredCapabilities...),
		HealthCheck:          opts.HealthCheck,
		Recovery:             opts.Recovery,
		RegisteredAt:         time.Now(),
		Status:               StatusUnknown,
	}
	r.records[name] = rec

	return rec.RecordID, len(r.records)
}

// unregister removes a record. Returns whether it existed and the registry
// size after removal.
func (r *registry) unregister(name string) (removed bool, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[name]; !exists {
		r.logger.Log(logging.LevelWarn, "registry", "unregister of unknown system ignored", logging.Fields{
			"system": name,
			"error":  ErrUnknownSystem.Error(),
		})
		return false, len(r.records)
	}

	delete(r.records, name)
	return true, len(r.records)
}

// get returns a snapshot of one record, or nil if the name is unknown.
func (r *registry) get(name string) *SystemRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[name]
	if !exists {
		return nil
	}
	snap := rec.snapshot()
	return &snap
}

// list returns snapshot copies of all records, sorted by name for
// deterministic iteration order.
func (r *registry) list() []SystemRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SystemRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// size returns the number of registered systems.
func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// recordUpdate is a partial mutation of a record's evaluation state.
type recordUpdate struct {
	status      *Status
	lastCheckAt *time.Time
	// incrementFailure bumps both consecutive and total failure counters
	incrementFailure bool
	// resetConsecutive zeroes the consecutive failure counter
	resetConsecutive bool
}

// update merges fields into an existing record. Unknown names are logged and
// ignored: registry mutations must never crash the caller. Returns the
// post-update snapshot, or nil if the name is unknown.
func (r *registry) update(name string, upd recordUpdate) *SystemRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[name]
	if !exists {
		r.logger.Log(logging.LevelWarn, "registry", "update of unknown system ignored", logging.Fields{
			"system": name,
			"error":  ErrUnknownSystem.Error(),
		})
		return nil
	}

	if upd.status != nil {
		rec.Status = *upd.status
	}
	if upd.lastCheckAt != nil {
		t := *upd.lastCheckAt
		rec.LastCheckAt = &t
	}
	if upd.incrementFailure {
		rec.ConsecutiveFailures++
		rec.TotalFailures++
	}
	if upd.resetConsecutive {
		rec.ConsecutiveFailures = 0
	}

	snap := rec.snapshot()
	return &snap
}
