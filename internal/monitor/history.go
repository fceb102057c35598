package monitor

import (
	"sync"
	"time"
)

// historyStore is a bounded, time-windowed ring of past health results per
// system. Results are appended after every evaluation; two pruning rules run
// after each insert: entries older than the retention window are dropped,
// then the remainder is capped to the per-system maximum (oldest first).
type historyStore struct {
	mu         sync.RWMutex
	entries    map[string][]*HealthResult
	retention  time.Duration
	maxEntries int
}

func newHistoryStore(retention time.Duration, maxEntries int) *historyStore {
	return &historyStore{
		entries:    make(map[string][]*HealthResult),
		retention:  retention,
		maxEntries: maxEntries,
	}
}

// push appends a result for its system and applies both pruning rules.
func (h *historyStore) push(result *HealthResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := result.SystemName
	entries := append(h.entries[name], result)

	// Age pruning first
	cutoff := result.Timestamp.Add(-h.retention)
	firstFresh := 0
	for firstFresh < len(entries) && entries[firstFresh].Timestamp.Before(cutoff) {
		firstFresh++
	}
	entries = entries[firstFresh:]

	// Then count capping, oldest dropped first
	if len(entries) > h.maxEntries {
		entries = entries[len(entries)-h.maxEntries:]
	}

	h.entries[name] = entries
}

// latest returns the most recent unexpired result for a system, or nil.
func (h *historyStore) latest(name string) *HealthResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := time.Now().Add(-h.retention)
	entries := h.entries[name]
	if len(entries) == 0 {
		return nil
	}
	last := entries[len(entries)-1]
	if last.Timestamp.Before(cutoff) {
		return nil
	}
	return last
}

// all returns a copy of the retained unexpired results for a system, oldest
// first. Expired entries still waiting for the next push-time prune are
// filtered out here, so readers never observe over-age history.
func (h *historyStore) all(name string) []*HealthResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := time.Now().Add(-h.retention)
	entries := h.entries[name]
	out := make([]*HealthResult, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// summary returns counts per status across the latest unexpired result of
// every system.
func (h *historyStore) summary() map[Status]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := time.Now().Add(-h.retention)
	out := make(map[Status]int)
	for _, entries := range h.entries {
		if len(entries) == 0 {
			continue
		}
		last := entries[len(entries)-1]
		if last.Timestamp.Before(cutoff) {
			continue
		}
		out[last.Status]++
	}
	return out
}

// remove drops all history for a system.
func (h *historyStore) remove(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, name)
}

// configure updates the pruning limits. Existing entries are re-pruned lazily
// on the next push for their system.
func (h *historyStore) configure(retention time.Duration, maxEntries int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retention = retention
	h.maxEntries = maxEntries
}
