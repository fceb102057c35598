package monitor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(name string, status Status, at time.Time) *HealthResult {
	return &HealthResult{SystemName: name, Status: status, Timestamp: at}
}

func TestHistoryStore_CapsEntries(t *testing.T) {
	h := newHistoryStore(time.Hour, 5)

	base := time.Now()
	for i := 0; i < 10; i++ {
		h.push(result("a", StatusHealthy, base.Add(time.Duration(i)*time.Second)))
	}

	all := h.all("a")
	require.Len(t, all, 5)

	// The five most recent remain, oldest first
	for i, r := range all {
		want := base.Add(time.Duration(i+5) * time.Second)
		assert.True(t, r.Timestamp.Equal(want), "entry %d timestamp %v, want %v", i, r.Timestamp, want)
	}
}

func TestHistoryStore_PrunesByAge(t *testing.T) {
	h := newHistoryStore(10*time.Minute, 100)

	now := time.Now()
	h.push(result("a", StatusHealthy, now.Add(-30*time.Minute)))
	h.push(result("a", StatusHealthy, now.Add(-20*time.Minute)))
	h.push(result("a", StatusWarning, now.Add(-5*time.Minute)))
	h.push(result("a", StatusHealthy, now))

	all := h.all("a")
	require.Len(t, all, 2)
	assert.Equal(t, StatusWarning, all[0].Status)
	assert.Equal(t, StatusHealthy, all[1].Status)
}

func TestHistoryStore_Latest(t *testing.T) {
	h := newHistoryStore(time.Hour, 10)

	assert.Nil(t, h.latest("missing"))

	now := time.Now()
	h.push(result("a", StatusHealthy, now))
	h.push(result("a", StatusFailing, now.Add(time.Second)))

	latest := h.latest("a")
	require.NotNil(t, latest)
	assert.Equal(t, StatusFailing, latest.Status)
}

func TestHistoryStore_Summary(t *testing.T) {
	h := newHistoryStore(time.Hour, 10)

	now := time.Now()
	h.push(result("a", StatusHealthy, now))
	h.push(result("b", StatusHealthy, now))
	h.push(result("c", StatusFailing, now))
	// Only the latest entry per system counts
	h.push(result("c", StatusHealthy, now.Add(time.Second)))

	summary := h.summary()
	assert.Equal(t, 3, summary[StatusHealthy])
	assert.Equal(t, 0, summary[StatusFailing])
}

func TestHistoryStore_ExpiredEntriesHiddenFromReaders(t *testing.T) {
	h := newHistoryStore(10*time.Minute, 100)

	// Pushed in the past, aged out since, with no later push to prune it
	h.push(result("a", StatusHealthy, time.Now().Add(-30*time.Minute)))

	assert.Nil(t, h.latest("a"))
	assert.Empty(t, h.all("a"))
	assert.Empty(t, h.summary())
}

func TestHistoryStore_Remove(t *testing.T) {
	h := newHistoryStore(time.Hour, 10)
	h.push(result("a", StatusHealthy, time.Now()))

	h.remove("a")
	assert.Empty(t, h.all("a"))
	assert.Nil(t, h.latest("a"))
}

func TestHistoryStore_ConfigureTightensCap(t *testing.T) {
	h := newHistoryStore(time.Hour, 10)

	base := time.Now()
	for i := 0; i < 10; i++ {
		h.push(result("a", StatusHealthy, base.Add(time.Duration(i)*time.Second)))
	}

	h.configure(time.Hour, 3)
	// New limit applies on the next push
	h.push(result("a", StatusHealthy, base.Add(11*time.Second)))
	assert.Len(t, h.all("a"), 3)
}

func TestHistoryStore_SystemsAreIndependent(t *testing.T) {
	h := newHistoryStore(time.Hour, 3)

	base := time.Now()
	for i := 0; i < 5; i++ {
		h.push(result(fmt.Sprintf("sys-%d", i%2), StatusHealthy, base.Add(time.Duration(i)*time.Second)))
	}

	assert.Len(t, h.all("sys-0"), 3)
	assert.Len(t, h.all("sys-1"), 2)
}
