package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_SnapshotAverages(t *testing.T) {
	m := New(0)

	assert.Equal(t, Snapshot{}, m.Snapshot())

	m.PushServed(10*time.Millisecond, 3, 1)
	m.PushServed(20*time.Millisecond, 1, 0)
	m.PullServed(4 * time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.TotalPushes)
	assert.Equal(t, int64(1), s.TotalPulls)
	assert.InDelta(t, 15.0, s.PushAvgMs, 0.001)
	assert.InDelta(t, 4.0, s.PullAvgMs, 0.001)
}

func TestMonitor_ReportResetsPeriodCounters(t *testing.T) {
	m := New(time.Second)
	m.PushServed(time.Millisecond, 5, 0)

	m.report()

	assert.Equal(t, 0, m.pushes)
	assert.Equal(t, 0, m.opsApplied)
	assert.Equal(t, int64(1), m.Snapshot().TotalPushes)
}

func TestMonitor_StartStop(t *testing.T) {
	m := New(5 * time.Millisecond)
	m.Start()
	m.Start()
	m.PullServed(time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	m.Stop()

	assert.Equal(t, int64(1), m.Snapshot().TotalPulls)
}

func TestMonitor_ZeroPeriodNeverStarts(t *testing.T) {
	m := New(0)
	m.Start()
	assert.Nil(t, m.stopCh)
	m.Stop()
}
