// Package monitor keeps rolling request statistics for the sync endpoints.
package monitor

import (
	"log/slog"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
)

// DefaultWindow is the number of samples averaged per endpoint.
const DefaultWindow = 50

// Monitor keeps push/pull throughput and latency stats.
type Monitor struct {
	mu sync.Mutex

	pushes      int
	pulls       int
	opsApplied  int
	opsFailed   int
	totalPushes int64
	totalPulls  int64

	pushDur *movingaverage.MovingAverage
	pullDur *movingaverage.MovingAverage

	period time.Duration
	stopCh chan struct{}
	doneCh chan struct{}
}

// Snapshot is a point-in-time view of a Monitor.
type Snapshot struct {
	TotalPushes int64   `json:"totalPushes"`
	TotalPulls  int64   `json:"totalPulls"`
	PushAvgMs   float64 `json:"pushAvgMs"`
	PullAvgMs   float64 `json:"pullAvgMs"`
}

// New creates a Monitor that reports every period once started.
func New(period time.Duration) *Monitor {
	return &Monitor{
		pushDur: movingaverage.New(DefaultWindow),
		pullDur: movingaverage.New(DefaultWindow),
		period:  period,
	}
}

// PushServed records one push call.
func (m *Monitor) PushServed(dur time.Duration, applied, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pushDur.Add(millis(dur))
	m.pushes++
	m.totalPushes++
	m.opsApplied += applied
	m.opsFailed += failed
}

// PullServed records one pull call.
func (m *Monitor) PullServed(dur time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pullDur.Add(millis(dur))
	m.pulls++
	m.totalPulls++
}

// Snapshot returns the current totals and averages.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot()
}

func (m *Monitor) snapshot() Snapshot {
	s := Snapshot{TotalPushes: m.totalPushes, TotalPulls: m.totalPulls}
	if m.totalPushes > 0 {
		s.PushAvgMs = m.pushDur.Avg()
	}
	if m.totalPulls > 0 {
		s.PullAvgMs = m.pullDur.Avg()
	}
	return s
}

// Start starts the report worker.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil || m.period <= 0 {
		return
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.worker(m.stopCh, m.doneCh)
}

// Stop stops the report worker and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stopCh, doneCh := m.stopCh, m.doneCh
	m.stopCh, m.doneCh = nil, nil
	m.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (m *Monitor) worker(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.report()
		}
	}
}

// report logs per-second rates for the last period and resets them.
func (m *Monitor) report() {
	m.mu.Lock()
	defer m.mu.Unlock()

	secs := m.period.Seconds()
	s := m.snapshot()
	slog.Info("sync monitor",
		"pushes_per_sec", float64(m.pushes)/secs,
		"pulls_per_sec", float64(m.pulls)/secs,
		"ops_applied", m.opsApplied,
		"ops_failed", m.opsFailed,
		"push_avg_ms", s.PushAvgMs,
		"pull_avg_ms", s.PullAvgMs,
	)
	m.pushes, m.pulls, m.opsApplied, m.opsFailed = 0, 0, 0, 0
}

func millis(d time.Duration) float64 {
	return float64(d/time.Microsecond) / 1000.0
}
