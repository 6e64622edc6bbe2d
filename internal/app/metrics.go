// Package app provides the main application structure and coordination.
package app

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks application performance metrics.
type Metrics struct {
	mu sync.RWMutex

	// DAP request/response round-trip timing
	requestCount   atomic.Uint64
	requestTotalNs atomic.Int64
	requestMinNs   atomic.Int64
	requestMaxNs   atomic.Int64
	lastRequestNs  atomic.Int64
	failedRequests atomic.Uint64

	// REPL command dispatch
	commandCount   atomic.Uint64
	commandTotalNs atomic.Int64
	commandErrors  atomic.Uint64

	// Adapter subprocess relaunch timing
	relaunchCount   atomic.Uint64
	relaunchTotalNs atomic.Int64

	// DAP event dispatch
	eventCount   atomic.Uint64
	eventTotalNs atomic.Int64

	// Memory (sampled periodically)
	lastHeapBytes atomic.Uint64
	lastGCPauseNs atomic.Int64

	// Start time for uptime calculation
	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
	}
	// Initialize min to max int64 so first request will be smaller
	m.requestMinNs.Store(1<<63 - 1)
	return m
}

// RecordRequest records a DAP request's round-trip time.
func (m *Metrics) RecordRequest(duration time.Duration) {
	ns := duration.Nanoseconds()

	m.requestCount.Add(1)
	m.requestTotalNs.Add(ns)
	m.lastRequestNs.Store(ns)

	// Update min (atomic compare-and-swap loop)
	for {
		old := m.requestMinNs.Load()
		if ns >= old {
			break
		}
		if m.requestMinNs.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (atomic compare-and-swap loop)
	for {
		old := m.requestMaxNs.Load()
		if ns <= old {
			break
		}
		if m.requestMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordFailedRequest records a DAP request that errored or timed out.
func (m *Metrics) RecordFailedRequest() {
	m.failedRequests.Add(1)
}

// RecordCommand records REPL command dispatch timing.
func (m *Metrics) RecordCommand(duration time.Duration) {
	m.commandCount.Add(1)
	m.commandTotalNs.Add(duration.Nanoseconds())
}

// RecordCommandError records a command that returned an error.
func (m *Metrics) RecordCommandError() {
	m.commandErrors.Add(1)
}

// RecordRelaunch records an adapter subprocess relaunch's duration.
func (m *Metrics) RecordRelaunch(duration time.Duration) {
	m.relaunchCount.Add(1)
	m.relaunchTotalNs.Add(duration.Nanoseconds())
}

// RecordEvent records DAP event dispatch timing.
func (m *Metrics) RecordEvent(duration time.Duration) {
	m.eventCount.Add(1)
	m.eventTotalNs.Add(duration.Nanoseconds())
}

// UpdateMemory updates memory statistics.
func (m *Metrics) UpdateMemory(heapBytes uint64, gcPauseNs int64) {
	m.lastHeapBytes.Store(heapBytes)
	m.lastGCPauseNs.Store(gcPauseNs)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	requestCount := m.requestCount.Load()
	commandCount := m.commandCount.Load()
	relaunchCount := m.relaunchCount.Load()
	eventCount := m.eventCount.Load()

	var avgRequestNs int64
	if requestCount > 0 {
		avgRequestNs = m.requestTotalNs.Load() / int64(requestCount)
	}

	var avgCommandNs int64
	if commandCount > 0 {
		avgCommandNs = m.commandTotalNs.Load() / int64(commandCount)
	}

	var avgRelaunchNs int64
	if relaunchCount > 0 {
		avgRelaunchNs = m.relaunchTotalNs.Load() / int64(relaunchCount)
	}

	var avgEventNs int64
	if eventCount > 0 {
		avgEventNs = m.eventTotalNs.Load() / int64(eventCount)
	}

	minRequestNs := m.requestMinNs.Load()
	if minRequestNs == 1<<63-1 {
		minRequestNs = 0
	}

	return MetricsSnapshot{
		Uptime:           time.Since(m.startTime),
		RequestCount:     requestCount,
		AvgRequestTimeNs: avgRequestNs,
		MinRequestTimeNs: minRequestNs,
		MaxRequestTimeNs: m.requestMaxNs.Load(),
		LastRequestNs:    m.lastRequestNs.Load(),
		FailedRequests:   m.failedRequests.Load(),
		CommandCount:     commandCount,
		AvgCommandTimeNs: avgCommandNs,
		CommandErrors:    m.commandErrors.Load(),
		RelaunchCount:    relaunchCount,
		AvgRelaunchNs:    avgRelaunchNs,
		EventCount:       eventCount,
		AvgEventNs:       avgEventNs,
		HeapBytes:        m.lastHeapBytes.Load(),
		LastGCPauseNs:    m.lastGCPauseNs.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.requestCount.Store(0)
	m.requestTotalNs.Store(0)
	m.requestMinNs.Store(1<<63 - 1)
	m.requestMaxNs.Store(0)
	m.lastRequestNs.Store(0)
	m.failedRequests.Store(0)
	m.commandCount.Store(0)
	m.commandTotalNs.Store(0)
	m.commandErrors.Store(0)
	m.relaunchCount.Store(0)
	m.relaunchTotalNs.Store(0)
	m.eventCount.Store(0)
	m.eventTotalNs.Store(0)
	m.lastHeapBytes.Store(0)
	m.lastGCPauseNs.Store(0)
	m.startTime = time.Now()
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime           time.Duration
	RequestCount     uint64
	AvgRequestTimeNs int64
	MinRequestTimeNs int64
	MaxRequestTimeNs int64
	LastRequestNs    int64
	FailedRequests   uint64
	CommandCount     uint64
	AvgCommandTimeNs int64
	CommandErrors    uint64
	RelaunchCount    uint64
	AvgRelaunchNs    int64
	EventCount       uint64
	AvgEventNs       int64
	HeapBytes        uint64
	LastGCPauseNs    int64
}

// RequestFailureRate returns the percentage of DAP requests that failed.
func (s MetricsSnapshot) RequestFailureRate() float64 {
	total := s.RequestCount + s.FailedRequests
	if total == 0 {
		return 0
	}
	return float64(s.FailedRequests) / float64(total) * 100
}

// CommandErrorRate returns the percentage of REPL commands that errored.
func (s MetricsSnapshot) CommandErrorRate() float64 {
	total := s.CommandCount + s.CommandErrors
	if total == 0 {
		return 0
	}
	return float64(s.CommandErrors) / float64(total) * 100
}

// HeapMB returns heap size in megabytes.
func (s MetricsSnapshot) HeapMB() float64 {
	return float64(s.HeapBytes) / (1024 * 1024)
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ElapsedMs returns the elapsed time in milliseconds.
func (t *Timer) ElapsedMs() float64 {
	return float64(t.Elapsed().Nanoseconds()) / 1e6
}

// Stop returns the elapsed time and resets the timer.
func (t *Timer) Stop() time.Duration {
	elapsed := t.Elapsed()
	t.start = time.Now()
	return elapsed
}

// appMetrics is the application-wide metrics instance.
var (
	appMetrics     *Metrics
	appMetricsOnce sync.Once
)

// GetMetrics returns the application metrics.
func GetMetrics() *Metrics {
	appMetricsOnce.Do(func() {
		if appMetrics == nil {
			appMetrics = NewMetrics()
		}
	})
	return appMetrics
}

// SetMetrics sets the application-wide metrics.
func SetMetrics(m *Metrics) {
	appMetrics = m
}

// Metrics returns the application's metrics instance.
func (app *Application) Metrics() *Metrics {
	if app.metrics == nil {
		return GetMetrics()
	}
	return app.metrics
}

// SetMetrics sets the application's metrics.
func (app *Application) SetMetrics(m *Metrics) {
	app.metrics = m
}
