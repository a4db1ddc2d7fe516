package monitor

import (
	"sync"
	"time"

	"github.com/nicktill/pingmon/pkg/config"
)

// WriterMonitor tracks whether probe results are reaching the log directory.
type WriterMonitor struct {
	mu                sync.RWMutex
	interval          time.Duration
	now               func() time.Time
	started           time.Time
	lastSuccess       time.Time
	lastAttempt       time.Time
	consecutiveErrors int
	lastError         string
}

// NewWriterMonitor creates a monitor for a probe loop running every interval.
func NewWriterMonitor(interval time.Duration) *WriterMonitor {
	return newWriterMonitor(interval, time.Now)
}

func newWriterMonitor(interval time.Duration, now func() time.Time) *WriterMonitor {
	return &WriterMonitor{interval: interval, now: now, started: now()}
}

// RecordSuccess records a sample written to disk.
func (wm *WriterMonitor) RecordSuccess() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	now := wm.now()
	wm.lastSuccess = now
	wm.lastAttempt = now
	wm.consecutiveErrors = 0
	wm.lastError = ""
}

// RecordFailure records a failed append.
func (wm *WriterMonitor) RecordFailure(err error) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.lastAttempt = wm.now()
	wm.consecutiveErrors++
	if err != nil {
		wm.lastError = err.Error()
	}
}

// IsHealthy returns true if samples are being written.
// Unhealthy conditions:
//   - WriterUnhealthyAfter consecutive failures
//   - No successful write for three intervals, counted from start
//     until the first success
func (wm *WriterMonitor) IsHealthy() bool {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.healthyLocked()
}

func (wm *WriterMonitor) healthyLocked() bool {
	if wm.consecutiveErrors >= config.WriterUnhealthyAfter {
		return false
	}
	since := wm.lastSuccess
	if since.IsZero() {
		since = wm.started
	}
	return wm.now().Sub(since) <= 3*wm.interval
}

// WriterStatus is the writer section of the health response.
type WriterStatus struct {
	Healthy           bool   `json:"healthy"`
	LastSuccess       string `json:"last_success,omitempty"`
	TimeSinceSuccess  string `json:"time_since_success,omitempty"`
	LastAttempt       string `json:"last_attempt,omitempty"`
	ConsecutiveErrors int    `json:"consecutive_errors,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}

// Status returns current writer status for health checks.
func (wm *WriterMonitor) Status() WriterStatus {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	status := WriterStatus{
		Healthy: wm.healthyLocked(),
	}

	if !wm.lastSuccess.IsZero() {
		status.LastSuccess = wm.lastSuccess.Format(time.RFC3339)
		status.TimeSinceSuccess = wm.now().Sub(wm.lastSuccess).String()
	}

	if !wm.lastAttempt.IsZero() {
		status.LastAttempt = wm.lastAttempt.Format(time.RFC3339)
	}

	if wm.consecutiveErrors > 0 {
		status.ConsecutiveErrors = wm.consecutiveErrors
		status.LastError = wm.lastError
	}

	return status
}
