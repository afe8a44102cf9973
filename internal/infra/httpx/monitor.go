package httpx

import (
	"strconv"
	"sync"
	"time"
)

// Stats holds call statistics for a collaborator.
type Stats struct {
	AverageLatency time.Duration `json:"average_latency"`
	Requests       int           `json:"requests"`
	Failures       int           `json:"failures"`
	Throttles      int           `json:"throttles"`
	ErrorRate      float64       `json:"error_rate"`
	LastSuccessAt  time.Time     `json:"last_success_at"`
	LastFailureAt  time.Time     `json:"last_failure_at"`
	RetryAfter     time.Duration `json:"retry_after"`
}

// Monitor tracks latency, failures and throttling of one collaborator.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	requests      int
	failures      int
	throttles     int
	lastSuccessAt time.Time
	lastFailureAt time.Time
	throttledAt   time.Time
	retryAfter    time.Duration
}

// NewMonitor creates a new monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
	}
}

// RecordRequest records a successful request with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.lastSuccessAt = time.Now()
	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}
}

// RecordFailure records a failed request.
func (m *Monitor) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	m.failures++
	m.lastFailureAt = time.Now()
}

// RecordThrottle records a 429 response and its Retry-After header (seconds).
func (m *Monitor) RecordThrottle(retryAfter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.throttles++
	m.throttledAt = time.Now()
	m.retryAfter = 60 * time.Second
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		m.retryAfter = time.Duration(secs) * time.Second
	}
}

// Stats returns current statistics.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{
		Requests:      m.requests,
		Failures:      m.failures,
		Throttles:     m.throttles,
		LastSuccessAt: m.lastSuccessAt,
		LastFailureAt: m.lastFailureAt,
	}
	if m.requests > 0 {
		s.ErrorRate = float64(m.failures) / float64(m.requests)
	}
	if len(m.recentLatencies) > 0 {
		var total time.Duration
		for _, l := range m.recentLatencies {
			total += l
		}
		s.AverageLatency = total / time.Duration(len(m.recentLatencies))
	}
	if remaining := m.retryAfter - time.Since(m.throttledAt); m.retryAfter > 0 && remaining > 0 {
		s.RetryAfter = remaining
	}
	return s
}
