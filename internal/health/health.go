// Package health probes the external collaborators and reports integration health.
package health

import (
	"time"

	"github.com/vietddude/tema/internal/core/domain"
)

// Status represents the health state of a collaborator or of the integration as a whole.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// ServiceHealth is the result of probing one collaborator.
type ServiceHealth struct {
	Service   domain.Service `json:"service"`
	Status    Status         `json:"status"`
	LatencyMs int64          `json:"latency_ms"`
	Error     string         `json:"error,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}

// Report contains the full integration health report.
type Report struct {
	Overall   Status                           `json:"overall"`
	Services  map[domain.Service]ServiceHealth `json:"services"`
	LastCheck time.Time                        `json:"last_check"`
}

// Aggregate derives the overall status: healthy iff every service is healthy, down when
// fewer than half are healthy, degraded otherwise.
func Aggregate(services map[domain.Service]ServiceHealth) Status {
	if len(services) == 0 {
		return StatusDown
	}
	healthy := 0
	for _, s := range services {
		if s.Status == StatusHealthy {
			healthy++
		}
	}
	switch {
	case healthy == len(services):
		return StatusHealthy
	case healthy*2 < len(services):
		return StatusDown
	}
	return StatusDegraded
}

func (s Status) gauge() float64 {
	switch s {
	case StatusHealthy:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}
