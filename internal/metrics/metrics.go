package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CollaboratorCalls tracks outbound calls per collaborator and outcome
	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tema_collaborator_calls_total",
			Help: "Total number of calls to external collaborators",
		},
		[]string{"service", "outcome"},
	)

	// CollaboratorLatency tracks call latency per collaborator
	CollaboratorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tema_collaborator_latency_seconds",
			Help:    "Collaborator call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// RetryAttempts counts retries after a retryable failure
	RetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tema_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
	)

	// RecoveryOutcomes counts how recovery.Execute calls were resolved
	RecoveryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tema_recovery_outcomes_total",
			Help: "Recovery resolutions: primary, cache, fallback, queued, failed",
		},
		[]string{"resolution"},
	)

	// OfflineQueueLength is the number of deferred operations
	OfflineQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tema_offline_queue_length",
			Help: "Number of operations waiting in the offline queue",
		},
	)

	// Orchestrations counts orchestrator actions per result
	Orchestrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tema_orchestrations_total",
			Help: "Total number of orchestrator actions",
		},
		[]string{"action", "result"},
	)

	// ServiceHealth is 2 for healthy, 1 for degraded, 0 for down
	ServiceHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tema_service_health",
			Help: "Collaborator health (2 healthy, 1 degraded, 0 down)",
		},
		[]string{"service"},
	)
)
