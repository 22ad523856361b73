// ABOUTME: Prometheus instrumentation for the scenario analysis engine
// ABOUTME: Tracks scenario outcomes, request attempts, admission waits, and batch timing

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scenario_engine"

var (
	// BatchesTotal counts submitted batches.
	BatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_total",
		Help:      "Number of scenario batches submitted.",
	})

	// ScenariosTotal counts scenarios by terminal status (success, error, cancelled).
	ScenariosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scenarios_total",
		Help:      "Number of scenarios reaching a terminal status.",
	}, []string{"status"})

	// ScenariosInFlight tracks scenarios currently in the loading state.
	ScenariosInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scenarios_in_flight",
		Help:      "Scenarios currently executing.",
	})

	// RequestAttempts counts outbound capacity-query attempts by outcome.
	RequestAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_attempts_total",
		Help:      "Outbound capacity-query attempts by outcome.",
	}, []string{"outcome"})

	// RateLimitWaitSeconds observes time spent waiting for admission tokens.
	RateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds",
		Help:      "Time spent blocked on the outbound token bucket.",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	// BatchDurationSeconds observes wall-clock time per batch run.
	BatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "batch_duration_seconds",
		Help:      "Wall-clock duration of batch runs.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	})
)

// Attempt outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient_error"
	OutcomePermanent = "permanent_error"
)
