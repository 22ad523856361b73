// ABOUTME: Retrying wrapper around a capacity source with exponential backoff
// ABOUTME: Acquires a rate-limiter token per attempt; trips a breaker on backend failure

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/capacityworks/scenario-engine/metrics"
	"github.com/capacityworks/scenario-engine/models"
	"github.com/capacityworks/scenario-engine/ratelimit"
)

// RetryConfig holds retry tuning for live capacity calls.
type RetryConfig struct {
	MaxAttempts int           // attempts per call, including the first
	BaseDelay   time.Duration // first backoff delay, doubled each attempt
	Timeout     time.Duration // per-attempt deadline; 0 disables
}

// DefaultRetryConfig matches the engine's reference behavior: 3 attempts,
// 1s base delay doubling each attempt, 30s deadline per attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// RetryingClient wraps a CapacitySource with admission control, retry on
// transient failures, and a circuit breaker. Permanent failures (bad request,
// auth) surface immediately: retrying a permanently-invalid request wastes
// rate-limiter budget other scenarios in the batch need.
type RetryingClient struct {
	source  CapacitySource
	bucket  *ratelimit.Bucket
	cfg     RetryConfig
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

// NewRetryingClient creates a retrying client over the given source.
func NewRetryingClient(source CapacitySource, bucket *ratelimit.Bucket, cfg RetryConfig, log *slog.Logger) *RetryingClient {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = slog.Default()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "capacity-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors mean the backend is alive and answering; only
		// transport-level and server-side failures should open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &RetryingClient{
		source:  source,
		bucket:  bucket,
		cfg:     cfg,
		breaker: breaker,
		log:     log,
	}
}

// Execute runs one capacity query with admission control and retry.
func (rc *RetryingClient) Execute(ctx context.Context, req CapacityRequest) (*models.RecommendationSet, error) {
	var lastErr error
	delay := rc.cfg.BaseDelay

	for attempt := 1; attempt <= rc.cfg.MaxAttempts; attempt++ {
		waitStart := time.Now()
		if err := rc.bucket.AwaitAdmit(ctx); err != nil {
			return nil, fmt.Errorf("admission wait aborted: %w", err)
		}
		metrics.RateLimitWaitSeconds.Observe(time.Since(waitStart).Seconds())

		// Every attempt carries its own deadline regardless of the source
		// behind the interface; a hung backend must not pin a worker.
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if rc.cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, rc.cfg.Timeout)
		}

		start := time.Now()
		result, err := rc.breaker.Execute(func() (interface{}, error) {
			return rc.source.Query(attemptCtx, req)
		})
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			metrics.RequestAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
			if attempt > 1 {
				rc.log.Info("Capacity query succeeded after retry",
					"region", req.Region,
					"machine_type", req.MachineType,
					"attempt", attempt,
					"elapsed_ms", elapsed.Milliseconds(),
				)
			}
			return result.(*models.RecommendationSet), nil
		}
		lastErr = err

		if !IsTransient(err) {
			metrics.RequestAttempts.WithLabelValues(metrics.OutcomePermanent).Inc()
			rc.log.Warn("Capacity query failed permanently, not retrying",
				"region", req.Region,
				"machine_type", req.MachineType,
				"attempt", attempt,
				"elapsed_ms", elapsed.Milliseconds(),
				"error", err,
			)
			return nil, err
		}

		metrics.RequestAttempts.WithLabelValues(metrics.OutcomeTransient).Inc()
		if attempt == rc.cfg.MaxAttempts {
			break
		}

		rc.log.Warn("Capacity query failed, retrying",
			"region", req.Region,
			"machine_type", req.MachineType,
			"attempt", attempt,
			"max_attempts", rc.cfg.MaxAttempts,
			"delay", delay,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("retry aborted: %w", ctx.Err())
		}
		delay *= 2
	}

	return nil, fmt.Errorf("max retry attempts (%d) exceeded: %w", rc.cfg.MaxAttempts, lastErr)
}
