// ABOUTME: Batch scheduler running scenario queries under bounded parallelism
// ABOUTME: Atomic claim cursor plus per-index result slots; partial failure is first-class

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/capacityworks/scenario-engine/metrics"
	"github.com/capacityworks/scenario-engine/models"
)

// Mode selects the execution path for a batch.
type Mode string

const (
	ModeLive      Mode = "live"
	ModeSynthetic Mode = "synthetic"
)

// Lookup and retry failures, distinguished so the HTTP layer can map them to
// not-found versus conflict responses.
var (
	ErrUnknownBatch    = errors.New("unknown batch")
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrNotRetryable    = errors.New("scenario is not in a failed state")
)

// StatusUpdate is one lifecycle event for one scenario.
type StatusUpdate struct {
	ScenarioID string                 `json:"scenario_id"`
	Status     models.ScenarioStatus  `json:"status"`
	Result     *models.ScenarioResult `json:"result,omitempty"`
}

// Batch is one submitted run. Result slots are partitioned by index: the
// worker that claims an index is the only writer for that slot, so the batch
// mutex only mediates slot writes against snapshot reads and subscriber fanout.
type Batch struct {
	ID   string
	Mode Mode

	mu          sync.RWMutex
	results     []models.ScenarioResult
	subscribers []chan StatusUpdate
	finished    bool

	// cursor is the shared work-claim counter; workers atomically increment
	// it to take ownership of the next unclaimed scenario index.
	cursor atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed when every scenario has reached a terminal state.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Cancel stops issuing new work and aborts in-flight calls cooperatively.
// Scenarios that have not reached success/error are marked cancelled.
func (b *Batch) Cancel() {
	b.cancel()
}

// Snapshot returns a copy of every scenario slot. Always consistent: slot
// writes happen under the same lock.
func (b *Batch) Snapshot() []models.ScenarioResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.ScenarioResult, len(b.results))
	copy(out, b.results)
	return out
}

// Subscribe returns a channel of status updates for this batch. The channel
// is buffered and never blocks the workers: if a subscriber falls behind,
// updates are dropped and the snapshot remains the ground truth. The channel
// closes when the batch finishes.
func (b *Batch) Subscribe() <-chan StatusUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan StatusUpdate, 64)
	if b.finished {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// setSlot applies a mutation to one result slot and fans out the update.
// Caller must be the slot's owning worker. The fanout happens under the batch
// lock so a send can never interleave with finish closing the channels; the
// sends are non-blocking, so holding the lock cannot stall.
func (b *Batch) setSlot(idx int, mutate func(*models.ScenarioResult)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mutate(&b.results[idx])
	if b.finished {
		return
	}

	update := StatusUpdate{
		ScenarioID: b.results[idx].Config.ID,
		Status:     b.results[idx].Status,
	}
	if b.results[idx].Status.Terminal() {
		result := b.results[idx]
		update.Result = &result
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}

// indexOf finds the slot index for a scenario ID.
func (b *Batch) indexOf(scenarioID string) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := range b.results {
		if b.results[i].Config.ID == scenarioID {
			return i, true
		}
	}
	return 0, false
}

// finish marks unfinished slots cancelled and closes subscriber channels.
// The close happens under the same lock as setSlot's sends.
func (b *Batch) finish() {
	b.mu.Lock()
	for i := range b.results {
		if !b.results[i].Status.Terminal() {
			b.results[i].Status = models.StatusCancelled
			metrics.ScenariosTotal.WithLabelValues(string(models.StatusCancelled)).Inc()
		}
	}
	b.finished = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
	b.mu.Unlock()

	close(b.done)
}

// BatchScheduler fans scenario batches out to a bounded worker pool. Live
// scenarios go through the retrying client; synthetic ones through the
// simulation engine, which bypasses admission entirely.
type BatchScheduler struct {
	live        *RetryingClient
	sim         *SimulationEngine
	normalizer  *ScoreNormalizer
	concurrency int

	mu      sync.RWMutex
	batches map[string]*Batch

	log *slog.Logger
}

// NewBatchScheduler creates a scheduler. live may be nil when no backend is
// configured; submitting a live batch then fails at submission time.
func NewBatchScheduler(live *RetryingClient, sim *SimulationEngine, concurrency int, log *slog.Logger) *BatchScheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &BatchScheduler{
		live:        live,
		sim:         sim,
		normalizer:  NewScoreNormalizer(),
		concurrency: concurrency,
		batches:     make(map[string]*Batch),
		log:         log,
	}
}

// Submit validates the whole batch, registers it, and starts the run.
// Validation failures reject the batch before any worker is spawned.
func (s *BatchScheduler) Submit(scenarios []models.ScenarioConfig, mode Mode) (*Batch, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("batch must contain at least one scenario")
	}
	switch mode {
	case ModeLive, ModeSynthetic:
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if mode == ModeLive && s.live == nil {
		return nil, fmt.Errorf("no live capacity backend configured")
	}

	seen := make(map[string]bool, len(scenarios))
	for i := range scenarios {
		if err := scenarios[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid batch: %w", err)
		}
		if seen[scenarios[i].ID] {
			return nil, fmt.Errorf("invalid batch: duplicate scenario id %s", scenarios[i].ID)
		}
		seen[scenarios[i].ID] = true
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b := &Batch{
		ID:      uuid.NewString(),
		Mode:    mode,
		results: make([]models.ScenarioResult, len(scenarios)),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for i := range scenarios {
		b.results[i] = models.ScenarioResult{
			Config: scenarios[i],
			Status: models.StatusPending,
		}
	}

	s.mu.Lock()
	s.batches[b.ID] = b
	s.mu.Unlock()

	metrics.BatchesTotal.Inc()
	s.log.Info("Batch submitted", "batch_id", b.ID, "mode", mode, "scenarios", len(scenarios))

	go s.run(runCtx, b)
	return b, nil
}

// Batch returns a previously submitted batch by handle.
func (s *BatchScheduler) Batch(id string) (*Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	return b, ok
}

// run drives the worker pool to completion and finalizes the batch.
func (s *BatchScheduler) run(ctx context.Context, b *Batch) {
	start := time.Now()

	workers := s.concurrency
	if len(b.results) < workers {
		workers = len(b.results)
	}

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			s.worker(ctx, b)
			return nil
		})
	}
	g.Wait()

	b.finish()
	metrics.BatchDurationSeconds.Observe(time.Since(start).Seconds())
	s.log.Info("Batch finished",
		"batch_id", b.ID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// worker claims scenario indexes until the cursor runs past the end or the
// batch is cancelled. Claimed slots are owned exclusively by this worker.
func (s *BatchScheduler) worker(ctx context.Context, b *Batch) {
	for {
		idx := int(b.cursor.Add(1) - 1)
		if idx >= len(b.results) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.execute(ctx, b, idx)
	}
}

// execute runs one scenario to a terminal state. A failure here never
// propagates: it is captured in the slot and siblings continue untouched.
func (s *BatchScheduler) execute(ctx context.Context, b *Batch, idx int) {
	b.setSlot(idx, func(r *models.ScenarioResult) {
		r.Status = models.StatusLoading
		r.Recommendations = nil
		r.Error = ""
	})
	metrics.ScenariosInFlight.Inc()
	defer metrics.ScenariosInFlight.Dec()

	b.mu.RLock()
	cfg := b.results[idx].Config
	b.mu.RUnlock()
	set, err := s.executeScenario(ctx, cfg, b.Mode)

	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			b.setSlot(idx, func(r *models.ScenarioResult) {
				r.Status = models.StatusCancelled
			})
			metrics.ScenariosTotal.WithLabelValues(string(models.StatusCancelled)).Inc()
			return
		}
		s.log.Warn("Scenario failed",
			"scenario_id", cfg.ID,
			"region", cfg.Region,
			"error", err,
		)
		b.setSlot(idx, func(r *models.ScenarioResult) {
			r.Status = models.StatusError
			r.Error = err.Error()
		})
		metrics.ScenariosTotal.WithLabelValues(string(models.StatusError)).Inc()
		return
	}

	ranked := s.normalizer.Rank(set.Recommendations)
	b.setSlot(idx, func(r *models.ScenarioResult) {
		r.Status = models.StatusSuccess
		r.Recommendations = ranked
	})
	metrics.ScenariosTotal.WithLabelValues(string(models.StatusSuccess)).Inc()
}

// executeScenario selects the path for one scenario. Synthetic runs are pure
// computation and never touch the rate limiter.
func (s *BatchScheduler) executeScenario(ctx context.Context, cfg models.ScenarioConfig, mode Mode) (*models.RecommendationSet, error) {
	req := CapacityRequest{
		Region:      cfg.Region,
		Zones:       cfg.Zones,
		MachineType: cfg.MachineType,
		Count:       cfg.Count,
		Policy:      cfg.Policy,
	}
	if mode == ModeSynthetic {
		return s.sim.Query(ctx, req)
	}
	return s.live.Execute(ctx, req)
}

// RetryOne re-executes exactly one previously-failed scenario through the same
// path selection, leaving every other slot untouched.
func (s *BatchScheduler) RetryOne(batchID, scenarioID string) error {
	b, ok := s.Batch(batchID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBatch, batchID)
	}
	idx, ok := b.indexOf(scenarioID)
	if !ok {
		return fmt.Errorf("%w: batch %s has no scenario %s", ErrUnknownScenario, batchID, scenarioID)
	}

	// Check and claim in one critical section: moving the slot to pending
	// here means a concurrent retry of the same scenario observes a
	// non-failed status and is rejected, so the slot only ever has one
	// executor.
	b.mu.Lock()
	status := b.results[idx].Status
	if status != models.StatusError && status != models.StatusCancelled {
		b.mu.Unlock()
		return fmt.Errorf("%w: scenario %s is %s", ErrNotRetryable, scenarioID, status)
	}
	b.results[idx].Status = models.StatusPending
	b.mu.Unlock()

	go s.execute(context.Background(), b, idx)
	return nil
}
