// ABOUTME: Token-bucket admission gate bounding outbound request rate
// ABOUTME: Lazily refills from wall-clock time; shared by all batch workers

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// refillEpsilon is added to the computed wait so a sleeper wakes just after
// the next token becomes available rather than just before.
const refillEpsilon = time.Millisecond

// Bucket is a token bucket. Admission never fails; it only delays.
// The refill/consume sequence runs as one atomic unit under mu so two
// concurrent admitters can never both take the last token.
type Bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	ratePerMs  float64 // tokens per millisecond
	lastRefill time.Time
}

// NewBucket creates a bucket that admits at most capacity calls per window.
// The reference configuration for this engine is capacity 120 over 60s,
// a sustained rate of 2 admissions per second.
func NewBucket(capacity int, window time.Duration) *Bucket {
	return &Bucket{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		ratePerMs:  float64(capacity) / float64(window.Milliseconds()),
		lastRefill: time.Now(),
	}
}

// Admit consumes one token if available. Non-blocking.
func (b *Bucket) Admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(time.Now())
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// AwaitAdmit blocks until a token is available, then consumes it.
// The wait is computed from the current deficit and re-checked in a loop,
// since concurrent consumers may race for the freed token.
func (b *Bucket) AwaitAdmit(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refill(time.Now())
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1-b.tokens)/b.ratePerMs)*time.Millisecond + refillEpsilon
		b.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Available returns the current token count after refill. Observability only;
// the value may be stale by the time the caller acts on it.
func (b *Bucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(time.Now())
	return b.tokens
}

// refill credits tokens for elapsed wall-clock time. Caller must hold mu.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	b.tokens += float64(elapsed) / float64(time.Millisecond) * b.ratePerMs
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
