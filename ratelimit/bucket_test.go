// ABOUTME: Unit tests for the token-bucket admission gate
// ABOUTME: Covers burst drain, lazy refill, blocking admission timing, and races

package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdmitDrainsBurstCapacity(t *testing.T) {
	b := NewBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !b.Admit() {
			t.Fatalf("Admission %d should succeed within burst capacity", i+1)
		}
	}

	if b.Admit() {
		t.Error("Admission past capacity should be denied")
	}
}

func TestAdmitRefillsOverTime(t *testing.T) {
	// 10 tokens per 100ms => 1 token per 10ms
	b := NewBucket(10, 100*time.Millisecond)
	for i := 0; i < 10; i++ {
		b.Admit()
	}
	if b.Admit() {
		t.Fatal("Bucket should be empty after draining")
	}

	time.Sleep(25 * time.Millisecond)

	if !b.Admit() {
		t.Error("Expected at least one token after refill interval")
	}
}

func TestAvailableNeverExceedsCapacity(t *testing.T) {
	b := NewBucket(5, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if got := b.Available(); got > 5 {
		t.Errorf("Available() = %v, must not exceed capacity 5", got)
	}
}

func TestAwaitAdmitBlocksAtSustainedRate(t *testing.T) {
	// Capacity 2, window 200ms => 10 tokens/sec. Admitting 4 means 2 burst
	// plus 2 waited, so elapsed must be at least (4-2)/10 = 200ms.
	b := NewBucket(2, 200*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := b.AwaitAdmit(ctx); err != nil {
			t.Fatalf("AwaitAdmit failed: %v", err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 200*time.Millisecond {
		t.Errorf("4 admissions through a 2-cap 10/s bucket took %v, expected >= 200ms", elapsed)
	}
}

func TestAwaitAdmitHonorsCancellation(t *testing.T) {
	// 1 token per 10s: after the burst token, waits are long
	b := NewBucket(1, 10*time.Second)
	if !b.Admit() {
		t.Fatal("First admission should succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := b.AwaitAdmit(ctx); err == nil {
		t.Error("Expected context error when cancelled while waiting")
	}
}

func TestConcurrentAdmitNeverOverdraws(t *testing.T) {
	b := NewBucket(5, time.Minute)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Admit() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got > 5 {
		t.Errorf("%d admissions from a 5-token bucket; concurrent admitters overdrew", got)
	}
}
