// ABOUTME: Unit tests for the TTL cache
// ABOUTME: Covers expiration, clearing, and single-flight fetch deduplication

package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(1 * time.Second)

	c.Set("key1", "value1")

	val, found := c.Get("key1")
	if !found {
		t.Error("Expected to find key1")
	}
	if val != "value1" {
		t.Errorf("Expected value1, got %v", val)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := New(100 * time.Millisecond)

	c.Set("key1", "value1")

	// Should exist immediately
	_, found := c.Get("key1")
	if !found {
		t.Error("Expected to find key1 immediately")
	}

	// Wait for expiration
	time.Sleep(150 * time.Millisecond)

	_, found = c.Get("key1")
	if found {
		t.Error("Expected key1 to be expired")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New(1 * time.Second)

	c.Set("key1", "value1")
	c.Clear("key1")

	_, found := c.Get("key1")
	if found {
		t.Error("Expected key1 to be cleared")
	}
}

func TestCache_GetOrFetchPopulates(t *testing.T) {
	c := New(1 * time.Second)

	val, err := c.GetOrFetch("zones:us-east1", func() (interface{}, error) {
		return []string{"us-east1-b", "us-east1-c"}, nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch failed: %v", err)
	}
	zones := val.([]string)
	if len(zones) != 2 {
		t.Errorf("Expected 2 zones, got %d", len(zones))
	}

	// Second call must hit the cache, not the fetcher
	_, err = c.GetOrFetch("zones:us-east1", func() (interface{}, error) {
		t.Error("Fetcher should not run for a cached key")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch failed on cached key: %v", err)
	}
}

func TestCache_GetOrFetchDoesNotCacheErrors(t *testing.T) {
	c := New(1 * time.Second)

	_, err := c.GetOrFetch("key1", func() (interface{}, error) {
		return nil, errors.New("backend down")
	})
	if err == nil {
		t.Fatal("Expected fetch error to propagate")
	}

	val, err := c.GetOrFetch("key1", func() (interface{}, error) {
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch after failure: %v", err)
	}
	if val != "recovered" {
		t.Errorf("Expected recovered value, got %v", val)
	}
}

func TestCache_GetOrFetchDeduplicatesConcurrentFetches(t *testing.T) {
	c := New(1 * time.Second)

	var fetches atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrFetch("shared", func() (interface{}, error) {
				fetches.Add(1)
				time.Sleep(20 * time.Millisecond)
				return "v", nil
			})
			if err != nil {
				t.Errorf("GetOrFetch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Errorf("Expected exactly 1 fetch for 20 concurrent callers, got %d", got)
	}
}
