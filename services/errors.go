// ABOUTME: Transport failure taxonomy for capacity-query calls
// ABOUTME: Splits transient (retryable) from permanent failures; stockout is not an error

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/sony/gobreaker"
)

// APIError represents a capacity-backend response with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("capacity API %d: %s", e.StatusCode, e.Message)
}

// IsTransient reports whether an error is worth retrying. Rate-limited and
// server-side failures recover; client errors never do, and retrying them
// wastes rate-limiter budget the rest of the batch needs.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// A cancelled batch must not schedule further retries. A per-call
	// deadline expiry, by contrast, is an ordinary transient failure.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// An open breaker means the backend is already known-bad; retrying
	// immediately would only observe the same open state.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 && apiErr.StatusCode < 600 {
			return true
		}
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if apiErr.StatusCode == http.StatusRequestTimeout {
			return true
		}
	}

	return false
}
