// ABOUTME: Helper for composing middleware onto route handlers
// ABOUTME: Declaration order is wrapping order; the first wrapper runs first

package middleware

import "net/http"

// Chain wraps a handler with the given middleware, first one outermost. Route
// registration relies on this ordering: CORS preflight short-circuits before
// the request is logged, and logging records requests the rate limiter
// rejects.
func Chain(h http.HandlerFunc, wrappers ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(wrappers) - 1; i >= 0; i-- {
		h = wrappers[i](h)
	}
	return h
}
