// ABOUTME: Declarative route table for API endpoints
// ABOUTME: Defines all routes with their HTTP methods and handlers

package handlers

import "net/http"

// Route defines an API endpoint with its HTTP method and handler.
type Route struct {
	Method  string           // HTTP method (GET, POST, etc.)
	Path    string           // URL path pattern (e.g., "/api/v1/batches/{id}")
	Handler http.HandlerFunc // Handler function
}

// Routes returns all API routes for registration. Patterns use the standard
// mux syntax; the metrics endpoint is registered separately in main.
func (h *Handler) Routes() []Route {
	return []Route{
		// Health
		{Method: http.MethodGet, Path: "/api/v1/health", Handler: h.Health},

		// Batch lifecycle
		{Method: http.MethodPost, Path: "/api/v1/batches", Handler: h.SubmitBatch},
		{Method: http.MethodGet, Path: "/api/v1/batches/{id}", Handler: h.GetBatch},
		{Method: http.MethodPost, Path: "/api/v1/batches/{id}/retry", Handler: h.RetryScenario},
		{Method: http.MethodDelete, Path: "/api/v1/batches/{id}", Handler: h.CancelBatch},
	}
}
