// ABOUTME: Tests for middleware composition
// ABOUTME: Verifies declaration order maps to execution order

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}
	handler := func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}

	wrapped := Chain(handler, tag("outer"), tag("middle"), tag("inner"))
	wrapped(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"outer", "middle", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestChain_NoMiddleware(t *testing.T) {
	called := false
	wrapped := Chain(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	wrapped(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("expected bare handler to be invoked")
	}
}
