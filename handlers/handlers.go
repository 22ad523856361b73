// ABOUTME: HTTP handlers for the scenario analysis API
// ABOUTME: Holds shared handler state and JSON response helpers

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/capacityworks/scenario-engine/cache"
	"github.com/capacityworks/scenario-engine/config"
	"github.com/capacityworks/scenario-engine/models"
	"github.com/capacityworks/scenario-engine/services"
)

type Handler struct {
	cfg       *config.Config
	cache     *cache.Cache
	scheduler *services.BatchScheduler
}

func NewHandler(cfg *config.Config, c *cache.Cache, scheduler *services.BatchScheduler) *Handler {
	return &Handler{
		cfg:       cfg,
		cache:     c,
		scheduler: scheduler,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// EnableCORS allows browser dashboards served from another origin to call
// the API.
func (h *Handler) EnableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
