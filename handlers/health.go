// ABOUTME: Health endpoint reporting backend availability
// ABOUTME: Always 200; consumers inspect per-backend fields for degraded mode

package handlers

import "net/http"

// Health reports which execution paths are available. Synthetic mode needs no
// backend and is always ready.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":         "ok",
		"synthetic_mode": "ok",
		"live_backend":   "not_configured",
		"vsphere":        "not_configured",
	}

	if h.cfg != nil {
		if h.cfg.LiveConfigured() {
			resp["live_backend"] = "ok"
		}
		if h.cfg.VSphereConfigured() {
			resp["vsphere"] = "ok"
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}
