// ABOUTME: HTTP handlers for batch lifecycle endpoints
// ABOUTME: Submit, snapshot, per-scenario retry, and cancellation

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/capacityworks/scenario-engine/models"
	"github.com/capacityworks/scenario-engine/services"
)

// BatchRequest is the submission payload.
type BatchRequest struct {
	Scenarios []models.ScenarioConfig `json:"scenarios"`
	Mode      services.Mode           `json:"mode"`
}

// BatchResponse summarizes an accepted batch.
type BatchResponse struct {
	BatchID   string        `json:"batch_id"`
	Mode      services.Mode `json:"mode"`
	Scenarios int           `json:"scenarios"`
}

// BatchSnapshot is the full state of a batch at one point in time.
type BatchSnapshot struct {
	BatchID   string                  `json:"batch_id"`
	Mode      services.Mode           `json:"mode"`
	Complete  bool                    `json:"complete"`
	Scenarios []models.ScenarioResult `json:"scenarios"`
}

// SubmitBatch validates and enqueues a scenario batch. The whole batch is
// rejected before any work starts if any scenario is invalid.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = services.ModeSynthetic
	}

	batch, err := h.scheduler.Submit(req.Scenarios, req.Mode)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusAccepted, BatchResponse{
		BatchID:   batch.ID,
		Mode:      batch.Mode,
		Scenarios: len(req.Scenarios),
	})
}

// GetBatch returns the current snapshot of a batch.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.scheduler.Batch(r.PathValue("id"))
	if !ok {
		h.writeError(w, "Batch not found", http.StatusNotFound)
		return
	}

	snapshot := batch.Snapshot()
	complete := true
	for _, result := range snapshot {
		if !result.Status.Terminal() {
			complete = false
			break
		}
	}

	h.writeJSON(w, http.StatusOK, BatchSnapshot{
		BatchID:   batch.ID,
		Mode:      batch.Mode,
		Complete:  complete,
		Scenarios: snapshot,
	})
}

// RetryScenario re-runs a single failed scenario from a batch.
func (h *Handler) RetryScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ScenarioID == "" {
		h.writeError(w, "Request body must include scenario_id", http.StatusBadRequest)
		return
	}

	err := h.scheduler.RetryOne(r.PathValue("id"), req.ScenarioID)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusAccepted, map[string]string{
			"scenario_id": req.ScenarioID,
			"status":      string(models.StatusPending),
		})
	case errors.Is(err, services.ErrUnknownBatch), errors.Is(err, services.ErrUnknownScenario):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrNotRetryable):
		h.writeError(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Scenario retry failed", "error", err)
		h.writeError(w, "Retry failed", http.StatusInternalServerError)
	}
}

// CancelBatch stops a running batch. Scenarios that have not finished are
// marked cancelled once in-flight calls unwind.
func (h *Handler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.scheduler.Batch(r.PathValue("id"))
	if !ok {
		h.writeError(w, "Batch not found", http.StatusNotFound)
		return
	}

	batch.Cancel()
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"batch_id": batch.ID,
		"status":   "cancelling",
	})
}
