// ABOUTME: Data models for capacity scenarios and their lifecycle state
// ABOUTME: ScenarioConfig is immutable input; ScenarioResult is the per-run slot

package models

import (
	"fmt"
	"strings"
)

// PlacementPolicy controls how a scenario's instances may be spread across zones
type PlacementPolicy string

const (
	// PolicyAny allows multi-zone placements (split strategies are considered)
	PolicyAny PlacementPolicy = "ANY"
	// PolicyAnySingleZone requires all instances in one zone
	PolicyAnySingleZone PlacementPolicy = "ANY_SINGLE_ZONE"
)

// ScenarioConfig describes one analysis unit. Immutable once submitted.
type ScenarioConfig struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Region      string          `json:"region"`
	Zones       []string        `json:"zones,omitempty"` // optional sub-location constraint
	MachineType string          `json:"machine_type"`
	Count       int             `json:"count"`
	Policy      PlacementPolicy `json:"policy"`

	// Classification tags, passed through to collaborators untouched
	WorkloadProfile string `json:"workload_profile,omitempty"`
	GrowthScenario  string `json:"growth_scenario,omitempty"`
}

// Validate rejects malformed scenarios before any batch work starts.
func (c *ScenarioConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("scenario id cannot be empty")
	}
	if strings.TrimSpace(c.Region) == "" {
		return fmt.Errorf("scenario %s: region cannot be empty", c.ID)
	}
	if strings.TrimSpace(c.MachineType) == "" {
		return fmt.Errorf("scenario %s: machine type cannot be empty", c.ID)
	}
	if c.Count <= 0 {
		return fmt.Errorf("scenario %s: count must be positive, got %d", c.ID, c.Count)
	}
	switch c.Policy {
	case PolicyAny, PolicyAnySingleZone:
	default:
		return fmt.Errorf("scenario %s: unknown placement policy %q", c.ID, c.Policy)
	}
	for _, z := range c.Zones {
		if !strings.HasPrefix(z, c.Region) {
			return fmt.Errorf("scenario %s: zone %s is not in region %s", c.ID, z, c.Region)
		}
	}
	return nil
}

// ScenarioStatus is the lifecycle state of one scenario within a batch.
// Transitions: pending -> loading -> success | error; cancellation moves any
// non-terminal scenario to cancelled.
type ScenarioStatus string

const (
	StatusPending   ScenarioStatus = "pending"
	StatusLoading   ScenarioStatus = "loading"
	StatusSuccess   ScenarioStatus = "success"
	StatusError     ScenarioStatus = "error"
	StatusCancelled ScenarioStatus = "cancelled"
)

// Terminal reports whether the status is final for the run.
func (s ScenarioStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusCancelled
}

// ScenarioResult is the per-scenario slot owned by exactly one worker during a
// batch run. A success with zero recommendations is a stockout, not an error.
type ScenarioResult struct {
	Config          ScenarioConfig   `json:"config"`
	Status          ScenarioStatus   `json:"status"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// Stockout reports whether the scenario searched successfully and found nothing.
func (r *ScenarioResult) Stockout() bool {
	return r.Status == StatusSuccess && len(r.Recommendations) == 0
}
