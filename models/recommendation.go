// ABOUTME: Placement recommendations returned by capacity queries
// ABOUTME: Normalizes heterogeneous score payload shapes into one canonical map

package models

import (
	"encoding/json"
	"fmt"
)

// Score kinds understood by the engine
const (
	ScoreObtainability = "obtainability"
	ScoreUptime        = "uptime"
)

// scoreAliases maps a canonical score kind to the historical payload keys that
// may carry it. Older backends used camelCase and snake_case suffixed names.
var scoreAliases = map[string][]string{
	ScoreObtainability: {"obtainability", "obtainabilityScore", "obtainability_score"},
	ScoreUptime:        {"uptime", "uptimeScore", "uptime_score"},
}

// ScoreSet is the canonical score representation: a flat name->value map.
// It unmarshals from either of the two historical wire shapes:
//
//	{"obtainability": 0.9, "uptime": 0.8}
//	[{"name": "obtainability", "value": 0.9}, {"name": "uptime", "value": 0.8}]
//
// The shape branch happens once, here, at ingest.
type ScoreSet map[string]float64

// namedScore is the array-of-pairs wire element.
type namedScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// UnmarshalJSON accepts both wire shapes and folds them into a flat map.
func (s *ScoreSet) UnmarshalJSON(data []byte) error {
	var flat map[string]float64
	if err := json.Unmarshal(data, &flat); err == nil {
		*s = flat
		return nil
	}

	var pairs []namedScore
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("scores must be a map or a list of {name,value} pairs: %w", err)
	}
	out := make(ScoreSet, len(pairs))
	for _, p := range pairs {
		out[p.Name] = p.Value
	}
	*s = out
	return nil
}

// Lookup returns the value for a canonical score kind, trying each accepted
// alias in order. Absence returns 0, a valid low-confidence state.
func (s ScoreSet) Lookup(kind string) float64 {
	aliases, ok := scoreAliases[kind]
	if !ok {
		aliases = []string{kind}
	}
	for _, alias := range aliases {
		if v, found := s[alias]; found {
			return v
		}
	}
	return 0.0
}

// Shard is one placement unit: some of a scenario's instances in one zone.
type Shard struct {
	Zone              string `json:"zone"`
	MachineType       string `json:"machine_type"`
	Count             int    `json:"count"`
	ProvisioningModel string `json:"provisioning_model"`
}

// Recommendation is one candidate placement with its scores.
type Recommendation struct {
	Scores ScoreSet `json:"scores"`
	Shards []Shard  `json:"shards"`
}

// TotalCount returns the sum of shard counts. For a full allocation it equals
// the scenario's requested count.
func (r *Recommendation) TotalCount() int {
	total := 0
	for _, s := range r.Shards {
		total += s.Count
	}
	return total
}

// Obtainability is a convenience accessor for the ranking score.
func (r *Recommendation) Obtainability() float64 {
	return r.Scores.Lookup(ScoreObtainability)
}

// RecommendationSet is the response payload for one capacity query.
// An empty Recommendations list is a stockout, not a failure.
type RecommendationSet struct {
	Recommendations []Recommendation `json:"recommendations"`
}
