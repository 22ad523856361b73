// ABOUTME: Unit tests for recommendation models and score normalization
// ABOUTME: Covers both historical score wire shapes and alias lookup

package models

import (
	"encoding/json"
	"testing"
)

func TestScoreSetUnmarshalFlatMap(t *testing.T) {
	data := []byte(`{"obtainability": 0.92, "uptime": 0.85}`)

	var s ScoreSet
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got := s.Lookup(ScoreObtainability); got != 0.92 {
		t.Errorf("Expected obtainability 0.92, got %v", got)
	}
	if got := s.Lookup(ScoreUptime); got != 0.85 {
		t.Errorf("Expected uptime 0.85, got %v", got)
	}
}

func TestScoreSetUnmarshalPairList(t *testing.T) {
	data := []byte(`[{"name":"obtainabilityScore","value":0.7},{"name":"uptimeScore","value":0.6}]`)

	var s ScoreSet
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got := s.Lookup(ScoreObtainability); got != 0.7 {
		t.Errorf("Expected obtainability 0.7 via camelCase alias, got %v", got)
	}
	if got := s.Lookup(ScoreUptime); got != 0.6 {
		t.Errorf("Expected uptime 0.6 via camelCase alias, got %v", got)
	}
}

func TestScoreSetUnmarshalRejectsGarbage(t *testing.T) {
	var s ScoreSet
	if err := json.Unmarshal([]byte(`"not scores"`), &s); err == nil {
		t.Error("Expected error for non-map non-list scores")
	}
}

func TestScoreSetLookupAliases(t *testing.T) {
	tests := []struct {
		name string
		set  ScoreSet
		kind string
		want float64
	}{
		{"canonical", ScoreSet{"obtainability": 0.5}, ScoreObtainability, 0.5},
		{"snake case", ScoreSet{"obtainability_score": 0.4}, ScoreObtainability, 0.4},
		{"camel case", ScoreSet{"uptimeScore": 0.3}, ScoreUptime, 0.3},
		{"absent returns zero", ScoreSet{"unrelated": 0.9}, ScoreObtainability, 0.0},
		{"canonical wins over alias", ScoreSet{"obtainability": 0.8, "obtainability_score": 0.1}, ScoreObtainability, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Lookup(tt.kind); got != tt.want {
				t.Errorf("Lookup(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestRecommendationTotalCount(t *testing.T) {
	rec := Recommendation{
		Shards: []Shard{
			{Zone: "us-east1-b", Count: 10},
			{Zone: "us-east1-c", Count: 10},
			{Zone: "us-east1-d", Count: 10},
		},
	}
	if got := rec.TotalCount(); got != 30 {
		t.Errorf("Expected total count 30, got %d", got)
	}
}

func TestRecommendationSetUnmarshalMixedShapes(t *testing.T) {
	// One recommendation with map scores, one with pair-list scores, as seen
	// when a batch mixes old and new backend responses.
	data := []byte(`{"recommendations": [
		{"scores": {"obtainability": 0.9}, "shards": [{"zone": "us-west1-a", "machine_type": "e2-standard-4", "count": 5, "provisioning_model": "standard"}]},
		{"scores": [{"name": "obtainability_score", "value": 0.4}], "shards": [{"zone": "us-west1-b", "machine_type": "e2-standard-4", "count": 5, "provisioning_model": "standard"}]}
	]}`)

	var set RecommendationSet
	if err := json.Unmarshal(data, &set); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(set.Recommendations) != 2 {
		t.Fatalf("Expected 2 recommendations, got %d", len(set.Recommendations))
	}
	if got := set.Recommendations[0].Obtainability(); got != 0.9 {
		t.Errorf("Expected first obtainability 0.9, got %v", got)
	}
	if got := set.Recommendations[1].Obtainability(); got != 0.4 {
		t.Errorf("Expected second obtainability 0.4, got %v", got)
	}
}
