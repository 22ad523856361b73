// ABOUTME: Tests for the deterministic synthetic capacity engine
// ABOUTME: Covers reproducibility, scarcity behavior, split strategies, and stockout

package services

import (
	"context"
	"reflect"
	"testing"

	"github.com/capacityworks/scenario-engine/models"
)

func TestSimulationDeterminism(t *testing.T) {
	engine := NewSimulationEngine()
	req := CapacityRequest{
		Region:      "us-east1",
		MachineType: "n2-standard-8",
		Count:       120,
		Policy:      models.PolicyAny,
	}

	first, err := engine.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("first query failed: %v", err)
	}
	second, err := engine.Query(context.Background(), req)
	if err != nil {
		t.Fatalf("second query failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results for identical requests, got %+v vs %+v", first, second)
	}

	// A fresh engine instance must agree too: no per-process state
	other, err := NewSimulationEngine().Query(context.Background(), req)
	if err != nil {
		t.Fatalf("query on fresh engine failed: %v", err)
	}
	if !reflect.DeepEqual(first, other) {
		t.Errorf("expected identical results across engine instances")
	}
}

func TestSimulationAbundantSmallRequest(t *testing.T) {
	engine := NewSimulationEngine()
	set, err := engine.Query(context.Background(), CapacityRequest{
		Region:      "us-central1",
		MachineType: "e2-standard-4",
		Count:       5,
		Policy:      models.PolicyAnySingleZone,
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(set.Recommendations) == 0 {
		t.Fatal("expected recommendations for a small commodity request, got none")
	}

	top := set.Recommendations[0]
	if got := top.Obtainability(); got < 0.85 {
		t.Errorf("expected high obtainability for tier-1 small request, got %.3f", got)
	}
	if got := top.Scores.Lookup(models.ScoreUptime); got < 0.90 {
		t.Errorf("expected uptime floor for unsaturated commodity pool, got %.3f", got)
	}
}

func TestSimulationGPUBurstCap(t *testing.T) {
	engine := NewSimulationEngine()
	set, err := engine.Query(context.Background(), CapacityRequest{
		Region:      "us-central1",
		MachineType: "g2-standard-12",
		Count:       60,
		Policy:      models.PolicyAny,
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	for _, rec := range set.Recommendations {
		if got := rec.Obtainability(); got > 0.25 {
			t.Errorf("expected GPU burst above %d instances capped at 0.25, got %.3f", gpuBurstLimit, got)
		}
	}
}

func TestSimulationLargeRequestPenalty(t *testing.T) {
	engine := NewSimulationEngine()

	small, err := engine.Query(context.Background(), CapacityRequest{
		Region:      "us-central1",
		MachineType: "e2-standard-4",
		Count:       400,
		Policy:      models.PolicyAnySingleZone,
	})
	if err != nil {
		t.Fatalf("small query failed: %v", err)
	}
	large, err := engine.Query(context.Background(), CapacityRequest{
		Region:      "us-central1",
		MachineType: "e2-standard-4",
		Count:       600,
		Policy:      models.PolicyAnySingleZone,
	})
	if err != nil {
		t.Fatalf("large query failed: %v", err)
	}
	if len(small.Recommendations) == 0 || len(large.Recommendations) == 0 {
		t.Fatal("expected recommendations for both request sizes")
	}

	if small.Recommendations[0].Obtainability() <= large.Recommendations[0].Obtainability() {
		t.Errorf("expected >%d-instance requests to score below comparable smaller ones, got %.3f vs %.3f",
			largeRequestLimit,
			small.Recommendations[0].Obtainability(),
			large.Recommendations[0].Obtainability(),
		)
	}
}

func TestSimulationAnySplitStrategies(t *testing.T) {
	engine := NewSimulationEngine()
	set, err := engine.Query(context.Background(), CapacityRequest{
		Region:      "us-central1",
		MachineType: "e2-standard-2",
		Count:       30,
		Policy:      models.PolicyAny,
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	shardArities := make(map[int]bool)
	for _, rec := range set.Recommendations {
		shardArities[len(rec.Shards)] = true
		if got := rec.TotalCount(); got != 30 {
			t.Errorf("expected every recommendation to cover the full count, got %d across %d shards", got, len(rec.Shards))
		}
		zones := make(map[string]bool)
		for _, shard := range rec.Shards {
			if zones[shard.Zone] {
				t.Errorf("expected distinct zones within one recommendation, got %s twice", shard.Zone)
			}
			zones[shard.Zone] = true
		}
	}

	for _, want := range []int{1, 2, 3} {
		if !shardArities[want] {
			t.Errorf("expected a %d-shard recommendation under the spread policy", want)
		}
	}

	for i := 1; i < len(set.Recommendations); i++ {
		prev := set.Recommendations[i-1].Obtainability()
		cur := set.Recommendations[i].Obtainability()
		if cur > prev {
			t.Errorf("expected descending obtainability order, got %.3f before %.3f", prev, cur)
		}
	}
}

func TestSimulationSingleZonePolicyNoSplits(t *testing.T) {
	engine := NewSimulationEngine()
	set, err := engine.Query(context.Background(), CapacityRequest{
		Region:      "us-central1",
		MachineType: "e2-standard-2",
		Count:       30,
		Policy:      models.PolicyAnySingleZone,
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(set.Recommendations) == 0 {
		t.Fatal("expected single-zone recommendations, got none")
	}
	for _, rec := range set.Recommendations {
		if len(rec.Shards) != 1 {
			t.Errorf("expected exactly one shard per recommendation, got %d", len(rec.Shards))
		}
	}
}

func TestSimulationStockout(t *testing.T) {
	engine := NewSimulationEngine()
	set, err := engine.Query(context.Background(), CapacityRequest{
		Region:      "asia-southeast1",
		MachineType: "x4-megamem-960",
		Count:       1000,
		Policy:      models.PolicyAny,
	})
	if err != nil {
		t.Fatalf("expected stockout to be a valid result, got error: %v", err)
	}
	if len(set.Recommendations) != 0 {
		t.Errorf("expected no recommendations for an unobtainable request, got %d", len(set.Recommendations))
	}
}

func TestSimulationExplicitZones(t *testing.T) {
	engine := NewSimulationEngine()
	zones := []string{"us-east1-b", "us-east1-c"}
	set, err := engine.Query(context.Background(), CapacityRequest{
		Region:      "us-east1",
		Zones:       zones,
		MachineType: "n2-standard-4",
		Count:       10,
		Policy:      models.PolicyAnySingleZone,
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	for _, rec := range set.Recommendations {
		for _, shard := range rec.Shards {
			if shard.Zone != zones[0] && shard.Zone != zones[1] {
				t.Errorf("expected shards confined to requested zones, got %s", shard.Zone)
			}
		}
	}
}

func TestMachineProfile(t *testing.T) {
	tests := []struct {
		machineType string
		wantTier    int
		wantGPU     bool
	}{
		{"e2-standard-4", 1, false},
		{"n2d-highmem-32", 2, false},
		{"c3-standard-88", 3, false},
		{"m3-ultramem-128", 5, false},
		{"g2-standard-12", 3, true},
		{"a3-highgpu-8g", 5, true},
		{"unknown-type-1", 3, false},
	}
	for _, tt := range tests {
		tier, gpu := machineProfile(tt.machineType)
		if tier != tt.wantTier || gpu != tt.wantGPU {
			t.Errorf("machineProfile(%s): expected tier %d gpu %v, got tier %d gpu %v",
				tt.machineType, tt.wantTier, tt.wantGPU, tier, gpu)
		}
	}
}

func TestEvenSplit(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{30, 3, []int{10, 10, 10}},
		{10, 3, []int{4, 3, 3}},
		{7, 2, []int{4, 3}},
		{2, 2, []int{1, 1}},
	}
	for _, tt := range tests {
		got := evenSplit(tt.total, tt.n)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("evenSplit(%d, %d): expected %v, got %v", tt.total, tt.n, got, tt.want)
		}
		sum := 0
		for _, c := range got {
			sum += c
		}
		if sum != tt.total {
			t.Errorf("evenSplit(%d, %d): parts sum to %d", tt.total, tt.n, sum)
		}
	}
}
