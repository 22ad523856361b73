// ABOUTME: Deterministic synthetic capacity engine for offline analysis
// ABOUTME: Computes reproducible obtainability/uptime scores from seeded hashing

package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/capacityworks/scenario-engine/models"
)

const (
	// minObtainability is the floor below which a candidate placement is not
	// worth surfacing to the caller.
	minObtainability = 0.02

	// Large-request operational caps: deep pools rarely grant huge single bursts.
	gpuBurstLimit     = 50
	largeRequestLimit = 500
)

// scarcityTier classifies machine families 1 (abundant) through 5
// (allocation-only). GPU families use a separate, steeper pool table.
var cpuTiers = map[string]int{
	"e2": 1, "n1": 1,
	"n2": 2, "n2d": 2, "t2d": 2, "n4": 2,
	"c2": 3, "c2d": 3, "c3": 3,
	"c3d": 4, "m1": 4,
	"m2": 5, "m3": 5, "h3": 5, "x4": 5,
}

var gpuTiers = map[string]int{
	"g2": 3,
	"a2": 4,
	"a3": 5,
}

// poolDepths estimate the maximum concurrently-obtainable instance count in
// one zone, by tier. Indexed by tier-1.
var (
	cpuPoolDepths = [5]int{5000, 2000, 800, 200, 50}
	gpuPoolDepths = [5]int{400, 150, 60, 24, 8}
)

// regionCongestion is a fixed per-region modifier subtracted from the
// obtainability baseline.
var regionCongestion = map[string]float64{
	"us-central1":     0.02,
	"us-east1":        0.06,
	"us-east4":        0.05,
	"us-west1":        0.03,
	"us-west4":        0.04,
	"europe-west1":    0.05,
	"europe-west4":    0.04,
	"asia-east1":      0.07,
	"asia-southeast1": 0.08,
}

const defaultCongestion = 0.04

// zoneSuffixBias penalizes later-lettered zones slightly; newer zones in a
// region tend to carry less hardware.
var zoneSuffixBias = map[byte]float64{
	'a': 0.0,
	'b': 0.01,
	'c': 0.02,
	'd': 0.035,
	'f': 0.015,
}

// SimulationEngine produces RecommendationSets indistinguishable in shape from
// a live response, computed deterministically from the inputs: identical
// (scenario, zone) pairs always yield identical scores across runs and
// process restarts.
type SimulationEngine struct {
	normalizer *ScoreNormalizer
	latency    time.Duration // artificial delay emulating backend latency; 0 disables
}

// NewSimulationEngine creates a synthetic engine with no artificial latency.
func NewSimulationEngine() *SimulationEngine {
	return &SimulationEngine{normalizer: NewScoreNormalizer()}
}

// NewSimulationEngineWithLatency creates a synthetic engine that sleeps before
// answering, for demo realism. The delay is cosmetic, not semantic.
func NewSimulationEngineWithLatency(latency time.Duration) *SimulationEngine {
	return &SimulationEngine{normalizer: NewScoreNormalizer(), latency: latency}
}

// seededScore maps a seed string into [0,1) with a stable 32-bit rolling hash.
// The algorithm is shared by every caller so results are reproducible.
func seededScore(seed string) float64 {
	var h uint32
	for i := 0; i < len(seed); i++ {
		h = h*31 + uint32(seed[i])
	}
	return float64(h%1000) / 1000.0
}

// machineProfile returns the scarcity tier and GPU flag for a machine type.
// The family is the prefix before the first hyphen (e.g. "a2" of
// "a2-highgpu-1g"). Unknown families land mid-table.
func machineProfile(machineType string) (tier int, gpu bool) {
	family := strings.ToLower(machineType)
	if idx := strings.Index(family, "-"); idx > 0 {
		family = family[:idx]
	}

	if t, ok := gpuTiers[family]; ok {
		return t, true
	}
	if t, ok := cpuTiers[family]; ok {
		return t, false
	}
	return 3, false
}

// poolDepth returns the assumed maximum obtainable count in one zone.
func poolDepth(tier int, gpu bool) int {
	if tier < 1 {
		tier = 1
	}
	if tier > 5 {
		tier = 5
	}
	if gpu {
		return gpuPoolDepths[tier-1]
	}
	return cpuPoolDepths[tier-1]
}

// zoneScores holds the pair of scores for one candidate placement of some
// instance count in one zone.
type zoneScores struct {
	zone          string
	obtainability float64
	uptime        float64
}

// scoreZone computes the deterministic score pair for placing count instances
// of the scenario's machine type in one zone.
func (e *SimulationEngine) scoreZone(req CapacityRequest, zone string, count int) zoneScores {
	tier, gpu := machineProfile(req.MachineType)
	pool := poolDepth(tier, gpu)
	saturation := float64(count) / float64(pool)

	// Obtainability baseline: step function of saturation, tier-scaled when healthy
	var score float64
	switch {
	case saturation > 1.2:
		score = 0.01
	case saturation > 0.8:
		score = 0.15
	case saturation > 0.4:
		score = 0.50
	default:
		score = 0.98 - 0.12*float64(tier-1)
	}

	// Regional congestion and zone bias, amplified for larger requests: they
	// are more exposed to contention than small ones.
	congestion, ok := regionCongestion[req.Region]
	if !ok {
		congestion = defaultCongestion
	}
	suffix := zone[len(zone)-1]
	bias, ok := zoneSuffixBias[suffix]
	if !ok {
		bias = 0.02
	}
	penalty := congestion + bias
	if saturation > 0.2 {
		penalty *= 1.5
	}
	score -= penalty

	// Deterministic noise, up to ±7%
	seed := fmt.Sprintf("%s|%s|%d", zone, req.MachineType, count)
	score += (seededScore(seed+"|noise") - 0.5) * 0.14

	// Operational caps, applied after everything else and before clamping
	if gpu && req.Count > gpuBurstLimit && score > 0.25 {
		score = 0.25
	}
	if req.Count > largeRequestLimit {
		score -= 0.3
	}

	// Uptime follows obtainability: saturated pools are unstable, small
	// commodity requests are very stable.
	uptime := score
	if saturation > 0.5 && uptime > 0.30 {
		uptime = 0.30
	}
	if tier == 1 && saturation < 0.1 && uptime < 0.90 {
		uptime = 0.90
	}

	return zoneScores{
		zone:          zone,
		obtainability: clampScore(score),
		uptime:        clampScore(uptime),
	}
}

func clampScore(v float64) float64 {
	if v < 0.01 {
		return 0.01
	}
	if v > 0.99 {
		return 0.99
	}
	return v
}

// Query implements CapacitySource. An empty recommendation list means no
// candidate cleared the obtainability floor: a stockout, not a failure.
func (e *SimulationEngine) Query(ctx context.Context, req CapacityRequest) (*models.RecommendationSet, error) {
	if e.latency > 0 {
		select {
		case <-time.After(e.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	zones := req.Zones
	if len(zones) == 0 {
		zones = models.ZonesForRegion(req.Region)
	}

	// Score the full request against every candidate zone
	singles := make([]zoneScores, 0, len(zones))
	for _, zone := range zones {
		singles = append(singles, e.scoreZone(req, zone, req.Count))
	}

	var recs []models.Recommendation
	for _, zs := range singles {
		if zs.obtainability <= minObtainability {
			continue
		}
		recs = append(recs, models.Recommendation{
			Scores: models.ScoreSet{
				models.ScoreObtainability: zs.obtainability,
				models.ScoreUptime:        zs.uptime,
			},
			Shards: []models.Shard{{
				Zone:              zs.zone,
				MachineType:       req.MachineType,
				Count:             req.Count,
				ProvisioningModel: "standard",
			}},
		})
	}

	// Multi-zone split strategies for the ANY policy: an even spread across
	// the best three zones and across the best two. Regions with too few
	// zones simply skip the strategy.
	if req.Policy == models.PolicyAny {
		ranked := make([]zoneScores, len(singles))
		copy(ranked, singles)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].obtainability > ranked[j].obtainability
		})

		for _, ways := range []int{3, 2} {
			if rec, ok := e.splitRecommendation(req, ranked, ways); ok {
				recs = append(recs, rec)
			}
		}
	}

	return &models.RecommendationSet{
		Recommendations: e.normalizer.Rank(recs),
	}, nil
}

// splitRecommendation builds an even n-way split across the n best zones.
// Every participating zone must clear the obtainability floor for its share,
// otherwise the strategy is dropped.
func (e *SimulationEngine) splitRecommendation(req CapacityRequest, ranked []zoneScores, ways int) (models.Recommendation, bool) {
	if len(ranked) < ways {
		return models.Recommendation{}, false
	}

	counts := evenSplit(req.Count, ways)
	shards := make([]models.Shard, 0, ways)
	var obtainSum, uptimeSum float64

	for i := 0; i < ways; i++ {
		zs := e.scoreZone(req, ranked[i].zone, counts[i])
		if zs.obtainability <= minObtainability {
			return models.Recommendation{}, false
		}
		obtainSum += zs.obtainability
		uptimeSum += zs.uptime
		shards = append(shards, models.Shard{
			Zone:              zs.zone,
			MachineType:       req.MachineType,
			Count:             counts[i],
			ProvisioningModel: "standard",
		})
	}

	return models.Recommendation{
		Scores: models.ScoreSet{
			models.ScoreObtainability: obtainSum / float64(ways),
			models.ScoreUptime:        uptimeSum / float64(ways),
		},
		Shards: shards,
	}, true
}

// evenSplit divides total into n near-equal parts that sum exactly to total.
func evenSplit(total, n int) []int {
	base := total / n
	rem := total % n
	counts := make([]int, n)
	for i := range counts {
		counts[i] = base
		if i < rem {
			counts[i]++
		}
	}
	return counts
}
