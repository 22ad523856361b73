// ABOUTME: Score normalization and ranking for recommendation lists
// ABOUTME: Tolerates historical score shapes; rank is a stable descending sort

package services

import (
	"sort"

	"github.com/capacityworks/scenario-engine/models"
)

// ScoreNormalizer extracts canonical scores from heterogeneous recommendation
// payloads and orders recommendation lists. It never errors: an absent score
// reads as 0.0, a valid low-confidence state the caller must handle.
type ScoreNormalizer struct{}

func NewScoreNormalizer() *ScoreNormalizer {
	return &ScoreNormalizer{}
}

// ScoreOf returns a recommendation's value for a canonical score kind,
// resolving the accepted aliases for that kind.
func (n *ScoreNormalizer) ScoreOf(rec models.Recommendation, kind string) float64 {
	return rec.Scores.Lookup(kind)
}

// Rank returns a copy of recs sorted descending by obtainability. The sort is
// stable so ties retain their original relative order and simulation output
// stays reproducible across runs with identical scores.
func (n *ScoreNormalizer) Rank(recs []models.Recommendation) []models.Recommendation {
	if len(recs) == 0 {
		return recs
	}
	out := make([]models.Recommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return n.ScoreOf(out[i], models.ScoreObtainability) > n.ScoreOf(out[j], models.ScoreObtainability)
	})
	return out
}
