// ABOUTME: Shared API types and the static region/zone catalog
// ABOUTME: JSON-serializable structures matching host application expectations

package models

// regionZones is the static location catalog used by the synthetic path and as
// a fallback when the live catalog lookup fails. Suffixes follow the usual
// cloud convention of region + letter.
var regionZones = map[string][]string{
	"us-central1":     {"a", "b", "c", "f"},
	"us-east1":        {"b", "c", "d"},
	"us-east4":        {"a", "b", "c"},
	"us-west1":        {"a", "b", "c"},
	"us-west4":        {"a", "b", "c"},
	"europe-west1":    {"b", "c", "d"},
	"europe-west4":    {"a", "b", "c"},
	"asia-east1":      {"a", "b", "c"},
	"asia-southeast1": {"a", "b", "c"},
}

// ZonesForRegion returns the fully-qualified zone names for a region.
// Unknown regions get the conventional a/b/c suffixes so synthetic analysis
// still produces candidates.
func ZonesForRegion(region string) []string {
	suffixes, ok := regionZones[region]
	if !ok {
		suffixes = []string{"a", "b", "c"}
	}
	zones := make([]string, len(suffixes))
	for i, s := range suffixes {
		zones[i] = region + "-" + s
	}
	return zones
}

// ErrorResponse represents an error response on the HTTP surface
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}
