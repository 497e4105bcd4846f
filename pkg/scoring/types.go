// Package scoring implements the Paper Radar multi-factor ranking score.
// It evaluates one paper's metrics against its category baseline and
// produces a normalized, explainable score breakdown.
package scoring

import (
	"math"
	"time"
)

// Breakdown is the complete scoring output for one paper.
// Every component and the total are in [0,1]. Immutable once computed.
type Breakdown struct {
	PaperID string  `json:"paper_id"`
	Total   float64 `json:"total"`

	CitationMomentum      float64 `json:"citation_momentum"`
	ImplementationQuality float64 `json:"implementation_quality"`
	AuthorCredibility     float64 `json:"author_credibility"`
	Novelty               float64 `json:"novelty"`
	Reproducibility       float64 `json:"reproducibility"`
	CommunityEngagement   float64 `json:"community_engagement"`
	Recency               float64 `json:"recency"`

	// FreshnessBoost is the multiplier applied to the weighted sum; 1.0
	// when the age/traction gate does not apply.
	FreshnessBoost float64 `json:"freshness_boost"`

	// FieldPercentile is the paper's combined citation/velocity standing
	// within its category, for display; it does not feed the total.
	FieldPercentile float64 `json:"field_percentile"`

	// BaselineInsufficient marks scores normalized against the global
	// fallback baseline, so readers can discount confidence.
	BaselineInsufficient bool `json:"baseline_insufficient,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// round4 keeps breakdowns stable across runs so identical inputs serialize
// to identical bytes.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
