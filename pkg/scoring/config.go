package scoring

import (
	"fmt"
	"math"
)

// Weights holds the relative weight of each scoring component.
// The seven weights must sum to exactly 1.0; this is validated once at
// calculator construction, never per call.
type Weights struct {
	CitationMomentum      float64 `yaml:"citation_momentum" json:"citation_momentum"`
	ImplementationQuality float64 `yaml:"implementation_quality" json:"implementation_quality"`
	AuthorCredibility     float64 `yaml:"author_credibility" json:"author_credibility"`
	Novelty               float64 `yaml:"novelty" json:"novelty"`
	Reproducibility       float64 `yaml:"reproducibility" json:"reproducibility"`
	CommunityEngagement   float64 `yaml:"community_engagement" json:"community_engagement"`
	Recency               float64 `yaml:"recency" json:"recency"`
}

// DefaultWeights returns the calibrated production weights.
func DefaultWeights() Weights {
	return Weights{
		CitationMomentum:      0.25,
		ImplementationQuality: 0.20,
		AuthorCredibility:     0.15,
		Novelty:               0.15,
		Reproducibility:       0.10,
		CommunityEngagement:   0.10,
		Recency:               0.05,
	}
}

const weightSumTolerance = 1e-9

// Validate checks that every weight is in [0,1] and the sum is 1.0.
func (w Weights) Validate() error {
	all := []struct {
		name  string
		value float64
	}{
		{"citation_momentum", w.CitationMomentum},
		{"implementation_quality", w.ImplementationQuality},
		{"author_credibility", w.AuthorCredibility},
		{"novelty", w.Novelty},
		{"reproducibility", w.Reproducibility},
		{"community_engagement", w.CommunityEngagement},
		{"recency", w.Recency},
	}

	sum := 0.0
	for _, c := range all {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("weight %s = %g out of [0,1]", c.name, c.value)
		}
		sum += c.value
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights sum to %g, want 1.0", sum)
	}
	return nil
}

// FreshnessConfig controls the conditional boost for young papers.
// The boost applies only when a paper is younger than AgeThresholdDays AND
// has raw traction of at least TractionFloor; this gate prevents brand-new,
// zero-signal papers from ranking on recency alone.
type FreshnessConfig struct {
	MaxBoost         float64 `yaml:"max_boost" json:"max_boost"`
	AgeThresholdDays int     `yaml:"age_threshold_days" json:"age_threshold_days"`
	TractionFloor    int     `yaml:"traction_floor" json:"traction_floor"`
}

// NoveltyConfig controls the semantic/keyword novelty blend.
type NoveltyConfig struct {
	Neighbors int `yaml:"neighbors" json:"neighbors"`
	// SemanticWeight is the share of the semantic-dissimilarity signal
	// when a similarity index is available; the remainder is keyword
	// novelty.
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	// FallbackDiscount scales keyword-only novelty when no similarity
	// index is available, reflecting reduced confidence.
	FallbackDiscount float64 `yaml:"fallback_discount" json:"fallback_discount"`
}

// Config is the full scoring configuration.
type Config struct {
	Weights             Weights         `yaml:"weights" json:"weights"`
	Freshness           FreshnessConfig `yaml:"freshness" json:"freshness"`
	RecencyHalfLifeDays float64         `yaml:"recency_half_life_days" json:"recency_half_life_days"`
	Novelty             NoveltyConfig   `yaml:"novelty" json:"novelty"`
}

// DefaultConfig returns production scoring defaults.
func DefaultConfig() Config {
	return Config{
		Weights: DefaultWeights(),
		Freshness: FreshnessConfig{
			MaxBoost:         1.5,
			AgeThresholdDays: 30,
			TractionFloor:    1,
		},
		RecencyHalfLifeDays: 23,
		Novelty: NoveltyConfig{
			Neighbors:        20,
			SemanticWeight:   0.7,
			FallbackDiscount: 0.8,
		},
	}
}

// Validate checks the whole scoring configuration.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.Freshness.MaxBoost < 1 {
		return fmt.Errorf("freshness max_boost %g < 1", c.Freshness.MaxBoost)
	}
	if c.Freshness.AgeThresholdDays < 0 {
		return fmt.Errorf("freshness age_threshold_days %d < 0", c.Freshness.AgeThresholdDays)
	}
	if c.RecencyHalfLifeDays <= 0 {
		return fmt.Errorf("recency_half_life_days %g must be positive", c.RecencyHalfLifeDays)
	}
	if c.Novelty.Neighbors < 1 {
		return fmt.Errorf("novelty neighbors %d < 1", c.Novelty.Neighbors)
	}
	if c.Novelty.SemanticWeight < 0 || c.Novelty.SemanticWeight > 1 {
		return fmt.Errorf("novelty semantic_weight %g out of [0,1]", c.Novelty.SemanticWeight)
	}
	if c.Novelty.FallbackDiscount < 0 || c.Novelty.FallbackDiscount > 1 {
		return fmt.Errorf("novelty fallback_discount %g out of [0,1]", c.Novelty.FallbackDiscount)
	}
	return nil
}
