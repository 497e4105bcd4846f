package scoring

import (
	"fmt"
	"time"

	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/paper"
	"github.com/paperradar/paperradar/pkg/simindex"
)

// Calculator scores papers against field baselines. It holds no mutable
// state: identical (metrics, baseline, now) inputs always produce identical
// breakdowns.
type Calculator struct {
	cfg   Config
	index simindex.Index // optional; nil enables keyword-only novelty
}

// New validates the configuration and creates a Calculator. The similarity
// index may be nil, in which case novelty falls back to keyword
// dissimilarity with a confidence discount.
func New(cfg Config, index simindex.Index) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	return &Calculator{cfg: cfg, index: index}, nil
}

// WithIndex returns a copy of the calculator bound to a different
// similarity index. The ranking cycle uses this to score against an index
// rebuilt from the current population.
func (c *Calculator) WithIndex(index simindex.Index) *Calculator {
	cp := *c
	cp.index = index
	return &cp
}

// Score computes the full breakdown for one paper. now is the cycle
// timestamp; passing it explicitly keeps scoring deterministic within a
// cycle and in tests.
func (c *Calculator) Score(m paper.Metrics, b baseline.FieldBaseline, now time.Time) Breakdown {
	w := c.cfg.Weights

	momentum := CitationMomentum(m, b)
	impl := ImplementationQuality(m, b)
	author := AuthorCredibility(m, b)
	novelty := c.noveltyScore(m)
	repro := Reproducibility(m)
	community := CommunityEngagement(m, b)
	recency := Recency(m, now, c.cfg.RecencyHalfLifeDays)

	raw := w.CitationMomentum*momentum +
		w.ImplementationQuality*impl +
		w.AuthorCredibility*author +
		w.Novelty*novelty +
		w.Reproducibility*repro +
		w.CommunityEngagement*community +
		w.Recency*recency

	boost := FreshnessBoost(m, now, c.cfg.Freshness)

	return Breakdown{
		PaperID:               m.PaperID,
		Total:                 round4(clamp01(raw * boost)),
		CitationMomentum:      round4(momentum),
		ImplementationQuality: round4(impl),
		AuthorCredibility:     round4(author),
		Novelty:               round4(novelty),
		Reproducibility:       round4(repro),
		CommunityEngagement:   round4(community),
		Recency:               round4(recency),
		FreshnessBoost:        round4(boost),
		FieldPercentile:       round4(FieldPercentile(m, b)),
		BaselineInsufficient:  b.Insufficient,
		ComputedAt:            now,
	}
}
