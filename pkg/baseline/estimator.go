// Package baseline computes per-category normalization statistics over a
// rolling population of papers. Baselines are rebuilt from scratch each
// ranking cycle rather than updated incrementally.
package baseline

import (
	"math"
	"sort"
	"time"

	"github.com/paperradar/paperradar/pkg/paper"
)

// Stats holds order statistics for one raw metric. Count-like metrics
// (citations, velocity, stars, social) are stored in log1p space to reduce
// skew; the author signal is stored raw.
type Stats struct {
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
}

// FieldBaseline is the per-category statistical reference used to normalize
// raw metrics. Owned by the estimator; read-only to consumers.
type FieldBaseline struct {
	Category     string    `json:"category"`
	Citations    Stats     `json:"citations"`
	Velocity     Stats     `json:"velocity"`
	Stars        Stats     `json:"stars"`
	Social       Stats     `json:"social"`
	AuthorSignal Stats     `json:"author_signal"`
	SampleSize   int       `json:"sample_size"`
	Insufficient bool      `json:"insufficient"` // true when the global fallback applies
	ComputedAt   time.Time `json:"computed_at"`
}

// Set is the output of one baseline computation: per-category baselines plus
// the cross-category global fallback.
type Set struct {
	ByCategory map[string]FieldBaseline `json:"by_category"`
	Global     FieldBaseline            `json:"global"`
	Window     time.Duration            `json:"window"`
	MinSample  int                      `json:"min_sample"`
}

// For returns the baseline for a category. Categories below the minimum
// sample threshold (or unknown categories) get the global baseline with
// Insufficient set so consumers can discount confidence.
func (s *Set) For(category string) FieldBaseline {
	if b, ok := s.ByCategory[category]; ok && !b.Insufficient {
		return b
	}
	g := s.Global
	g.Category = category
	g.Insufficient = true
	return g
}

// Estimator computes baseline sets. The zero value is not usable; construct
// with New.
type Estimator struct {
	window    time.Duration
	minSample int
	now       func() time.Time
}

// New creates an Estimator with the given rolling window and minimum
// per-category sample size. A nil clock defaults to time.Now.
func New(window time.Duration, minSample int, clock func() time.Time) *Estimator {
	if clock == nil {
		clock = time.Now
	}
	if minSample < 1 {
		minSample = 1
	}
	return &Estimator{window: window, minSample: minSample, now: clock}
}

// Compute partitions the population by category and computes order
// statistics per raw metric within the rolling window. Deterministic: the
// same population snapshot always yields the same Set.
func (e *Estimator) Compute(population []paper.Metrics) *Set {
	now := e.now()
	cutoff := now.Add(-e.window)

	var inWindow []paper.Metrics
	byCategory := make(map[string][]paper.Metrics)
	for _, m := range population {
		if m.PublishedAt.Before(cutoff) {
			continue
		}
		inWindow = append(inWindow, m)
		byCategory[m.Category] = append(byCategory[m.Category], m)
	}

	set := &Set{
		ByCategory: make(map[string]FieldBaseline, len(byCategory)),
		Global:     computeBaseline("", inWindow, now),
		Window:     e.window,
		MinSample:  e.minSample,
	}

	for category, members := range byCategory {
		b := computeBaseline(category, members, now)
		if b.SampleSize < e.minSample {
			b = set.Global
			b.Category = category
			b.Insufficient = true
		}
		set.ByCategory[category] = b
	}

	return set
}

func computeBaseline(category string, members []paper.Metrics, now time.Time) FieldBaseline {
	citations := make([]float64, 0, len(members))
	velocity := make([]float64, 0, len(members))
	stars := make([]float64, 0, len(members))
	social := make([]float64, 0, len(members))
	var author []float64

	for _, m := range members {
		citations = append(citations, math.Log1p(float64(m.CitationCount)))
		velocity = append(velocity, math.Log1p(float64(m.Velocity())))
		stars = append(stars, math.Log1p(float64(m.RepoStars)))
		social = append(social, math.Log1p(float64(m.SocialScore)))
		if m.HasAuthorData {
			author = append(author, m.AuthorSignal)
		}
	}

	return FieldBaseline{
		Category:     category,
		Citations:    orderStats(citations),
		Velocity:     orderStats(velocity),
		Stars:        orderStats(stars),
		Social:       orderStats(social),
		AuthorSignal: orderStats(author),
		SampleSize:   len(members),
		ComputedAt:   now,
	}
}

// orderStats computes {median, p90, p99} with linear interpolation between
// adjacent ranks. An empty sample yields zero stats.
func orderStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Stats{
		Median: quantile(sorted, 0.5),
		P90:    quantile(sorted, 0.9),
		P99:    quantile(sorted, 0.99),
	}
}

// quantile expects sorted input.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// PercentileRank maps a log-space value onto [0,1] using piecewise linear
// interpolation through the stored order statistics: 0 at zero, 0.5 at the
// median, 0.9 at p90, 0.99 at p99, saturating at 1 beyond.
func PercentileRank(value float64, s Stats) float64 {
	if value <= 0 {
		return 0
	}
	switch {
	case s.Median <= 0:
		// Degenerate baseline: everything at or above the (zero) median.
		if s.P90 <= 0 {
			return 1
		}
		return math.Min(0.5+0.4*value/s.P90, 1)
	case value <= s.Median:
		return 0.5 * value / s.Median
	case value <= s.P90:
		if s.P90 == s.Median {
			return 0.9
		}
		return 0.5 + 0.4*(value-s.Median)/(s.P90-s.Median)
	case value <= s.P99:
		if s.P99 == s.P90 {
			return 0.99
		}
		return 0.9 + 0.09*(value-s.P90)/(s.P99-s.P90)
	default:
		return 1
	}
}
