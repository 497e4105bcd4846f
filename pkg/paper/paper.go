// Package paper defines the core data model for Paper Radar.
// These types are the shared vocabulary across all modules.
package paper

import (
	"fmt"
	"time"
)

// Metrics is an immutable snapshot of the externally observed signals for a
// single paper. A snapshot is replaced wholesale on each enrichment cycle,
// never partially mutated.
type Metrics struct {
	PaperID     string    `json:"paper_id"`
	PublishedAt time.Time `json:"published_at"`
	Category    string    `json:"category"` // primary category: "cs.LG", "stat.ML", ...

	CitationCount  int `json:"citation_count"`
	CitationsPrev  int `json:"citations_prev"`  // count at the previous sample point
	CitationsPrev2 int `json:"citations_prev2"` // count two sample points back

	RepoStars      int  `json:"repo_stars"`
	HasCode        bool `json:"has_code"`
	HasData        bool `json:"has_data"`
	HasExperiments bool `json:"has_experiments"`

	SocialScore int `json:"social_score"`

	AuthorSignal  float64 `json:"author_signal"` // cross-referenced h-index style signal
	HasAuthorData bool    `json:"has_author_data"`

	Title    string `json:"title,omitempty"`
	Abstract string `json:"abstract,omitempty"`

	Embedding []float32 `json:"embedding,omitempty"` // fixed-length, empty when unavailable
}

// Velocity returns the citation delta between the most recent and the
// previous sample point. Negative deltas (provider corrections) clamp to 0.
func (m Metrics) Velocity() int {
	v := m.CitationCount - m.CitationsPrev
	if v < 0 {
		return 0
	}
	return v
}

// PrevVelocity returns the citation delta between the previous two sample
// points, clamped to 0.
func (m Metrics) PrevVelocity() int {
	v := m.CitationsPrev - m.CitationsPrev2
	if v < 0 {
		return 0
	}
	return v
}

// AgeDays returns whole days elapsed since publication, relative to now.
func (m Metrics) AgeDays(now time.Time) int {
	d := int(now.Sub(m.PublishedAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Traction is the combined raw activity signal used by the freshness gate.
func (m Metrics) Traction() int {
	return m.CitationCount + m.RepoStars + m.SocialScore
}

// Validate reports whether the snapshot is well-formed enough to score.
func (m Metrics) Validate() error {
	if m.PaperID == "" {
		return fmt.Errorf("metrics missing paper id")
	}
	if m.PublishedAt.IsZero() {
		return fmt.Errorf("metrics for %s missing publication date", m.PaperID)
	}
	if m.Category == "" {
		return fmt.Errorf("metrics for %s missing category", m.PaperID)
	}
	if m.CitationCount < 0 || m.RepoStars < 0 || m.SocialScore < 0 {
		return fmt.Errorf("metrics for %s has negative counts", m.PaperID)
	}
	return nil
}
