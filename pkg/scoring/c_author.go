package scoring

import (
	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/paper"
)

// neutralAuthorScore is used when no author-level signal is available.
// Neutral, not zero: papers lacking author metadata are not penalized, and
// not one either, so they cannot ride unknown authors to the top.
const neutralAuthorScore = 0.5

// AuthorCredibility normalizes the enrichment-supplied author signal
// (cross-referenced h-index or affiliation strength) against the category
// baseline.
func AuthorCredibility(m paper.Metrics, b baseline.FieldBaseline) float64 {
	if !m.HasAuthorData {
		return neutralAuthorScore
	}
	return clamp01(baseline.PercentileRank(m.AuthorSignal, b.AuthorSignal))
}
