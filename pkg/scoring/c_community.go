package scoring

import (
	"math"

	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/paper"
)

// CommunityEngagement normalizes the social-signal count (mentions,
// bookmarks, discussion activity) against the category baseline on a log
// scale.
func CommunityEngagement(m paper.Metrics, b baseline.FieldBaseline) float64 {
	return clamp01(baseline.PercentileRank(math.Log1p(float64(m.SocialScore)), b.Social))
}
