package scoring

import (
	"math"

	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/paper"
)

// codePresenceFloor is the component value a paper earns for having any
// public implementation at all, before star normalization.
const codePresenceFloor = 0.3

// ImplementationQuality scores the paper's code release. Presence of code
// is a necessary condition for any score in this component; stars are
// normalized against the category baseline on a log scale so a few viral
// repositories do not push every other paper to zero.
func ImplementationQuality(m paper.Metrics, b baseline.FieldBaseline) float64 {
	if !m.HasCode {
		return 0
	}
	rank := baseline.PercentileRank(math.Log1p(float64(m.RepoStars)), b.Stars)
	return clamp01(codePresenceFloor + (1-codePresenceFloor)*rank)
}
