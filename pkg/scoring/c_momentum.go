package scoring

import (
	"math"

	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/paper"
)

// exponentialGrowthRatio is the recent/prior velocity ratio at which growth
// is considered exponential and the growth signal saturates.
const exponentialGrowthRatio = 1.5

// CitationMomentum scores citation growth, normalized against the
// category's velocity distribution. The percentile mapping is saturating:
// the slope flattens sharply past p90, so outlier velocities near p99 do
// not dominate the component. Ratio-based exponential growth is rewarded
// on top of the pure velocity rank.
//
// Monotone in velocity: increasing the recent citation delta while holding
// everything else fixed never decreases the component.
func CitationMomentum(m paper.Metrics, b baseline.FieldBaseline) float64 {
	rank := baseline.PercentileRank(math.Log1p(float64(m.Velocity())), b.Velocity)
	return clamp01(0.6*rank + 0.4*growthScore(m))
}

// growthScore detects ratio-based (exponential) citation growth.
func growthScore(m paper.Metrics) float64 {
	vel := float64(m.Velocity())
	prev := float64(m.PrevVelocity())

	if prev == 0 {
		if vel == 0 {
			return 0
		}
		// First observed traction: reward gently, saturating at 10/week.
		return math.Min(vel/10, 1)
	}

	ratio := vel / prev
	if ratio <= 1 {
		return 0
	}
	// Linear ramp from flat growth to the exponential threshold.
	return math.Min((ratio-1)/(exponentialGrowthRatio-1), 1)
}

// FieldPercentile is the paper's combined standing within its category,
// blending citation count and velocity ranks. Display-only.
func FieldPercentile(m paper.Metrics, b baseline.FieldBaseline) float64 {
	if b.SampleSize == 0 {
		return 0.5
	}
	citations := baseline.PercentileRank(math.Log1p(float64(m.CitationCount)), b.Citations)
	velocity := baseline.PercentileRank(math.Log1p(float64(m.Velocity())), b.Velocity)
	return clamp01(0.4*citations + 0.6*velocity)
}
