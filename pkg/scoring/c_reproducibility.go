package scoring

import "github.com/paperradar/paperradar/pkg/paper"

// Reproducibility is a composite availability indicator: public code,
// released data, and described experiments each contribute a fixed
// increment, capped at 1.0.
func Reproducibility(m paper.Metrics) float64 {
	score := 0.0
	if m.HasCode {
		score += 0.5
	}
	if m.HasData {
		score += 0.25
	}
	if m.HasExperiments {
		score += 0.25
	}
	return clamp01(score)
}
