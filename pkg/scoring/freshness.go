package scoring

import (
	"time"

	"github.com/paperradar/paperradar/pkg/paper"
)

// FreshnessBoost returns the multiplicative boost for young papers.
// The boost applies only below the age threshold AND at or above the
// traction floor; a brand-new paper with zero signal gets exactly 1.0.
// Within the gate the boost decays linearly from MaxBoost at age 0 to 1.0
// at the threshold.
func FreshnessBoost(m paper.Metrics, now time.Time, cfg FreshnessConfig) float64 {
	age := m.AgeDays(now)
	if age >= cfg.AgeThresholdDays {
		return 1.0
	}
	if m.Traction() < cfg.TractionFloor {
		return 1.0
	}
	frac := 1.0 - float64(age)/float64(cfg.AgeThresholdDays)
	return 1.0 + frac*(cfg.MaxBoost-1.0)
}
