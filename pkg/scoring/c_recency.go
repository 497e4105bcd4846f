package scoring

import (
	"math"
	"time"

	"github.com/paperradar/paperradar/pkg/paper"
)

// Recency scores publication age with smooth exponential decay: 1.0 at
// publication, 0.5 after one half-life. Never reaches zero, so very old
// papers still sort deterministically.
func Recency(m paper.Metrics, now time.Time, halfLifeDays float64) float64 {
	age := float64(m.AgeDays(now))
	return clamp01(math.Exp(-math.Ln2 * age / halfLifeDays))
}
