package scoring_test

import (
	"testing"
	"time"

	"github.com/paperradar/paperradar/pkg/paper"
	"github.com/paperradar/paperradar/pkg/scoring"
)

func freshnessCfg() scoring.FreshnessConfig {
	return scoring.FreshnessConfig{MaxBoost: 1.5, AgeThresholdDays: 30, TractionFloor: 1}
}

func TestFreshnessBoost_TractionGate(t *testing.T) {
	cfg := freshnessCfg()

	// One day short of the age threshold but zero traction: no boost.
	noTraction := paper.Metrics{
		PublishedAt: testNow.Add(-29 * 24 * time.Hour),
	}
	if got := scoring.FreshnessBoost(noTraction, testNow, cfg); got != 1.0 {
		t.Errorf("boost = %g for zero-traction paper, want exactly 1.0", got)
	}

	// Same age with traction: boosted.
	withTraction := noTraction
	withTraction.SocialScore = 5
	if got := scoring.FreshnessBoost(withTraction, testNow, cfg); got <= 1.0 {
		t.Errorf("boost = %g for young paper with traction, want > 1.0", got)
	}
}

func TestFreshnessBoost_AgeThreshold(t *testing.T) {
	cfg := freshnessCfg()
	m := paper.Metrics{
		PublishedAt: testNow.Add(-30 * 24 * time.Hour),
		SocialScore: 100,
	}
	if got := scoring.FreshnessBoost(m, testNow, cfg); got != 1.0 {
		t.Errorf("boost = %g at the age threshold, want 1.0", got)
	}
}

func TestFreshnessBoost_MaxAtPublication(t *testing.T) {
	cfg := freshnessCfg()
	m := paper.Metrics{
		PublishedAt:   testNow,
		CitationCount: 3,
	}
	if got := scoring.FreshnessBoost(m, testNow, cfg); got != cfg.MaxBoost {
		t.Errorf("boost = %g at age 0, want max %g", got, cfg.MaxBoost)
	}
}

func TestFreshnessBoost_DecaysWithAge(t *testing.T) {
	cfg := freshnessCfg()
	prev := cfg.MaxBoost + 1
	for days := 0; days < 30; days += 5 {
		m := paper.Metrics{
			PublishedAt: testNow.Add(-time.Duration(days) * 24 * time.Hour),
			SocialScore: 10,
		}
		got := scoring.FreshnessBoost(m, testNow, cfg)
		if got >= prev {
			t.Fatalf("boost did not decay: %g at %d days, previous %g", got, days, prev)
		}
		prev = got
	}
}
