package baseline_test

import (
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/paper"
)

var testNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func makePopulation(category string, n int) []paper.Metrics {
	population := make([]paper.Metrics, 0, n)
	for i := 0; i < n; i++ {
		population = append(population, paper.Metrics{
			PaperID:       fmt.Sprintf("%s-%d", category, i),
			Category:      category,
			PublishedAt:   testNow.AddDate(0, 0, -(i%60 + 1)),
			CitationCount: i * 3,
			CitationsPrev: i * 2,
			RepoStars:     i * 10,
			SocialScore:   i,
			AuthorSignal:  float64(i) / 2,
			HasAuthorData: i%2 == 0,
		})
	}
	return population
}

func TestCompute_Deterministic(t *testing.T) {
	est := baseline.New(90*24*time.Hour, 30, fixedClock)
	population := makePopulation("cs.LG", 100)

	first := est.Compute(population)
	second := est.Compute(population)
	if !reflect.DeepEqual(first, second) {
		t.Error("same population produced different baseline sets")
	}
}

// A category with 3 papers must fall back to the global baseline, flagged
// insufficient, rather than computing percentiles from 3 samples.
func TestCompute_SmallCategoryFallsBack(t *testing.T) {
	est := baseline.New(90*24*time.Hour, 30, fixedClock)

	population := append(makePopulation("cs.LG", 500), makePopulation("cs.AR", 3)...)
	set := est.Compute(population)

	large := set.For("cs.LG")
	if large.Insufficient {
		t.Error("cs.LG with 500 samples flagged insufficient")
	}
	if large.SampleSize != 500 {
		t.Errorf("cs.LG sample size = %d, want 500", large.SampleSize)
	}

	small := set.For("cs.AR")
	if !small.Insufficient {
		t.Error("cs.AR with 3 samples not flagged insufficient")
	}
	if small.Category != "cs.AR" {
		t.Errorf("fallback baseline category = %q, want cs.AR", small.Category)
	}
	// The fallback carries global statistics, not the 3-sample ones.
	if small.Citations != set.Global.Citations {
		t.Error("fallback baseline does not match global statistics")
	}
}

func TestCompute_UnknownCategoryGetsGlobal(t *testing.T) {
	est := baseline.New(90*24*time.Hour, 30, fixedClock)
	set := est.Compute(makePopulation("cs.LG", 100))

	b := set.For("math.OC")
	if !b.Insufficient {
		t.Error("unknown category should be flagged insufficient")
	}
	if b.Citations != set.Global.Citations {
		t.Error("unknown category should carry global statistics")
	}
}

func TestCompute_WindowExcludesOldPapers(t *testing.T) {
	est := baseline.New(30*24*time.Hour, 1, fixedClock)

	population := []paper.Metrics{
		{PaperID: "recent", Category: "cs.LG", PublishedAt: testNow.AddDate(0, 0, -10), CitationCount: 5},
		{PaperID: "ancient", Category: "cs.LG", PublishedAt: testNow.AddDate(-2, 0, 0), CitationCount: 9000},
	}
	set := est.Compute(population)

	b := set.For("cs.LG")
	if b.SampleSize != 1 {
		t.Fatalf("sample size = %d, want 1 (old paper outside window)", b.SampleSize)
	}
	want := math.Log1p(5)
	if math.Abs(b.Citations.Median-want) > 1e-12 {
		t.Errorf("citation median = %g, want %g", b.Citations.Median, want)
	}
}

func TestPercentileRank_Mapping(t *testing.T) {
	s := baseline.Stats{Median: 2, P90: 8, P99: 20}

	cases := []struct {
		value float64
		want  float64
	}{
		{0, 0},
		{1, 0.25},
		{2, 0.5},
		{8, 0.9},
		{20, 0.99},
		{100, 1},
	}
	for _, tc := range cases {
		if got := baseline.PercentileRank(tc.value, s); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("PercentileRank(%g) = %g, want %g", tc.value, got, tc.want)
		}
	}
}

func TestPercentileRank_Monotone(t *testing.T) {
	s := baseline.Stats{Median: 3, P90: 12, P99: 40}
	prev := -1.0
	for v := 0.0; v <= 60; v += 0.5 {
		got := baseline.PercentileRank(v, s)
		if got < prev {
			t.Fatalf("rank decreased from %g to %g at value %g", prev, got, v)
		}
		prev = got
	}
}
