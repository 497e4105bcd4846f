// Package engine orchestrates ranking cycles: it pulls the current paper
// population, computes category baselines once, scores every paper across a
// bounded worker pool, and writes results through the cache and into the
// system of record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/paperradar/paperradar/internal/storage"
	"github.com/paperradar/paperradar/pkg/baseline"
	"github.com/paperradar/paperradar/pkg/cache"
	"github.com/paperradar/paperradar/pkg/paper"
	"github.com/paperradar/paperradar/pkg/scoring"
	"github.com/paperradar/paperradar/pkg/simindex"
)

// PopulationSource supplies the metric snapshots one cycle scores.
type PopulationSource interface {
	ListPopulation(ctx context.Context, window time.Duration) ([]paper.Metrics, error)
}

// ScoreSink persists score breakdowns to the system of record.
type ScoreSink interface {
	SaveScore(ctx context.Context, cycleID string, b scoring.Breakdown) error
}

// Status summarizes how a cycle ended.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded" // too many papers failed or malformed
	StatusPartial  Status = "partial"  // deadline hit before all papers scored
)

// Report is the outcome of one ranking cycle.
type Report struct {
	CycleID    string    `json:"cycle_id"`
	Status     Status    `json:"status"`
	Scored     int       `json:"scored"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"` // malformed snapshots
	Population int       `json:"population"`
	StartedAt  time.Time `json:"started_at"`
	Elapsed    string    `json:"elapsed"`
}

// Config controls cycle execution.
type Config struct {
	Window            time.Duration // population window
	Deadline          time.Duration
	Workers           int
	DegradedThreshold float64
	// EmbeddingDim is the expected embedding vector length; 0 disables
	// the per-cycle similarity index.
	EmbeddingDim int
}

// Engine runs ranking cycles.
type Engine struct {
	cfg    Config
	source PopulationSource
	sink   ScoreSink
	est    *baseline.Estimator
	scorer *scoring.Calculator
	cache  *cache.Cache
	blobs  storage.BlobStore // nil disables embedding hydration
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Engine. blobs may be nil, in which case novelty scoring
// falls back to keyword dissimilarity.
func New(cfg Config, source PopulationSource, sink ScoreSink, est *baseline.Estimator, scorer *scoring.Calculator, c *cache.Cache, blobs storage.BlobStore, logger *slog.Logger) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:    cfg,
		source: source,
		sink:   sink,
		est:    est,
		scorer: scorer,
		cache:  c,
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

const baselineCacheID = "field_baselines"

// RunCycle executes one full ranking cycle. Per-paper failures are counted
// and absorbed; only systemic failures (population source unreachable)
// return an error. A deadline overrun returns a partial report, keeping
// everything already written.
func (e *Engine) RunCycle(ctx context.Context) (*Report, error) {
	cycleID := uuid.NewString()
	start := e.now()
	logger := e.logger.With("cycle_id", cycleID)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	population, err := e.source.ListPopulation(ctx, e.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("fetch population: %w", err)
	}
	logger.Info("cycle started", "population", len(population))

	// Baselines must be complete before any scoring starts, so every paper
	// in the cycle is normalized against the same snapshot.
	baselines := e.est.Compute(population)
	e.cache.Put(cache.ClassStatistics, baselineCacheID, baselines)

	scorer := e.scorer
	if idx := e.buildIndex(ctx, population); idx != nil {
		scorer = e.scorer.WithIndex(idx)
	}

	var scored, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, m := range population {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err := m.Validate(); err != nil {
				skipped.Add(1)
				logger.Warn("skipping malformed snapshot", "error", err)
				return nil
			}

			b := scorer.Score(m, baselines.For(m.Category), start)
			e.cache.PutWithHints(cache.ClassDerived, m.PaperID, b, cacheHints(m, start))

			if err := e.sink.SaveScore(gctx, cycleID, b); err != nil {
				failed.Add(1)
				logger.Warn("persist score failed", "paper_id", m.PaperID, "error", err)
				return nil
			}
			scored.Add(1)
			return nil
		})
	}
	gerr := g.Wait()

	report := &Report{
		CycleID:    cycleID,
		Status:     StatusOK,
		Scored:     int(scored.Load()),
		Failed:     int(failed.Load()),
		Skipped:    int(skipped.Load()),
		Population: len(population),
		StartedAt:  start,
		Elapsed:    e.now().Sub(start).String(),
	}

	switch {
	case errors.Is(gerr, context.DeadlineExceeded):
		report.Status = StatusPartial
	case gerr != nil && errors.Is(gerr, context.Canceled):
		report.Status = StatusPartial
	case tooManyFailures(report, e.cfg.DegradedThreshold):
		report.Status = StatusDegraded
	}

	logger.Info("cycle finished",
		"status", report.Status,
		"scored", report.Scored,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"elapsed", report.Elapsed)
	return report, nil
}

// buildIndex hydrates embeddings from blob storage for papers that arrived
// without one and builds the cycle's similarity index. Missing or
// malformed embeddings are skipped; the index is best-effort.
func (e *Engine) buildIndex(ctx context.Context, population []paper.Metrics) simindex.Index {
	if e.blobs == nil || e.cfg.EmbeddingDim <= 0 {
		return nil
	}

	idx := simindex.NewBruteForce(e.cfg.EmbeddingDim)
	for i := range population {
		m := &population[i]
		if len(m.Embedding) == 0 {
			data, err := e.blobs.GetEmbedding(ctx, m.PaperID)
			if err != nil {
				continue
			}
			vec, err := storage.DecodeEmbedding(data)
			if err != nil {
				e.logger.Warn("bad stored embedding", "paper_id", m.PaperID, "error", err)
				continue
			}
			m.Embedding = vec
		}
		if err := idx.Add(m.PaperID, m.Embedding); err != nil {
			e.logger.Warn("embedding rejected", "paper_id", m.PaperID, "error", err)
			m.Embedding = nil
		}
	}
	if idx.Len() == 0 {
		return nil
	}
	return idx
}

// tooManyFailures reports whether the cycle lost too large a share of its
// population. Malformed snapshots count as failures here: a cycle that
// skipped most of its input did not do its job, even if nothing errored.
func tooManyFailures(r *Report, threshold float64) bool {
	attempted := r.Scored + r.Failed + r.Skipped
	if attempted == 0 {
		return false
	}
	return float64(r.Failed+r.Skipped)/float64(attempted) > threshold
}

// cacheHints shortens the TTL for papers whose citations are spiking and
// lengthens it for old papers that have gone quiet.
func cacheHints(m paper.Metrics, now time.Time) cache.Hints {
	return cache.Hints{
		HighVelocity: m.Velocity() >= 10,
		Stable:       m.AgeDays(now) > 365 && m.Velocity() == 0,
	}
}
