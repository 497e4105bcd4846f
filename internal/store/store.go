// Package store persists papers, metric snapshots, and score breakdowns in
// Postgres. It is the system of record; the volatility cache in front of it
// only ever holds derived copies.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paperradar/paperradar/pkg/paper"
	"github.com/paperradar/paperradar/pkg/scoring"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store provides Postgres-backed persistence.
type Store struct {
	db *sql.DB
}

// New creates a Store on an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RankedPaper is a score breakdown joined with the display fields the read
// path needs.
type RankedPaper struct {
	scoring.Breakdown
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
}

// UpsertPaper creates or refreshes a paper's descriptive record.
func (s *Store) UpsertPaper(ctx context.Context, m paper.Metrics) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (id, title, abstract, category, published_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		   SET title = EXCLUDED.title,
		       abstract = EXCLUDED.abstract,
		       category = EXCLUDED.category,
		       published_at = EXCLUDED.published_at`,
		m.PaperID, m.Title, m.Abstract, m.Category, m.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert paper %s: %w", m.PaperID, err)
	}
	return nil
}

// UpsertMetrics replaces a paper's metric snapshot wholesale.
func (s *Store) UpsertMetrics(ctx context.Context, m paper.Metrics) error {
	if err := s.UpsertPaper(ctx, m); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO paper_metrics
		   (paper_id, citation_count, citations_prev, citations_prev2,
		    repo_stars, has_code, has_data, has_experiments,
		    social_score, author_signal, has_author_data, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		 ON CONFLICT (paper_id) DO UPDATE
		   SET citation_count = EXCLUDED.citation_count,
		       citations_prev = EXCLUDED.citations_prev,
		       citations_prev2 = EXCLUDED.citations_prev2,
		       repo_stars = EXCLUDED.repo_stars,
		       has_code = EXCLUDED.has_code,
		       has_data = EXCLUDED.has_data,
		       has_experiments = EXCLUDED.has_experiments,
		       social_score = EXCLUDED.social_score,
		       author_signal = EXCLUDED.author_signal,
		       has_author_data = EXCLUDED.has_author_data,
		       updated_at = now()`,
		m.PaperID, m.CitationCount, m.CitationsPrev, m.CitationsPrev2,
		m.RepoStars, m.HasCode, m.HasData, m.HasExperiments,
		m.SocialScore, m.AuthorSignal, m.HasAuthorData,
	)
	if err != nil {
		return fmt.Errorf("upsert metrics %s: %w", m.PaperID, err)
	}
	return nil
}

// ListPopulation returns the metric snapshots of all papers published within
// the window, ending now. This is the population one ranking cycle scores.
func (s *Store) ListPopulation(ctx context.Context, window time.Duration) ([]paper.Metrics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.abstract, p.category, p.published_at,
		        m.citation_count, m.citations_prev, m.citations_prev2,
		        m.repo_stars, m.has_code, m.has_data, m.has_experiments,
		        m.social_score, m.author_signal, m.has_author_data
		 FROM papers p
		 JOIN paper_metrics m ON m.paper_id = p.id
		 WHERE p.published_at >= now() - $1::interval
		 ORDER BY p.id`,
		fmt.Sprintf("%d seconds", int64(window.Seconds())),
	)
	if err != nil {
		return nil, fmt.Errorf("list population: %w", err)
	}
	defer rows.Close()

	var population []paper.Metrics
	for rows.Next() {
		var m paper.Metrics
		if err := rows.Scan(
			&m.PaperID, &m.Title, &m.Abstract, &m.Category, &m.PublishedAt,
			&m.CitationCount, &m.CitationsPrev, &m.CitationsPrev2,
			&m.RepoStars, &m.HasCode, &m.HasData, &m.HasExperiments,
			&m.SocialScore, &m.AuthorSignal, &m.HasAuthorData,
		); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		population = append(population, m)
	}
	return population, rows.Err()
}

// SaveScore upserts one paper's breakdown for the given cycle. A later cycle
// replaces an earlier one; within a cycle each paper is written once.
func (s *Store) SaveScore(ctx context.Context, cycleID string, b scoring.Breakdown) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO paper_scores
		   (paper_id, cycle_id, total,
		    citation_momentum, implementation_quality, author_credibility,
		    novelty, reproducibility, community_engagement, recency,
		    freshness_boost, field_percentile, baseline_insufficient, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (paper_id) DO UPDATE
		   SET cycle_id = EXCLUDED.cycle_id,
		       total = EXCLUDED.total,
		       citation_momentum = EXCLUDED.citation_momentum,
		       implementation_quality = EXCLUDED.implementation_quality,
		       author_credibility = EXCLUDED.author_credibility,
		       novelty = EXCLUDED.novelty,
		       reproducibility = EXCLUDED.reproducibility,
		       community_engagement = EXCLUDED.community_engagement,
		       recency = EXCLUDED.recency,
		       freshness_boost = EXCLUDED.freshness_boost,
		       field_percentile = EXCLUDED.field_percentile,
		       baseline_insufficient = EXCLUDED.baseline_insufficient,
		       computed_at = EXCLUDED.computed_at`,
		b.PaperID, cycleID, b.Total,
		b.CitationMomentum, b.ImplementationQuality, b.AuthorCredibility,
		b.Novelty, b.Reproducibility, b.CommunityEngagement, b.Recency,
		b.FreshnessBoost, b.FieldPercentile, b.BaselineInsufficient, b.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("save score %s: %w", b.PaperID, err)
	}
	return nil
}

const scoreColumns = `s.paper_id, s.total,
	s.citation_momentum, s.implementation_quality, s.author_credibility,
	s.novelty, s.reproducibility, s.community_engagement, s.recency,
	s.freshness_boost, s.field_percentile, s.baseline_insufficient, s.computed_at`

// TopScores returns the highest-ranked papers. Ties break on most recent
// publication, then paper ID, so display order is stable across reads.
func (s *Store) TopScores(ctx context.Context, limit int) ([]RankedPaper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+`, p.title, p.category, p.published_at
		 FROM paper_scores s
		 JOIN papers p ON p.id = s.paper_id
		 ORDER BY s.total DESC, p.published_at DESC, s.paper_id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	defer rows.Close()

	var ranked []RankedPaper
	for rows.Next() {
		var r RankedPaper
		if err := rows.Scan(
			&r.PaperID, &r.Total,
			&r.CitationMomentum, &r.ImplementationQuality, &r.AuthorCredibility,
			&r.Novelty, &r.Reproducibility, &r.CommunityEngagement, &r.Recency,
			&r.FreshnessBoost, &r.FieldPercentile, &r.BaselineInsufficient, &r.ComputedAt,
			&r.Title, &r.Category, &r.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ranked paper: %w", err)
		}
		ranked = append(ranked, r)
	}
	return ranked, rows.Err()
}

// GetScore returns one paper's most recent breakdown.
func (s *Store) GetScore(ctx context.Context, paperID string) (*scoring.Breakdown, error) {
	var b scoring.Breakdown
	err := s.db.QueryRowContext(ctx,
		`SELECT `+scoreColumns+`
		 FROM paper_scores s WHERE s.paper_id = $1`,
		paperID,
	).Scan(
		&b.PaperID, &b.Total,
		&b.CitationMomentum, &b.ImplementationQuality, &b.AuthorCredibility,
		&b.Novelty, &b.Reproducibility, &b.CommunityEngagement, &b.Recency,
		&b.FreshnessBoost, &b.FieldPercentile, &b.BaselineInsufficient, &b.ComputedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("score for %s: %w", paperID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get score %s: %w", paperID, err)
	}
	return &b, nil
}
