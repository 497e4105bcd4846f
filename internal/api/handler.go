// Package api implements the Paper Radar read API. It serves ranked papers
// and score breakdowns, preferring the volatility cache and falling back to
// the system of record, annotating responses with cache-entry age so stale
// data is distinguishable from fresh.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/paperradar/paperradar/internal/store"
	"github.com/paperradar/paperradar/pkg/cache"
	"github.com/paperradar/paperradar/pkg/ratelimit"
	"github.com/paperradar/paperradar/pkg/scoring"
)

// ScoreReader is the persistence surface the read path needs.
type ScoreReader interface {
	TopScores(ctx context.Context, limit int) ([]store.RankedPaper, error)
	GetScore(ctx context.Context, paperID string) (*scoring.Breakdown, error)
}

// Handler is the top-level handler for the read API.
type Handler struct {
	reader   ScoreReader
	cache    *cache.Cache
	limiter  *ratelimit.Limiter // optional diagnostics surface
	topLimit int
	logger   *slog.Logger
}

// NewHandler creates a new API handler. topLimit caps the top-ranked list;
// limiter may be nil when no outbound providers are configured.
func NewHandler(reader ScoreReader, c *cache.Cache, limiter *ratelimit.Limiter, topLimit int, logger *slog.Logger) *Handler {
	if topLimit <= 0 {
		topLimit = 100
	}
	return &Handler{reader: reader, cache: c, limiter: limiter, topLimit: topLimit, logger: logger}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/papers/top", h.handleTopPapers)
	mux.HandleFunc("GET /api/papers/{paperID}/score", h.handleGetScore)
	mux.HandleFunc("GET /api/cache/stats", h.handleCacheStats)
	mux.HandleFunc("GET /api/limits/{provider}", h.handleLimiterState)
	mux.HandleFunc("POST /api/limits/{provider}/reset", h.handleLimiterReset)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

type topResponse struct {
	Papers   []store.RankedPaper `json:"papers"`
	CacheAge string              `json:"cache_age,omitempty"`
}

func (h *Handler) handleTopPapers(w http.ResponseWriter, r *http.Request) {
	limit := h.topLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	key := "top:" + strconv.Itoa(limit)
	if v, age, ok := h.cache.Get(cache.Key(cache.ClassTrending, key)); ok {
		writeJSON(w, http.StatusOK, topResponse{
			Papers:   v.([]store.RankedPaper),
			CacheAge: age.Round(time.Second).String(),
		})
		return
	}

	papers, err := h.reader.TopScores(r.Context(), limit)
	if err != nil {
		h.logger.Error("top scores query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ranking unavailable")
		return
	}
	h.cache.Put(cache.ClassTrending, key, papers)
	writeJSON(w, http.StatusOK, topResponse{Papers: papers})
}

type scoreResponse struct {
	*scoring.Breakdown
	CacheAge string `json:"cache_age,omitempty"`
}

func (h *Handler) handleGetScore(w http.ResponseWriter, r *http.Request) {
	paperID := r.PathValue("paperID")
	if paperID == "" {
		writeError(w, http.StatusBadRequest, "missing paper id")
		return
	}

	// Derived scores are written to the cache by the ranking cycle; a hit
	// here means no database round trip.
	if v, age, ok := h.cache.Get(cache.Key(cache.ClassDerived, paperID)); ok {
		b := v.(scoring.Breakdown)
		writeJSON(w, http.StatusOK, scoreResponse{
			Breakdown: &b,
			CacheAge:  age.Round(time.Second).String(),
		})
		return
	}

	b, err := h.reader.GetScore(r.Context(), paperID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "paper not scored")
			return
		}
		h.logger.Error("score query failed", "paper_id", paperID, "error", err)
		writeError(w, http.StatusInternalServerError, "score unavailable")
		return
	}
	h.cache.Put(cache.ClassDerived, paperID, *b)
	writeJSON(w, http.StatusOK, scoreResponse{Breakdown: b})
}

func (h *Handler) handleLimiterState(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		writeError(w, http.StatusNotFound, "no providers configured")
		return
	}
	writeJSON(w, http.StatusOK, h.limiter.Snapshot(r.PathValue("provider")))
}

// handleLimiterReset clears a provider's backoff and refills its bucket.
// Operator escape hatch for when an upstream quota is known to have reset.
func (h *Handler) handleLimiterReset(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		writeError(w, http.StatusNotFound, "no providers configured")
		return
	}
	provider := r.PathValue("provider")
	h.limiter.Reset(provider)
	h.logger.Info("limiter reset", "provider", provider)
	writeJSON(w, http.StatusOK, h.limiter.Snapshot(provider))
}

func (h *Handler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
