package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paperradar/paperradar/internal/api"
	"github.com/paperradar/paperradar/internal/store"
	"github.com/paperradar/paperradar/pkg/cache"
	"github.com/paperradar/paperradar/pkg/ratelimit"
	"github.com/paperradar/paperradar/pkg/scoring"
)

type fakeReader struct {
	top      []store.RankedPaper
	scores   map[string]scoring.Breakdown
	topCalls int
	err      error
}

func (f *fakeReader) TopScores(ctx context.Context, limit int) ([]store.RankedPaper, error) {
	f.topCalls++
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func (f *fakeReader) GetScore(ctx context.Context, paperID string) (*scoring.Breakdown, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.scores[paperID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func newTestServer(t *testing.T, reader *fakeReader) (*httptest.Server, *cache.Cache) {
	t.Helper()
	c, err := cache.New(cache.DefaultTTLs(), 0)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter, err := ratelimit.New(ratelimit.DefaultConfigs(), ratelimit.DefaultFallback())
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	handler := api.NewHandler(reader, c, limiter, 100, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, c
}

func rankedFixture() []store.RankedPaper {
	return []store.RankedPaper{
		{
			Breakdown:   scoring.Breakdown{PaperID: "p1", Total: 0.91},
			Title:       "Attention Routing",
			Category:    "cs.LG",
			PublishedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			Breakdown:   scoring.Breakdown{PaperID: "p2", Total: 0.74},
			Title:       "Sparse Mixture Decoding",
			Category:    "cs.CL",
			PublishedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestTopPapers_CachesSecondRead(t *testing.T) {
	reader := &fakeReader{top: rankedFixture()}
	srv, _ := newTestServer(t, reader)

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/api/papers/top")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		var body struct {
			Papers   []store.RankedPaper `json:"papers"`
			CacheAge string              `json:"cache_age"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp.Body.Close()

		if len(body.Papers) != 2 || body.Papers[0].PaperID != "p1" {
			t.Fatalf("unexpected papers: %+v", body.Papers)
		}
		if i == 0 && body.CacheAge != "" {
			t.Error("first read should not be cache-annotated")
		}
	}

	if reader.topCalls != 1 {
		t.Errorf("reader queried %d times, want 1 (second read cached)", reader.topCalls)
	}
}

func TestTopPapers_RejectsBadLimit(t *testing.T) {
	srv, _ := newTestServer(t, &fakeReader{top: rankedFixture()})

	resp, err := http.Get(srv.URL + "/api/papers/top?limit=zero")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetScore_CacheHitAnnotatesAge(t *testing.T) {
	reader := &fakeReader{scores: map[string]scoring.Breakdown{}}
	srv, c := newTestServer(t, reader)

	// Simulate a ranking cycle having written the derived score.
	c.Put(cache.ClassDerived, "p9", scoring.Breakdown{PaperID: "p9", Total: 0.5})

	resp, err := http.Get(srv.URL + "/api/papers/p9/score")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		PaperID  string `json:"paper_id"`
		CacheAge string `json:"cache_age"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.PaperID != "p9" {
		t.Errorf("paper_id = %q", body.PaperID)
	}
	if body.CacheAge == "" {
		t.Error("cached response must carry its age")
	}
}

func TestGetScore_FallsBackToStore(t *testing.T) {
	reader := &fakeReader{scores: map[string]scoring.Breakdown{
		"p1": {PaperID: "p1", Total: 0.8},
	}}
	srv, _ := newTestServer(t, reader)

	resp, err := http.Get(srv.URL + "/api/papers/p1/score")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var b scoring.Breakdown
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Total != 0.8 {
		t.Errorf("total = %g, want 0.8", b.Total)
	}
}

func TestGetScore_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeReader{scores: map[string]scoring.Breakdown{}})

	resp, err := http.Get(srv.URL + "/api/papers/missing/score")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetScore_ReaderError(t *testing.T) {
	srv, _ := newTestServer(t, &fakeReader{err: errors.New("db down")})

	resp, err := http.Get(srv.URL + "/api/papers/p1/score")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestLimiterReset(t *testing.T) {
	srv, _ := newTestServer(t, &fakeReader{})

	resp, err := http.Post(srv.URL+"/api/limits/github/reset", "", nil)
	if err != nil {
		t.Fatalf("POST reset: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var state ratelimit.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Provider != "github" {
		t.Errorf("provider = %q, want github", state.Provider)
	}
	if state.Failures != 0 {
		t.Errorf("failures = %d, want 0 after reset", state.Failures)
	}
}

func TestCacheStatsAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeReader{})

	for _, path := range []string{"/api/cache/stats", "/api/limits/github", "/healthz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
	}
}
