package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paperradar/paperradar/pkg/ratelimit"
)

func testConfig() ratelimit.ProviderConfig {
	return ratelimit.ProviderConfig{
		Rate:               5,
		Window:             time.Minute,
		BackoffFloor:       2 * time.Second,
		BackoffCap:         time.Minute,
		MaxWait:            10 * time.Second,
		LowReserve:         0.4,
		HighOverrideBudget: 2,
	}
}

func newTestLimiter(t *testing.T, cfg ratelimit.ProviderConfig, now *time.Time) *ratelimit.Limiter {
	t.Helper()
	l, err := ratelimit.New(map[string]ratelimit.ProviderConfig{"api": cfg}, ratelimit.DefaultFallback(),
		ratelimit.WithClock(func() time.Time { return *now }),
		ratelimit.WithRand(func() float64 { return 0.5 }), // jitter factor exactly 1.0
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestTryAcquire_NeverExceedsRate(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(t, testConfig(), &now)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire("api", ratelimit.PriorityNormal).Granted {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := granted.Load(); n != 5 {
		t.Errorf("granted %d acquisitions in one window at rate 5", n)
	}
}

func TestTryAcquire_RefillsOverTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(t, testConfig(), &now)

	for i := 0; i < 5; i++ {
		if !l.TryAcquire("api", ratelimit.PriorityNormal).Granted {
			t.Fatalf("initial grant %d denied", i)
		}
	}
	if l.TryAcquire("api", ratelimit.PriorityNormal).Granted {
		t.Fatal("bucket should be empty")
	}

	// 24 seconds refills 2 tokens at 5/min.
	now = now.Add(24 * time.Second)
	grants := 0
	for i := 0; i < 5; i++ {
		if l.TryAcquire("api", ratelimit.PriorityNormal).Granted {
			grants++
		}
	}
	if grants != 2 {
		t.Errorf("granted %d after partial refill, want 2", grants)
	}
}

func TestRecordFailure_DoublesBackoffUpToCap(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	l := newTestLimiter(t, cfg, &now)

	want := []time.Duration{
		cfg.BackoffFloor,     // first failure stays at the floor
		2 * cfg.BackoffFloor, // 4s
		4 * cfg.BackoffFloor, // 8s
	}
	for i, w := range want {
		l.RecordFailure("api", true)
		if got := l.Snapshot("api").Backoff; got != w {
			t.Errorf("failure %d: backoff = %v, want %v", i+1, got, w)
		}
	}

	// Many more failures: capped, never beyond.
	for i := 0; i < 10; i++ {
		l.RecordFailure("api", true)
	}
	if got := l.Snapshot("api").Backoff; got != cfg.BackoffCap {
		t.Errorf("backoff = %v, want cap %v", got, cfg.BackoffCap)
	}
}

func TestRecordFailure_JitterWithinBounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()

	for _, r := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		l, err := ratelimit.New(map[string]ratelimit.ProviderConfig{"api": cfg}, ratelimit.DefaultFallback(),
			ratelimit.WithClock(func() time.Time { return now }),
			ratelimit.WithRand(func() float64 { return r }),
		)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		l.RecordFailure("api", true)
		window := l.Snapshot("api").BackoffRemaining

		lo := time.Duration(float64(cfg.BackoffFloor) * 0.8)
		hi := time.Duration(float64(cfg.BackoffFloor) * 1.2)
		if window < lo || window > hi {
			t.Errorf("rand=%g: backoff window %v outside ±20%% of %v", r, window, cfg.BackoffFloor)
		}
	}
}

func TestRecordFailure_NonRateLimitIgnored(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(t, testConfig(), &now)

	l.RecordFailure("api", false)
	s := l.Snapshot("api")
	if s.Failures != 0 || s.BackoffRemaining != 0 {
		t.Errorf("non-rate-limit failure changed state: %+v", s)
	}
}

func TestRecordSuccess_ShrinksBackoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	l := newTestLimiter(t, cfg, &now)

	for i := 0; i < 3; i++ {
		l.RecordFailure("api", true) // backoff now 8s
	}

	l.RecordSuccess("api")
	s := l.Snapshot("api")
	if s.Failures != 0 {
		t.Errorf("failures = %d after success, want 0", s.Failures)
	}
	if s.Backoff != 4*time.Second {
		t.Errorf("backoff = %v after success, want halved to 4s", s.Backoff)
	}

	// Repeated successes converge on the floor, never below.
	for i := 0; i < 5; i++ {
		l.RecordSuccess("api")
	}
	if got := l.Snapshot("api").Backoff; got != cfg.BackoffFloor {
		t.Errorf("backoff = %v, want floor %v", got, cfg.BackoffFloor)
	}
}

func TestHighPriority_BypassesBackoffWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(t, testConfig(), &now)

	l.RecordFailure("api", true)

	if l.TryAcquire("api", ratelimit.PriorityNormal).Granted {
		t.Fatal("normal priority should be blocked during backoff")
	}

	// HIGH spends the override budget (2), then is blocked too.
	for i := 0; i < 2; i++ {
		if !l.TryAcquire("api", ratelimit.PriorityHigh).Granted {
			t.Fatalf("high-priority override %d denied", i+1)
		}
	}
	if l.TryAcquire("api", ratelimit.PriorityHigh).Granted {
		t.Error("override budget exhausted, high priority should be blocked")
	}
}

func TestLowPriority_ThrottledFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(t, testConfig(), &now) // reserve = 0.4*5 = 2 tokens

	// Drain to 2.5 tokens.
	for i := 0; i < 3; i++ {
		l.TryAcquire("api", ratelimit.PriorityNormal)
	}

	if l.TryAcquire("api", ratelimit.PriorityLow).Granted {
		t.Error("low priority should be throttled inside the reserve")
	}
	if !l.TryAcquire("api", ratelimit.PriorityNormal).Granted {
		t.Error("normal priority should still be granted")
	}
}

func TestAcquire_RejectsAfterMaxWait(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(t, testConfig(), &now)

	// Active backoff window (2s > refill wait) far beyond MaxWait.
	for i := 0; i < 6; i++ {
		l.RecordFailure("api", true)
	}

	err := l.Acquire(context.Background(), "api", ratelimit.PriorityNormal)
	if !errors.Is(err, ratelimit.ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
}

func TestAcquire_HonorsContext(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.Rate = 60 // refill wait ~1s, well inside MaxWait
	l := newTestLimiter(t, cfg, &now)

	for i := 0; i < 60; i++ {
		l.TryAcquire("api", ratelimit.PriorityNormal)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := l.Acquire(ctx, "api", ratelimit.PriorityNormal)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestUpdateFromHeaders_AppliesRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(t, testConfig(), &now)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "2")
	if !l.UpdateFromHeaders("api", h) {
		t.Fatal("headers carried quota information")
	}

	grants := 0
	for i := 0; i < 5; i++ {
		if l.TryAcquire("api", ratelimit.PriorityNormal).Granted {
			grants++
		}
	}
	if grants != 2 {
		t.Errorf("granted %d after provider advertised 2 remaining, want 2", grants)
	}
}

func TestUpdateFromHeaders_PerProviderStrategy(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.Headers = ratelimit.StrategyRetryAfter
	l := newTestLimiter(t, cfg, &now)

	// The provider's configured strategy ignores X-RateLimit headers.
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "2")
	if l.UpdateFromHeaders("api", h) {
		t.Error("retry-after strategy must ignore X-RateLimit headers")
	}

	h = http.Header{}
	h.Set("Retry-After", "30")
	if !l.UpdateFromHeaders("api", h) {
		t.Fatal("Retry-After carried quota information")
	}
	if l.TryAcquire("api", ratelimit.PriorityNormal).Granted {
		t.Error("bucket should be empty after Retry-After reported exhaustion")
	}

	// Providers without an override keep the limiter default.
	h = http.Header{}
	h.Set("X-RateLimit-Remaining", "0")
	if !l.UpdateFromHeaders("other", h) {
		t.Error("default strategy must still parse X-RateLimit headers")
	}
}

func TestProviderConfig_RejectsUnknownStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Headers = "teapot"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown header strategy name")
	}
}

func TestXRateLimitStrategy_ResetFormats(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := ratelimit.XRateLimitStrategy{}

	// Delta seconds.
	h := http.Header{}
	h.Set("X-RateLimit-Reset", "120")
	q, ok := s.Parse(h, now)
	if !ok || !q.Reset.Equal(now.Add(2*time.Minute)) {
		t.Errorf("delta reset parsed as %v", q.Reset)
	}

	// Unix timestamp.
	unix := now.Add(30 * time.Minute).Unix()
	h.Set("X-RateLimit-Reset", strconv.FormatInt(unix, 10))
	q, ok = s.Parse(h, now)
	if !ok || q.Reset.Unix() != unix {
		t.Errorf("unix reset parsed as %v", q.Reset)
	}

	// No rate-limit headers at all.
	if _, ok := s.Parse(http.Header{}, now); ok {
		t.Error("empty headers should not parse")
	}
}
