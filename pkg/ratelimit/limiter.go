// Package ratelimit provides per-provider admission control for outbound
// API calls. Each provider gets a token bucket plus adaptive exponential
// backoff driven by observed rate-limit failures, with a priority scheme
// that keeps critical paths live while a provider is throttling us.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Priority orders callers competing for a provider's budget. LOW is the
// first class throttled when tokens run scarce; HIGH may spend the override
// budget to punch through an active backoff window.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns the priority name for logging.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// ErrRejected is returned when an acquisition could not be granted within
// the provider's maximum wait. Callers should fall back (serve stale cache)
// rather than retry immediately.
var ErrRejected = errors.New("ratelimit: rejected")

// ProviderConfig is the static admission policy for one provider.
type ProviderConfig struct {
	// Rate is the token budget per Window. The bucket capacity equals Rate.
	Rate   float64       `yaml:"rate"`
	Window time.Duration `yaml:"window"`

	// BackoffFloor is the initial backoff after the first rate-limit
	// failure; BackoffCap bounds exponential growth.
	BackoffFloor time.Duration `yaml:"backoff_floor"`
	BackoffCap   time.Duration `yaml:"backoff_cap"`

	// MaxWait bounds how long Acquire may block before rejecting.
	MaxWait time.Duration `yaml:"max_wait"`

	// LowReserve is the fraction of the bucket held back from LOW-priority
	// callers, so background work cannot starve interactive paths.
	LowReserve float64 `yaml:"low_reserve"`

	// HighOverrideBudget is how many HIGH acquisitions may bypass each
	// backoff window.
	HighOverrideBudget int `yaml:"high_override_budget"`

	// Headers names the header-parsing strategy for this provider
	// (see StrategyByName). Empty uses the limiter-wide default.
	Headers string `yaml:"headers"`
}

// Validate checks the policy for internally consistent values.
func (c ProviderConfig) Validate() error {
	if c.Rate <= 0 {
		return errors.New("ratelimit: rate must be positive")
	}
	if c.Window <= 0 {
		return errors.New("ratelimit: window must be positive")
	}
	if c.BackoffFloor <= 0 || c.BackoffCap < c.BackoffFloor {
		return errors.New("ratelimit: backoff bounds invalid")
	}
	if c.LowReserve < 0 || c.LowReserve >= 1 {
		return errors.New("ratelimit: low reserve must be in [0,1)")
	}
	if c.HighOverrideBudget < 0 {
		return errors.New("ratelimit: high override budget must be non-negative")
	}
	if c.Headers != "" {
		if _, err := StrategyByName(c.Headers); err != nil {
			return err
		}
	}
	return nil
}

// Decision is the outcome of a non-blocking acquisition attempt.
type Decision struct {
	Granted bool
	// RetryAfter estimates when the next attempt could succeed. Zero when
	// Granted.
	RetryAfter time.Duration
}

type providerState struct {
	mu  sync.Mutex
	cfg ProviderConfig

	tokens     float64
	lastRefill time.Time

	failures     int
	backoff      time.Duration
	backoffUntil time.Time
	overrideUsed int
	lastSuccess  time.Time
}

// Limiter is a process-scoped admission controller. Construct one at
// startup and inject it into every provider client; per-provider state is
// guarded by per-provider locks so unrelated providers never contend.
type Limiter struct {
	mu        sync.Mutex // guards providers map, not provider state
	providers map[string]*providerState
	configs   map[string]ProviderConfig
	fallback  ProviderConfig
	strategy  HeaderStrategy

	now       func() time.Time
	randFloat func() float64 // uniform in [0,1), for backoff jitter
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithHeaderStrategy replaces the header-parsing strategy used by
// UpdateFromHeaders.
func WithHeaderStrategy(s HeaderStrategy) Option {
	return func(l *Limiter) { l.strategy = s }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithRand replaces the jitter source, for tests.
func WithRand(f func() float64) Option {
	return func(l *Limiter) { l.randFloat = f }
}

// New creates a limiter from per-provider configs. Providers absent from
// the map are admitted under fallback.
func New(configs map[string]ProviderConfig, fallback ProviderConfig, opts ...Option) (*Limiter, error) {
	if err := fallback.Validate(); err != nil {
		return nil, err
	}
	for name, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, errors.Join(errors.New("provider "+name), err)
		}
	}
	l := &Limiter{
		providers: make(map[string]*providerState),
		configs:   configs,
		fallback:  fallback,
		strategy:  XRateLimitStrategy{},
		now:       time.Now,
		randFloat: rand.Float64,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) state(provider string) *providerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.providers[provider]
	if !ok {
		cfg, ok := l.configs[provider]
		if !ok {
			cfg = l.fallback
		}
		st = &providerState{
			cfg:        cfg,
			tokens:     cfg.Rate,
			lastRefill: l.now(),
			backoff:    cfg.BackoffFloor,
		}
		l.providers[provider] = st
	}
	return st
}

// refillLocked tops up the bucket for time elapsed since the last refill.
// Callers hold st.mu.
func (st *providerState) refillLocked(now time.Time) {
	elapsed := now.Sub(st.lastRefill)
	if elapsed <= 0 {
		return
	}
	st.tokens = math.Min(st.cfg.Rate,
		st.tokens+st.cfg.Rate*elapsed.Seconds()/st.cfg.Window.Seconds())
	st.lastRefill = now
}

// TryAcquire attempts a non-blocking acquisition.
func (l *Limiter) TryAcquire(provider string, pri Priority) Decision {
	st := l.state(provider)
	now := l.now()

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tryAcquireLocked(now, pri)
}

func (st *providerState) tryAcquireLocked(now time.Time, pri Priority) Decision {
	st.refillLocked(now)

	if now.Before(st.backoffUntil) {
		if pri == PriorityHigh && st.overrideUsed < st.cfg.HighOverrideBudget && st.tokens >= 1 {
			st.overrideUsed++
			st.tokens--
			return Decision{Granted: true}
		}
		return Decision{RetryAfter: st.backoffUntil.Sub(now)}
	}

	need := 1.0
	if pri == PriorityLow {
		need += st.cfg.LowReserve * st.cfg.Rate
	}
	if st.tokens >= need {
		st.tokens--
		return Decision{Granted: true}
	}

	deficit := need - st.tokens
	perSecond := st.cfg.Rate / st.cfg.Window.Seconds()
	wait := time.Duration(deficit / perSecond * float64(time.Second))
	if wait <= 0 {
		wait = time.Millisecond
	}
	return Decision{RetryAfter: wait}
}

// Acquire blocks until a token is granted, the provider's MaxWait elapses
// (ErrRejected), or ctx is done. Transient scarcity never surfaces as an
// error other than ErrRejected; callers decide their own fallback.
func (l *Limiter) Acquire(ctx context.Context, provider string, pri Priority) error {
	st := l.state(provider)
	deadline := l.now().Add(st.cfg.MaxWait)

	for {
		now := l.now()
		st.mu.Lock()
		d := st.tryAcquireLocked(now, pri)
		st.mu.Unlock()
		if d.Granted {
			return nil
		}

		remaining := deadline.Sub(now)
		if d.RetryAfter >= remaining {
			return ErrRejected
		}

		timer := time.NewTimer(d.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RecordSuccess resets the failure counter and shrinks the backoff window
// geometrically back toward the floor.
func (l *Limiter) RecordSuccess(provider string) {
	st := l.state(provider)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.failures = 0
	st.lastSuccess = l.now()
	st.backoff = max(st.cfg.BackoffFloor, st.backoff/2)
}

// RecordFailure reports a failed provider call. Only failures attributable
// to rate limiting grow the backoff window; other errors are the caller's
// to surface and leave the budget untouched.
func (l *Limiter) RecordFailure(provider string, isRateLimit bool) {
	if !isRateLimit {
		return
	}
	st := l.state(provider)
	now := l.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.failures++
	if st.failures > 1 {
		st.backoff = min(st.cfg.BackoffCap, st.backoff*2)
	}

	// ±20% jitter so independent callers don't retry in lockstep.
	jittered := time.Duration(float64(st.backoff) * (0.8 + 0.4*l.randFloat()))
	st.backoffUntil = now.Add(jittered)
	st.overrideUsed = 0
}

// UpdateFromHeaders folds a provider's advertised quota into its bucket.
// It reports whether the headers carried usable rate-limit information.
func (l *Limiter) UpdateFromHeaders(provider string, h http.Header) bool {
	q, ok := l.strategyFor(provider).Parse(h, l.now())
	if !ok {
		return false
	}

	st := l.state(provider)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.refillLocked(l.now())
	if q.Limit > 0 {
		st.cfg.Rate = q.Limit
		if until := q.Reset.Sub(l.now()); until > 0 {
			st.cfg.Window = until
		}
	}
	if q.Remaining >= 0 {
		st.tokens = math.Min(q.Remaining, st.cfg.Rate)
	}
	return true
}

// strategyFor resolves a provider's header-parsing strategy: the one named
// in its config, else the limiter-wide default. configs is immutable after
// New, so no lock is needed.
func (l *Limiter) strategyFor(provider string) HeaderStrategy {
	if cfg, ok := l.configs[provider]; ok && cfg.Headers != "" {
		if s, err := StrategyByName(cfg.Headers); err == nil {
			return s
		}
	}
	return l.strategy
}

// Reset restores a provider to its configured initial state. Operator
// action only; nothing in the call path resets state implicitly.
func (l *Limiter) Reset(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.providers, provider)
}

// Snapshot reports a provider's current state for diagnostics.
func (l *Limiter) Snapshot(provider string) State {
	st := l.state(provider)
	now := l.now()

	st.mu.Lock()
	defer st.mu.Unlock()
	st.refillLocked(now)

	s := State{
		Provider:    provider,
		Tokens:      st.tokens,
		Failures:    st.failures,
		Backoff:     st.backoff,
		LastSuccess: st.lastSuccess,
	}
	if now.Before(st.backoffUntil) {
		s.BackoffRemaining = st.backoffUntil.Sub(now)
	}
	return s
}

// State is a read-only view of one provider's limiter state.
type State struct {
	Provider         string        `json:"provider"`
	Tokens           float64       `json:"tokens"`
	Failures         int           `json:"failures"`
	Backoff          time.Duration `json:"backoff"`
	BackoffRemaining time.Duration `json:"backoff_remaining"`
	LastSuccess      time.Time     `json:"last_success"`
}
