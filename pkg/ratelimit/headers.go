package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Quota is rate-limit information advertised by a provider response.
type Quota struct {
	// Limit is the provider's request budget per reset period; 0 when not
	// advertised.
	Limit float64
	// Remaining is the budget left in the current period; -1 when not
	// advertised.
	Remaining float64
	// Reset is when the budget replenishes; zero when not advertised.
	Reset time.Time
}

// HeaderStrategy extracts quota information from provider response headers.
// Parsing varies per provider family, so it lives behind this interface
// instead of inside the limiter.
type HeaderStrategy interface {
	// Parse reports the advertised quota and whether the headers carried
	// any usable rate-limit information.
	Parse(h http.Header, now time.Time) (Quota, bool)
}

// Strategy names accepted in provider configuration.
const (
	StrategyXRateLimit = "x-ratelimit"
	StrategyRetryAfter = "retry-after"
)

// StrategyByName resolves a configured strategy name.
func StrategyByName(name string) (HeaderStrategy, error) {
	switch name {
	case StrategyXRateLimit:
		return XRateLimitStrategy{}, nil
	case StrategyRetryAfter:
		return RetryAfterStrategy{}, nil
	default:
		return nil, fmt.Errorf("ratelimit: unknown header strategy %q", name)
	}
}

// XRateLimitStrategy parses the de facto standard X-RateLimit-* headers
// used by GitHub, Semantic Scholar, and most REST APIs. The reset value is
// accepted as either a unix timestamp or delta seconds.
type XRateLimitStrategy struct{}

// Parse implements HeaderStrategy.
func (XRateLimitStrategy) Parse(h http.Header, now time.Time) (Quota, bool) {
	q := Quota{Remaining: -1}
	found := false

	if v := h.Get("X-RateLimit-Limit"); v != "" {
		if limit, err := strconv.ParseFloat(v, 64); err == nil && limit > 0 {
			q.Limit = limit
			found = true
		}
	}
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		if rem, err := strconv.ParseFloat(v, 64); err == nil && rem >= 0 {
			q.Remaining = rem
			found = true
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if raw, err := strconv.ParseInt(v, 10, 64); err == nil && raw > 0 {
			// Values within a day are delta seconds, larger ones unix time.
			if raw < int64(24*time.Hour/time.Second) {
				q.Reset = now.Add(time.Duration(raw) * time.Second)
			} else {
				q.Reset = time.Unix(raw, 0)
			}
			found = true
		}
	}
	return q, found
}

// RetryAfterStrategy parses the Retry-After header (delta seconds only) as
// a remaining-budget-exhausted signal. Providers that send 429s without
// X-RateLimit headers typically advertise this instead.
type RetryAfterStrategy struct{}

// Parse implements HeaderStrategy.
func (RetryAfterStrategy) Parse(h http.Header, now time.Time) (Quota, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return Quota{}, false
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs <= 0 {
		return Quota{}, false
	}
	return Quota{Remaining: 0, Reset: now.Add(time.Duration(secs) * time.Second)}, true
}
