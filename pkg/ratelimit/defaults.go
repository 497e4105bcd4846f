package ratelimit

import "time"

// Provider names for the upstream APIs the enrichment pipeline calls.
const (
	ProviderSemanticScholar = "semantic_scholar"
	ProviderGitHub          = "github"
	ProviderArxiv           = "arxiv"
	ProviderLLM             = "llm"
)

// DefaultConfigs returns conservative static policies for known providers,
// used until a provider's response headers advertise a live quota.
func DefaultConfigs() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		ProviderSemanticScholar: {
			Rate:               100,
			Window:             5 * time.Minute,
			BackoffFloor:       2 * time.Second,
			BackoffCap:         5 * time.Minute,
			MaxWait:            15 * time.Second,
			LowReserve:         0.2,
			HighOverrideBudget: 3,
		},
		ProviderGitHub: {
			Rate:               5000,
			Window:             time.Hour,
			BackoffFloor:       time.Second,
			BackoffCap:         10 * time.Minute,
			MaxWait:            10 * time.Second,
			LowReserve:         0.1,
			HighOverrideBudget: 5,
		},
		// arXiv asks for no more than one request every three seconds.
		ProviderArxiv: {
			Rate:               20,
			Window:             time.Minute,
			BackoffFloor:       3 * time.Second,
			BackoffCap:         10 * time.Minute,
			MaxWait:            30 * time.Second,
			LowReserve:         0.1,
			HighOverrideBudget: 2,
		},
		// LLM APIs advertise Retry-After on 429s rather than X-RateLimit.
		ProviderLLM: {
			Rate:               60,
			Window:             time.Minute,
			BackoffFloor:       2 * time.Second,
			BackoffCap:         2 * time.Minute,
			MaxWait:            20 * time.Second,
			LowReserve:         0.25,
			HighOverrideBudget: 3,
			Headers:            StrategyRetryAfter,
		},
	}
}

// DefaultFallback is the policy for providers with no named config.
func DefaultFallback() ProviderConfig {
	return ProviderConfig{
		Rate:               30,
		Window:             time.Minute,
		BackoffFloor:       2 * time.Second,
		BackoffCap:         5 * time.Minute,
		MaxWait:            10 * time.Second,
		LowReserve:         0.1,
		HighOverrideBudget: 2,
	}
}
