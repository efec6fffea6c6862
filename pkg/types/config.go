// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by source adapters.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout per upstream call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with upstream requests
	// (e.g. "metasearch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// QuotaConfig holds the per-source fetch allocation settings.
type QuotaConfig struct {
	// BaselineBudget is the total-result budget the static shares are
	// tuned against. Shares scale linearly with totalBudget/BaselineBudget.
	BaselineBudget int `json:"baseline_budget" yaml:"baseline_budget"`

	// PreferredShare is the per-source share (at BaselineBudget) given to
	// each preferred source.
	PreferredShare int `json:"preferred_share" yaml:"preferred_share"`

	// MinPerSource is the floor limit any planned source receives.
	MinPerSource int `json:"min_per_source" yaml:"min_per_source"`

	// MaxPerSource is the hard ceiling on any single upstream call.
	MaxPerSource int `json:"max_per_source" yaml:"max_per_source"`

	// FallbackLimit is the fixed per-source limit used by fallback-fill waves.
	FallbackLimit int `json:"fallback_limit" yaml:"fallback_limit"`
}

// BreakerConfig holds circuit-breaker settings.
type BreakerConfig struct {
	// Cooldown is how long a source stays skipped after a blocked/CAPTCHA
	// classification. Clamped to [30s, 30m] at use.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

// CacheConfig holds response-cache settings.
type CacheConfig struct {
	// TTL bounds how long a cached payload is served.
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Capacity bounds the number of cached payloads (LRU eviction).
	Capacity int `json:"capacity" yaml:"capacity"`

	// RedisAddr, when set, switches the cache to a Redis backend
	// (host:port). Empty means the in-memory LRU.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`

	// RedisPassword authenticates the Redis backend when needed.
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`

	// RedisDB selects the Redis logical database.
	RedisDB int `json:"redis_db" yaml:"redis_db"`
}

// EngineConfig groups every tunable of the aggregation engine. Trust weights
// and cooldowns are deliberately configuration, not constants.
type EngineConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxConcurrent bounds in-flight upstream calls across all sources.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`

	// MaxPerSourceConcurrent bounds in-flight calls to one source.
	MaxPerSourceConcurrent int `json:"max_per_source_concurrent" yaml:"max_per_source_concurrent"`

	// TrustWeights maps a source to its static weight in [0,1]. Sources
	// absent from the map score with DefaultWeight.
	TrustWeights map[SourceID]float64 `json:"trust_weights" yaml:"trust_weights"`

	// DefaultWeight scores sources missing from TrustWeights.
	DefaultWeight float64 `json:"default_weight" yaml:"default_weight"`

	// PreferredSources receive the larger static quota share.
	PreferredSources []SourceID `json:"preferred_sources" yaml:"preferred_sources"`

	Quota   QuotaConfig   `json:"quota" yaml:"quota"`
	Breaker BreakerConfig `json:"breaker" yaml:"breaker"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`

	// SerperAPIKey authenticates the Google (Serper) adapters.
	SerperAPIKey string `json:"serper_api_key,omitempty" yaml:"serper_api_key,omitempty"`
}

// DefaultEngineConfig returns the engine defaults. Weight values follow the
// empirical reliability of each upstream, not content relevance.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   20 * time.Second,
			UserAgent: "metasearch/0.1",
		},
		MaxConcurrent:          8,
		MaxPerSourceConcurrent: 1,
		TrustWeights: map[SourceID]float64{
			"duckduckgo": 1.0,
			"brave":      0.95,
			"google":     0.9,
			"mojeek":     0.75,
		},
		DefaultWeight:    0.5,
		PreferredSources: []SourceID{"duckduckgo", "brave"},
		Quota: QuotaConfig{
			BaselineBudget: 20,
			PreferredShare: 8,
			MinPerSource:   3,
			MaxPerSource:   50,
			FallbackLimit:  10,
		},
		Breaker: BreakerConfig{Cooldown: 10 * time.Minute},
		Cache:   CacheConfig{TTL: 60 * time.Second, Capacity: 500},
	}
}
