// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for clients that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litsearch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RateLimitConfig configures one source's request pacing. Limits are
// per-source configuration, not hardcoded policy.
type RateLimitConfig struct {
	// Capacity is the number of requests allowed per Window.
	Capacity int `json:"capacity" yaml:"capacity"`

	// Window is the sliding-window duration.
	Window time.Duration `json:"window" yaml:"window"`

	// MaxWait bounds how long an acquire may block before failing.
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`

	// BaseDelay and MaxDelay bound the exponential backoff entered after a
	// throttle signal from the source.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay  time.Duration `json:"max_delay" yaml:"max_delay"`
}

// SourceConfig holds per-source settings.
type SourceConfig struct {
	// Enabled controls whether the source participates in searches.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// APIKey authenticates against the source, where supported.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is sent to sources that request a contact address (NCBI).
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// MaxRetries is the retry budget for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RateLimit paces requests to this source.
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
}

// SearchConfig holds settings for the search orchestrator and its clients.
type SearchConfig struct {
	// HTTP holds shared transport settings for all source clients.
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// MaxResultsPerSource caps each source's batch (default 20).
	MaxResultsPerSource int `json:"max_results_per_source" yaml:"max_results_per_source"`

	// MaxTotalResults caps the final ranked set (default 50).
	MaxTotalResults int `json:"max_total_results" yaml:"max_total_results"`

	// SourceTimeout bounds each source fetch independently (default 30s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`

	// Per-source settings.
	SemanticScholar SourceConfig `json:"semantic_scholar" yaml:"semantic_scholar"`
	Arxiv           SourceConfig `json:"arxiv" yaml:"arxiv"`
	Pubmed          SourceConfig `json:"pubmed" yaml:"pubmed"`
}

// DedupConfig holds settings for cross-source deduplication.
type DedupConfig struct {
	// TitleThreshold is the minimum normalized-title similarity for two
	// records to be judged the same paper (default 0.9). Validate against
	// curated duplicate pairs before changing it.
	TitleThreshold float64 `json:"title_threshold" yaml:"title_threshold"`
}

// RankConfig holds the hybrid ranking weights. Exposed as configuration so
// deployments can rebalance keyword and semantic relevance.
type RankConfig struct {
	// SemanticWeight scales the embedding-similarity score (default 0.7).
	SemanticWeight float64 `json:"semantic_weight" yaml:"semantic_weight"`

	// KeywordWeight scales the term-overlap score (default 0.3).
	KeywordWeight float64 `json:"keyword_weight" yaml:"keyword_weight"`
}

// EmbeddingConfig holds settings for the embedding provider and its cache.
type EmbeddingConfig struct {
	// APIKey authenticates against the embedding API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the embedding API endpoint (e.g. a local server).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the embedding model identifier.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Dimensions is the fixed vector dimension for this deployment (default 768).
	Dimensions int `json:"dimensions" yaml:"dimensions"`

	// CacheSize bounds the embedding LRU cache (default 1000 entries).
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// CorpusConfig holds settings for the local paper corpus store.
type CorpusConfig struct {
	// Dir is the directory holding the corpus database (default "corpus").
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default result cap for corpus queries (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// EngineConfig groups all engine configuration.
type EngineConfig struct {
	Search    SearchConfig    `json:"search" yaml:"search"`
	Dedup     DedupConfig     `json:"dedup" yaml:"dedup"`
	Rank      RankConfig      `json:"rank" yaml:"rank"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus"`
}
