// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/meshintel/litsearch/internal/embed"
	"github.com/meshintel/litsearch/internal/orchestrate"
	"github.com/meshintel/litsearch/internal/rank"
	"github.com/meshintel/litsearch/internal/source"
	"github.com/meshintel/litsearch/pkg/types"
)

// buildEngine assembles the search pipeline from configuration: one
// client per enabled source, the embedding provider (nil when no key is
// configured), the ranker, and the orchestrator on top.
func buildEngine(cfg types.EngineConfig) (*orchestrate.Orchestrator, error) {
	httpClient := &http.Client{
		Timeout: cfg.Search.HTTP.Timeout,
		Transport: &userAgentTransport{
			agent: cfg.Search.HTTP.UserAgent,
			next:  http.DefaultTransport,
		},
	}

	var clients []source.Client
	if cfg.Search.SemanticScholar.Enabled {
		clients = append(clients, source.NewSemanticScholar(httpClient, cfg.Search.SemanticScholar))
	}
	if cfg.Search.Arxiv.Enabled {
		clients = append(clients, source.NewArxiv(httpClient, cfg.Search.Arxiv))
	}
	if cfg.Search.Pubmed.Enabled {
		clients = append(clients, source.NewPubmed(httpClient, cfg.Search.Pubmed))
	}
	if len(clients) == 0 {
		return nil, errors.New("no sources enabled in configuration")
	}

	ranker := rank.New(embeddingProvider(cfg.Embedding), cfg.Rank, logger)
	return orchestrate.New(clients, ranker, cfg.Search, cfg.Dedup, logger), nil
}

// embeddingProvider builds the cached embedding provider, or nil when
// embeddings are not configured. A nil provider means keyword-only
// ranking, which the coverage report surfaces to the user.
func embeddingProvider(cfg types.EmbeddingConfig) embed.Provider {
	inner, err := embed.NewOpenAI(cfg)
	if err != nil {
		if errors.Is(err, types.ErrEmbeddingUnavailable) {
			logger.Info("no embedding API key configured, ranking will be keyword-only")
		} else {
			logger.Warn("embedding provider unavailable", zap.Error(err))
		}
		return nil
	}
	cached, err := embed.NewCached(inner, cfg.CacheSize)
	if err != nil {
		logger.Warn("embedding cache unavailable, using uncached provider", zap.Error(err))
		return inner
	}
	return cached
}

// userAgentTransport stamps the configured User-Agent on every request.
type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.agent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.next.RoundTrip(req)
}
