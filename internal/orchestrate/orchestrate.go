// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate runs one search across every requested literature
// database in parallel and assembles the terminal result: fetch,
// deduplicate, rank, truncate. One failed source degrades coverage; the
// search itself only fails when every source does.
package orchestrate

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meshintel/litsearch/internal/dedup"
	"github.com/meshintel/litsearch/internal/rank"
	"github.com/meshintel/litsearch/internal/source"
	"github.com/meshintel/litsearch/pkg/types"
)

const (
	defaultPerSource     = 20
	defaultTotalResults  = 50
	defaultSourceTimeout = 30 * time.Second
)

// Orchestrator fans a query out to source clients and folds the batches
// into a ranked result.
type Orchestrator struct {
	clients  []source.Client
	ranker   *rank.Ranker
	cfg      types.SearchConfig
	dedupCfg types.DedupConfig
	log      *zap.Logger
}

// New builds an Orchestrator over the given clients.
func New(clients []source.Client, ranker *rank.Ranker, cfg types.SearchConfig, dedupCfg types.DedupConfig, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		clients:  clients,
		ranker:   ranker,
		cfg:      cfg,
		dedupCfg: dedupCfg,
		log:      log,
	}
}

// outcome is one source's contribution, written by exactly one goroutine.
type outcome struct {
	src    types.Source
	batch  []types.PaperRecord
	status types.SourceStatus
}

// Search runs the full pipeline for one query. It fails only on an empty
// query, no requested sources, or when every source fails; cancellation
// mid-flight yields a partial result built from whatever had arrived.
func (o *Orchestrator) Search(ctx context.Context, query types.SearchQuery) (*types.SearchResult, error) {
	if query.IsEmpty() {
		return nil, errors.New("empty query")
	}

	clients := make([]source.Client, 0, len(o.clients))
	for _, c := range o.clients {
		if query.WantsSource(c.Source()) {
			clients = append(clients, c)
		}
	}
	if len(clients) == 0 {
		return nil, errors.New("no sources requested")
	}

	perSource := query.MaxResultsPerSource
	if perSource <= 0 {
		perSource = o.cfg.MaxResultsPerSource
	}
	if perSource <= 0 {
		perSource = defaultPerSource
	}
	timeout := o.cfg.SourceTimeout
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}

	start := time.Now()
	outcomes := make([]outcome, len(clients))

	// Each goroutine owns one outcome slot and always returns nil: a
	// source failure must not cancel its siblings.
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		g.Go(func() error {
			outcomes[i] = o.fetchOne(gctx, c, query, perSource, timeout)
			return nil
		})
	}
	_ = g.Wait()

	partial := ctx.Err() != nil

	perSourceStatus := make(map[types.Source]types.SourceStatus, len(outcomes))
	usable := 0
	var batches [][]types.PaperRecord
	failures := make(map[types.Source]string)
	for _, out := range outcomes {
		perSourceStatus[out.src] = out.status
		switch out.status.State {
		case types.SourceFailed:
			failures[out.src] = out.status.Error
		default:
			usable++
			if len(out.batch) > 0 {
				batches = append(batches, out.batch)
			}
		}
	}
	if usable == 0 && !partial {
		return nil, &types.AllSourcesFailedError{Errors: failures}
	}

	merged, stats := dedup.Merge(batches, o.dedupCfg)

	// Rank even when the caller's context just expired: the partial
	// result should still come back ordered.
	rankCtx := ctx
	if partial {
		rankCtx = context.WithoutCancel(ctx)
	}
	ranked, semanticDegraded := o.ranker.Rank(rankCtx, query.Text, merged)

	maxTotal := query.MaxTotalResults
	if maxTotal <= 0 {
		maxTotal = o.cfg.MaxTotalResults
	}
	if maxTotal <= 0 {
		maxTotal = defaultTotalResults
	}
	if len(ranked) > maxTotal {
		ranked = ranked[:maxTotal]
	}

	o.log.Info("search complete",
		zap.String("query", query.Text),
		zap.Int("sources", len(clients)),
		zap.Int("usable_sources", usable),
		zap.Int("before_dedup", stats.Before),
		zap.Int("after_dedup", stats.After),
		zap.Bool("partial", partial),
		zap.Bool("semantic_degraded", semanticDegraded),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &types.SearchResult{
		Query:   query,
		Records: ranked,
		Coverage: types.CoverageReport{
			PerSource:         perSourceStatus,
			TotalBeforeDedup:  stats.Before,
			TotalAfterDedup:   stats.After,
			DuplicatesRemoved: stats.Removed,
			SourceCoverage:    float64(usable) / float64(len(clients)),
			SemanticDegraded:  semanticDegraded,
		},
		Partial: partial,
	}, nil
}

// fetchOne runs a single source fetch under its own timeout and
// classifies the outcome. A fetch that succeeds but returns nothing is
// degraded, not ok: the source answered but contributed no coverage.
func (o *Orchestrator) fetchOne(ctx context.Context, c source.Client, query types.SearchQuery, limit int, timeout time.Duration) outcome {
	src := c.Source()
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	batch, err := c.Fetch(fctx, query, limit)
	latency := time.Since(start)

	status := types.SourceStatus{Latency: latency, Results: len(batch)}
	switch {
	case err != nil:
		status.State = types.SourceFailed
		status.Error = err.Error()
		o.log.Warn("source failed",
			zap.String("source", string(src)),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
	case len(batch) == 0:
		status.State = types.SourceDegraded
		o.log.Info("source returned nothing",
			zap.String("source", string(src)),
			zap.Duration("latency", latency),
		)
	default:
		status.State = types.SourceOK
		o.log.Debug("source ok",
			zap.String("source", string(src)),
			zap.Int("results", len(batch)),
			zap.Duration("latency", latency),
		)
	}
	return outcome{src: src, batch: batch, status: status}
}
