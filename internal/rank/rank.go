// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank orders deduplicated paper records by hybrid relevance:
// a semantic score from embedding similarity blended with a keyword
// score from query term overlap. When no embedding provider is
// available, or the provider fails mid-batch, ranking degrades to
// keyword-only rather than failing the search.
package rank

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/meshintel/litsearch/internal/embed"
	"github.com/meshintel/litsearch/pkg/types"
)

// Ranker scores and sorts paper records for a query.
type Ranker struct {
	provider embed.Provider
	cfg      types.RankConfig
	log      *zap.Logger
}

// New builds a Ranker. provider may be nil, which forces keyword-only
// ranking. Zero weights fall back to the 0.7 semantic / 0.3 keyword
// split.
func New(provider embed.Provider, cfg types.RankConfig, log *zap.Logger) *Ranker {
	if cfg.SemanticWeight == 0 && cfg.KeywordWeight == 0 {
		cfg.SemanticWeight = 0.7
		cfg.KeywordWeight = 0.3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ranker{provider: provider, cfg: cfg, log: log}
}

// Rank scores records against the query text and sorts them by combined
// score, citation count, year, then title. It reports whether semantic
// scoring was degraded to keyword-only. Records are modified in place.
func (r *Ranker) Rank(ctx context.Context, queryText string, records []types.PaperRecord) ([]types.PaperRecord, bool) {
	terms := queryTerms(queryText)
	for i := range records {
		records[i].KeywordScore = keywordScore(terms, &records[i])
	}

	degraded := !r.scoreSemantic(ctx, queryText, records)
	if degraded {
		for i := range records {
			records[i].SemanticScore = 0
			records[i].CombinedScore = records[i].KeywordScore
		}
	} else {
		normalizeSemantic(records)
		for i := range records {
			records[i].CombinedScore = r.cfg.SemanticWeight*records[i].SemanticScore +
				r.cfg.KeywordWeight*records[i].KeywordScore
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.CitationCount != b.CitationCount {
			return a.CitationCount > b.CitationCount
		}
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Title < b.Title
	})
	return records, degraded
}

// scoreSemantic fills SemanticScore with raw cosine similarity against
// the query embedding. Any failure abandons semantic scoring for the
// whole batch so partial embeddings never skew the ordering.
func (r *Ranker) scoreSemantic(ctx context.Context, queryText string, records []types.PaperRecord) bool {
	if r.provider == nil || len(records) == 0 {
		return false
	}

	queryVec, err := r.provider.Embed(ctx, queryText)
	if err != nil {
		r.log.Warn("query embedding failed, using keyword-only ranking", zap.Error(err))
		return false
	}

	for i := range records {
		vec := records[i].Embedding
		if vec == nil {
			vec, err = r.provider.Embed(ctx, records[i].EmbeddingText())
			if err != nil {
				r.log.Warn("record embedding failed, using keyword-only ranking",
					zap.String("id", records[i].ID), zap.Error(err))
				return false
			}
			records[i].Embedding = vec
		}
		records[i].SemanticScore = cosine(queryVec, vec)
	}
	return true
}

// queryTerms tokenizes the query the same way keywordScore tokenizes
// record text.
func queryTerms(text string) []string {
	return tokenize(text)
}

// keywordScore is the fraction of query terms found in the record's
// title or abstract, in [0,1].
func keywordScore(terms []string, rec *types.PaperRecord) float64 {
	if len(terms) == 0 {
		return 0
	}
	have := make(map[string]bool)
	for _, tok := range tokenize(rec.Title + " " + rec.Abstract) {
		have[tok] = true
	}
	hits := 0
	for _, term := range terms {
		if have[term] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func tokenize(text string) []string {
	var sb strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	fields := strings.Fields(sb.String())
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// normalizeSemantic min-max rescales SemanticScore to [0,1] across the
// batch, so cosine values cluster near the top of the range instead of
// compressing into it. A flat batch maps to 1.
func normalizeSemantic(records []types.PaperRecord) {
	if len(records) == 0 {
		return
	}
	lo, hi := records[0].SemanticScore, records[0].SemanticScore
	for _, r := range records[1:] {
		lo = math.Min(lo, r.SemanticScore)
		hi = math.Max(hi, r.SemanticScore)
	}
	if hi == lo {
		for i := range records {
			records[i].SemanticScore = 1
		}
		return
	}
	for i := range records {
		records[i].SemanticScore = (records[i].SemanticScore - lo) / (hi - lo)
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
