// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the literature search engine:
// the normalized paper record, search queries and results, coverage diagnostics,
// and the error taxonomy shared across sources, limiter, ranker, and orchestrator.
package types

import (
	"strings"
	"time"
)

// Source identifies one external literature database.
type Source string

const (
	SourceSemanticScholar Source = "semantic_scholar"
	SourceArxiv           Source = "arxiv"
	SourcePubmed          Source = "pubmed"
)

// AllSources lists every supported literature database.
func AllSources() []Source {
	return []Source{SourceSemanticScholar, SourceArxiv, SourcePubmed}
}

// PaperRecord is the canonical representation of one paper, normalized from
// a source-specific API payload at the client boundary. Source-specific
// shapes never leak past the client that produced the record.
type PaperRecord struct {
	// ID is a stable synthetic key: "<source>:<source-native-id>".
	// Unique per source record before deduplication.
	ID string `json:"id" yaml:"id"`

	// CanonicalID is assigned by deduplication and identifies one
	// real-world paper across sources. Empty before dedup.
	CanonicalID string `json:"canonical_id,omitempty" yaml:"canonical_id,omitempty"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract or summary. May be empty.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal, conference, or preprint category. May be empty.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is the normalized DOI: lowercase, URL prefix stripped. May be empty.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL is the landing page for the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// PDFURL is a direct link to the PDF when the source provides one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// CitationCount is the citation count reported by the source, 0 when absent.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// SourceDatabase identifies which database produced this record.
	SourceDatabase Source `json:"source" yaml:"source"`

	// Provenance lists every database that contributed to this record after
	// deduplication, so coverage analysis can attribute recall per source.
	Provenance []Source `json:"provenance,omitempty" yaml:"provenance,omitempty"`

	// Embedding is the semantic vector for this record, populated lazily by
	// the ranker. It is omitted from JSON output but carried in saved
	// result files so the corpus can ingest vectors.
	Embedding []float32 `json:"-" yaml:"embedding,flow,omitempty"`

	// KeywordScore, SemanticScore, and CombinedScore are set by the ranker,
	// each scaled to [0,1].
	KeywordScore  float64 `json:"keyword_score" yaml:"keyword_score"`
	SemanticScore float64 `json:"semantic_score" yaml:"semantic_score"`
	CombinedScore float64 `json:"combined_score" yaml:"combined_score"`
}

// EmbeddingText returns the text the engine embeds for this record.
func (p PaperRecord) EmbeddingText() string {
	if p.Abstract == "" {
		return p.Title
	}
	return p.Title + " " + p.Abstract
}

// NormalizeDOI lowercases a DOI and strips resolver URL prefixes, so DOIs
// from different sources compare equal. Returns "" for non-DOI input.
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		d = strings.TrimPrefix(d, prefix)
	}
	if !strings.HasPrefix(d, "10.") {
		return ""
	}
	return d
}

// SearchQuery holds the parameters of one search invocation. Immutable value
// object: the engine never mutates it after construction.
type SearchQuery struct {
	// Text is the free-form query string.
	Text string `json:"text" yaml:"text"`

	// DateFrom and DateTo bound the publication date range. Nil means unbounded.
	DateFrom *time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty" yaml:"date_to,omitempty"`

	// MaxResultsPerSource caps how many records each source may return.
	MaxResultsPerSource int `json:"max_results_per_source,omitempty" yaml:"max_results_per_source,omitempty"`

	// MaxTotalResults caps the final ranked result set.
	MaxTotalResults int `json:"max_total_results,omitempty" yaml:"max_total_results,omitempty"`

	// Sources restricts the search to a subset of databases. Empty means all
	// enabled sources.
	Sources []Source `json:"sources,omitempty" yaml:"sources,omitempty"`

	// Language filters results by language for sources that support it.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// IsEmpty reports whether the query contains no searchable text.
func (q SearchQuery) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == ""
}

// WantsSource reports whether the query includes src, honoring the Sources filter.
func (q SearchQuery) WantsSource(src Source) bool {
	if len(q.Sources) == 0 {
		return true
	}
	for _, s := range q.Sources {
		if s == src {
			return true
		}
	}
	return false
}

// SourceState classifies the outcome of one source during a search.
type SourceState string

const (
	SourceOK       SourceState = "ok"
	SourceDegraded SourceState = "degraded"
	SourceFailed   SourceState = "failed"
)

// SourceStatus records the per-source outcome of one search invocation.
type SourceStatus struct {
	State SourceState `json:"state" yaml:"state"`

	// Error holds the failure detail when State is failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Latency is the wall-clock duration of the source fetch, including
	// rate-limiter waits and retries.
	Latency time.Duration `json:"latency" yaml:"latency"`

	// Results is the number of records the source contributed before dedup.
	Results int `json:"results" yaml:"results"`
}

// CoverageReport summarizes per-source outcomes and dedup statistics for one
// search. Read-only after orchestration completes.
type CoverageReport struct {
	PerSource map[Source]SourceStatus `json:"per_source" yaml:"per_source"`

	TotalBeforeDedup  int `json:"total_before_dedup" yaml:"total_before_dedup"`
	TotalAfterDedup   int `json:"total_after_dedup" yaml:"total_after_dedup"`
	DuplicatesRemoved int `json:"duplicates_removed" yaml:"duplicates_removed"`

	// SourceCoverage is the fraction of requested sources that produced a
	// usable batch.
	SourceCoverage float64 `json:"source_coverage" yaml:"source_coverage"`

	// SemanticDegraded is true when ranking fell back to keyword-only
	// scoring because the embedding provider was unavailable.
	SemanticDegraded bool `json:"semantic_degraded" yaml:"semantic_degraded"`
}

// SearchResult is the terminal artifact of one search: the ranked,
// deduplicated records plus coverage diagnostics.
type SearchResult struct {
	Query    SearchQuery    `json:"query" yaml:"query"`
	Records  []PaperRecord  `json:"records" yaml:"records"`
	Coverage CoverageReport `json:"coverage" yaml:"coverage"`

	// Partial is true when the search was cancelled mid-flight and the
	// result holds only what had been aggregated by then.
	Partial bool `json:"partial,omitempty" yaml:"partial,omitempty"`
}
