// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup collapses paper records that describe the same work.
// Records from different databases rarely agree byte for byte, so
// matching runs in two tiers: DOI equality when both sides carry one,
// otherwise title similarity guarded by publication year. Matched
// records are merged into one, keeping the most complete metadata and
// the union of the sources that reported it.
package dedup

import (
	"sort"
	"strings"

	"github.com/meshintel/litsearch/pkg/types"
)

// Stats reports what a merge pass did.
type Stats struct {
	Before  int `json:"before" yaml:"before"`
	After   int `json:"after" yaml:"after"`
	Removed int `json:"removed" yaml:"removed"`
}

// Merge flattens the per-source batches and collapses duplicates. The
// result is sorted by canonical ID, so the output does not depend on
// batch order and re-merging an already merged result is a no-op.
func Merge(batches [][]types.PaperRecord, cfg types.DedupConfig) ([]types.PaperRecord, Stats) {
	threshold := cfg.TitleThreshold
	if threshold <= 0 {
		threshold = 0.9
	}

	var all []types.PaperRecord
	for _, b := range batches {
		all = append(all, b...)
	}
	stats := Stats{Before: len(all)}
	if len(all) == 0 {
		return nil, stats
	}

	uf := newUnionFind(len(all))
	titles := make([][]string, len(all))
	for i, r := range all {
		titles[i] = titleTokens(r.Title)
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if sameWork(&all[i], &all[j], titles[i], titles[j], threshold) {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range all {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	merged := make([]types.PaperRecord, 0, len(groups))
	for _, members := range groups {
		merged = append(merged, mergeGroup(all, members))
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CanonicalID < merged[j].CanonicalID
	})

	stats.After = len(merged)
	stats.Removed = stats.Before - stats.After
	return merged, stats
}

// sameWork decides whether two records describe the same paper. A shared
// DOI settles it. Without one, titles must clear the similarity threshold
// and known publication years must agree; a zero year never vetoes.
func sameWork(a, b *types.PaperRecord, ta, tb []string, threshold float64) bool {
	if a.DOI != "" && b.DOI != "" {
		return a.DOI == b.DOI
	}
	if a.Year != 0 && b.Year != 0 && a.Year != b.Year {
		return false
	}
	return jaccard(ta, tb) >= threshold
}

// titleTokens normalizes a title into a sorted, deduplicated token set:
// lowercased, punctuation dropped, whitespace-split.
func titleTokens(title string) []string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte(' ')
		}
	}
	fields := strings.Fields(sb.String())
	seen := make(map[string]bool, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			tokens = append(tokens, f)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// jaccard computes |A∩B| / |A∪B| over two sorted token sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// mergeGroup collapses one duplicate group into a single record. The base
// is the member with the longest abstract (smallest ID on ties, so the
// result is stable), and gaps are filled from the rest.
func mergeGroup(all []types.PaperRecord, members []int) types.PaperRecord {
	sort.Slice(members, func(i, j int) bool {
		a, b := &all[members[i]], &all[members[j]]
		if len(a.Abstract) != len(b.Abstract) {
			return len(a.Abstract) > len(b.Abstract)
		}
		return a.ID < b.ID
	})

	out := all[members[0]]
	out.Provenance = nil
	provSeen := make(map[types.Source]bool)
	for _, idx := range members {
		r := &all[idx]
		if out.DOI == "" {
			out.DOI = r.DOI
		}
		if out.Abstract == "" {
			out.Abstract = r.Abstract
		}
		if out.Year == 0 {
			out.Year = r.Year
		}
		if out.Venue == "" {
			out.Venue = r.Venue
		}
		if out.URL == "" {
			out.URL = r.URL
		}
		if out.PDFURL == "" {
			out.PDFURL = r.PDFURL
		}
		if len(out.Authors) == 0 {
			out.Authors = r.Authors
		}
		if r.CitationCount > out.CitationCount {
			out.CitationCount = r.CitationCount
		}
		for _, src := range r.Provenance {
			if !provSeen[src] {
				provSeen[src] = true
			}
		}
	}
	for _, src := range types.AllSources() {
		if provSeen[src] {
			out.Provenance = append(out.Provenance, src)
		}
	}
	out.CanonicalID = canonicalID(all, members)
	return out
}

// canonicalID derives a stable group key: "doi:<doi>" when any member
// carries one (smallest wins if title matching joined records with
// different DOIs), otherwise the smallest member ID.
func canonicalID(all []types.PaperRecord, members []int) string {
	doi := ""
	minID := ""
	for _, idx := range members {
		r := &all[idx]
		if r.DOI != "" && (doi == "" || r.DOI < doi) {
			doi = r.DOI
		}
		if minID == "" || r.ID < minID {
			minID = r.ID
		}
	}
	if doi != "" {
		return "doi:" + doi
	}
	return minID
}

// Plain weighted union-find, path halving.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
