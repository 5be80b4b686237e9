// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source implements clients for external literature databases.
// Each client translates the generic search query into its database's query
// syntax, parses the database's payload (JSON or XML), and normalizes
// entries into types.PaperRecord at the boundary. Source-specific payload
// shapes never escape this package.
package source

import (
	"context"
	"strings"

	"github.com/meshintel/litsearch/pkg/types"
)

// Client fetches and normalizes results from one literature database.
// Fetch fails with the engine's typed errors: *types.RateLimitError,
// *types.TransientError (after retries), *types.AuthError, *types.ParseError.
type Client interface {
	Source() types.Source
	Fetch(ctx context.Context, query types.SearchQuery, limit int) ([]types.PaperRecord, error)
}

const defaultLimit = 20

// clampLimit applies the default and the hard per-source ceiling.
func clampLimit(limit, max int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > max {
		limit = max
	}
	return limit
}

// recordID builds the stable synthetic key "<source>:<native-id>".
func recordID(src types.Source, nativeID string) string {
	return string(src) + ":" + nativeID
}

// cleanText collapses internal whitespace and trims, for titles and
// abstracts that arrive with feed formatting.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
