// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed produces dense vector representations of paper text for
// semantic ranking. Providers are interchangeable; ranking only needs
// Embed and the vector dimensionality.
package embed

import (
	"context"
	"strings"
)

// Provider turns text into a dense vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// NormalizeText prepares text for embedding: whitespace collapsed,
// lowercased, truncated to maxRunes so inputs stay inside model limits.
func NormalizeText(text string, maxRunes int) string {
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))
	if maxRunes > 0 {
		runes := []rune(text)
		if len(runes) > maxRunes {
			text = string(runes[:maxRunes])
		}
	}
	return text
}
