// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 4096

// Cached wraps a Provider with an in-memory LRU keyed by a hash of the
// normalized text. The same abstract shows up across queries and across
// re-ranks within one query, so the hit rate pays for the memory.
type Cached struct {
	inner Provider
	cache *lru.Cache[[32]byte, []float32]
}

// NewCached wraps inner with an LRU of the given size (a default is
// applied for size <= 0).
func NewCached(inner Provider, size int) (*Cached, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[[32]byte, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := sha256.Sum256([]byte(NormalizeText(text, maxInputRunes)))
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

// Len reports the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }
