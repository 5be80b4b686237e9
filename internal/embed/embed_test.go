// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/litsearch/pkg/types"
)

// countingProvider records how many times Embed reached it.
type countingProvider struct {
	calls int
	fail  bool
}

func (p *countingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.calls++
	if p.fail {
		return nil, errors.New("backend down")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (p *countingProvider) Dimensions() int { return 2 }

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeText("  A\n\tb   C ", 0))
	assert.Equal(t, "abc", NormalizeText("abcdef", 3))
	assert.Equal(t, "", NormalizeText("   ", 100))
}

func TestCachedHitsSkipBackend(t *testing.T) {
	inner := &countingProvider{}
	cached, err := NewCached(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	v1, err := cached.Embed(ctx, "graph neural networks")
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "graph neural networks")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedKeyNormalization(t *testing.T) {
	inner := &countingProvider{}
	cached, err := NewCached(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cached.Embed(ctx, "Graph   Neural Networks")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "graph neural networks")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "case and whitespace variants share a cache entry")
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	inner := &countingProvider{fail: true}
	cached, err := NewCached(inner, 8)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cached.Embed(ctx, "text")
	require.Error(t, err)
	assert.Equal(t, 0, cached.Len())

	inner.fail = false
	_, err = cached.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEviction(t *testing.T) {
	inner := &countingProvider{}
	cached, err := NewCached(inner, 2)
	require.NoError(t, err)

	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := cached.Embed(ctx, text)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cached.Len())
}

func TestNewOpenAIWithoutKey(t *testing.T) {
	_, err := NewOpenAI(types.EmbeddingConfig{})
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
}
