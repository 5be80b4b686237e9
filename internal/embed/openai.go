// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meshintel/litsearch/pkg/types"
)

const (
	defaultModel      = "text-embedding-3-small"
	defaultDimensions = 1536
	maxInputRunes     = 8000
)

// OpenAI embeds text through the OpenAI embeddings API (or any
// API-compatible endpoint via BaseURL).
type OpenAI struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

// NewOpenAI builds an OpenAI-backed provider. Without an API key it
// fails with types.ErrEmbeddingUnavailable so callers can fall back to
// keyword-only ranking instead of erroring per request.
func NewOpenAI(cfg types.EmbeddingConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, types.ErrEmbeddingUnavailable
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = defaultModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		dims:   dims,
	}, nil
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	text = NormalizeText(text, maxInputRunes)
	if text == "" {
		return nil, fmt.Errorf("embedding empty text")
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	return resp.Data[0].Embedding, nil
}

func (o *OpenAI) Dimensions() int { return o.dims }
