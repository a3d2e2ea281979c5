// Package openai implements warraq.EmbeddingProvider on the OpenAI
// embeddings API.
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	warraq "github.com/warraqhq/warraq"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-3-small"

// Embedding embeds text through the OpenAI embeddings endpoint. One API
// call covers a whole batch.
type Embedding struct {
	client *openai.Client
	model  string
	dims   int
}

var _ warraq.EmbeddingProvider = (*Embedding)(nil)

// New creates an Embedding provider. model defaults to DefaultModel; dims
// must match what the model emits (1536 for text-embedding-3-small, 3072
// for text-embedding-3-large).
func New(apiKey, model string, dims int) *Embedding {
	if model == "" {
		model = DefaultModel
	}
	if dims <= 0 {
		dims = 1536
		if model == string(openai.LargeEmbedding3) {
			dims = 3072
		}
	}
	return &Embedding{
		client: openai.NewClient(apiKey),
		model:  model,
		dims:   dims,
	}
}

// NewWithBaseURL creates an Embedding provider against an
// OpenAI-compatible endpoint.
func NewWithBaseURL(apiKey, baseURL, model string, dims int) *Embedding {
	e := New(apiKey, model, dims)
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	e.client = openai.NewClientWithConfig(cfg)
	return e
}

// Name returns "openai".
func (e *Embedding) Name() string { return "openai" }

// Dimensions returns the configured embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

// Embed embeds all texts in a single batched API call, returning vectors
// in input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: requested %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// The API documents no ordering guarantee; place by Index.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
