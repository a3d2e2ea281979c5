// Package gemini implements warraq.EmbeddingProvider on the Google Gemini
// embedContent API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	warraq "github.com/warraqhq/warraq"
)

var baseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-embedding-001"

// Embedding embeds text through the Gemini embedContent endpoint. The API
// takes one text per call, so batches embed sequentially.
type Embedding struct {
	apiKey     string
	model      string
	dims       int
	httpClient *http.Client
}

var _ warraq.EmbeddingProvider = (*Embedding)(nil)

// New creates a Gemini embedding provider.
func New(apiKey, model string, dims int) *Embedding {
	if model == "" {
		model = DefaultModel
	}
	if dims <= 0 {
		dims = 768
	}
	return &Embedding{
		apiKey:     apiKey,
		model:      model,
		dims:       dims,
		httpClient: &http.Client{},
	}
}

// Name returns "gemini".
func (e *Embedding) Name() string { return "gemini" }

// Dimensions returns the configured embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

type embedResponse struct {
	Embedding *struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Embed embeds each text sequentially and returns the embedding vectors.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", baseURL, e.model, e.apiKey)

	embeddings := make([][]float32, 0, len(texts))

	for _, text := range texts {
		body := map[string]any{
			"content": map[string]any{
				"parts": []map[string]any{
					{"text": text},
				},
			},
			"outputDimensionality": e.dims,
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gemini: marshal embed body: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(payload)))
		if err != nil {
			return nil, fmt.Errorf("gemini: create embed request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := e.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("gemini: embed request: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("gemini: read embed response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &warraq.ErrHTTP{Status: resp.StatusCode, Body: string(respBody)}
		}

		var parsed embedResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("gemini: parse embed response: %w", err)
		}
		if parsed.Embedding == nil {
			return nil, fmt.Errorf("gemini: missing embedding.values in response")
		}

		vec := make([]float32, len(parsed.Embedding.Values))
		for i, v := range parsed.Embedding.Values {
			vec[i] = float32(v)
		}
		embeddings = append(embeddings, vec)
	}

	return embeddings, nil
}
