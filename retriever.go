package warraq

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// Searcher is the query-side surface of the retrieval pipeline.
// Implementations must be safe for concurrent use.
type Searcher interface {
	SemanticSearch(ctx context.Context, query string, topK int, documentID string) (SearchResponse, error)
	HybridSearch(ctx context.Context, query string, topK int, filters Filters) (SearchResponse, error)
	ContextForQuery(ctx context.Context, query string, topK int) (string, error)
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// Retriever orchestrates query embedding, vector search, and relational
// cross-referencing into ranked results. It owns no data and holds no
// mutable state; every call is a synchronous request/response.
//
// Each search issues one embedding call, one vector-index query, and then
// one store lookup per returned result. The per-result document lookup is a
// known N+1 access pattern and a scalability ceiling; collapsing it must not
// change the distance ordering of the output.
type Retriever struct {
	store     Store
	index     VectorIndex
	embedding EmbeddingProvider
	logger    *slog.Logger
}

var _ Searcher = (*Retriever)(nil)

// NewRetriever creates a Retriever over the given collaborators. All three
// are required; their lifecycles belong to the caller.
func NewRetriever(store Store, index VectorIndex, embedding EmbeddingProvider, opts ...RetrieverOption) *Retriever {
	r := &Retriever{store: store, index: index, embedding: embedding}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SemanticSearch embeds query, finds the topK nearest stored chunks
// (optionally restricted to documentID), and cross-references the store for
// chunk text and document names. Results keep the vector index's distance
// ordering; no re-sorting happens here. Zero matches is a valid empty
// response, not an error.
func (r *Retriever) SemanticSearch(ctx context.Context, query string, topK int, documentID string) (SearchResponse, error) {
	start := time.Now()

	embs, err := r.embedding.Embed(ctx, []string{query})
	if err != nil {
		r.logf("semantic search: embed query failed", "error", err)
		return SearchResponse{}, &ErrUpstream{Collaborator: "embedding", Op: "embed query", Err: err}
	}
	if len(embs) == 0 {
		return SearchResponse{}, &ErrUpstream{Collaborator: "embedding", Op: "embed query", Err: fmt.Errorf("no embedding returned")}
	}

	var filter map[string]string
	if documentID != "" {
		filter = map[string]string{"document_id": documentID}
	}

	matches, err := r.index.Query(ctx, embs[0], topK, filter)
	if err != nil {
		r.logf("semantic search: vector query failed", "error", err)
		return SearchResponse{}, &ErrUpstream{Collaborator: "vector index", Op: "query", Err: err}
	}

	if len(matches.IDs) == 0 {
		return SearchResponse{
			Query:          query,
			Results:        []SearchResult{},
			TotalResults:   0,
			ProcessingTime: elapsedSeconds(start),
		}, nil
	}

	results := make([]SearchResult, 0, len(matches.IDs))
	for rank, id := range matches.IDs {
		chunk, ok, err := r.store.GetChunk(ctx, id)
		if err != nil {
			r.logf("semantic search: chunk lookup failed", "chunk_id", id, "error", err)
			return SearchResponse{}, &ErrUpstream{Collaborator: "store", Op: "get chunk " + id, Err: err}
		}
		if !ok {
			// Vector index and store drifted apart; skip the stale id.
			r.logf("semantic search: chunk missing from store", "chunk_id", id)
			continue
		}

		// A match without a distance counts as maximally far away.
		distance := 1.0
		if rank < len(matches.Distances) {
			distance = matches.Distances[rank]
		}

		name := "Unknown"
		doc, found, err := r.store.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			return SearchResponse{}, &ErrUpstream{Collaborator: "store", Op: "get document " + chunk.DocumentID, Err: err}
		}
		if found {
			name = doc.Filename
		}

		results = append(results, SearchResult{
			ChunkID:         chunk.ID,
			DocumentID:      chunk.DocumentID,
			DocumentName:    name,
			ChunkText:       chunk.Text,
			SimilarityScore: round(1.0-distance, 4),
			ChunkIndex:      chunk.Index,
		})
	}

	elapsed := elapsedSeconds(start)
	r.logf("semantic search completed", "results", len(results), "seconds", elapsed)

	return SearchResponse{
		Query:          query,
		Results:        results,
		TotalResults:   len(results),
		ProcessingTime: elapsed,
	}, nil
}

// HybridSearch runs SemanticSearch with filters.DocumentID pushed down, then
// drops results whose parent document's language does not match
// filters.Language. The language filter runs after retrieval, so the
// response may carry fewer than topK results; no extra candidates are
// fetched to backfill.
func (r *Retriever) HybridSearch(ctx context.Context, query string, topK int, filters Filters) (SearchResponse, error) {
	resp, err := r.SemanticSearch(ctx, query, topK, filters.DocumentID)
	if err != nil {
		return SearchResponse{}, err
	}
	if filters.Language == "" {
		return resp, nil
	}

	filtered := make([]SearchResult, 0, len(resp.Results))
	for _, res := range resp.Results {
		doc, found, err := r.store.GetDocument(ctx, res.DocumentID)
		if err != nil {
			return SearchResponse{}, &ErrUpstream{Collaborator: "store", Op: "get document " + res.DocumentID, Err: err}
		}
		if found && doc.Language == filters.Language {
			filtered = append(filtered, res)
		}
	}
	resp.Results = filtered
	resp.TotalResults = len(filtered)
	return resp, nil
}

// ContextForQuery builds a prompt context block from the top chunks for
// query: each chunk text preceded by a "[Context i]" label (1-indexed) and
// followed by a blank line, in result order. No further ranking happens.
func (r *Retriever) ContextForQuery(ctx context.Context, query string, topK int) (string, error) {
	resp, err := r.SemanticSearch(ctx, query, topK, "")
	if err != nil {
		return "", err
	}

	var parts []string
	for i, res := range resp.Results {
		parts = append(parts, fmt.Sprintf("[Context %d]", i+1))
		parts = append(parts, res.ChunkText)
		parts = append(parts, "")
	}
	return strings.Join(parts, "\n"), nil
}

func (r *Retriever) logf(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

// round rounds x to the given number of decimal places.
func round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

func elapsedSeconds(start time.Time) float64 {
	return round(time.Since(start).Seconds(), 3)
}
