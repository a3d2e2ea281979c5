package warraq

import "context"

// Store abstracts relational persistence for documents and chunks.
// Lookups distinguish an explicit miss (false, nil) from a backend failure
// so callers can tell "not there" from "store broke".
type Store interface {
	// StoreDocument persists a document and all its chunks atomically.
	StoreDocument(ctx context.Context, doc Document, chunks []Chunk) error
	GetDocument(ctx context.Context, id string) (Document, bool, error)
	ListDocuments(ctx context.Context) ([]Document, error)

	GetChunk(ctx context.Context, id string) (Chunk, bool, error)
	GetChunksByIDs(ctx context.Context, ids []string) ([]Chunk, error)

	// DeleteDocument removes a document and all its chunks, returning the
	// IDs of the deleted chunks so the caller can evict them from the
	// vector index.
	DeleteDocument(ctx context.Context, id string) ([]string, error)

	// --- Lifecycle ---
	Init(ctx context.Context) error
	Close() error
}

// VectorIndex abstracts nearest-neighbor search over chunk embeddings.
// Distance semantics (cosine vs. Euclidean) are backend-defined; callers
// derive similarity as 1 - distance regardless.
type VectorIndex interface {
	// Add stores vectors under the given ids. documents and metadatas are
	// parallel to ids; metadatas carry equality-filterable fields such as
	// document_id.
	Add(ctx context.Context, ids []string, vectors [][]float32, documents []string, metadatas []map[string]string) error

	// Query returns the topK nearest ids with distances in ascending
	// order. filter, when non-nil, restricts candidates by metadata
	// equality.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string) (Matches, error)

	Delete(ctx context.Context, ids []string) error
}

// EmbeddingProvider abstracts text embedding.
type EmbeddingProvider interface {
	// Embed returns embedding vectors for the given texts, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}
