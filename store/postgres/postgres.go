// Package postgres implements warraq.Store and warraq.VectorIndex using
// PostgreSQL with pgvector for native vector similarity search.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	warraq "github.com/warraqhq/warraq"
)

// Store persists documents, chunks, and vectors in PostgreSQL.
// Vector search uses HNSW indexes with cosine distance.
type Store struct {
	pool   *pgxpool.Pool
	cfg    pgConfig
	logger *slog.Logger
}

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	embeddingDimension int // 0 = untyped vector
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
	hnswEFSearch       int // 0 = pgvector default (40)
	logger             *slog.Logger
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, enabling
// better index optimization and catching dimension mismatches at insert time.
// Only affects new table creation (no ALTER on existing tables).
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node).
// Higher values improve recall at the cost of memory. Default: pgvector's 16.
// Only affects index creation (CREATE INDEX IF NOT EXISTS).
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter (build-time
// candidate list size). Higher values improve index quality at the cost of
// slower builds. Default: pgvector's 64.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// WithEFSearch sets the HNSW ef_search parameter (query-time candidate list
// size). Higher values improve recall at the cost of latency. Default:
// pgvector's 40. Applied during Init().
func WithEFSearch(ef int) Option {
	return func(c *pgConfig) { c.hnswEFSearch = ef }
}

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *pgConfig) { c.logger = l }
}

var _ warraq.Store = (*Store)(nil)
var _ warraq.VectorIndex = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg, logger: cfg.logger}
}

// vectorType returns "vector" or "vector(N)" depending on config.
func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

// hnswWithClause returns the WITH (...) clause for HNSW index creation,
// or an empty string if no tuning params are set.
func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, all required tables, and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	vtype := s.vectorType()
	hnswWith := s.hnswWithClause()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			file_type TEXT NOT NULL,
			file_size BIGINT NOT NULL,
			language TEXT NOT NULL,
			chunking_strategy TEXT NOT NULL,
			total_chunks INTEGER NOT NULL,
			has_diacritics BOOLEAN NOT NULL,
			page_count INTEGER NOT NULL,
			char_count INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			created_at BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			start_char INTEGER NOT NULL,
			end_char INTEGER NOT NULL,
			metadata JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks(document_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vectors (
			id TEXT PRIMARY KEY,
			embedding %s NOT NULL,
			document TEXT,
			metadata JSONB
		)`, vtype),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS vectors_embedding_idx ON vectors USING hnsw (embedding vector_cosine_ops)%s`, hnswWith),
		`CREATE INDEX IF NOT EXISTS vectors_metadata_idx ON vectors USING gin(metadata)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}

	if s.cfg.hnswEFSearch > 0 {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("SET hnsw.ef_search = %d", s.cfg.hnswEFSearch)); err != nil {
			return fmt.Errorf("postgres: set ef_search: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("postgres schema ready", "vector_type", vtype)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// --- warraq.Store ---

// StoreDocument persists a document and all its chunks in one transaction.
func (s *Store) StoreDocument(ctx context.Context, doc warraq.Document, chunks []warraq.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO documents
		 (id, filename, file_type, file_size, language, chunking_strategy, total_chunks,
		  has_diacritics, page_count, char_count, word_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   filename = EXCLUDED.filename,
		   file_type = EXCLUDED.file_type,
		   file_size = EXCLUDED.file_size,
		   language = EXCLUDED.language,
		   chunking_strategy = EXCLUDED.chunking_strategy,
		   total_chunks = EXCLUDED.total_chunks,
		   has_diacritics = EXCLUDED.has_diacritics,
		   page_count = EXCLUDED.page_count,
		   char_count = EXCLUDED.char_count,
		   word_count = EXCLUDED.word_count,
		   created_at = EXCLUDED.created_at`,
		doc.ID, doc.Filename, doc.FileType, doc.FileSize, doc.Language, doc.ChunkingStrategy,
		doc.TotalChunks, doc.HasDiacritics, doc.PageCount, doc.CharCount, doc.WordCount, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert document: %w", err)
	}

	for _, chunk := range chunks {
		var metaJSON *string
		if chunk.Metadata != nil {
			data, _ := json.Marshal(chunk.Metadata)
			v := string(data)
			metaJSON = &v
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (id, document_id, content, chunk_index, start_char, end_char, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
			 ON CONFLICT (id) DO UPDATE SET
			   document_id = EXCLUDED.document_id,
			   content = EXCLUDED.content,
			   chunk_index = EXCLUDED.chunk_index,
			   start_char = EXCLUDED.start_char,
			   end_char = EXCLUDED.end_char,
			   metadata = EXCLUDED.metadata`,
			chunk.ID, chunk.DocumentID, chunk.Text, chunk.Index, chunk.StartChar, chunk.EndChar, metaJSON)
		if err != nil {
			return fmt.Errorf("postgres: insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("document stored", "id", doc.ID, "chunks", len(chunks))
	}
	return nil
}

// GetDocument fetches one document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (warraq.Document, bool, error) {
	var d warraq.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, file_type, file_size, language, chunking_strategy, total_chunks,
		        has_diacritics, page_count, char_count, word_count, created_at
		 FROM documents WHERE id = $1`, id,
	).Scan(&d.ID, &d.Filename, &d.FileType, &d.FileSize, &d.Language, &d.ChunkingStrategy,
		&d.TotalChunks, &d.HasDiacritics, &d.PageCount, &d.CharCount, &d.WordCount, &d.CreatedAt)
	if err == pgx.ErrNoRows {
		return warraq.Document{}, false, nil
	}
	if err != nil {
		return warraq.Document{}, false, fmt.Errorf("postgres: get document: %w", err)
	}
	return d, true, nil
}

// ListDocuments returns all documents ordered by most recently created first.
func (s *Store) ListDocuments(ctx context.Context) ([]warraq.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, file_type, file_size, language, chunking_strategy, total_chunks,
		        has_diacritics, page_count, char_count, word_count, created_at
		 FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	defer rows.Close()

	var docs []warraq.Document
	for rows.Next() {
		var d warraq.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.FileType, &d.FileSize, &d.Language, &d.ChunkingStrategy,
			&d.TotalChunks, &d.HasDiacritics, &d.PageCount, &d.CharCount, &d.WordCount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetChunk fetches one chunk by id.
func (s *Store) GetChunk(ctx context.Context, id string) (warraq.Chunk, bool, error) {
	var c warraq.Chunk
	var metaJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, document_id, content, chunk_index, start_char, end_char, metadata
		 FROM chunks WHERE id = $1`, id,
	).Scan(&c.ID, &c.DocumentID, &c.Text, &c.Index, &c.StartChar, &c.EndChar, &metaJSON)
	if err == pgx.ErrNoRows {
		return warraq.Chunk{}, false, nil
	}
	if err != nil {
		return warraq.Chunk{}, false, fmt.Errorf("postgres: get chunk: %w", err)
	}
	if metaJSON != nil {
		c.Metadata = &warraq.ChunkMeta{}
		_ = json.Unmarshal(metaJSON, c.Metadata)
	}
	return c, true, nil
}

// GetChunksByIDs fetches chunks by exact ids. Missing ids are silently
// skipped; order follows the database, not the input.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]warraq.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, content, chunk_index, start_char, end_char, metadata
		 FROM chunks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: get chunks by ids: %w", err)
	}
	defer rows.Close()

	var chunks []warraq.Chunk
	for rows.Next() {
		var c warraq.Chunk
		var metaJSON []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Index, &c.StartChar, &c.EndChar, &metaJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if metaJSON != nil {
			c.Metadata = &warraq.ChunkMeta{}
			_ = json.Unmarshal(metaJSON, c.Metadata)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and its chunks, returning the deleted
// chunk ids so the caller can evict vectors.
func (s *Store) DeleteDocument(ctx context.Context, id string) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, `DELETE FROM chunks WHERE document_id = $1 RETURNING id`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: delete chunks: %w", err)
	}
	var chunkIDs []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: scan chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, cid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate chunk ids: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("postgres: delete document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit tx: %w", err)
	}
	return chunkIDs, nil
}

// --- warraq.VectorIndex ---

// Add upserts embedding vectors with optional document text and metadata.
func (s *Store) Add(ctx context.Context, ids []string, vectors [][]float32, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("postgres: %d ids but %d vectors", len(ids), len(vectors))
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, id := range ids {
		var doc *string
		if i < len(documents) {
			doc = &documents[i]
		}
		var metaJSON *string
		if i < len(metadatas) && metadatas[i] != nil {
			data, _ := json.Marshal(metadatas[i])
			v := string(data)
			metaJSON = &v
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO vectors (id, embedding, document, metadata)
			 VALUES ($1, $2::vector, $3, $4::jsonb)
			 ON CONFLICT (id) DO UPDATE SET
			   embedding = EXCLUDED.embedding,
			   document = EXCLUDED.document,
			   metadata = EXCLUDED.metadata`,
			id, serializeEmbedding(vectors[i]), doc, metaJSON)
		if err != nil {
			return fmt.Errorf("postgres: insert vector: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// Query returns the topK nearest vectors by cosine distance using the HNSW
// index. filter is applied as JSONB containment on metadata.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) (warraq.Matches, error) {
	if topK <= 0 {
		return warraq.Matches{}, nil
	}
	embStr := serializeEmbedding(vector)

	q := `SELECT id, embedding <=> $1::vector AS distance
	 FROM vectors`
	args := []any{embStr, topK}
	if len(filter) > 0 {
		data, _ := json.Marshal(filter)
		q += ` WHERE metadata @> $3::jsonb`
		args = append(args, string(data))
	}
	q += `
	 ORDER BY embedding <=> $1::vector
	 LIMIT $2`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return warraq.Matches{}, fmt.Errorf("postgres: query vectors: %w", err)
	}
	defer rows.Close()

	var matches warraq.Matches
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return warraq.Matches{}, fmt.Errorf("postgres: scan match: %w", err)
		}
		matches.IDs = append(matches.IDs, id)
		matches.Distances = append(matches.Distances, distance)
	}
	return matches, rows.Err()
}

// Delete removes vectors by id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM vectors WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("postgres: delete vectors: %w", err)
	}
	return nil
}

// serializeEmbedding converts []float32 to a string like "[0.1,0.2,0.3]"
// suitable for pgvector's text input format.
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
