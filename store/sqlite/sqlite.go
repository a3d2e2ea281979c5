// Package sqlite implements warraq.Store and warraq.VectorIndex using
// pure-Go SQLite with in-process brute-force vector search. Zero CGO
// required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	warraq "github.com/warraqhq/warraq"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store persists documents, chunks, and vectors in a local SQLite file.
// Embeddings are stored as JSON text and vector search is done in-process
// using brute-force cosine similarity.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ warraq.Store = (*Store)(nil)
var _ warraq.VectorIndex = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			file_type TEXT NOT NULL,
			file_size INTEGER NOT NULL,
			language TEXT NOT NULL,
			chunking_strategy TEXT NOT NULL,
			total_chunks INTEGER NOT NULL,
			has_diacritics INTEGER NOT NULL,
			page_count INTEGER NOT NULL,
			char_count INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			start_char INTEGER NOT NULL,
			end_char INTEGER NOT NULL,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
		`CREATE TABLE IF NOT EXISTS vectors (
			id TEXT PRIMARY KEY,
			embedding TEXT NOT NULL,
			document TEXT,
			metadata TEXT
		)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	s.logger.Debug("sqlite: init ok", "duration", time.Since(start))
	return nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- warraq.Store ---

// StoreDocument persists a document and all its chunks in one transaction.
func (s *Store) StoreDocument(ctx context.Context, doc warraq.Document, chunks []warraq.Chunk) error {
	start := time.Now()
	s.logger.Debug("sqlite: store document", "id", doc.ID, "filename", doc.Filename, "chunks", len(chunks))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents
		 (id, filename, file_type, file_size, language, chunking_strategy, total_chunks,
		  has_diacritics, page_count, char_count, word_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.FileType, doc.FileSize, doc.Language, doc.ChunkingStrategy,
		doc.TotalChunks, boolToInt(doc.HasDiacritics), doc.PageCount, doc.CharCount, doc.WordCount, doc.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: insert document failed", "id", doc.ID, "error", err)
		return fmt.Errorf("insert document: %w", err)
	}

	for _, chunk := range chunks {
		var metaJSON *string
		if chunk.Metadata != nil {
			data, _ := json.Marshal(chunk.Metadata)
			v := string(data)
			metaJSON = &v
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks (id, document_id, content, chunk_index, start_char, end_char, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			chunk.ID, chunk.DocumentID, chunk.Text, chunk.Index, chunk.StartChar, chunk.EndChar, metaJSON,
		)
		if err != nil {
			s.logger.Error("sqlite: insert chunk failed", "chunk_id", chunk.ID, "doc_id", doc.ID, "error", err)
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: store document commit failed", "id", doc.ID, "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: store document ok", "id", doc.ID, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// GetDocument fetches one document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (warraq.Document, bool, error) {
	var d warraq.Document
	var diacritics int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, file_type, file_size, language, chunking_strategy, total_chunks,
		        has_diacritics, page_count, char_count, word_count, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Filename, &d.FileType, &d.FileSize, &d.Language, &d.ChunkingStrategy,
		&d.TotalChunks, &diacritics, &d.PageCount, &d.CharCount, &d.WordCount, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return warraq.Document{}, false, nil
	}
	if err != nil {
		return warraq.Document{}, false, fmt.Errorf("get document: %w", err)
	}
	d.HasDiacritics = diacritics != 0
	return d, true, nil
}

// ListDocuments returns all documents ordered by creation time (newest first).
func (s *Store) ListDocuments(ctx context.Context) ([]warraq.Document, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, file_type, file_size, language, chunking_strategy, total_chunks,
		        has_diacritics, page_count, char_count, word_count, created_at
		 FROM documents ORDER BY created_at DESC`)
	if err != nil {
		s.logger.Error("sqlite: list documents failed", "error", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []warraq.Document
	for rows.Next() {
		var d warraq.Document
		var diacritics int
		if err := rows.Scan(&d.ID, &d.Filename, &d.FileType, &d.FileSize, &d.Language, &d.ChunkingStrategy,
			&d.TotalChunks, &diacritics, &d.PageCount, &d.CharCount, &d.WordCount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.HasDiacritics = diacritics != 0
		docs = append(docs, d)
	}
	s.logger.Debug("sqlite: list documents ok", "count", len(docs), "duration", time.Since(start))
	return docs, rows.Err()
}

// GetChunk fetches one chunk by id.
func (s *Store) GetChunk(ctx context.Context, id string) (warraq.Chunk, bool, error) {
	var c warraq.Chunk
	var metaJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, content, chunk_index, start_char, end_char, metadata
		 FROM chunks WHERE id = ?`, id,
	).Scan(&c.ID, &c.DocumentID, &c.Text, &c.Index, &c.StartChar, &c.EndChar, &metaJSON)
	if err == sql.ErrNoRows {
		return warraq.Chunk{}, false, nil
	}
	if err != nil {
		return warraq.Chunk{}, false, fmt.Errorf("get chunk: %w", err)
	}
	if metaJSON.Valid {
		c.Metadata = &warraq.ChunkMeta{}
		_ = json.Unmarshal([]byte(metaJSON.String), c.Metadata)
	}
	return c, true, nil
}

// GetChunksByIDs fetches chunks by exact ids. Missing ids are silently
// skipped; order follows the database, not the input.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]warraq.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(
		`SELECT id, document_id, content, chunk_index, start_char, end_char, metadata
		 FROM chunks WHERE id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks by ids: %w", err)
	}
	defer rows.Close()

	var chunks []warraq.Chunk
	for rows.Next() {
		var c warraq.Chunk
		var metaJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Index, &c.StartChar, &c.EndChar, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if metaJSON.Valid {
			c.Metadata = &warraq.ChunkMeta{}
			_ = json.Unmarshal([]byte(metaJSON.String), c.Metadata)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and its chunks, returning the deleted
// chunk ids so the caller can evict vectors.
func (s *Store) DeleteDocument(ctx context.Context, id string) ([]string, error) {
	start := time.Now()
	s.logger.Debug("sqlite: delete document", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE document_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("select chunk ids: %w", err)
	}
	var chunkIDs []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, cid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk ids: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete document chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: delete document commit failed", "id", id, "error", err)
		return nil, err
	}
	s.logger.Debug("sqlite: delete document ok", "id", id, "chunks", len(chunkIDs), "duration", time.Since(start))
	return chunkIDs, nil
}

// --- warraq.VectorIndex ---

// Add stores embedding vectors as JSON text rows.
func (s *Store) Add(ctx context.Context, ids []string, vectors [][]float32, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("sqlite: %d ids but %d vectors", len(ids), len(vectors))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

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
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO vectors (id, embedding, document, metadata) VALUES (?, ?, ?, ?)`,
			id, serializeEmbedding(vectors[i]), doc, metaJSON,
		)
		if err != nil {
			return fmt.Errorf("insert vector: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Query performs brute-force cosine similarity search over stored vectors.
// Distances are 1 - cosine similarity, ascending.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) (warraq.Matches, error) {
	start := time.Now()
	s.logger.Debug("sqlite: vector query", "top_k", topK, "dim", len(vector), "filters", len(filter))
	if topK <= 0 {
		return warraq.Matches{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding, metadata FROM vectors`)
	if err != nil {
		return warraq.Matches{}, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	type scored struct {
		id       string
		distance float64
	}
	var candidates []scored
	scanned := 0
	for rows.Next() {
		var id, embJSON string
		var metaJSON sql.NullString
		if err := rows.Scan(&id, &embJSON, &metaJSON); err != nil {
			return warraq.Matches{}, fmt.Errorf("scan vector: %w", err)
		}
		scanned++
		if len(filter) > 0 {
			var meta map[string]string
			if metaJSON.Valid {
				_ = json.Unmarshal([]byte(metaJSON.String), &meta)
			}
			if !matchesFilter(meta, filter) {
				continue
			}
		}
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		candidates = append(candidates, scored{id: id, distance: 1.0 - cosineSimilarity(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return warraq.Matches{}, fmt.Errorf("iterate vectors: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	matches := warraq.Matches{
		IDs:       make([]string, len(candidates)),
		Distances: make([]float64, len(candidates)),
	}
	for i, c := range candidates {
		matches.IDs[i] = c.id
		matches.Distances[i] = c.distance
	}
	s.logger.Debug("sqlite: vector query ok", "scanned", scanned, "returned", len(matches.IDs), "duration", time.Since(start))
	return matches, nil
}

// Delete removes vectors by id. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM vectors WHERE id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

// DB exposes the underlying connection pool for migrations and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Vector math ---

// cosineSimilarity computes the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

// deserializeEmbedding parses a JSON array string back to []float32.
func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
