package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	warraq "github.com/warraqhq/warraq"
)

// IngestResult holds the outcome of an ingest operation.
type IngestResult struct {
	DocumentID string
	Document   warraq.Document
	ChunkCount int
	Strategy   Strategy
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithStrategy pins a chunking strategy instead of per-document selection.
func WithStrategy(s Strategy) Option {
	return func(ing *Ingestor) { ing.strategy = s }
}

// WithExtractor registers or replaces the extractor for a content type.
func WithExtractor(ct ContentType, e Extractor) Option {
	return func(ing *Ingestor) { ing.extractors[ct] = e }
}

// WithBatchSize sets the embedding batch size (default 64).
func WithBatchSize(n int) Option {
	return func(ing *Ingestor) { ing.batchSize = n }
}

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(ing *Ingestor) { ing.logger = l }
}

// Ingestor provides end-to-end ingestion: extract, analyze, chunk, embed,
// store, index. Writes go to the relational store first and the vector
// index second.
type Ingestor struct {
	store      warraq.Store
	index      warraq.VectorIndex
	embedding  warraq.EmbeddingProvider
	engine     *Engine
	strategy   Strategy
	extractors map[ContentType]Extractor
	batchSize  int
	logger     *slog.Logger
}

// NewIngestor creates an Ingestor with the default extractor set for plain
// text, HTML, markdown, DOCX, and PDF.
func NewIngestor(store warraq.Store, index warraq.VectorIndex, emb warraq.EmbeddingProvider, engine *Engine, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:     store,
		index:     index,
		embedding: emb,
		engine:    engine,
		strategy:  StrategyAuto,
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypeHTML:      NewHTMLExtractor(),
			TypeMarkdown:  NewMarkdownExtractor(),
			TypeDOCX:      NewDOCXExtractor(),
			TypePDF:       NewPDFExtractor(),
		},
		batchSize: 64,
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// IngestFile ingests file content, detecting the content type from the
// filename extension. Empty extracted text yields a document with zero
// chunks, not an error.
func (ing *Ingestor) IngestFile(ctx context.Context, content []byte, filename string) (IngestResult, error) {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	ct := ContentTypeFromExtension(ext)

	extractor, ok := ing.extractors[ct]
	if !ok {
		extractor = PlainTextExtractor{}
	}

	var text string
	pageCount := 0
	if pc, ok := extractor.(PageCounter); ok {
		result, err := pc.ExtractPages(content)
		if err != nil {
			return IngestResult{}, fmt.Errorf("extract %s: %w", ct, err)
		}
		text = result.Text
		pageCount = result.PageCount
	} else {
		var err error
		text, err = extractor.Extract(content)
		if err != nil {
			return IngestResult{}, fmt.Errorf("extract %s: %w", ct, err)
		}
	}

	language := DetectLanguage(text)
	meta := DocumentMeta{
		Filename:      filename,
		Language:      language,
		HasDiacritics: HasArabicDiacritics(text),
	}

	chunks, used := ing.engine.ChunkText(text, ing.strategy, meta)

	docID := warraq.NewID()
	for i := range chunks {
		chunks[i].ID = warraq.NewID()
		chunks[i].DocumentID = docID
	}

	if err := ing.batchEmbed(ctx, chunks); err != nil {
		return IngestResult{}, err
	}

	doc := warraq.Document{
		ID:               docID,
		Filename:         filepath.Base(filename),
		FileType:         ext,
		FileSize:         int64(len(content)),
		Language:         language,
		ChunkingStrategy: used.String(),
		TotalChunks:      len(chunks),
		HasDiacritics:    meta.HasDiacritics,
		PageCount:        pageCount,
		CharCount:        utf8.RuneCountInString(text),
		WordCount:        len(strings.Fields(text)),
		CreatedAt:        warraq.NowUnix(),
	}

	if err := ing.store.StoreDocument(ctx, doc, chunks); err != nil {
		return IngestResult{}, &warraq.ErrUpstream{Collaborator: "store", Op: "store document", Err: err}
	}

	if err := ing.indexChunks(ctx, doc, chunks); err != nil {
		return IngestResult{}, err
	}

	if ing.logger != nil {
		ing.logger.Info("document ingested",
			"document_id", docID,
			"filename", doc.Filename,
			"language", language,
			"strategy", used.String(),
			"chunks", len(chunks))
	}

	return IngestResult{
		DocumentID: docID,
		Document:   doc,
		ChunkCount: len(chunks),
		Strategy:   used,
	}, nil
}

// IngestReader reads all content from r and ingests it, detecting content
// type from filename.
func (ing *Ingestor) IngestReader(ctx context.Context, r io.Reader, filename string) (IngestResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return IngestResult{}, fmt.Errorf("read: %w", err)
	}
	return ing.IngestFile(ctx, data, filename)
}

// DeleteDocument removes a document from the store and evicts its chunks
// from the vector index. The store is the source of truth: a document
// missing there is ErrNotFound even if stale vectors remain.
func (ing *Ingestor) DeleteDocument(ctx context.Context, id string) error {
	_, found, err := ing.store.GetDocument(ctx, id)
	if err != nil {
		return &warraq.ErrUpstream{Collaborator: "store", Op: "get document " + id, Err: err}
	}
	if !found {
		return warraq.ErrNotFound
	}

	chunkIDs, err := ing.store.DeleteDocument(ctx, id)
	if err != nil {
		return &warraq.ErrUpstream{Collaborator: "store", Op: "delete document " + id, Err: err}
	}
	if len(chunkIDs) > 0 {
		if err := ing.index.Delete(ctx, chunkIDs); err != nil {
			return &warraq.ErrUpstream{Collaborator: "vector index", Op: "delete vectors", Err: err}
		}
	}
	return nil
}

// indexChunks pushes embedded chunks into the vector index with the
// metadata fields the query side filters on.
func (ing *Ingestor) indexChunks(ctx context.Context, doc warraq.Document, chunks []warraq.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	texts := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		vectors[i] = c.Embedding
		texts[i] = c.Text
		metadatas[i] = map[string]string{
			"document_id": doc.ID,
			"chunk_index": strconv.Itoa(c.Index),
			"language":    doc.Language,
		}
	}

	if err := ing.index.Add(ctx, ids, vectors, texts, metadatas); err != nil {
		return &warraq.ErrUpstream{Collaborator: "vector index", Op: "add vectors", Err: err}
	}
	return nil
}

// batchEmbed embeds chunks in batches of ing.batchSize.
func (ing *Ingestor) batchEmbed(ctx context.Context, chunks []warraq.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i := 0; i < len(chunks); i += ing.batchSize {
		end := min(i+ing.batchSize, len(chunks))

		batch := chunks[i:end]
		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		embeddings, err := ing.embedding.Embed(ctx, texts)
		if err != nil {
			return &warraq.ErrUpstream{Collaborator: "embedding", Op: fmt.Sprintf("embed batch %d-%d", i, end), Err: err}
		}

		for j := range batch {
			if j < len(embeddings) {
				chunks[i+j].Embedding = embeddings[j]
			}
		}
	}

	return nil
}
