// Package warraq is an adaptive document chunking and retrieval engine for
// building multilingual (Arabic/English) RAG systems in Go.
//
// It provides modular, interface-driven building blocks: an adaptive chunking
// engine that picks between fixed-window and structure-aware chunking per
// document, text extractors for common file formats, embedding providers,
// relational and vector storage, and a retrieval orchestrator that turns a
// query into a scored, filtered result set.
//
// # Quick Start
//
//	pool, _ := pgxpool.New(ctx, databaseURL)
//	store := postgres.New(pool, postgres.WithEmbeddingDimension(1536))
//	embedding := openai.New(apiKey, "text-embedding-3-small", 1536)
//
//	engine, _ := ingest.NewEngine()
//	ingestor := ingest.NewIngestor(store, store, embedding, engine)
//	result, _ := ingestor.IngestFile(ctx, data, "report.pdf")
//
//	retriever := warraq.NewRetriever(store, store, embedding)
//	resp, _ := retriever.SemanticSearch(ctx, "annual revenue", 5, "")
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Store] — relational persistence for documents and chunks
//   - [VectorIndex] — nearest-neighbor search over chunk embeddings
//   - [EmbeddingProvider] — text-to-vector embedding
//   - [Searcher] — the query surface implemented by [Retriever]
//
// # Included Implementations
//
// Storage: store/postgres (pgvector), store/sqlite (pure Go, in-process
// vector search), vector/memory (ephemeral index for tests and small runs).
// Embedding: provider/openai, provider/gemini.
//
// See cmd/warraq for the HTTP server that ties everything together.
package warraq
