package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/warraqhq/warraq"
)

type memStore struct {
	docs   map[string]warraq.Document
	chunks map[string]warraq.Chunk
}

func newMemStore() *memStore {
	return &memStore{
		docs:   make(map[string]warraq.Document),
		chunks: make(map[string]warraq.Chunk),
	}
}

func (s *memStore) StoreDocument(_ context.Context, doc warraq.Document, chunks []warraq.Chunk) error {
	s.docs[doc.ID] = doc
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *memStore) GetDocument(_ context.Context, id string) (warraq.Document, bool, error) {
	doc, ok := s.docs[id]
	return doc, ok, nil
}

func (s *memStore) ListDocuments(_ context.Context) ([]warraq.Document, error) {
	var out []warraq.Document
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out, nil
}

func (s *memStore) GetChunk(_ context.Context, id string) (warraq.Chunk, bool, error) {
	c, ok := s.chunks[id]
	return c, ok, nil
}

func (s *memStore) GetChunksByIDs(_ context.Context, ids []string) ([]warraq.Chunk, error) {
	var out []warraq.Chunk
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) DeleteDocument(_ context.Context, id string) ([]string, error) {
	var removed []string
	for cid, c := range s.chunks {
		if c.DocumentID == id {
			removed = append(removed, cid)
			delete(s.chunks, cid)
		}
	}
	delete(s.docs, id)
	return removed, nil
}

func (s *memStore) Init(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

type memIndex struct {
	ids       []string
	metadatas []map[string]string
	deleted   []string
	addErr    error
}

func (ix *memIndex) Add(_ context.Context, ids []string, vectors [][]float32, documents []string, metadatas []map[string]string) error {
	if ix.addErr != nil {
		return ix.addErr
	}
	ix.ids = append(ix.ids, ids...)
	ix.metadatas = append(ix.metadatas, metadatas...)
	return nil
}

func (ix *memIndex) Query(context.Context, []float32, int, map[string]string) (warraq.Matches, error) {
	return warraq.Matches{}, nil
}

func (ix *memIndex) Delete(_ context.Context, ids []string) error {
	ix.deleted = append(ix.deleted, ids...)
	return nil
}

type stubEmbedding struct {
	err   error
	calls int
}

func (e *stubEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return out, nil
}

func (e *stubEmbedding) Dimensions() int { return 4 }
func (e *stubEmbedding) Name() string    { return "stub" }

func newTestIngestor(t *testing.T, store *memStore, index *memIndex, emb *stubEmbedding, opts ...Option) *Ingestor {
	t.Helper()
	engine, err := NewEngine(WithChunkSize(10), WithOverlap(2))
	if err != nil {
		t.Fatal(err)
	}
	return NewIngestor(store, index, emb, engine, opts...)
}

func TestIngestFilePlainText(t *testing.T) {
	store := newMemStore()
	index := &memIndex{}
	ing := newTestIngestor(t, store, index, &stubEmbedding{}, WithStrategy(StrategyFixed))

	res, err := ing.IngestFile(context.Background(), []byte(wordRun(20)), "docs/notes.txt")
	if err != nil {
		t.Fatal(err)
	}

	doc := res.Document
	if doc.Filename != "notes.txt" || doc.FileType != "txt" {
		t.Errorf("descriptor %q/%q", doc.Filename, doc.FileType)
	}
	if doc.Language != LangEnglish {
		t.Errorf("language %q", doc.Language)
	}
	if doc.WordCount != 20 {
		t.Errorf("word count %d", doc.WordCount)
	}
	if res.ChunkCount != 3 || doc.TotalChunks != 3 {
		t.Errorf("chunk counts %d/%d", res.ChunkCount, doc.TotalChunks)
	}
	if doc.ChunkingStrategy != res.Strategy.String() {
		t.Errorf("strategy mismatch %q vs %v", doc.ChunkingStrategy, res.Strategy)
	}

	if len(store.chunks) != 3 {
		t.Errorf("store has %d chunks", len(store.chunks))
	}
	if len(index.ids) != 3 {
		t.Fatalf("index has %d vectors", len(index.ids))
	}
	for _, md := range index.metadatas {
		if md["document_id"] != res.DocumentID {
			t.Errorf("metadata document_id %q", md["document_id"])
		}
		if md["language"] != LangEnglish {
			t.Errorf("metadata language %q", md["language"])
		}
	}
	for _, c := range store.chunks {
		if len(c.Embedding) != 4 {
			t.Errorf("chunk %s: embedding length %d", c.ID, len(c.Embedding))
		}
		if c.DocumentID != res.DocumentID {
			t.Errorf("chunk %s: document id %q", c.ID, c.DocumentID)
		}
	}
}

func TestIngestFileArabic(t *testing.T) {
	store := newMemStore()
	ing := newTestIngestor(t, store, &memIndex{}, &stubEmbedding{})

	res, err := ing.IngestFile(context.Background(), []byte("مَرْحَبًا بالعالم"), "arabic.txt")
	if err != nil {
		t.Fatal(err)
	}
	if res.Document.Language != LangArabic {
		t.Errorf("language %q", res.Document.Language)
	}
	if !res.Document.HasDiacritics {
		t.Error("expected diacritics flag")
	}
}

func TestIngestFileEmpty(t *testing.T) {
	store := newMemStore()
	index := &memIndex{}
	ing := newTestIngestor(t, store, index, &stubEmbedding{})

	res, err := ing.IngestFile(context.Background(), nil, "empty.txt")
	if err != nil {
		t.Fatal(err)
	}
	if res.ChunkCount != 0 {
		t.Errorf("chunk count %d", res.ChunkCount)
	}
	if len(index.ids) != 0 {
		t.Error("nothing should be indexed")
	}
	if _, ok := store.docs[res.DocumentID]; !ok {
		t.Error("document descriptor should still be stored")
	}
}

func TestIngestReader(t *testing.T) {
	ing := newTestIngestor(t, newMemStore(), &memIndex{}, &stubEmbedding{})
	res, err := ing.IngestReader(context.Background(), strings.NewReader("a few words here"), "r.txt")
	if err != nil {
		t.Fatal(err)
	}
	if res.ChunkCount != 1 {
		t.Errorf("chunk count %d", res.ChunkCount)
	}
}

func TestIngestFileEmbeddingFailure(t *testing.T) {
	broken := errors.New("quota exceeded")
	ing := newTestIngestor(t, newMemStore(), &memIndex{}, &stubEmbedding{err: broken})

	_, err := ing.IngestFile(context.Background(), []byte("some words to embed"), "f.txt")
	var up *warraq.ErrUpstream
	if !errors.As(err, &up) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if up.Collaborator != "embedding" {
		t.Errorf("collaborator %q", up.Collaborator)
	}
	if !errors.Is(err, broken) {
		t.Error("cause not preserved")
	}
}

func TestIngestBatchesEmbeddings(t *testing.T) {
	emb := &stubEmbedding{}
	ing := newTestIngestor(t, newMemStore(), &memIndex{}, emb, WithBatchSize(2), WithStrategy(StrategyFixed))

	// size 10, overlap 2 over 50 words yields 7 chunks, so 4 batches of 2.
	_, err := ing.IngestFile(context.Background(), []byte(wordRun(50)), "big.txt")
	if err != nil {
		t.Fatal(err)
	}
	if emb.calls != 4 {
		t.Errorf("embed calls %d, want 4", emb.calls)
	}
}

func TestDeleteDocument(t *testing.T) {
	store := newMemStore()
	index := &memIndex{}
	ing := newTestIngestor(t, store, index, &stubEmbedding{}, WithStrategy(StrategyFixed))

	res, err := ing.IngestFile(context.Background(), []byte(wordRun(20)), "d.txt")
	if err != nil {
		t.Fatal(err)
	}

	if err := ing.DeleteDocument(context.Background(), res.DocumentID); err != nil {
		t.Fatal(err)
	}
	if len(store.docs) != 0 || len(store.chunks) != 0 {
		t.Error("store not emptied")
	}
	if len(index.deleted) != 3 {
		t.Errorf("index evicted %d vectors, want 3", len(index.deleted))
	}
}

func TestDeleteDocumentMissing(t *testing.T) {
	ing := newTestIngestor(t, newMemStore(), &memIndex{}, &stubEmbedding{})
	err := ing.DeleteDocument(context.Background(), "no-such-id")
	if !errors.Is(err, warraq.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
