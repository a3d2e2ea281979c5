package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	warraq "github.com/warraqhq/warraq"
	"github.com/warraqhq/warraq/ingest"
)

// --- fakes ---

type fakeStore struct {
	docs   map[string]warraq.Document
	chunks map[string][]warraq.Chunk
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]warraq.Document{}, chunks: map[string][]warraq.Chunk{}}
}

func (f *fakeStore) StoreDocument(_ context.Context, doc warraq.Document, chunks []warraq.Chunk) error {
	f.docs[doc.ID] = doc
	f.chunks[doc.ID] = chunks
	return nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (warraq.Document, bool, error) {
	doc, ok := f.docs[id]
	return doc, ok, nil
}

func (f *fakeStore) ListDocuments(_ context.Context) ([]warraq.Document, error) {
	var out []warraq.Document
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeStore) GetChunk(_ context.Context, id string) (warraq.Chunk, bool, error) {
	for _, cs := range f.chunks {
		for _, c := range cs {
			if c.ID == id {
				return c, true, nil
			}
		}
	}
	return warraq.Chunk{}, false, nil
}

func (f *fakeStore) GetChunksByIDs(ctx context.Context, ids []string) ([]warraq.Chunk, error) {
	var out []warraq.Chunk
	for _, id := range ids {
		if c, ok, _ := f.GetChunk(ctx, id); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, id string) ([]string, error) {
	var ids []string
	for _, c := range f.chunks[id] {
		ids = append(ids, c.ID)
	}
	delete(f.docs, id)
	delete(f.chunks, id)
	return ids, nil
}

func (f *fakeStore) Init(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

type fakeIndex struct {
	added   int
	deleted []string
}

func (f *fakeIndex) Add(_ context.Context, ids []string, _ [][]float32, _ []string, _ []map[string]string) error {
	f.added += len(ids)
	return nil
}

func (f *fakeIndex) Query(context.Context, []float32, int, map[string]string) (warraq.Matches, error) {
	return warraq.Matches{}, nil
}

func (f *fakeIndex) Delete(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeEmbedding struct{}

func (fakeEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedding) Dimensions() int { return 3 }
func (fakeEmbedding) Name() string    { return "fake" }

type fakeSearcher struct {
	lastKind    string
	lastTopK    int
	lastFilters warraq.Filters
	contextText string
	err         error
}

func (f *fakeSearcher) SemanticSearch(_ context.Context, query string, topK int, documentID string) (warraq.SearchResponse, error) {
	f.lastKind = "semantic"
	f.lastTopK = topK
	f.lastFilters = warraq.Filters{DocumentID: documentID}
	if f.err != nil {
		return warraq.SearchResponse{}, f.err
	}
	return warraq.SearchResponse{Query: query, Results: []warraq.SearchResult{}}, nil
}

func (f *fakeSearcher) HybridSearch(_ context.Context, query string, topK int, filters warraq.Filters) (warraq.SearchResponse, error) {
	f.lastKind = "hybrid"
	f.lastTopK = topK
	f.lastFilters = filters
	if f.err != nil {
		return warraq.SearchResponse{}, f.err
	}
	return warraq.SearchResponse{Query: query, Results: []warraq.SearchResult{}}, nil
}

func (f *fakeSearcher) ContextForQuery(_ context.Context, query string, topK int) (string, error) {
	f.lastKind = "context"
	f.lastTopK = topK
	return f.contextText, f.err
}

func newTestServer(t *testing.T) (*Server, *fakeStore, *fakeIndex, *fakeSearcher) {
	t.Helper()
	engine, err := ingest.NewEngine(ingest.WithChunkSize(10), ingest.WithOverlap(2))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	store := newFakeStore()
	index := &fakeIndex{}
	searcher := &fakeSearcher{}
	ingestor := ingest.NewIngestor(store, index, fakeEmbedding{}, engine)
	return NewServer(ingestor, searcher, store), store, index, searcher
}

func doRequest(t *testing.T, s *Server, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestHealth(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected ok, got %q", body["status"])
	}
}

func TestUploadPlainText(t *testing.T) {
	s, store, index, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte("The quick brown fox jumps over the lazy dog near the river bank today."))
	mw.Close()

	rec := doRequest(t, s, http.MethodPost, "/api/documents/upload", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DocumentID == "" {
		t.Error("expected a document id")
	}
	if resp.Filename != "notes.txt" {
		t.Errorf("expected notes.txt, got %q", resp.Filename)
	}
	if resp.TotalChunks == 0 {
		t.Error("expected at least one chunk")
	}
	if len(store.docs) != 1 {
		t.Errorf("expected 1 stored document, got %d", len(store.docs))
	}
	if index.added != resp.TotalChunks {
		t.Errorf("expected %d indexed vectors, got %d", resp.TotalChunks, index.added)
	}
}

func TestUploadMissingFile(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "no file here")
	mw.Close()

	rec := doRequest(t, s, http.MethodPost, "/api/documents/upload", &buf, mw.FormDataContentType())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListDocumentsEmpty(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/documents", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("expected total 0, got %d", resp.Total)
	}
	if resp.Documents == nil {
		t.Error("documents should encode as an empty array, not null")
	}
}

func TestGetDocument(t *testing.T) {
	s, store, _, _ := newTestServer(t)
	store.docs["doc-1"] = warraq.Document{ID: "doc-1", Filename: "a.txt"}

	rec := doRequest(t, s, http.MethodGet, "/api/documents/doc-1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc warraq.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Filename != "a.txt" {
		t.Errorf("expected a.txt, got %q", doc.Filename)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/documents/missing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	s, store, index, _ := newTestServer(t)
	store.docs["doc-1"] = warraq.Document{ID: "doc-1"}
	store.chunks["doc-1"] = []warraq.Chunk{{ID: "c1"}, {ID: "c2"}}

	rec := doRequest(t, s, http.MethodDelete, "/api/documents/doc-1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := store.docs["doc-1"]; ok {
		t.Error("document should be gone")
	}
	if len(index.deleted) != 2 {
		t.Errorf("expected 2 evicted vectors, got %d", len(index.deleted))
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/documents/doc-1", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestQueryDispatch(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind string
		wantTopK int
	}{
		{"semantic default", `{"query": "what is chunking"}`, "semantic", 5},
		{"semantic with document", `{"query": "q", "document_id": "doc-1", "top_k": 3}`, "semantic", 3},
		{"hybrid on language filter", `{"query": "q", "language": "arabic"}`, "hybrid", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, searcher := newTestServer(t)
			rec := doRequest(t, s, http.MethodPost, "/api/query", bytes.NewBufferString(tt.body), "application/json")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if searcher.lastKind != tt.wantKind {
				t.Errorf("expected %s search, got %s", tt.wantKind, searcher.lastKind)
			}
			if searcher.lastTopK != tt.wantTopK {
				t.Errorf("expected top_k %d, got %d", tt.wantTopK, searcher.lastTopK)
			}
		})
	}
}

func TestQueryValidation(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/query", bytes.NewBufferString("not json"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/query", bytes.NewBufferString(`{"query": "   "}`), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank query: expected 400, got %d", rec.Code)
	}
}

func TestQueryUpstreamError(t *testing.T) {
	s, _, _, searcher := newTestServer(t)
	searcher.err = &warraq.ErrUpstream{Collaborator: "embedding", Op: "embed query"}

	rec := doRequest(t, s, http.MethodPost, "/api/query", bytes.NewBufferString(`{"query": "q"}`), "application/json")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestQueryContext(t *testing.T) {
	s, _, _, searcher := newTestServer(t)
	searcher.contextText = "[Context 1]\nfirst chunk\n\n[Context 2]\nsecond chunk"

	rec := doRequest(t, s, http.MethodGet, "/api/query/context?query=hello&top_k=2", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp contextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ChunksUsed != 2 {
		t.Errorf("expected 2 chunks used, got %d", resp.ChunksUsed)
	}
	if !strings.Contains(resp.Context, "first chunk") {
		t.Errorf("context missing chunk text: %q", resp.Context)
	}
	if searcher.lastTopK != 2 {
		t.Errorf("expected top_k 2, got %d", searcher.lastTopK)
	}
}

func TestQueryContextValidation(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/query/context", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing query: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/query/context?query=q&top_k=zero", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad top_k: expected 400, got %d", rec.Code)
	}
}
