// Package api exposes the document and query pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	warraq "github.com/warraqhq/warraq"
	"github.com/warraqhq/warraq/ingest"
)

const defaultMaxUploadSize = 50 << 20

// Server wires the ingestor, searcher and store into HTTP handlers.
type Server struct {
	ingestor    *ingest.Ingestor
	searcher    warraq.Searcher
	store       warraq.Store
	logger      *slog.Logger
	maxUpload   int64
	defaultTopK int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxUploadSize caps the accepted upload body in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithDefaultTopK sets the result count used when a query omits top_k.
func WithDefaultTopK(k int) Option {
	return func(s *Server) {
		if k > 0 {
			s.defaultTopK = k
		}
	}
}

func NewServer(ingestor *ingest.Ingestor, searcher warraq.Searcher, store warraq.Store, opts ...Option) *Server {
	s := &Server{
		ingestor:    ingestor,
		searcher:    searcher,
		store:       store,
		logger:      slog.New(slog.DiscardHandler),
		maxUpload:   defaultMaxUploadSize,
		defaultTopK: 5,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/documents/upload", s.handleUpload)
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/query/context", s.handleQueryContext)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	DocumentID       string `json:"document_id"`
	Filename         string `json:"filename"`
	FileType         string `json:"file_type"`
	FileSize         int64  `json:"file_size"`
	Language         string `json:"language"`
	ChunkingStrategy string `json:"chunking_strategy"`
	TotalChunks      int    `json:"total_chunks"`
	Message          string `json:"message"`
}

type listResponse struct {
	Documents []warraq.Document `json:"documents"`
	Total     int               `json:"total"`
}

type queryRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	DocumentID string `json:"document_id"`
	Language   string `json:"language"`
}

type contextResponse struct {
	Query      string `json:"query"`
	Context    string `json:"context"`
	ChunksUsed int    `json:"chunks_used"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var cfgErr *warraq.ErrConfig
	var upErr *warraq.ErrUpstream

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, warraq.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &cfgErr):
		status = http.StatusBadRequest
	case errors.As(err, &upErr):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file field"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reading upload: " + err.Error()})
		return
	}

	res, err := s.ingestor.IngestFile(r.Context(), content, header.Filename)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		DocumentID:       res.DocumentID,
		Filename:         res.Document.Filename,
		FileType:         res.Document.FileType,
		FileSize:         res.Document.FileSize,
		Language:         res.Document.Language,
		ChunkingStrategy: res.Document.ChunkingStrategy,
		TotalChunks:      res.ChunkCount,
		Message:          "document processed successfully",
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if docs == nil {
		docs = []warraq.Document{}
	}
	writeJSON(w, http.StatusOK, listResponse{Documents: docs, Total: len(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, found, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "document not found"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ingestor.DeleteDocument(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "document deleted", "document_id": id})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query must not be empty"})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	var (
		resp warraq.SearchResponse
		err  error
	)
	if req.Language != "" {
		resp, err = s.searcher.HybridSearch(r.Context(), req.Query, topK, warraq.Filters{
			DocumentID: req.DocumentID,
			Language:   req.Language,
		})
	} else {
		resp, err = s.searcher.SemanticSearch(r.Context(), req.Query, topK, req.DocumentID)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueryContext(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query parameter is required"})
		return
	}
	topK := s.defaultTopK
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "top_k must be a positive integer"})
			return
		}
		topK = n
	}

	block, err := s.searcher.ContextForQuery(r.Context(), query, topK)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{
		Query:      query,
		Context:    block,
		ChunksUsed: strings.Count(block, "[Context "),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
