package warraq

// --- Domain types (database records) ---

// Document describes an ingested file. The raw text is not retained here;
// chunks carry the content.
type Document struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	FileType         string `json:"file_type"`
	FileSize         int64  `json:"file_size"`
	Language         string `json:"language"` // "arabic", "english", "mixed", "unknown"
	ChunkingStrategy string `json:"chunking_strategy"`
	TotalChunks      int    `json:"total_chunks"`
	HasDiacritics    bool   `json:"has_diacritics"`
	PageCount        int    `json:"page_count"`
	CharCount        int    `json:"character_count"`
	WordCount        int    `json:"word_count"`
	CreatedAt        int64  `json:"created_at"`
}

// ChunkMeta records how a chunk was produced. Type, SentenceCount and
// CharCount are populated depending on the strategy.
type ChunkMeta struct {
	Strategy      string `json:"strategy"`                 // "fixed" or "dynamic"
	Type          string `json:"type,omitempty"`           // "paragraph" or "multi-sentence"
	WordCount     int    `json:"word_count"`
	SentenceCount int    `json:"sentence_count,omitempty"`
	CharCount     int    `json:"char_count,omitempty"`
}

// Chunk is a contiguous, independently embeddable segment of a document.
// Index is zero-based and gapless within the parent document. StartChar and
// EndChar are approximate offsets reconstructed from prefix length; they are
// not exact when the source whitespace was collapsed.
type Chunk struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	Text       string     `json:"text"`
	Index      int        `json:"index"`
	StartChar  int        `json:"start_char"`
	EndChar    int        `json:"end_char"`
	Metadata   *ChunkMeta `json:"metadata,omitempty"`
	Embedding  []float32  `json:"-"`
}

// --- Query types (constructed per request, never persisted) ---

// SearchResult is one ranked hit. SimilarityScore is 1 - distance, rounded
// to 4 decimals, where distance is the vector index's native metric.
type SearchResult struct {
	ChunkID         string  `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	DocumentName    string  `json:"document_name"`
	ChunkText       string  `json:"chunk_text"`
	SimilarityScore float64 `json:"similarity_score"`
	ChunkIndex      int     `json:"chunk_index"`
}

// SearchResponse is the full answer to a search call. ProcessingTime is
// wall-clock seconds rounded to 3 decimals.
type SearchResponse struct {
	Query          string         `json:"query"`
	Results        []SearchResult `json:"results"`
	TotalResults   int            `json:"total_results"`
	ProcessingTime float64        `json:"processing_time"`
}

// Filters narrows a hybrid search. DocumentID is pushed down to the vector
// index; Language is applied after retrieval.
type Filters struct {
	DocumentID string `json:"document_id,omitempty"`
	Language   string `json:"language,omitempty"`
}

// Matches is the raw nearest-neighbor answer from a VectorIndex: parallel
// slices ordered by ascending distance (closest first). Distances may be
// shorter than IDs when the backend omits them.
type Matches struct {
	IDs       []string
	Distances []float64
}
