package warraq

import (
	"context"
	"errors"
)

// fakeStore serves documents and chunks from maps.
// Embed this in test-specific structs to override single methods.
type fakeStore struct {
	docs   map[string]Document
	chunks map[string]Chunk

	docErr   error
	chunkErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]Document{}, chunks: map[string]Chunk{}}
}

func (s *fakeStore) StoreDocument(_ context.Context, doc Document, chunks []Chunk) error {
	s.docs[doc.ID] = doc
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *fakeStore) GetDocument(_ context.Context, id string) (Document, bool, error) {
	if s.docErr != nil {
		return Document{}, false, s.docErr
	}
	d, ok := s.docs[id]
	return d, ok, nil
}

func (s *fakeStore) ListDocuments(_ context.Context) ([]Document, error) {
	var docs []Document
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	return docs, nil
}

func (s *fakeStore) GetChunk(_ context.Context, id string) (Chunk, bool, error) {
	if s.chunkErr != nil {
		return Chunk{}, false, s.chunkErr
	}
	c, ok := s.chunks[id]
	return c, ok, nil
}

func (s *fakeStore) GetChunksByIDs(_ context.Context, ids []string) ([]Chunk, error) {
	var chunks []Chunk
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

func (s *fakeStore) DeleteDocument(_ context.Context, id string) ([]string, error) {
	var ids []string
	for cid, c := range s.chunks {
		if c.DocumentID == id {
			ids = append(ids, cid)
			delete(s.chunks, cid)
		}
	}
	delete(s.docs, id)
	return ids, nil
}

func (s *fakeStore) Init(_ context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

// fakeIndex returns canned matches and records the last query filter.
type fakeIndex struct {
	matches    Matches
	queryErr   error
	lastFilter map[string]string
	lastTopK   int
}

func (f *fakeIndex) Add(_ context.Context, _ []string, _ [][]float32, _ []string, _ []map[string]string) error {
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int, filter map[string]string) (Matches, error) {
	f.lastFilter = filter
	f.lastTopK = topK
	if f.queryErr != nil {
		return Matches{}, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeIndex) Delete(_ context.Context, _ []string) error { return nil }

// fakeEmbedding returns a constant vector for every text.
type fakeEmbedding struct {
	dims int
	err  error
}

func (f *fakeEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	dims := f.dims
	if dims == 0 {
		dims = 4
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = 0.5
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedding) Dimensions() int {
	if f.dims == 0 {
		return 4
	}
	return f.dims
}

func (f *fakeEmbedding) Name() string { return "fake" }

var errBroken = errors.New("collaborator broken")
