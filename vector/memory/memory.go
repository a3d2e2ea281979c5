// Package memory implements warraq.VectorIndex with an in-process
// brute-force cosine scan. Useful for tests and small corpora; nothing is
// persisted.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	warraq "github.com/warraqhq/warraq"
)

type entry struct {
	id       string
	vector   []float32
	document string
	metadata map[string]string
}

// Index is an in-memory vector index. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries []entry
	byID    map[string]int
}

var _ warraq.VectorIndex = (*Index)(nil)

// New creates an empty Index.
func New() *Index {
	return &Index{byID: make(map[string]int)}
}

// Add stores vectors under the given ids, replacing existing entries with
// the same id. The input slices must be the same length; documents and
// metadatas may be nil.
func (ix *Index) Add(_ context.Context, ids []string, vectors [][]float32, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("memory: %d ids but %d vectors", len(ids), len(vectors))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for i, id := range ids {
		e := entry{id: id, vector: vectors[i]}
		if i < len(documents) {
			e.document = documents[i]
		}
		if i < len(metadatas) {
			e.metadata = metadatas[i]
		}
		if pos, ok := ix.byID[id]; ok {
			ix.entries[pos] = e
			continue
		}
		ix.byID[id] = len(ix.entries)
		ix.entries = append(ix.entries, e)
	}
	return nil
}

// Query returns the topK nearest entries by cosine distance, closest first.
// filter restricts candidates by metadata equality.
func (ix *Index) Query(_ context.Context, vector []float32, topK int, filter map[string]string) (warraq.Matches, error) {
	if topK <= 0 {
		return warraq.Matches{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		id       string
		distance float64
	}
	var candidates []scored
	for _, e := range ix.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		candidates = append(candidates, scored{
			id:       e.id,
			distance: 1.0 - cosineSimilarity(vector, e.vector),
		})
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
	return matches, nil
}

// Delete removes the given ids. Unknown ids are ignored.
func (ix *Index) Delete(_ context.Context, ids []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := ix.entries[:0]
	for _, e := range ix.entries {
		if _, gone := drop[e.id]; !gone {
			kept = append(kept, e)
		}
	}
	ix.entries = kept

	ix.byID = make(map[string]int, len(ix.entries))
	for i, e := range ix.entries {
		ix.byID[e.id] = i
	}
	return nil
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

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
