package ingest

import (
	"fmt"
	"strings"

	"github.com/warraqhq/warraq"
)

// FixedChunker slides an overlapping window of size words across text,
// advancing by size-overlap words per chunk. Instances are read-only after
// construction and safe to share.
type FixedChunker struct {
	size    int
	overlap int
}

// NewFixedChunker creates a FixedChunker. overlap must be smaller than
// size: with overlap >= size the window would stop advancing, so the
// combination is rejected here instead of looping forever at chunk time.
func NewFixedChunker(size, overlap int) (*FixedChunker, error) {
	if size <= 0 {
		return nil, &warraq.ErrConfig{Field: "chunk_size", Message: fmt.Sprintf("must be positive, got %d", size)}
	}
	if overlap < 0 {
		return nil, &warraq.ErrConfig{Field: "chunk_overlap", Message: fmt.Sprintf("must not be negative, got %d", overlap)}
	}
	if overlap >= size {
		return nil, &warraq.ErrConfig{Field: "chunk_overlap", Message: fmt.Sprintf("overlap %d must be smaller than size %d", overlap, size)}
	}
	return &FixedChunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into overlapping word windows. Character offsets are
// reconstructed by joining the preceding words with single spaces, so they
// are approximate when the source had runs of whitespace. Empty text yields
// no chunks.
func (c *FixedChunker) Chunk(text string) []warraq.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var chunks []warraq.Chunk
	index := 0

	for start := 0; start < len(words); start += step {
		end := min(start+c.size, len(words))
		window := words[start:end]
		chunkText := strings.Join(window, " ")

		startChar := len(strings.Join(words[:start], " "))
		chunks = append(chunks, warraq.Chunk{
			Text:      chunkText,
			Index:     index,
			StartChar: startChar,
			EndChar:   startChar + len(chunkText),
			Metadata: &warraq.ChunkMeta{
				Strategy:  "fixed",
				WordCount: len(window),
				CharCount: len(chunkText),
			},
		})
		index++
	}

	return chunks
}
