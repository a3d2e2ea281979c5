package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/warraqhq/warraq"
)

// DynamicChunker splits text along paragraph and sentence boundaries,
// packing sentences up to a word budget. Instances are read-only after
// construction and safe to share.
type DynamicChunker struct {
	size int
}

// NewDynamicChunker creates a DynamicChunker with the given word budget.
func NewDynamicChunker(size int) (*DynamicChunker, error) {
	if size <= 0 {
		return nil, &warraq.ErrConfig{Field: "chunk_size", Message: fmt.Sprintf("must be positive, got %d", size)}
	}
	return &DynamicChunker{size: size}, nil
}

// One or more blank lines (possibly whitespace-only) end a paragraph.
var paragraphSep = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range paragraphSep.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// Chunk splits text into paragraph and multi-sentence chunks. Paragraphs
// within the word budget become single "paragraph" chunks; larger ones are
// split into sentences packed greedily into "multi-sentence" chunks, each
// flushed before a sentence would push it over the budget. A lone sentence
// longer than the budget is emitted whole — the budget is a soft cap, never
// a truncation. The running character position advances by emitted chunk
// length + 1 and is approximate by design.
func (c *DynamicChunker) Chunk(text string) []warraq.Chunk {
	var chunks []warraq.Chunk
	index := 0
	pos := 0

	emit := func(chunkText string, meta *warraq.ChunkMeta) {
		chunks = append(chunks, warraq.Chunk{
			Text:      chunkText,
			Index:     index,
			StartChar: pos,
			EndChar:   pos + len(chunkText),
			Metadata:  meta,
		})
		index++
		pos += len(chunkText) + 1
	}

	for _, para := range splitParagraphs(text) {
		wordCount := len(strings.Fields(para))

		if wordCount <= c.size {
			emit(para, &warraq.ChunkMeta{
				Strategy:  "dynamic",
				Type:      "paragraph",
				WordCount: wordCount,
			})
			continue
		}

		var buf []string
		bufWords := 0
		flush := func() {
			if len(buf) == 0 {
				return
			}
			joined := strings.Join(buf, " ")
			emit(joined, &warraq.ChunkMeta{
				Strategy:      "dynamic",
				Type:          "multi-sentence",
				SentenceCount: len(buf),
				WordCount:     bufWords,
			})
			buf = buf[:0]
			bufWords = 0
		}

		for _, sentence := range SplitSentences(para) {
			sentenceWords := len(strings.Fields(sentence))
			if bufWords+sentenceWords > c.size {
				flush()
			}
			buf = append(buf, sentence)
			bufWords += sentenceWords
		}
		flush()
	}

	return chunks
}
