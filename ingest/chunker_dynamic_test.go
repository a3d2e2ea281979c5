package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/warraqhq/warraq"
)

func TestDynamicChunkShortParagraphs(t *testing.T) {
	dc, err := NewDynamicChunker(512)
	if err != nil {
		t.Fatal(err)
	}
	text := "First paragraph with a little content.\n\nSecond paragraph with other content."
	chunks := dc.Chunk(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Metadata.Type != "paragraph" {
			t.Errorf("chunk %d: type %q", i, c.Metadata.Type)
		}
		if c.Metadata.Strategy != "dynamic" {
			t.Errorf("chunk %d: strategy %q", i, c.Metadata.Strategy)
		}
		if c.Index != i {
			t.Errorf("chunk %d: index %d", i, c.Index)
		}
	}
	if chunks[0].Text != "First paragraph with a little content." {
		t.Errorf("got %q", chunks[0].Text)
	}
}

func TestDynamicChunkLargeParagraphPacksSentences(t *testing.T) {
	dc, _ := NewDynamicChunker(12)
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteString("This sentence has exactly six words. ")
	}
	chunks := dc.Chunk(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Metadata.Type != "multi-sentence" {
			t.Errorf("chunk %d: type %q", i, c.Metadata.Type)
		}
		if c.Metadata.WordCount > 12 {
			t.Errorf("chunk %d: %d words exceeds budget", i, c.Metadata.WordCount)
		}
		if c.Metadata.SentenceCount != 2 {
			t.Errorf("chunk %d: sentence count %d", i, c.Metadata.SentenceCount)
		}
	}
}

func TestDynamicChunkOversizedSentenceEmittedWhole(t *testing.T) {
	dc, _ := NewDynamicChunker(5)
	text := wordRun(20) + "."
	chunks := dc.Chunk(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Metadata.WordCount != 20 {
		t.Errorf("word count %d, the budget must not truncate", chunks[0].Metadata.WordCount)
	}
	if chunks[0].Metadata.SentenceCount != 1 {
		t.Errorf("sentence count %d", chunks[0].Metadata.SentenceCount)
	}
}

func TestDynamicChunkNoEmptyChunks(t *testing.T) {
	dc, _ := NewDynamicChunker(10)
	text := "One.\n\n\n\n   \n\nTwo.\n\nThree."
	chunks := dc.Chunk(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestDynamicChunkPositionsAdvance(t *testing.T) {
	dc, _ := NewDynamicChunker(512)
	text := "Alpha paragraph.\n\nBeta paragraph.\n\nGamma paragraph."
	chunks := dc.Chunk(text)
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartChar <= chunks[i-1].StartChar {
			t.Errorf("chunk %d: start %d not after %d", i, chunks[i].StartChar, chunks[i-1].StartChar)
		}
	}
	for _, c := range chunks {
		if c.EndChar-c.StartChar != len(c.Text) {
			t.Errorf("chunk %d: span %d != text length %d", c.Index, c.EndChar-c.StartChar, len(c.Text))
		}
	}
}

func TestDynamicChunkEmpty(t *testing.T) {
	dc, _ := NewDynamicChunker(512)
	if chunks := dc.Chunk(""); len(chunks) != 0 {
		t.Error("expected no chunks")
	}
}

func TestNewDynamicChunkerRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -5} {
		_, err := NewDynamicChunker(size)
		var cfgErr *warraq.ErrConfig
		if !errors.As(err, &cfgErr) {
			t.Fatalf("size %d: expected config error, got %v", size, err)
		}
	}
}
