package ingest

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Extractor converts raw file content to plain text.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ExtractResult holds extracted text and optional per-page metadata.
type ExtractResult struct {
	Text      string
	PageCount int
}

// PageCounter is an optional capability for extractors that know how many
// pages the source document has. If an Extractor also implements
// PageCounter, the ingestor uses ExtractPages instead of Extract.
type PageCounter interface {
	ExtractPages(content []byte) (ExtractResult, error)
}

// ContentType identifies the MIME type of content for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeHTML      ContentType = "text/html"
	TypeMarkdown  ContentType = "text/markdown"
	TypeDOCX      ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromExtension maps file extensions to content types.
func ContentTypeFromExtension(ext string) ContentType {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "md", "markdown":
		return TypeMarkdown
	case "html", "htm":
		return TypeHTML
	case "docx":
		return TypeDOCX
	case "pdf":
		return TypePDF
	default:
		return TypePlainText
	}
}

// PlainTextExtractor returns content as text. Input that is not valid
// UTF-8 is decoded as Windows-1256, the dominant legacy encoding for
// Arabic documents.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	decoded, err := charmap.Windows1256.NewDecoder().Bytes(content)
	if err != nil {
		return string(content), nil
	}
	return string(decoded), nil
}

// collapseWhitespace trims lines and squeezes runs of blank lines down to
// a single paragraph break.
func collapseWhitespace(text string) string {
	var result strings.Builder
	emptyCount := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if result.Len() > 0 {
				emptyCount++
			}
			continue
		}
		if emptyCount > 0 {
			result.WriteString("\n\n")
		} else if result.Len() > 0 {
			result.WriteByte('\n')
		}
		result.WriteString(trimmed)
		emptyCount = 0
	}

	return strings.TrimSpace(result.String())
}
