package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var _ Extractor = (*PDFExtractor)(nil)
var _ PageCounter = (*PDFExtractor)(nil)

// PDFExtractor extracts plain text from PDF documents.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Extract extracts plain text from a PDF document.
func (e *PDFExtractor) Extract(content []byte) (string, error) {
	result, err := e.ExtractPages(content)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ExtractPages extracts text page-by-page, joining pages with paragraph
// breaks and counting the pages that yielded text.
func (e *PDFExtractor) ExtractPages(content []byte) (ExtractResult, error) {
	if len(content) == 0 {
		return ExtractResult{}, fmt.Errorf("empty PDF content")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ExtractResult{}, fmt.Errorf("open pdf: %w", err)
	}
	var text strings.Builder
	pages := 0
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
		pages++
	}
	return ExtractResult{
		Text:      strings.TrimSpace(text.String()),
		PageCount: pages,
	}, nil
}
