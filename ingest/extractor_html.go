package ingest

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/go-shiori/go-readability"
)

// Readability resolves relative links against a page URL; ingested files
// have none, so a fixed placeholder serves.
var localBase = &url.URL{Scheme: "file", Path: "/"}

var _ Extractor = (*HTMLExtractor)(nil)

// HTMLExtractor extracts readable text from HTML documents, dropping
// navigation, scripts, and boilerplate.
type HTMLExtractor struct{}

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor { return &HTMLExtractor{} }

// Extract extracts the readable text content of an HTML document.
func (e *HTMLExtractor) Extract(content []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(content), localBase)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return collapseWhitespace(article.TextContent), nil
}
