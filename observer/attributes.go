package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for retrieval observability spans and metrics.
var (
	AttrEmbedModel      = attribute.Key("embedding.model")
	AttrEmbedProvider   = attribute.Key("embedding.provider")
	AttrEmbedTextCount  = attribute.Key("embedding.text_count")
	AttrEmbedDimensions = attribute.Key("embedding.dimensions")

	AttrSearchKind     = attribute.Key("search.kind")
	AttrSearchTopK     = attribute.Key("search.top_k")
	AttrSearchResults  = attribute.Key("search.results")
	AttrSearchDocument = attribute.Key("search.document_id")
	AttrSearchLanguage = attribute.Key("search.language")
)
