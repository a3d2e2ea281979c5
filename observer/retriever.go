package observer

import (
	"context"
	"time"

	warraq "github.com/warraqhq/warraq"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedSearcher wraps a warraq.Searcher with OTEL instrumentation.
type ObservedSearcher struct {
	inner warraq.Searcher
	inst  *Instruments
}

var _ warraq.Searcher = (*ObservedSearcher)(nil)

// WrapSearcher returns an instrumented searcher.
func WrapSearcher(inner warraq.Searcher, inst *Instruments) *ObservedSearcher {
	return &ObservedSearcher{inner: inner, inst: inst}
}

func (o *ObservedSearcher) SemanticSearch(ctx context.Context, query string, topK int, documentID string) (warraq.SearchResponse, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "search.semantic", trace.WithAttributes(
		AttrSearchKind.String("semantic"),
		AttrSearchTopK.Int(topK),
		AttrSearchDocument.String(documentID),
	))
	defer span.End()

	start := time.Now()
	resp, err := o.inner.SemanticSearch(ctx, query, topK, documentID)
	o.record(ctx, span, "semantic", start, len(resp.Results), err)
	return resp, err
}

func (o *ObservedSearcher) HybridSearch(ctx context.Context, query string, topK int, filters warraq.Filters) (warraq.SearchResponse, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "search.hybrid", trace.WithAttributes(
		AttrSearchKind.String("hybrid"),
		AttrSearchTopK.Int(topK),
		AttrSearchDocument.String(filters.DocumentID),
		AttrSearchLanguage.String(filters.Language),
	))
	defer span.End()

	start := time.Now()
	resp, err := o.inner.HybridSearch(ctx, query, topK, filters)
	o.record(ctx, span, "hybrid", start, len(resp.Results), err)
	return resp, err
}

func (o *ObservedSearcher) ContextForQuery(ctx context.Context, query string, topK int) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "search.context", trace.WithAttributes(
		AttrSearchKind.String("context"),
		AttrSearchTopK.Int(topK),
	))
	defer span.End()

	start := time.Now()
	block, err := o.inner.ContextForQuery(ctx, query, topK)
	o.record(ctx, span, "context", start, 0, err)
	return block, err
}

func (o *ObservedSearcher) record(ctx context.Context, span trace.Span, kind string, start time.Time, results int, err error) {
	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(AttrSearchResults.Int(results))
	}

	o.inst.SearchRequests.Add(ctx, 1, metric.WithAttributes(
		AttrSearchKind.String(kind),
		attribute.String("status", status),
	))
	o.inst.SearchDuration.Record(ctx, durationMs, metric.WithAttributes(AttrSearchKind.String(kind)))
	if err == nil {
		o.inst.SearchResults.Record(ctx, int64(results), metric.WithAttributes(AttrSearchKind.String(kind)))
	}
}
