package ingest

import (
	"log/slog"

	"github.com/warraqhq/warraq"
)

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	size    int
	overlap int
	logger  *slog.Logger
}

// WithChunkSize sets the word budget per chunk (default 512).
func WithChunkSize(n int) EngineOption {
	return func(c *engineConfig) { c.size = n }
}

// WithOverlap sets the word overlap between consecutive fixed chunks
// (default 50).
func WithOverlap(n int) EngineOption {
	return func(c *engineConfig) { c.overlap = n }
}

// WithEngineLogger sets a structured logger for strategy decisions.
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(c *engineConfig) { c.logger = l }
}

// Engine is the adaptive chunking engine: it analyzes text, selects a
// strategy, and dispatches to the matching chunker. Configuration is
// immutable per instance; the engine is stateless across calls and safe to
// share between goroutines.
type Engine struct {
	size    int
	overlap int
	fixed   *FixedChunker
	dynamic *DynamicChunker
	logger  *slog.Logger
}

// NewEngine creates an Engine, validating size and overlap up front.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	cfg := engineConfig{size: 512, overlap: 50}
	for _, o := range opts {
		o(&cfg)
	}

	fixed, err := NewFixedChunker(cfg.size, cfg.overlap)
	if err != nil {
		return nil, err
	}
	dynamic, err := NewDynamicChunker(cfg.size)
	if err != nil {
		return nil, err
	}

	return &Engine{
		size:    cfg.size,
		overlap: cfg.overlap,
		fixed:   fixed,
		dynamic: dynamic,
		logger:  cfg.logger,
	}, nil
}

// ChunkText chunks text with the given strategy, resolving StrategyAuto
// through the analyzer. It returns the chunks and the strategy that
// actually ran. The rejoined chunk texts reproduce the source modulo
// whitespace collapsing and, for fixed chunking, the deliberate word
// overlap between consecutive chunks.
func (e *Engine) ChunkText(text string, strategy Strategy, meta DocumentMeta) ([]warraq.Chunk, Strategy) {
	if strategy == StrategyAuto {
		strategy = DecideStrategy(text, meta)
		if e.logger != nil {
			a := Analyze(text)
			e.logger.Debug("strategy selected",
				"strategy", strategy.String(),
				"complexity", a.Complexity,
				"has_structure", a.HasStructure,
				"language", meta.Language)
		}
	}

	switch strategy {
	case StrategyDynamic:
		return e.dynamic.Chunk(text), StrategyDynamic
	default:
		return e.fixed.Chunk(text), StrategyFixed
	}
}
