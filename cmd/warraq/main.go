package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	warraq "github.com/warraqhq/warraq"
	"github.com/warraqhq/warraq/ingest"
	"github.com/warraqhq/warraq/internal/api"
	"github.com/warraqhq/warraq/internal/config"
	"github.com/warraqhq/warraq/observer"
	"github.com/warraqhq/warraq/provider/gemini"
	"github.com/warraqhq/warraq/provider/openai"
	"github.com/warraqhq/warraq/store/postgres"
	"github.com/warraqhq/warraq/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load(os.Getenv("WARRAQ_CONFIG"))
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store + vector index. Both backends serve double duty.
	var (
		store warraq.Store
		index warraq.VectorIndex
	)
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := postgres.New(pool,
			postgres.WithEmbeddingDimension(cfg.Embedding.Dimensions),
			postgres.WithLogger(logger))
		store, index = pg, pg
	case "sqlite", "":
		sq := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
		store, index = sq, sq
	default:
		return &warraq.ErrConfig{Field: "database.driver", Message: "unknown driver " + cfg.Database.Driver}
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		return err
	}

	// Embedding provider.
	var embedding warraq.EmbeddingProvider
	switch cfg.Embedding.Provider {
	case "gemini":
		embedding = gemini.New(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	case "openai", "":
		if cfg.Embedding.BaseURL != "" {
			embedding = openai.NewWithBaseURL(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		} else {
			embedding = openai.New(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		}
	default:
		return &warraq.ErrConfig{Field: "embedding.provider", Message: "unknown provider " + cfg.Embedding.Provider}
	}

	var searcher warraq.Searcher

	// Optional OTLP instrumentation.
	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("observer shutdown", "error", err)
			}
		}()
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
		searcher = observer.WrapSearcher(warraq.NewRetriever(store, index, embedding, warraq.WithLogger(logger)), inst)
	} else {
		searcher = warraq.NewRetriever(store, index, embedding, warraq.WithLogger(logger))
	}

	engine, err := ingest.NewEngine(
		ingest.WithChunkSize(cfg.Chunking.ChunkSize),
		ingest.WithOverlap(cfg.Chunking.Overlap),
		ingest.WithEngineLogger(logger))
	if err != nil {
		return err
	}

	strategy, err := ingest.ParseStrategy(cfg.Chunking.Strategy)
	if err != nil {
		return err
	}
	ingestor := ingest.NewIngestor(store, index, embedding, engine,
		ingest.WithStrategy(strategy),
		ingest.WithLogger(logger))

	server := api.NewServer(ingestor, searcher, store,
		api.WithLogger(logger),
		api.WithMaxUploadSize(cfg.Server.MaxUploadSize),
		api.WithDefaultTopK(cfg.Search.TopK))

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver, "embedding", embedding.Name())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("shut down cleanly")
	return nil
}
