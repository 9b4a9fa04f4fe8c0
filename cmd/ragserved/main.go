// Ragserved is a multi-tenant retrieval-augmented question answering server.
//
// It stores uploaded documents per project, chunks and embeds them, indexes
// the chunks in a vector database, and answers questions over them with an
// LLM.
//
// Configuration is loaded from environment variables, optionally seeded from
// a .env file. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	ragserved
//
//	# Configure via environment
//	SERVER_PORT=9090 VECTOR_DB_BACKEND=pgvector ragserved
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/auth"
	"github.com/quarrylabs/ragserve/internal/chunker"
	"github.com/quarrylabs/ragserve/internal/config"
	"github.com/quarrylabs/ragserve/internal/llm"
	"github.com/quarrylabs/ragserve/internal/logging"
	"github.com/quarrylabs/ragserve/internal/server"
	"github.com/quarrylabs/ragserve/internal/service"
	"github.com/quarrylabs/ragserve/internal/store"
	"github.com/quarrylabs/ragserve/internal/templates"
	"github.com/quarrylabs/ragserve/internal/vectorstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("server shutdown complete")
}

// run initializes all dependencies and blocks until the context is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting ragserve",
		zap.String("app_name", cfg.AppName),
		zap.String("vector_db_backend", cfg.VectorDBBackend),
		zap.String("generation_backend", cfg.GenerationBackend),
		zap.String("embedding_backend", cfg.EmbeddingBackend),
	)

	registerVector := cfg.VectorDBBackend == config.BackendPgvector
	pool, err := store.NewPool(ctx, string(cfg.DatabaseURL), registerVector)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := store.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	vector, err := vectorstore.New(ctx, cfg, pool, logger)
	if err != nil {
		return fmt.Errorf("initialize vector store: %w", err)
	}
	defer vector.Close()

	generator, err := llm.NewProvider(cfg, cfg.GenerationBackend)
	if err != nil {
		return fmt.Errorf("initialize generation provider: %w", err)
	}
	embedder, err := llm.NewProvider(cfg, cfg.EmbeddingBackend)
	if err != nil {
		return fmt.Errorf("initialize embedding provider: %w", err)
	}
	if !generator.Available() {
		logger.Warn("generation provider unavailable, NLP endpoints will return 503")
	}
	if !embedder.Available() {
		logger.Warn("embedding provider unavailable, indexing endpoints will return 503")
	}

	tmpl := templates.New(cfg.PrimaryLang, cfg.DefaultLang)
	tokens := auth.NewTokenManager(string(cfg.SecretKey), time.Duration(cfg.AccessTokenExpireMinutes)*time.Minute)

	users := store.NewUserStore(pool)
	projects := store.NewProjectStore(pool)
	assets := store.NewAssetStore(pool)
	chunks := store.NewChunkStore(pool)
	queryLogs := store.NewQueryLogStore(pool)

	splitter := chunker.New(service.ProviderEmbedder{Provider: embedder}, logger)

	accounts := service.NewAccountService(users, tokens, logger)
	projectSvc := service.NewProjectService(projects, assets, chunks, vector, cfg.EmbeddingModelSize, logger)
	ingest := service.NewIngestService(cfg, projects, assets, chunks, vector, splitter, logger)
	retrieval := service.NewRetrievalService(projects, chunks, queryLogs, vector, embedder, generator, tmpl, cfg.EmbeddingModelSize, logger)

	srv, err := server.NewServer(cfg, accounts, projectSvc, ingest, retrieval, tokens, users, logger)
	if err != nil {
		return fmt.Errorf("initialize http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
