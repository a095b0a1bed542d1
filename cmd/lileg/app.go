package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/ooocheckitout/llm-knowledge-base/config"
	"github.com/ooocheckitout/llm-knowledge-base/internal/chunker"
	"github.com/ooocheckitout/llm-knowledge-base/internal/embedcache"
	"github.com/ooocheckitout/llm-knowledge-base/internal/history"
	"github.com/ooocheckitout/llm-knowledge-base/internal/history/inmemory"
	redis_history "github.com/ooocheckitout/llm-knowledge-base/internal/history/redis"
	"github.com/ooocheckitout/llm-knowledge-base/internal/ingest"
	"github.com/ooocheckitout/llm-knowledge-base/internal/rag"
	"github.com/ooocheckitout/llm-knowledge-base/internal/store"
	"github.com/ooocheckitout/llm-knowledge-base/internal/telemetry"
	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore/qdrant"
	"github.com/ooocheckitout/llm-knowledge-base/provider"
)

// app wires the shared pipelines used by both the HTTP API and the bot.
type app struct {
	cfg     *config.Config
	ingest  *ingest.Pipeline
	rag     *rag.Pipeline
	history history.Store
	metrics *telemetry.Metrics
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	chat, err := provider.NewChat(cfg.Providers.Chat)
	if err != nil {
		return nil, err
	}
	embedder, err := provider.NewEmbedding(cfg.Providers.Embedding)
	if err != nil {
		return nil, err
	}

	cacheLogger := log.New(os.Stdout, "[CACHE] ", log.LstdFlags)
	cache, err := embedcache.New(embedder, cfg.Cache.Dir, cacheLogger)
	if err != nil {
		return nil, err
	}
	janitor, err := embedcache.NewJanitor(cfg.Cache.Dir, cfg.Cache.PruneSchedule, cfg.Cache.Retention, cacheLogger)
	if err != nil {
		return nil, err
	}
	if janitor != nil {
		go janitor.Run(ctx)
	}

	vectors := qdrant.NewStorage(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    cfg.Qdrant.Timeout,
	})
	if err := vectors.EnsureCollection(ctx, cfg.Providers.Embedding.Dimensions); err != nil {
		return nil, fmt.Errorf("failed to ensure qdrant collection: %w", err)
	}

	var hist history.Store
	switch cfg.History.Backend {
	case "redis":
		addr := net.JoinHostPort(cfg.Storage.Redis.Host, cfg.Storage.Redis.Port)
		hist = redis_history.NewStore(addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.History.TTL)
	case "inmemory", "":
		hist = inmemory.NewStore()
	default:
		return nil, fmt.Errorf("unsupported history backend: %q", cfg.History.Backend)
	}

	splitter := chunker.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	ingestLogger := log.New(os.Stdout, "[INGEST] ", log.LstdFlags)
	ragLogger := log.New(os.Stdout, "[RAG] ", log.LstdFlags)

	return &app{
		cfg:    cfg,
		ingest: ingest.NewPipeline(splitter, cache, vectors, ingestLogger),
		rag: rag.NewPipeline(chat, cache, vectors, hist, rag.Options{
			TopK:       cfg.Retrieval.TopK,
			Rerank:     cfg.Retrieval.Rerank,
			Candidates: cfg.Retrieval.Candidates,
			MaxTurns:   cfg.History.MaxTurns,
		}, ragLogger),
		history: hist,
		metrics: telemetry.NewMetrics(),
	}, nil
}

// feedbackStore connects to postgres when it is configured; the bot works
// without it, votes are just not persisted.
func feedbackStore(cfg *config.Config, logger *log.Logger) *store.Store {
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		logger.Printf("feedback disabled: %v", err)
		return nil
	}
	st, err := store.New(dsn)
	if err != nil {
		logger.Printf("feedback disabled: %v", err)
		return nil
	}
	return st
}
