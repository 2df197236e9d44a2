package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/project-brain/internal/config"
	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/usecase"
	"github.com/kirillkom/project-brain/internal/infrastructure/cache/querycache"
	"github.com/kirillkom/project-brain/internal/infrastructure/chunking"
	"github.com/kirillkom/project-brain/internal/infrastructure/extractor"
	"github.com/kirillkom/project-brain/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/project-brain/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/project-brain/internal/infrastructure/index/memory"
	"github.com/kirillkom/project-brain/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/project-brain/internal/infrastructure/queue/nats"
	"github.com/kirillkom/project-brain/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/project-brain/internal/infrastructure/resilience"
	"github.com/kirillkom/project-brain/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/project-brain/internal/infrastructure/topics"
)

// Options tune which parts of the graph New builds.
type Options struct {
	// Service names the process in NATS connection metadata.
	Service string
	// WithoutQueue skips the NATS connection for processes that never ingest.
	WithoutQueue  bool
	StateObserver resilience.StateObserver
}

type App struct {
	Config config.Config

	Queue     *nats.Queue
	Documents *postgres.DocumentRepository
	History   *postgres.QueryHistoryRepository
	Index     *memory.Store
	Cache     *querycache.Cache[*domain.Answer]
	Detector  *usecase.ConflictDetector

	IngestUC    *usecase.IngestDocumentUseCase
	ProcessUC   *usecase.ProcessDocumentUseCase
	Retriever   *usecase.HybridRetriever
	QueryUC     *usecase.QueryUseCase
	ConflictUC  *usecase.ConflictUseCase
	ExtractUC   *usecase.ExtractUseCase
	IndexSyncUC *usecase.IndexSyncUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chunkRepo := postgres.NewChunkRepository(db)
	history := postgres.NewQueryHistoryRepository(db)
	conversations := postgres.NewConversationRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := newExecutor(cfg, opts.StateObserver)

	var queue *nats.Queue
	if !opts.WithoutQueue {
		queue, err = nats.NewWithOptions(cfg.NATSURL, nats.Subjects{
			Ingest:  cfg.NATSIngestSubject,
			Indexed: cfg.NATSIndexedSubject,
		}, nats.Options{
			ResilienceExecutor: executor,
			ClientName:         opts.Service,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	rules, err := topics.Load(cfg.ConflictTopicsFile)
	if err != nil {
		closeAll(queue, db)
		return nil, fmt.Errorf("load conflict topics: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel,
		ollama.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.OllamaTimeoutSeconds) * time.Second}),
		ollama.WithExecutor(executor),
	)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbeddingDimension)
	generator := ollama.NewGenerator(ollamaClient)
	recordGenerator := ollama.NewRecordExtractor(ollamaClient)

	index := memory.NewStore(cfg.EmbeddingDimension)
	cache := querycache.New[*domain.Answer](time.Duration(cfg.CacheTTLSeconds) * time.Second)
	detector := usecase.NewConflictDetector(rules)

	retriever := usecase.NewHybridRetriever(index, embedder, usecase.RetrieverOptions{
		Alpha:     usecase.Alpha(cfg.RAGHybridAlpha),
		BM25K1:    cfg.RAGBM25K1,
		BM25B:     cfg.RAGBM25B,
		Dimension: cfg.EmbeddingDimension,
	})
	extractUC := usecase.NewExtractUseCase(retriever, recordGenerator)
	queryUC := usecase.NewQueryUseCase(retriever, generator, extractUC, cache, history, conversations, usecase.QueryOptions{
		DefaultK: cfg.RAGTopK,
		CacheTTL: time.Duration(cfg.CacheTTLSeconds) * time.Second,
	})

	pages := extractor.NewRouter(pdf.NewExtractor(storage), plaintext.NewExtractor(storage))
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	app := &App{
		Config:    cfg,
		Queue:     queue,
		Documents: docs,
		History:   history,
		Index:     index,
		Cache:     cache,
		Detector:  detector,

		Retriever:   retriever,
		QueryUC:     queryUC,
		ConflictUC:  usecase.NewConflictUseCase(index, detector),
		ExtractUC:   extractUC,
		IndexSyncUC: usecase.NewIndexSyncUseCase(chunkRepo, index, cache),

		closeFn: func() { closeAll(queue, db) },
	}
	if queue != nil {
		app.IngestUC = usecase.NewIngestDocumentUseCase(docs, storage, queue)
		app.ProcessUC = usecase.NewProcessDocumentUseCase(docs, pages, chunker, embedder, chunkRepo, queue, cfg.EmbeddingDimension)
	}
	return app, nil
}

// WarmIndex loads persisted chunks into the in-process index.
func (a *App) WarmIndex(ctx context.Context) error {
	start := time.Now()
	loaded, err := a.IndexSyncUC.Warm(ctx)
	if err != nil {
		return fmt.Errorf("warm index: %w", err)
	}
	slog.Info("index_warmed", "chunks", loaded, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

type indexedSubscriber interface {
	SubscribeDocumentIndexed(ctx context.Context, handler func(context.Context, string) error) error
}

// StartIndexSync follows documents.indexed in the background so the caller can
// go on serving. The channel yields the subscription error if it stops early.
func (a *App) StartIndexSync(ctx context.Context) <-chan error {
	if a.Queue == nil {
		return nil
	}
	return startSubscription(ctx, a.Queue, a.IndexSyncUC.HandleIndexed)
}

func startSubscription(ctx context.Context, sub indexedSubscriber, handler func(context.Context, string) error) <-chan error {
	errs := make(chan error, 1)
	go func() {
		if err := sub.SubscribeDocumentIndexed(ctx, handler); err != nil {
			errs <- err
		}
	}()
	return errs
}

// WatchTopics hot-reloads the conflict topic table while ctx is live. It is a
// no-op when the built-in table is in use.
func (a *App) WatchTopics(ctx context.Context) error {
	path := strings.TrimSpace(a.Config.ConflictTopicsFile)
	if path == "" {
		return nil
	}
	return topics.Watch(ctx, path, a.Detector.SetRules)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newExecutor(cfg config.Config, observer resilience.StateObserver) *resilience.Executor {
	var opts []resilience.Option
	if observer != nil {
		opts = append(opts, resilience.WithStateObserver(observer))
	}
	return resilience.NewExecutor(resilience.Tuned(cfg.ResilienceRetryAttempts, cfg.ResilienceBreakerEnabled), opts...)
}

func closeAll(queue *nats.Queue, db *sql.DB) {
	if queue != nil {
		queue.Close()
	}
	_ = db.Close()
}
