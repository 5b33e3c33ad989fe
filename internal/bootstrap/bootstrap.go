package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelasco/answer-engine/internal/config"
	"github.com/avelasco/answer-engine/internal/core/ports"
	"github.com/avelasco/answer-engine/internal/core/usecase"
	"github.com/avelasco/answer-engine/internal/infrastructure/chunking"
	"github.com/avelasco/answer-engine/internal/infrastructure/extractor"
	"github.com/avelasco/answer-engine/internal/infrastructure/llm/openai"
	"github.com/avelasco/answer-engine/internal/infrastructure/queue/nats"
	"github.com/avelasco/answer-engine/internal/infrastructure/repository/postgres"
	"github.com/avelasco/answer-engine/internal/infrastructure/resilience"
	"github.com/avelasco/answer-engine/internal/infrastructure/search/serper"
	"github.com/avelasco/answer-engine/internal/infrastructure/storage/localfs"
	"github.com/avelasco/answer-engine/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.QueryService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, cycleMetrics usecase.CycleMetrics) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	history := postgres.NewHistoryRepository(db)
	if err := history.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure chat history schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIChatModel, cfg.OpenAIEmbedModel, executor)
	searchClient := serper.New(cfg.SerperAPIKey, cfg.SerperURL, cfg.SerperRatePerSecond, executor)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.NewExtractor(storage)

	kbRetriever := usecase.NewKnowledgeBaseRetriever(llmClient, vectorDB, cfg.KBTopK)
	webRetriever := usecase.NewWebRetriever(searchClient, cfg.WebContextMaxChars)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, chunker, llmClient, vectorDB)
	queryUC := usecase.NewAskUseCase(
		kbRetriever,
		webRetriever,
		llmClient,
		history,
		logger,
		cycleMetrics,
		usecase.AskLimits{
			RetrievalTimeout:  time.Duration(cfg.RetrievalTimeoutSeconds) * time.Second,
			SynthesisTimeout:  time.Duration(cfg.SynthesisTimeoutSeconds) * time.Second,
			SuggestionTimeout: time.Duration(cfg.SuggestionTimeoutSeconds) * time.Second,
			PersistTimeout:    time.Duration(cfg.PersistTimeoutSeconds) * time.Second,
		},
	)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
