package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geogli/chatbot/internal/config"
	"github.com/geogli/chatbot/internal/core/domain"
	"github.com/geogli/chatbot/internal/core/ports"
	"github.com/geogli/chatbot/internal/core/usecase"
	"github.com/geogli/chatbot/internal/infrastructure/chunking"
	"github.com/geogli/chatbot/internal/infrastructure/llm/ollama"
	openaillm "github.com/geogli/chatbot/internal/infrastructure/llm/openai"
	"github.com/geogli/chatbot/internal/infrastructure/loader"
	"github.com/geogli/chatbot/internal/infrastructure/queue/nats"
	"github.com/geogli/chatbot/internal/infrastructure/resilience"
	sessionsqlite "github.com/geogli/chatbot/internal/infrastructure/session/sqlite"
	"github.com/geogli/chatbot/internal/infrastructure/structured"
	"github.com/geogli/chatbot/internal/infrastructure/vector/flat"
	"github.com/geogli/chatbot/internal/observability/logging"
	"github.com/geogli/chatbot/internal/observability/metrics"
)

// App wires configuration into the serving dependency graph. The ingest CLI
// uses a subset of the same wiring via NewIngestApp.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.HTTPServerMetrics
	Handle   *flat.Handle
	Streamer ports.QueryStreamer
	Sessions *sessionsqlite.Store
	Notifier ports.IndexNotifier

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("geogli-chatbot", cfg.LogLevel)
	slog.SetDefault(logger)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	embedder, answerer := buildBackends(cfg, executor)

	handle := flat.NewHandle()
	httpMetrics := metrics.NewHTTPServerMetrics("api")
	reload := func(context.Context) error {
		idx, err := flat.Load(cfg.IndexPath)
		if err != nil {
			return err
		}
		if err := idx.VerifyBackend(embedder.Identity()); err != nil {
			return err
		}
		handle.Publish(idx)
		httpMetrics.RecordIndexReload()
		logger.Info("vector index published",
			slog.Int("chunks", idx.Len()),
			slog.Int("dim", idx.Dim()),
		)
		return nil
	}
	if err := reload(ctx); err != nil {
		// A missing index is not fatal: /health stays 503 until an
		// ingest run publishes one.
		if !domain.IsKind(err, domain.ErrIndexNotFound) {
			return nil, fmt.Errorf("load index: %w", err)
		}
		logger.Warn("no vector index yet, waiting for ingestion", slog.String("path", cfg.IndexPath))
	}

	sessions, err := sessionsqlite.New(cfg.SessionDBPath, cfg.SessionTTL(), logger)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	var notifier ports.IndexNotifier
	if cfg.NATSURL != "" {
		n, err := nats.New(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			sessions.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		if err := n.SubscribeIndexRebuilt(ctx, reload); err != nil {
			n.Close()
			sessions.Close()
			return nil, fmt.Errorf("subscribe index rebuilt: %w", err)
		}
		notifier = n
	}

	router := usecase.NewRouter(embedder, handle, structured.NewStub(), usecase.RouterConfig{
		TopKDefault:   cfg.TopKDefault,
		TopKMax:       cfg.TopKMax,
		MaxQueryChars: cfg.MaxQueryChars,
		MinScore:      cfg.MinScore,
		EmbedTimeout:  cfg.EmbedTimeout(),
	}, logger)
	streamer := usecase.NewStreamer(router, answerer, sessions, usecase.StreamerConfig{
		HistoryLimit:  cfg.SessionTurnLimit,
		RouteTimeout:  cfg.RouteTimeout(),
		AnswerTimeout: cfg.AnswerTimeout(),
	}, logger)

	go sessions.RunJanitor(ctx, cfg.SessionTTL()/4)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  httpMetrics,
		Handle:   handle,
		Streamer: streamer,
		Sessions: sessions,
		Notifier: notifier,
		closeFn: func() {
			if notifier != nil {
				notifier.Close()
			}
			_ = sessions.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// IngestApp is the dependency set of the ingest CLI.
type IngestApp struct {
	Config   config.Config
	Logger   *slog.Logger
	Ingestor ports.CorpusIngestor

	closeFn func()
}

func NewIngestApp(cfg config.Config) (*IngestApp, error) {
	logger := logging.NewJSONLogger("geogli-ingest", cfg.LogLevel)
	slog.SetDefault(logger)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	embedder, _ := buildBackends(cfg, executor)

	splitter, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("chunker config: %w", err)
	}

	var notifier ports.IndexNotifier
	closeFn := func() {}
	if cfg.NATSURL != "" {
		n, err := nats.New(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		notifier = n
		closeFn = n.Close
	}

	ingestor := usecase.NewIngestor(loader.New(), splitter, embedder, notifier, usecase.IngestorConfig{
		IndexPath: cfg.IndexPath,
		BatchSize: cfg.EmbedBatchSize,
	}, logger)

	return &IngestApp{
		Config:   cfg,
		Logger:   logger,
		Ingestor: ingestor,
		closeFn:  closeFn,
	}, nil
}

func (a *IngestApp) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// buildBackends selects embedding and generation backends independently, so
// a deployment can embed locally and generate remotely.
func buildBackends(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.AnswerStreamer) {
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.AnswerTimeout(), executor)
	openaiClient := openaillm.New(openaillm.Config{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		GenModel:   cfg.OpenAIGenModel,
		EmbedModel: cfg.OpenAIEmbedModel,
	}, executor)

	var embedder ports.Embedder = ollamaClient
	if cfg.EmbeddingBackend == "openai" {
		embedder = openaiClient
	}
	var answerer ports.AnswerStreamer = ollamaClient
	if cfg.GenerationBackend == "openai" {
		answerer = openaiClient
	}
	return embedder, answerer
}
