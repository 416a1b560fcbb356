package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/janhq/answer-api/internal/config"
	"github.com/janhq/answer-api/internal/domain/answer"
	"github.com/janhq/answer-api/internal/domain/classifier"
	"github.com/janhq/answer-api/internal/domain/conversation"
	"github.com/janhq/answer-api/internal/domain/llm"
	"github.com/janhq/answer-api/internal/domain/retry"
	"github.com/janhq/answer-api/internal/domain/rewriter"
	"github.com/janhq/answer-api/internal/domain/search"
	"github.com/janhq/answer-api/internal/domain/tool"
	"github.com/janhq/answer-api/internal/infrastructure/cache"
	"github.com/janhq/answer-api/internal/infrastructure/database"
	"github.com/janhq/answer-api/internal/infrastructure/llmprovider"
	"github.com/janhq/answer-api/internal/infrastructure/logger"
	"github.com/janhq/answer-api/internal/infrastructure/mcp"
	"github.com/janhq/answer-api/internal/infrastructure/metrics"
	"github.com/janhq/answer-api/internal/infrastructure/observability"
	conversationrepo "github.com/janhq/answer-api/internal/infrastructure/repository/conversation"
	searchclient "github.com/janhq/answer-api/internal/infrastructure/search"
	"github.com/janhq/answer-api/internal/interfaces/httpserver"
	"github.com/janhq/answer-api/internal/interfaces/httpserver/handlers"
	"github.com/janhq/answer-api/internal/worker"
)

// Application owns the HTTP server and the resources released on shutdown.
type Application struct {
	httpServer *httpserver.HttpServer
	pool       *worker.Pool
	db         *gorm.DB
	cache      search.Cache
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, pool *worker.Pool, db *gorm.DB, searchCache search.Cache, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		pool:       pool,
		db:         db,
		cache:      searchCache,
		log:        log,
	}
}

// Start runs the server until ctx is cancelled, then drains background tasks.
func (a *Application) Start(ctx context.Context) error {
	a.pool.Start()
	err := a.httpServer.Run(ctx)

	a.log.Info().Msg("stopping worker pool")
	a.pool.Stop()

	if closer, ok := a.cache.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil {
			a.log.Error().Err(cerr).Msg("close search cache")
		}
	}
	if cerr := database.Close(a.db); cerr != nil {
		a.log.Error().Err(cerr).Msg("close database")
	}
	return err
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := newGormDB(ctx, database.ConfigFrom(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize database")
	}

	searchCache, err := newSearchCache(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize search cache")
	}

	conversationService := conversation.NewService(
		conversationrepo.NewRepository(db),
		conversationrepo.NewMessageRepository(db),
		log,
	)

	llmClient := newLLMProvider(cfg)
	gateway := newSearchGateway(cfg, searchCache, log)
	pool := newWorkerPool(cfg, log)

	answerService := newAnswerService(
		cfg,
		llmClient,
		conversationService,
		pool,
		gateway,
		newClassifier(cfg, llmClient, log),
		newRewriter(cfg, llmClient, log),
		newOrchestrator(cfg, llmClient, log),
		log,
	)

	handlerProvider := handlers.NewProvider(answerService, conversationService, log)
	httpServer := httpserver.New(cfg, log, handlerProvider, newReadinessChecks(db, searchCache))
	app := NewApplication(httpServer, pool, db, searchCache, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func newSearchCache(cfg *config.Config, log zerolog.Logger) (search.Cache, error) {
	return cache.New(cache.Config{
		Type:     cfg.SearchCacheType,
		Size:     cfg.SearchCacheSize,
		RedisURL: cfg.RedisURL,
	}, log)
}

func newLLMProvider(cfg *config.Config) *llmprovider.Client {
	return llmprovider.NewClient(cfg.LLMAPIURL, cfg.LLMAPIKey)
}

// newSearchGateway prefers the MCP search tool when MCP_TOOLS_URL is set and always
// keeps SearXNG as the direct fallback.
func newSearchGateway(cfg *config.Config, searchCache search.Cache, log zerolog.Logger) *search.Gateway {
	var primary search.PrimaryClient
	if cfg.MCPToolsURL != "" {
		primary = mcp.NewSearchTool(mcp.NewClient(cfg.MCPToolsURL, cfg.SearchHTTPTimeout), cfg.MCPSearchTool)
	}
	direct := searchclient.NewSearxngClient(searchclient.SearxngConfig{
		BaseURL: cfg.SearxngURL,
		Timeout: cfg.SearchHTTPTimeout,
	})
	return search.NewGateway(primary, direct, searchCache, search.GatewayConfig{
		CacheTTL: cfg.SearchCacheTTL,
	}, log)
}

func newWorkerPool(cfg *config.Config, log zerolog.Logger) *worker.Pool {
	pool := worker.NewPool(worker.Config{
		WorkerCount: cfg.WorkerCount,
		TaskTimeout: cfg.TaskTimeout,
		Retry:       retry.DefaultPolicy(cfg.TaskMaxRetries),
	}, log)
	metrics.RegisterTaskQueueDepth(pool.QueueDepth)
	return pool
}

func newClassifier(cfg *config.Config, provider llm.Provider, log zerolog.Logger) *classifier.Classifier {
	return classifier.New(provider, classifier.Config{
		Model:   cfg.ClassifierModel,
		Timeout: cfg.ClassifierTimeout,
	}, log)
}

func newRewriter(cfg *config.Config, provider llm.Provider, log zerolog.Logger) *rewriter.Rewriter {
	return rewriter.New(provider, rewriter.Config{
		Model:   cfg.RewriterModel,
		Timeout: cfg.RewriterTimeout,
	}, log)
}

func newOrchestrator(cfg *config.Config, provider llm.Provider, log zerolog.Logger) *tool.Orchestrator {
	return tool.NewOrchestrator(provider, cfg.MaxToolIterations, cfg.ToolCallTimeout, metrics.NewToolObserver(log), log)
}

func newAnswerService(
	cfg *config.Config,
	provider llm.Provider,
	store answer.ConversationStore,
	tasks answer.TaskRunner,
	searcher answer.Searcher,
	queryClassifier answer.QueryClassifier,
	queryRewriter answer.QueryRewriter,
	toolLoop answer.ToolLoop,
	log zerolog.Logger,
) *answer.Service {
	return answer.NewService(answer.Dependencies{
		Provider:   provider,
		Store:      store,
		Tasks:      tasks,
		Searcher:   searcher,
		Classifier: queryClassifier,
		Rewriter:   queryRewriter,
		ToolLoop:   toolLoop,
	}, answer.Config{
		DefaultMode: cfg.OrchestrationMode,
		Profile: llm.Profile{
			Model:       cfg.AnswerModel,
			Temperature: cfg.AnswerTemperature,
		},
		Timeout:       cfg.AnswerTimeout,
		SearchLimit:   cfg.SearchLimit,
		HistoryWindow: cfg.HistoryWindow,
	}, log)
}

func newReadinessChecks(db *gorm.DB, searchCache search.Cache) map[string]httpserver.ReadinessCheck {
	checks := map[string]httpserver.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if redisCache, ok := searchCache.(*cache.RedisCache); ok {
		checks["search_cache"] = redisCache.HealthCheck
	}
	return checks
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
