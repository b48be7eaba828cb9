// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tigertalks/tigertalks-go/internal/advisor"
	"github.com/tigertalks/tigertalks-go/internal/buildinfo"
	"github.com/tigertalks/tigertalks-go/internal/catalog"
	"github.com/tigertalks/tigertalks-go/internal/chat"
	"github.com/tigertalks/tigertalks-go/internal/config"
	"github.com/tigertalks/tigertalks-go/internal/genai"
	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/metrics"
	"github.com/tigertalks/tigertalks-go/internal/rag"
	"github.com/tigertalks/tigertalks-go/internal/ratelimit"
	"github.com/tigertalks/tigertalks-go/internal/sentry"
	"github.com/tigertalks/tigertalks-go/internal/storage"
)

// Per-user request budget for the API surface. Every chat turn and
// recommendation costs at least one LLM call, so the refill is deliberately
// slow: a 10-request burst refilling at 30 requests per hour.
const (
	userRateBurst  = 10
	userRateRefill = 30.0 / 3600.0
	userRateSweep  = 5 * time.Minute
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg         *config.Config
	logger      *logger.Logger
	db          *storage.DB
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	catalog     *catalog.Store
	generator   *genai.Generator
	vectorIndex *rag.VectorIndex
	search      *rag.HybridSearcher
	advisor     *advisor.Service
	chats       *chat.Service
	userLimiter *ratelimit.PerUserLimiter
	server      *http.Server
}

// Initialize creates an application with all dependencies wired.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, logger.Options{
		BetterstackToken:    cfg.BetterstackToken,
		BetterstackEndpoint: cfg.BetterstackEndpoint,
	})

	log = log.WithField("service", "tigertalks-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Default logger enables context value extraction (userID, chatID,
	// requestID) in package-level slog.*Context() calls.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterstackToken != "" {
		log.WithField("endpoint", cfg.BetterstackEndpoint).Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: "production",
		Release:     buildinfo.Version,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, continuing without error tracking")
	}

	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	cat := catalog.NewStore(cfg.CatalogPath, log)
	cat.SetMetrics(m)
	if err := cat.Load(ctx); err != nil {
		// The store retries lazily on first use; startup load is a warmup.
		log.WithError(err).WithField("path", cfg.CatalogPath).Warn("Catalog snapshot load failed")
	}

	generator, err := buildGenerator(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	generator.SetMetrics(m)

	vectorIndex := rag.NewVectorIndex(db, generator.EmbeddingModelID(), log)
	vectorIndex.SetMetrics(m)
	if err := vectorIndex.Refresh(ctx); err != nil {
		log.WithError(err).Warn("Vector index refresh failed, similarity search degrades to keyword fallback")
	}

	lexical := rag.NewLexicalIndex(log)
	if err := buildLexicalIndex(ctx, lexical, cat); err != nil {
		log.WithError(err).Warn("BM25 index build failed, keyword fallback disabled")
	}

	search := rag.NewHybridSearcher(vectorIndex, lexical, generator, log)

	classifier := advisor.NewClassifier(generator, log)
	classifier.SetMetrics(m)

	engine := advisor.NewEngine(cat, vectorIndex, lexical, generator, cfg.SimilarityTopK, log)
	engine.SetMetrics(m)

	prompts := advisor.NewPromptBuilder(cat, cfg.MaxPromptCandidates, nil, log)
	rerank := advisor.RerankOptions{
		MinSimilarity: cfg.MinSimilarity,
		MaxLevel:      cfg.MaxCourseLevel,
	}

	advisorSvc, err := advisor.NewService(advisor.ServiceOptions{
		Users:      db,
		Classifier: classifier,
		Engine:     engine,
		Prompts:    prompts,
		LLM:        generator,
		Catalog:    cat,
		Rerank:     rerank,
		Count:      cfg.DefaultRecommendations,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("advisor: %w", err)
	}
	advisorSvc.SetMetrics(m)

	chatSvc, err := chat.NewService(chat.ServiceOptions{
		Store:        db,
		Users:        db,
		Classifier:   classifier,
		Engine:       engine,
		Prompts:      prompts,
		LLM:          generator,
		Rerank:       rerank,
		HistoryPairs: cfg.HistoryMaxPairs,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	chatSvc.SetMetrics(m)

	userLimiter := ratelimit.NewPerUserLimiter(ratelimit.PerUserConfig{
		MaxTokens:     userRateBurst,
		RefillRate:    userRateRefill,
		CleanupPeriod: userRateSweep,
	})

	app := &Application{
		cfg:         cfg,
		logger:      log,
		db:          db,
		metrics:     m,
		registry:    registry,
		catalog:     cat,
		generator:   generator,
		vectorIndex: vectorIndex,
		search:      search,
		advisor:     advisorSvc,
		chats:       chatSvc,
		userLimiter: userLimiter,
	}

	gin.SetMode(gin.ReleaseMode)
	router := app.buildRouter()

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// buildGenerator wires the provider chain: OpenAI primary, Gemini fallback
// when configured.
func buildGenerator(ctx context.Context, cfg *config.Config, log *logger.Logger) (*genai.Generator, error) {
	primary, err := genai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIEmbeddingModel)
	if err != nil {
		return nil, err
	}

	var fallback genai.ChatClient
	if cfg.HasGeminiFallback() {
		gemini, err := genai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiChatModel)
		if err != nil {
			log.WithError(err).Warn("Gemini fallback initialization failed, running on OpenAI only")
		} else {
			fallback = gemini
			log.WithField("model", cfg.GeminiChatModel).Info("Gemini fallback enabled")
		}
	}

	retry := genai.DefaultRetryConfig()
	if cfg.LLMMaxAttempts > 0 {
		retry.MaxAttempts = cfg.LLMMaxAttempts
	}
	return genai.NewGenerator(primary, fallback, retry)
}

// buildLexicalIndex feeds catalog titles and descriptions into the BM25
// keyword index used when embeddings are unavailable.
func buildLexicalIndex(ctx context.Context, idx *rag.LexicalIndex, cat *catalog.Store) error {
	codes, err := cat.AllCourseCodes(ctx)
	if err != nil {
		return err
	}

	docs := make([]rag.Document, 0, len(codes))
	for _, code := range codes {
		details, err := cat.Details(ctx, code)
		if err != nil {
			continue
		}
		docs = append(docs, rag.Document{
			Code:    code,
			Content: details.Title + " " + details.Description,
		})
	}
	return idx.Build(docs)
}

// Run starts the HTTP server and blocks until a shutdown signal arrives.
func (a *Application) Run() error {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	return a.shutdown()
}

// shutdown stops accepting requests, drains in-flight ones, then closes
// resources in dependency order.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")

	if err := a.generator.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "llm").Error("Component close error")
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}
	a.userLimiter.Stop()

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}
