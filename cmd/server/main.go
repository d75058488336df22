package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/abm312/expert-suitability-engine/internal/config"
	"github.com/abm312/expert-suitability-engine/internal/db"
	"github.com/abm312/expert-suitability-engine/internal/handler"
	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/middleware"
	"github.com/abm312/expert-suitability-engine/internal/provider"
	"github.com/abm312/expert-suitability-engine/internal/repository"
	"github.com/abm312/expert-suitability-engine/internal/router"
	"github.com/abm312/expert-suitability-engine/internal/service"
	"github.com/abm312/expert-suitability-engine/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

// buildEmbedders returns the embedder for topic queries and the one for creator
// content. Only topic embeddings go through Redis; content aggregates are large and
// already live in the in-process LRU. Both are nil without an API key.
func buildEmbedders(openai *provider.OpenAI, cache *service.CacheService) (topic, content metric.Embedder) {
	if !openai.Configured() {
		return nil, nil
	}
	return service.NewCachedEmbedder(openai, cache), openai
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	middleware.InitLogger(cfg.LogLevel, "expert-suitability-engine")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  "expert-suitability-engine",
		Environment:  cfg.Environment,
		Endpoint:     cfg.OTLPEndpoint,
		SamplingRate: cfg.TraceSampleRate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	// The schema creates the vector extension, which the pool registers on connect.
	if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	metrics := service.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("failed to register service metrics")
	}
	if err := handler.InitMetrics(prometheus.DefaultRegisterer, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to register api metrics")
	}

	cache := service.NewCacheService(cfg.RedisURL, metrics)

	openai := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		Dimensions:     cfg.EmbeddingDimensions,
		ChatModel:      cfg.ChatModel,
		RPS:            cfg.ProviderRPS,
	})
	youtube := provider.NewYouTube(provider.YouTubeConfig{
		APIKey:  cfg.YouTubeAPIKey,
		BaseURL: cfg.YouTubeBaseURL,
		RPS:     cfg.ProviderRPS,
	})
	if !openai.Configured() {
		log.Warn().Msg("OPENAI_API_KEY not set: semantic matching and generated topics disabled")
	}
	if !youtube.Configured() {
		log.Warn().Msg("YOUTUBE_API_KEY not set: discovery and refresh disabled")
	}

	embedder, contentEmbedder := buildEmbedders(openai, cache)
	var generator service.Generator
	if openai.Configured() {
		generator = openai
	}

	contentCache, err := service.NewEmbeddingCache(cfg.EmbedCacheSize, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create embedding cache")
	}
	registry := metric.NewDefaultRegistry(contentEmbedder, contentCache)
	engine := service.NewScoringEngine(registry, metrics)
	explainer := service.NewExplainer(generator, nil)

	repo := repository.NewCreatorRepo(pool)
	discovery := service.NewDiscoveryService(youtube, repo, cache, contentCache, metrics)

	var discoverer service.Discoverer
	if youtube.Configured() {
		discoverer = discovery
	}
	ranking := service.NewRankingService(repo, engine, service.NewFilterPipeline(nil), explainer, service.RankingOptions{
		Embedder:     embedder,
		Discoverer:   discoverer,
		AutoDiscover: cfg.AutoDiscover,
		DiscoverMax:  cfg.DiscoverMax,
		Concurrency:  cfg.ScoringConcurrency,
		Metrics:      metrics,
	})
	creators := service.NewCreatorService(repo, engine, explainer, embedder, cache)

	if youtube.Configured() {
		worker := service.NewRefreshWorker(repo, discovery, cfg.RefreshInterval, cfg.RefreshMaxAge)
		go worker.Start(ctx)
		defer worker.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "Expert Suitability Engine",
		ServerHeader: "ESE",
	})
	router.Setup(app, &router.Handlers{
		Health:    handler.NewHealthHandler(pool, cache.Client()),
		Search:    handler.NewSearchHandler(ranking, service.NewProgressTracker()),
		Discover:  handler.NewDiscoverHandler(discovery),
		Creator:   handler.NewCreatorHandler(creators, discovery),
		Catalogue: handler.NewCatalogueHandler(registry),
		Gatherer:  prometheus.DefaultGatherer,
	}, cfg.CORSOrigins)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server starting")
		errCh <- app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()})
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
