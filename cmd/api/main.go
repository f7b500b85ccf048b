package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/dentalanalytics/internal/adapters/cache"
	"github.com/zatekoja/dentalanalytics/internal/adapters/database"
	"github.com/zatekoja/dentalanalytics/internal/adapters/events"
	"github.com/zatekoja/dentalanalytics/internal/api/handlers"
	"github.com/zatekoja/dentalanalytics/internal/api/middleware"
	"github.com/zatekoja/dentalanalytics/internal/api/routes"
	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/openai"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/redis"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/observability"
	"github.com/zatekoja/dentalanalytics/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-api", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	var refinedRepo repositories.RefinedRepository = database.NewRefinedAdapter(pgClient, cfg.Pipeline.BatchSize)

	// Redis is optional; without it reads go straight to Postgres.
	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
		cachePinger   handlers.Pinger
	)
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
		cachePinger = redisClient
		refinedRepo = database.NewCachedRefinedAdapter(refinedRepo, cacheProvider, cfg.Cache.TTLSeconds, metrics)
	}

	var insights providers.InsightsProvider
	if cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize OpenAI client, AI report sections disabled")
		} else {
			insights = client
		}
	}

	var invalidation *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		warmer := services.NewCacheWarmingService(refinedRepo)
		invalidation = services.NewCacheInvalidationService(cacheProvider, eventBus)
		invalidation.SetWarmer(warmer)
		if err := invalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("failed to start cache invalidation service")
		}

		if cfg.Cache.WarmIntervalSeconds > 0 {
			warmer.StartPeriodicWarming(ctx, time.Duration(cfg.Cache.WarmIntervalSeconds)*time.Second)
		} else {
			go warmer.WarmCache(ctx)
		}
	}

	var responseCache *middleware.ResponseCache
	if cacheProvider != nil {
		responseCache = middleware.NewResponseCache(cacheProvider, metrics, cfg.Cache.TTLSeconds, routes.CachedPaths...)
	}

	router := routes.NewRouter(
		handlers.NewHealthHandler(pgClient, cachePinger),
		handlers.NewDashboardHandler(services.NewDashboardService(refinedRepo)),
		handlers.NewReportHandler(services.NewReportService(refinedRepo, insights)),
		responseCache,
		metrics,
		cfg.Server.AllowedOrigins,
	)

	server := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	if invalidation != nil {
		invalidation.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event bus")
		}
	}
	log.Info().Msg("server stopped")
}
