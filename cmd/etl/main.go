package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/dentalanalytics/internal/adapters/cache"
	"github.com/zatekoja/dentalanalytics/internal/adapters/database"
	"github.com/zatekoja/dentalanalytics/internal/adapters/events"
	"github.com/zatekoja/dentalanalytics/internal/adapters/ingest"
	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/redis"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/observability"
	"github.com/zatekoja/dentalanalytics/pkg/config"
)

const stageAll = "all"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	file := flag.String("file", cfg.Pipeline.CSVPath, "path to the raw dental CSV")
	initOnly := flag.Bool("init", false, "initialize the schema and exit")
	reload := flag.Bool("reload", false, "replace raw_dental even when it already has rows")
	stage := flag.String("stage", stageAll, "stage to run: all, schema, ingest, trusted, refined")
	flag.Parse()

	observability.InitLogger(cfg.OTEL.ServiceName+"-etl", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	// With Redis the refined rebuild clears cached summaries directly and
	// notifies running API servers through the event bus.
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, cache invalidation disabled")
	} else {
		defer redisClient.Close()
		eventBus = events.NewRedisEventBus(redisClient)
		defer eventBus.Close()
		refinedRepo = database.NewCachedRefinedAdapter(refinedRepo, cache.NewRedisAdapter(redisClient), cfg.Cache.TTLSeconds, metrics)
	}

	pipeline := services.NewPipelineService(
		database.NewSchemaAdapter(pgClient),
		database.NewRawAdapter(pgClient, cfg.Pipeline.BatchSize),
		database.NewTrustedAdapter(pgClient, cfg.Pipeline.BatchSize),
		refinedRepo,
		ingest.NewCSVReader(cfg.Pipeline.Comma()),
		eventBus,
		metrics,
	)

	if *initOnly {
		*stage = string(entities.StageSchema)
	}
	if err := run(ctx, pipeline, *stage, *file, *reload); err != nil {
		log.Error().Err(err).Str("stage", *stage).Msg("pipeline failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, pipeline *services.PipelineService, stage, file string, reload bool) error {
	var (
		result *entities.StageResult
		err    error
	)

	switch stage {
	case stageAll:
		pr, err := pipeline.Run(ctx, services.RunOptions{CSVPath: file, Reload: reload})
		if err != nil {
			return err
		}
		log.Info().Str("run_id", pr.ID).Dur("duration", pr.FinishedAt.Sub(pr.StartedAt)).Msg("pipeline complete")
		return nil
	case string(entities.StageSchema):
		result, err = pipeline.InitSchema(ctx)
	case string(entities.StageIngest):
		result, err = pipeline.Ingest(ctx, file, reload)
	case string(entities.StageTrusted):
		result, err = pipeline.BuildTrusted(ctx)
	case string(entities.StageRefined):
		result, err = pipeline.BuildRefined(ctx)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		return err
	}

	log.Info().Str("stage", string(result.Stage)).Int("rows", result.Rows).Bool("skipped", result.Skipped).Msg("stage complete")
	return nil
}
