package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/dentalanalytics/internal/adapters/database"
	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/openai"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/observability"
	"github.com/zatekoja/dentalanalytics/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level := flag.String("level", string(entities.ReportLevelDetailed), "report level: detailed or summary")
	withAI := flag.Bool("ai", false, "append an AI generated summary")
	out := flag.String("out", "", "write the markdown report to this file instead of stdout")
	flag.Parse()

	observability.InitLogger(cfg.OTEL.ServiceName+"-report", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	var insights providers.InsightsProvider
	if *withAI && cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize OpenAI client")
		} else {
			insights = client
		}
	}

	reports := services.NewReportService(database.NewRefinedAdapter(pgClient, cfg.Pipeline.BatchSize), insights)
	report, err := reports.Generate(ctx, entities.ReportLevel(*level), *withAI)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate report")
		os.Exit(1)
	}

	if *out == "" {
		os.Stdout.WriteString(report.Markdown)
		return
	}
	if err := os.WriteFile(*out, []byte(report.Markdown), 0o644); err != nil {
		log.Error().Err(err).Str("path", *out).Msg("failed to write report")
		os.Exit(1)
	}
	log.Info().Str("path", *out).Str("level", string(report.Level)).Bool("ai", report.AIIncluded).Msg("report written")
}
