package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/dentalanalytics/internal/application/transform"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

// RunOptions controls a full pipeline run.
type RunOptions struct {
	CSVPath string
	Reload  bool
}

// PipelineService moves data through the raw, trusted and refined layers.
type PipelineService struct {
	schema  repositories.SchemaRepository
	raw     repositories.RawRepository
	trusted repositories.TrustedRepository
	refined repositories.RefinedRepository
	source  providers.RecordSource
	events  providers.EventBus
	metrics *observability.Metrics
	now     func() time.Time
}

// NewPipelineService creates a new pipeline service. events and metrics may be nil.
func NewPipelineService(
	schema repositories.SchemaRepository,
	raw repositories.RawRepository,
	trusted repositories.TrustedRepository,
	refined repositories.RefinedRepository,
	source providers.RecordSource,
	events providers.EventBus,
	metrics *observability.Metrics,
) *PipelineService {
	return &PipelineService{
		schema:  schema,
		raw:     raw,
		trusted: trusted,
		refined: refined,
		source:  source,
		events:  events,
		metrics: metrics,
		now:     time.Now,
	}
}

// stageOutcome is what a stage body reports back to runStage.
type stageOutcome struct {
	rows    int
	skipped bool
}

// Run executes schema, ingest, trusted and refined in order, stopping at the first failure.
func (s *PipelineService) Run(ctx context.Context, opts RunOptions) (*entities.PipelineRun, error) {
	run := &entities.PipelineRun{ID: uuid.NewString(), StartedAt: s.now().UTC()}
	ctx, span := observability.StartSpan(ctx, "pipeline.run")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("pipeline.run_id", run.ID))

	steps := []struct {
		stage entities.Stage
		body  func(context.Context) (stageOutcome, error)
	}{
		{entities.StageSchema, s.initSchema},
		{entities.StageIngest, func(ctx context.Context) (stageOutcome, error) { return s.ingest(ctx, opts.CSVPath, opts.Reload) }},
		{entities.StageTrusted, s.buildTrusted},
		{entities.StageRefined, s.buildRefined},
	}

	for _, step := range steps {
		result, err := s.runStage(ctx, run.ID, step.stage, step.body)
		if err != nil {
			observability.RecordError(span, err)
			return run, err
		}
		run.Stages = append(run.Stages, result)
	}

	run.FinishedAt = s.now().UTC()
	log.Info().
		Str("run_id", run.ID).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("pipeline run complete")
	return run, nil
}

// InitSchema creates every table and index. Safe to repeat.
func (s *PipelineService) InitSchema(ctx context.Context) (*entities.StageResult, error) {
	return s.runStage(ctx, uuid.NewString(), entities.StageSchema, s.initSchema)
}

// Ingest loads the CSV at path into the raw layer. An already populated raw
// table is left alone unless reload is set.
func (s *PipelineService) Ingest(ctx context.Context, path string, reload bool) (*entities.StageResult, error) {
	return s.runStage(ctx, uuid.NewString(), entities.StageIngest, func(ctx context.Context) (stageOutcome, error) {
		return s.ingest(ctx, path, reload)
	})
}

// BuildTrusted rebuilds the trusted layer from raw.
func (s *PipelineService) BuildTrusted(ctx context.Context) (*entities.StageResult, error) {
	return s.runStage(ctx, uuid.NewString(), entities.StageTrusted, s.buildTrusted)
}

// BuildRefined rebuilds the refined detail table and all summaries from trusted.
func (s *PipelineService) BuildRefined(ctx context.Context) (*entities.StageResult, error) {
	return s.runStage(ctx, uuid.NewString(), entities.StageRefined, s.buildRefined)
}

func (s *PipelineService) runStage(ctx context.Context, runID string, stage entities.Stage, body func(context.Context) (stageOutcome, error)) (*entities.StageResult, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline."+string(stage))
	defer span.End()

	logger := observability.StageLogger(ctx, runID, string(stage))
	logger.Info().Msg("stage started")

	start := s.now()
	outcome, err := body(ctx)
	duration := s.now().Sub(start)
	observability.RecordStageMetric(ctx, s.metrics, string(stage), outcome.rows, duration, err)

	if err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Dur("duration", duration).Msg("stage failed")
		return nil, err
	}

	observability.SetSpanAttributes(span,
		attribute.Int("pipeline.rows", outcome.rows),
		attribute.Bool("pipeline.skipped", outcome.skipped),
	)
	logger.Info().Int("rows", outcome.rows).Bool("skipped", outcome.skipped).Dur("duration", duration).Msg("stage complete")

	if !outcome.skipped && stage != entities.StageSchema {
		s.publish(ctx, runID, stage, outcome.rows)
	}

	return &entities.StageResult{Stage: stage, Rows: outcome.rows, Skipped: outcome.skipped, Duration: duration}, nil
}

// publish announces a rebuilt layer. Delivery failures are logged only.
func (s *PipelineService) publish(ctx context.Context, runID string, stage entities.Stage, rows int) {
	if s.events == nil {
		return
	}
	event := &entities.LayerEvent{
		ID:        uuid.NewString(),
		RunID:     runID,
		Stage:     stage,
		Rows:      rows,
		Timestamp: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, providers.EventChannelLayers, event); err != nil {
		log.Warn().Err(err).Str("stage", string(stage)).Msg("failed to publish layer event")
	}
}

// requireTable fails with a precondition error unless table exists and holds rows.
func (s *PipelineService) requireTable(ctx context.Context, stage entities.Stage, table string, needRows bool) (int64, error) {
	exists, rows, err := s.schema.TableStatus(ctx, table)
	if err != nil {
		return 0, apperrors.NewStageError(string(stage), fmt.Sprintf("failed to inspect table %s", table), err)
	}
	if !exists {
		return 0, apperrors.NewPreconditionError(string(stage), fmt.Sprintf("table %s does not exist, initialize the schema first", table))
	}
	if needRows && rows == 0 {
		return 0, apperrors.NewPreconditionError(string(stage), fmt.Sprintf("table %s is empty, run the previous stage first", table))
	}
	return rows, nil
}

func (s *PipelineService) initSchema(ctx context.Context) (stageOutcome, error) {
	if err := s.schema.EnsureSchema(ctx); err != nil {
		return stageOutcome{}, err
	}
	return stageOutcome{}, nil
}

func (s *PipelineService) ingest(ctx context.Context, path string, reload bool) (stageOutcome, error) {
	existing, err := s.requireTable(ctx, entities.StageIngest, repositories.TableRaw, false)
	if err != nil {
		return stageOutcome{}, err
	}
	if existing > 0 && !reload {
		log.Info().Int64("rows", existing).Msg("raw table already populated, skipping load")
		return stageOutcome{rows: int(existing), skipped: true}, nil
	}

	records, err := s.source.ReadRecords(ctx, path)
	if err != nil {
		return stageOutcome{}, err
	}
	if len(records) == 0 {
		return stageOutcome{}, apperrors.NewParseError(string(entities.StageIngest), fmt.Sprintf("%s contains no data rows", path), nil)
	}

	if err := s.raw.Replace(ctx, records); err != nil {
		return stageOutcome{}, err
	}
	return stageOutcome{rows: len(records)}, nil
}

func (s *PipelineService) buildTrusted(ctx context.Context) (stageOutcome, error) {
	if _, err := s.requireTable(ctx, entities.StageTrusted, repositories.TableRaw, true); err != nil {
		return stageOutcome{}, err
	}

	raws, err := s.raw.List(ctx)
	if err != nil {
		return stageOutcome{}, err
	}
	trusted, err := transform.Normalize(raws)
	if err != nil {
		return stageOutcome{}, err
	}
	if err := s.trusted.Replace(ctx, trusted); err != nil {
		return stageOutcome{}, err
	}
	return stageOutcome{rows: len(trusted)}, nil
}

func (s *PipelineService) buildRefined(ctx context.Context) (stageOutcome, error) {
	if _, err := s.requireTable(ctx, entities.StageRefined, repositories.TableTrusted, true); err != nil {
		return stageOutcome{}, err
	}

	trusted, err := s.trusted.List(ctx)
	if err != nil {
		return stageOutcome{}, err
	}
	tables := transform.BuildRefined(trusted)
	if err := s.refined.ReplaceAll(ctx, tables); err != nil {
		return stageOutcome{}, err
	}
	return stageOutcome{rows: len(tables.Details)}, nil
}
