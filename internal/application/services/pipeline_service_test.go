package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/application/transform"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	"github.com/zatekoja/dentalanalytics/internal/testutil"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
	"github.com/zatekoja/dentalanalytics/tests/mocks"
)

type pipelineMocks struct {
	schema  *mocks.MockSchemaRepository
	raw     *mocks.MockRawRepository
	trusted *mocks.MockTrustedRepository
	refined *mocks.MockRefinedRepository
	source  *mocks.MockRecordSource
	events  *mocks.MockEventBus
}

func newPipeline(t *testing.T, withEvents bool) (*services.PipelineService, *pipelineMocks) {
	m := &pipelineMocks{
		schema:  mocks.NewMockSchemaRepository(t),
		raw:     mocks.NewMockRawRepository(t),
		trusted: mocks.NewMockTrustedRepository(t),
		refined: mocks.NewMockRefinedRepository(t),
		source:  mocks.NewMockRecordSource(t),
	}
	var bus providers.EventBus
	if withEvents {
		m.events = mocks.NewMockEventBus(t)
		bus = m.events
	}
	svc := services.NewPipelineService(m.schema, m.raw, m.trusted, m.refined, m.source, bus, nil)
	return svc, m
}

func sampleRaw() []*entities.RawRecord {
	return []*entities.RawRecord{
		testutil.NewRawRecord(),
		testutil.NewRawRecord(
			testutil.WithProvider("1000000002", "BRIGHT TEETH"),
			testutil.WithDeliverySystem("GMC"),
			testutil.WithAgeGroup("AGE 21+"),
		),
	}
}

func stageEvent(stage entities.Stage, rows int) interface{} {
	return mock.MatchedBy(func(e *entities.LayerEvent) bool {
		return e.Stage == stage && e.Rows == rows && e.RunID != "" && e.ID != ""
	})
}

func TestPipelineService_Run(t *testing.T) {
	ctx := context.Background()
	svc, m := newPipeline(t, true)

	raws := sampleRaw()
	trusted, err := transform.Normalize(raws)
	require.NoError(t, err)

	m.schema.On("EnsureSchema", mock.Anything).Return(nil).Once()
	m.schema.On("TableStatus", mock.Anything, repositories.TableRaw).Return(true, int64(0), nil).Once()
	m.source.On("ReadRecords", mock.Anything, "./raw_dental.csv").Return(raws, nil).Once()
	m.raw.On("Replace", mock.Anything, raws).Return(nil).Once()
	m.schema.On("TableStatus", mock.Anything, repositories.TableRaw).Return(true, int64(2), nil).Once()
	m.raw.On("List", mock.Anything).Return(raws, nil).Once()
	m.trusted.On("Replace", mock.Anything, mock.MatchedBy(func(rs []*entities.TrustedRecord) bool {
		return len(rs) == 2 && rs[0].TotalServices.String() == "500"
	})).Return(nil).Once()
	m.schema.On("TableStatus", mock.Anything, repositories.TableTrusted).Return(true, int64(2), nil).Once()
	m.trusted.On("List", mock.Anything).Return(trusted, nil).Once()
	m.refined.On("ReplaceAll", mock.Anything, mock.MatchedBy(func(tables *entities.RefinedTables) bool {
		return len(tables.Details) == 2 && len(tables.Providers) == 2 &&
			len(tables.AgeGroups) == 2 && len(tables.DeliverySystems) == 2
	})).Return(nil).Once()

	m.events.On("Publish", mock.Anything, providers.EventChannelLayers, stageEvent(entities.StageIngest, 2)).Return(nil).Once()
	m.events.On("Publish", mock.Anything, providers.EventChannelLayers, stageEvent(entities.StageTrusted, 2)).Return(nil).Once()
	m.events.On("Publish", mock.Anything, providers.EventChannelLayers, stageEvent(entities.StageRefined, 2)).Return(nil).Once()

	run, err := svc.Run(ctx, services.RunOptions{CSVPath: "./raw_dental.csv"})
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.NotEmpty(t, run.ID)
	require.Len(t, run.Stages, 4)

	var stages []entities.Stage
	for _, s := range run.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []entities.Stage{entities.StageSchema, entities.StageIngest, entities.StageTrusted, entities.StageRefined}, stages)
	assert.Equal(t, 2, run.Stages[3].Rows)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestPipelineService_Run_StopsAtFirstFailure(t *testing.T) {
	svc, m := newPipeline(t, true)
	m.schema.On("EnsureSchema", mock.Anything).Return(apperrors.NewInternalError("boom", nil)).Once()

	run, err := svc.Run(context.Background(), services.RunOptions{CSVPath: "x.csv"})
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Empty(t, run.Stages)
}

func TestPipelineService_Ingest_SkipsPopulatedTable(t *testing.T) {
	svc, m := newPipeline(t, false)
	m.schema.On("TableStatus", mock.Anything, repositories.TableRaw).Return(true, int64(5), nil).Once()

	result, err := svc.Ingest(context.Background(), "raw.csv", false)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 5, result.Rows)
	m.source.AssertNotCalled(t, "ReadRecords", mock.Anything, mock.Anything)
}

func TestPipelineService_Ingest_ReloadReplaces(t *testing.T) {
	svc, m := newPipeline(t, false)
	raws := sampleRaw()
	m.schema.On("TableStatus", mock.Anything, repositories.TableRaw).Return(true, int64(5), nil).Once()
	m.source.On("ReadRecords", mock.Anything, "raw.csv").Return(raws, nil).Once()
	m.raw.On("Replace", mock.Anything, raws).Return(nil).Once()

	result, err := svc.Ingest(context.Background(), "raw.csv", true)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, entities.StageIngest, result.Stage)
}

func TestPipelineService_Ingest_EmptyFile(t *testing.T) {
	svc, m := newPipeline(t, false)
	m.schema.On("TableStatus", mock.Anything, repositories.TableRaw).Return(true, int64(0), nil).Once()
	m.source.On("ReadRecords", mock.Anything, "raw.csv").Return([]*entities.RawRecord{}, nil).Once()

	_, err := svc.Ingest(context.Background(), "raw.csv", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeParse))
}

func TestPipelineService_Ingest_MissingSchema(t *testing.T) {
	svc, m := newPipeline(t, false)
	m.schema.On("TableStatus", mock.Anything, repositories.TableRaw).Return(false, int64(0), nil).Once()

	_, err := svc.Ingest(context.Background(), "raw.csv", false)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePrecondition))
}

func TestPipelineService_BuildTrusted_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
		rows   int64
		want   string
	}{
		{name: "missing table", exists: false, rows: 0, want: "does not exist"},
		{name: "empty table", exists: true, rows: 0, want: "is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newPipeline(t, false)
			m.schema.On("TableStatus", mock.Anything, repositories.TableRaw).Return(tt.exists, tt.rows, nil).Once()

			_, err := svc.BuildTrusted(context.Background())
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperrors.ErrorTypePrecondition, appErr.Type)
			assert.Equal(t, string(entities.StageTrusted), appErr.Stage)
			assert.Contains(t, appErr.Message, repositories.TableRaw)
			assert.Contains(t, appErr.Message, tt.want)
		})
	}
}

func TestPipelineService_BuildTrusted_ParseErrorWritesNothing(t *testing.T) {
	svc, m := newPipeline(t, false)
	bad := testutil.NewRawRecord(testutil.WithServices("100", "12a", "150", "50"))
	m.schema.On("TableStatus", mock.Anything, repositories.TableRaw).Return(true, int64(2), nil).Once()
	m.raw.On("List", mock.Anything).Return([]*entities.RawRecord{testutil.NewRawRecord(), bad}, nil).Once()

	_, err := svc.BuildTrusted(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypeParse, appErr.Type)
	assert.Equal(t, string(entities.StageTrusted), appErr.Stage)
	assert.Contains(t, appErr.Message, "row 2")
	assert.Contains(t, appErr.Message, "prev_svc_cnt")
	m.trusted.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
}

func TestPipelineService_BuildRefined_RequiresTrusted(t *testing.T) {
	svc, m := newPipeline(t, false)
	m.schema.On("TableStatus", mock.Anything, repositories.TableTrusted).Return(true, int64(0), nil).Once()

	_, err := svc.BuildRefined(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrorTypePrecondition, appErr.Type)
	assert.Equal(t, string(entities.StageRefined), appErr.Stage)
	m.refined.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)
}

func TestPipelineService_BuildRefined_WriteFailure(t *testing.T) {
	svc, m := newPipeline(t, true)
	trusted, err := transform.Normalize(sampleRaw())
	require.NoError(t, err)

	m.schema.On("TableStatus", mock.Anything, repositories.TableTrusted).Return(true, int64(2), nil).Once()
	m.trusted.On("List", mock.Anything).Return(trusted, nil).Once()
	m.refined.On("ReplaceAll", mock.Anything, mock.Anything).Return(apperrors.NewInternalError("tx aborted", nil)).Once()

	_, err = svc.BuildRefined(context.Background())
	require.Error(t, err)
	m.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineService_PublishFailureDoesNotFailStage(t *testing.T) {
	svc, m := newPipeline(t, true)
	trusted, err := transform.Normalize(sampleRaw())
	require.NoError(t, err)

	m.schema.On("TableStatus", mock.Anything, repositories.TableTrusted).Return(true, int64(2), nil).Once()
	m.trusted.On("List", mock.Anything).Return(trusted, nil).Once()
	m.refined.On("ReplaceAll", mock.Anything, mock.Anything).Return(nil).Once()
	m.events.On("Publish", mock.Anything, providers.EventChannelLayers, stageEvent(entities.StageRefined, 2)).
		Return(errors.New("redis down")).Once()

	result, err := svc.BuildRefined(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
}
