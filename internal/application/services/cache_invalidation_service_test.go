package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/dentalanalytics/internal/adapters/database"
	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/tests/mocks"
)

func TestCacheInvalidationService_RefinedEventClearsCache(t *testing.T) {
	cache := mocks.NewMockCacheProvider(t)
	bus := mocks.NewMockEventBus(t)

	events := make(chan *entities.LayerEvent, 2)
	bus.On("Subscribe", mock.Anything, providers.EventChannelLayers).Return((<-chan *entities.LayerEvent)(events), nil).Once()

	invalidated := make(chan struct{}, 1)
	cache.On("DeletePattern", mock.Anything, database.RefinedCachePattern).
		Return(nil).
		Run(func(mock.Arguments) { invalidated <- struct{}{} }).
		Once()

	svc := services.NewCacheInvalidationService(cache, bus)
	require.NoError(t, svc.Start())

	events <- &entities.LayerEvent{ID: "1", Stage: entities.StageTrusted, Rows: 3}
	events <- &entities.LayerEvent{ID: "2", Stage: entities.StageRefined, Rows: 3}

	select {
	case <-invalidated:
	case <-time.After(2 * time.Second):
		t.Fatal("cache was not invalidated")
	}
	svc.Stop()
}

func TestCacheInvalidationService_IgnoresOtherStages(t *testing.T) {
	cache := mocks.NewMockCacheProvider(t)
	svc := services.NewCacheInvalidationService(cache, mocks.NewMockEventBus(t))

	svc.HandleEvent(&entities.LayerEvent{Stage: entities.StageIngest})
	svc.HandleEvent(&entities.LayerEvent{Stage: entities.StageTrusted})

	cache.AssertNotCalled(t, "DeletePattern", mock.Anything, mock.Anything)
}

func TestCacheInvalidationService_InvalidateRefinedError(t *testing.T) {
	cache := mocks.NewMockCacheProvider(t)
	cache.On("DeletePattern", mock.Anything, database.RefinedCachePattern).Return(errors.New("scan failed")).Once()

	svc := services.NewCacheInvalidationService(cache, mocks.NewMockEventBus(t))
	err := svc.InvalidateRefined(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), database.RefinedCachePattern)
}

func TestCacheInvalidationService_StartSubscribeError(t *testing.T) {
	bus := mocks.NewMockEventBus(t)
	bus.On("Subscribe", mock.Anything, providers.EventChannelLayers).Return(nil, errors.New("no redis")).Once()

	svc := services.NewCacheInvalidationService(mocks.NewMockCacheProvider(t), bus)
	assert.Error(t, svc.Start())
}
