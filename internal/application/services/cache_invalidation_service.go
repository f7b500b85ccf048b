package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/dentalanalytics/internal/adapters/database"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
)

const invalidationTimeout = 5 * time.Second

// CacheInvalidationService drops cached refined reads when another process rebuilds the refined layer
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
	warmer   *CacheWarmingService
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// SetWarmer makes the service refill the cache after each invalidation
func (s *CacheInvalidationService) SetWarmer(warmer *CacheWarmingService) {
	s.warmer = warmer
}

// Start begins listening for layer events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelLayers)
	if err != nil {
		return fmt.Errorf("failed to subscribe to layer events: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	log.Info().Str("channel", providers.EventChannelLayers).Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service and waits for the listener to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.LayerEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.HandleEvent(event)
		}
	}
}

// HandleEvent invalidates the refined read cache after a refined rebuild. Other stages are ignored.
func (s *CacheInvalidationService) HandleEvent(event *entities.LayerEvent) {
	if event.Stage != entities.StageRefined {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), invalidationTimeout)
	defer cancel()

	if err := s.InvalidateRefined(ctx); err != nil {
		log.Warn().Err(err).Str("run_id", event.RunID).Msg("failed to invalidate refined cache")
		return
	}
	log.Info().Str("run_id", event.RunID).Int("rows", event.Rows).Msg("invalidated refined cache")

	if s.warmer != nil {
		s.warmer.WarmCache(ctx)
	}
}

// InvalidateRefined removes every cached refined read
func (s *CacheInvalidationService) InvalidateRefined(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, database.RefinedCachePattern); err != nil {
		return fmt.Errorf("failed to invalidate pattern %s: %w", database.RefinedCachePattern, err)
	}
	return nil
}
