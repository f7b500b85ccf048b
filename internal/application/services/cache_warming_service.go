package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
)

// CacheWarmingService preloads the refined reads the dashboard and report ask for first.
// It only has an effect when refined is the cached decorator, whose reads fill Redis.
type CacheWarmingService struct {
	refined repositories.RefinedRepository
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(refined repositories.RefinedRepository) *CacheWarmingService {
	return &CacheWarmingService{refined: refined}
}

// warmProviderFilters covers the default dashboard rankings and the report summary.
var warmProviderFilters = []repositories.ProviderFilter{
	{Order: repositories.ProviderOrderVolume, Limit: DefaultTopN},
	{Order: repositories.ProviderOrderEfficiency, Limit: DefaultTopN},
	{Order: repositories.ProviderOrderVolume},
	{Order: repositories.ProviderOrderEfficiency, Limit: summaryTopProviders},
	{Order: repositories.ProviderOrderEfficiency, Ascending: true, Limit: reportTopProviders},
}

// WarmCache reads every warm target once. Failures are collected, not fatal.
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	start := time.Now()
	var errs []error

	if _, err := s.refined.FilterOptions(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.refined.ListAgeGroups(ctx); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.refined.ListDeliverySystems(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, filter := range warmProviderFilters {
		if _, err := s.refined.ListProviders(ctx, filter); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Int("failures", len(errs)).Msg("cache warming incomplete")
		return err
	}
	log.Info().Dur("duration", time.Since(start)).Msg("refined cache warmed")
	return nil
}

// StartPeriodicWarming warms immediately and then on every tick until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	s.WarmCache(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopping cache warming")
				return
			case <-ticker.C:
				s.WarmCache(ctx)
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("started periodic cache warming")
}
