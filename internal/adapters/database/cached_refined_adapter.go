package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/observability"
)

// RefinedCachePattern matches every key written by CachedRefinedAdapter.
const RefinedCachePattern = "refined:*"

const defaultSummaryTTL = 300

// CachedRefinedAdapter wraps a RefinedRepository with a read-through cache for the summary tables.
// Detail rows are served straight from the database.
type CachedRefinedAdapter struct {
	adapter repositories.RefinedRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
	ttl     int
}

// NewCachedRefinedAdapter creates a new cached refined adapter. metrics may be nil.
func NewCachedRefinedAdapter(adapter repositories.RefinedRepository, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) repositories.RefinedRepository {
	if ttlSeconds <= 0 {
		ttlSeconds = defaultSummaryTTL
	}
	return &CachedRefinedAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
		ttl:     ttlSeconds,
	}
}

func providersCacheKey(filter repositories.ProviderFilter) string {
	return fmt.Sprintf("refined:providers:%s:%t:%d", filter.Order, filter.Ascending, filter.Limit)
}

const (
	ageGroupsCacheKey       = "refined:age_groups"
	deliverySystemsCacheKey = "refined:delivery_systems"
	filterOptionsCacheKey   = "refined:filter_options"
)

// readThrough serves key from cache or loads and stores it.
func readThrough[T any](ctx context.Context, a *CachedRefinedAdapter, key string, load func() (T, error)) (T, error) {
	if cached, err := a.cache.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(cached, &v); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, key)
			return v, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached refined data")
	}
	observability.RecordCacheMiss(ctx, a.metrics, key)

	v, err := load()
	if err != nil {
		return v, err
	}

	// Stored before returning; no background write may outlive an invalidation.
	if data, err := json.Marshal(v); err == nil {
		if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to cache refined data")
		}
	}
	return v, nil
}

// ReplaceAll rebuilds the refined tables and drops every cached summary
func (a *CachedRefinedAdapter) ReplaceAll(ctx context.Context, tables *entities.RefinedTables) error {
	if err := a.adapter.ReplaceAll(ctx, tables); err != nil {
		return err
	}
	if err := a.cache.DeletePattern(ctx, RefinedCachePattern); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate refined cache")
	}
	return nil
}

// ListDetails is not cached
func (a *CachedRefinedAdapter) ListDetails(ctx context.Context, filter repositories.DetailFilter) ([]*entities.RefinedDetailRecord, error) {
	return a.adapter.ListDetails(ctx, filter)
}

// ListProviders retrieves provider summaries with caching
func (a *CachedRefinedAdapter) ListProviders(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.ProviderSummary, error) {
	return readThrough(ctx, a, providersCacheKey(filter), func() ([]*entities.ProviderSummary, error) {
		return a.adapter.ListProviders(ctx, filter)
	})
}

// ListAgeGroups retrieves age group summaries with caching
func (a *CachedRefinedAdapter) ListAgeGroups(ctx context.Context) ([]*entities.AgeGroupSummary, error) {
	return readThrough(ctx, a, ageGroupsCacheKey, func() ([]*entities.AgeGroupSummary, error) {
		return a.adapter.ListAgeGroups(ctx)
	})
}

// ListDeliverySystems retrieves delivery system summaries with caching
func (a *CachedRefinedAdapter) ListDeliverySystems(ctx context.Context) ([]*entities.DeliverySystemSummary, error) {
	return readThrough(ctx, a, deliverySystemsCacheKey, func() ([]*entities.DeliverySystemSummary, error) {
		return a.adapter.ListDeliverySystems(ctx)
	})
}

// FilterOptions retrieves filter options with caching
func (a *CachedRefinedAdapter) FilterOptions(ctx context.Context) (*entities.FilterOptions, error) {
	return readThrough(ctx, a, filterOptionsCacheKey, func() (*entities.FilterOptions, error) {
		return a.adapter.FilterOptions(ctx)
	})
}
