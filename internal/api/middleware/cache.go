package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/observability"
)

// ResponseCacheKeyPrefix sits under the refined namespace so a refined rebuild
// clears cached responses along with cached summaries.
const ResponseCacheKeyPrefix = "refined:http:"

// ResponseCache caches successful GET responses for selected routes in Redis
type ResponseCache struct {
	cache      providers.CacheProvider
	metrics    *observability.Metrics
	ttlSeconds int
	routes     map[string]bool
}

// NewResponseCache creates a response cache for the given paths. A nil cache disables it.
func NewResponseCache(cache providers.CacheProvider, metrics *observability.Metrics, ttlSeconds int, paths ...string) *ResponseCache {
	routes := make(map[string]bool, len(paths))
	for _, p := range paths {
		routes[p] = true
	}
	return &ResponseCache{cache: cache, metrics: metrics, ttlSeconds: ttlSeconds, routes: routes}
}

// Middleware returns the cache middleware handler
func (m *ResponseCache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cache == nil || r.Method != http.MethodGet || !m.routes[r.URL.Path] || !m.cacheable(r) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := CacheKey(r)
		if cached, err := m.cache.Get(ctx, key); err == nil {
			observability.RecordCacheHit(ctx, m.metrics, r.URL.Path)
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}

		observability.RecordCacheMiss(ctx, m.metrics, r.URL.Path)
		w.Header().Set("X-Cache", "MISS")

		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(ctx, key, recorder.body.Bytes(), m.ttlSeconds); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache response")
			}
		}
	})
}

// cacheable skips AI-backed reports and non-JSON renderings.
func (m *ResponseCache) cacheable(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("ai") == "" && q.Get("format") == ""
}

// CacheKey hashes the path and the canonically ordered query string.
func CacheKey(r *http.Request) string {
	key := r.URL.Path
	if query := r.URL.Query(); len(query) > 0 {
		key += "?" + query.Encode()
	}
	hash := sha256.Sum256([]byte(key))
	return ResponseCacheKeyPrefix + hex.EncodeToString(hash[:])
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
