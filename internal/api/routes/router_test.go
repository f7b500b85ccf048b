package routes_test

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/dentalanalytics/internal/adapters/cache"
	"github.com/zatekoja/dentalanalytics/internal/api/handlers"
	"github.com/zatekoja/dentalanalytics/internal/api/middleware"
	"github.com/zatekoja/dentalanalytics/internal/api/routes"
	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	redisclient "github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/redis"
	"github.com/zatekoja/dentalanalytics/internal/testutil"
	"github.com/zatekoja/dentalanalytics/tests/mocks"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newServer(t *testing.T, responseCache *middleware.ResponseCache) (*httptest.Server, *mocks.MockRefinedRepository) {
	repo := mocks.NewMockRefinedRepository(t)
	router := routes.NewRouter(
		handlers.NewHealthHandler(okPinger{}, nil),
		handlers.NewDashboardHandler(services.NewDashboardService(repo)),
		handlers.NewReportHandler(services.NewReportService(repo, nil)),
		responseCache,
		nil,
		nil,
	)
	srv := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "private, no-cache, must-revalidate", resp.Header.Get("Cache-Control"))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	srv, _ := newServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/dashboard/metrics", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv, _ := newServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/refined/providers", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8501")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_GzipAndRefinedCacheHeaders(t *testing.T) {
	srv, repo := newServer(t, nil)
	repo.On("ListAgeGroups", mock.Anything).Return([]*entities.AgeGroupSummary{{AgeGroup: "AGE 0-20"}}, nil).Once()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/refined/age-groups", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	assert.Equal(t, "public, max-age=60, must-revalidate", resp.Header.Get("Cache-Control"))

	gz, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(body), "AGE 0-20")
}

func TestRouter_ResponseCacheServesSecondRequest(t *testing.T) {
	_, client := testutil.NewMiniredisClient(t)
	redisCache := cache.NewRedisAdapter(redisclient.NewClientFromRedis(client))
	srv, repo := newServer(t, middleware.NewResponseCache(redisCache, nil, 60, routes.CachedPaths...))

	repo.On("ListDetails", mock.Anything, repositories.DetailFilter{DashboardFilter: entities.DashboardFilter{DeliverySystem: "FFS"}}).
		Return([]*entities.RefinedDetailRecord{}, nil).Once()

	get := func() *http.Response {
		resp, err := http.Get(srv.URL + "/api/dashboard/metrics?delivery_system=FFS")
		require.NoError(t, err)
		return resp
	}

	first := get()
	first.Body.Close()
	assert.Equal(t, "MISS", first.Header.Get("X-Cache"))

	second := get()
	defer second.Body.Close()
	assert.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, "HIT", second.Header.Get("X-Cache"))
}
