package routes

import (
	"net/http"

	"github.com/zatekoja/dentalanalytics/internal/api/handlers"
	"github.com/zatekoja/dentalanalytics/internal/api/middleware"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/observability"
)

// CachedPaths are the routes whose JSON responses the response cache may store.
var CachedPaths = []string{
	"/api/dashboard/metrics",
	"/api/report",
	"/api/report/summary",
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	healthHandler    *handlers.HealthHandler
	dashboardHandler *handlers.DashboardHandler
	reportHandler    *handlers.ReportHandler

	responseCache  *middleware.ResponseCache
	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router. responseCache and metrics may be nil; no
// allowed origins means any origin.
func NewRouter(
	healthHandler *handlers.HealthHandler,
	dashboardHandler *handlers.DashboardHandler,
	reportHandler *handlers.ReportHandler,
	responseCache *middleware.ResponseCache,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		healthHandler:    healthHandler,
		dashboardHandler: dashboardHandler,
		reportHandler:    reportHandler,
		responseCache:    responseCache,
		metrics:          metrics,
		allowedOrigins:   allowedOrigins,
	}
}

// SetupRoutes registers every endpoint and wraps the mux in middleware
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	// Dashboard
	r.mux.HandleFunc("GET /api/dashboard/metrics", r.dashboardHandler.GetMetrics)
	r.mux.HandleFunc("GET /api/dashboard/filters", r.dashboardHandler.GetFilters)

	// Refined layer tables
	r.mux.HandleFunc("GET /api/refined/providers", r.dashboardHandler.ListProviders)
	r.mux.HandleFunc("GET /api/refined/age-groups", r.dashboardHandler.ListAgeGroups)
	r.mux.HandleFunc("GET /api/refined/delivery-systems", r.dashboardHandler.ListDeliverySystems)
	r.mux.HandleFunc("GET /api/refined/dental", r.dashboardHandler.ListDetails)

	// Report
	r.mux.HandleFunc("GET /api/report", r.reportHandler.GetReport)
	r.mux.HandleFunc("GET /api/report/summary", r.reportHandler.GetSummary)

	// Last wrap runs first. CORS is outermost so cache hits carry its headers too.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	if r.responseCache != nil {
		handler = r.responseCache.Middleware(handler)
	}
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CacheControl(middleware.Compression(handler))
	handler = middleware.CORS(r.allowedOrigins)(handler)

	return handler
}
