package handlers

import (
	"net/http"

	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
)

// DashboardHandler serves dashboard panels and refined-layer tables
type DashboardHandler struct {
	dashboard *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func dashboardFilter(r *http.Request) entities.DashboardFilter {
	q := r.URL.Query()
	return entities.DashboardFilter{
		DeliverySystem: q.Get("delivery_system"),
		AgeGroup:       q.Get("age_group"),
		ProviderType:   q.Get("provider_type"),
	}
}

// GetMetrics handles GET /api/dashboard/metrics
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboard.Metrics(r.Context(), dashboardFilter(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, metrics)
}

// GetFilters handles GET /api/dashboard/filters
func (h *DashboardHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	options, err := h.dashboard.FilterOptions(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, options)
}

// ListProviders handles GET /api/refined/providers?order=volume|efficiency&limit=N
func (h *DashboardHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	order := repositories.ProviderOrder(r.URL.Query().Get("order"))
	providers, err := h.dashboard.TopProviders(r.Context(), order, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
		"count":     len(providers),
	})
}

// ListAgeGroups handles GET /api/refined/age-groups
func (h *DashboardHandler) ListAgeGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.dashboard.AgeGroups(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"age_groups": groups,
		"count":      len(groups),
	})
}

// ListDeliverySystems handles GET /api/refined/delivery-systems
func (h *DashboardHandler) ListDeliverySystems(w http.ResponseWriter, r *http.Request) {
	systems, err := h.dashboard.DeliverySystems(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"delivery_systems": systems,
		"count":            len(systems),
	})
}

// ListDetails handles GET /api/refined/dental
func (h *DashboardHandler) ListDetails(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	filter := repositories.DetailFilter{
		DashboardFilter: dashboardFilter(r),
		Limit:           limit,
		Offset:          offset,
	}
	rows, err := h.dashboard.Details(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"records": rows,
		"count":   len(rows),
		"offset":  offset,
	})
}
