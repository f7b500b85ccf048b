package handlers

import (
	"net/http"
	"strconv"

	"github.com/zatekoja/dentalanalytics/internal/application/services"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

// ReportHandler serves the utilization report
type ReportHandler struct {
	reports *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GetReport handles GET /api/report?level=detailed|summary&ai=true&format=markdown
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	level := entities.ReportLevel(q.Get("level"))
	if level == "" {
		level = entities.ReportLevelDetailed
	}

	withAI := false
	if raw := q.Get("ai"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithAppError(w, r, apperrors.NewValidationError("ai must be a boolean"))
			return
		}
		withAI = v
	}

	report, err := h.reports.Generate(r.Context(), level, withAI)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if q.Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(report.Markdown))
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// GetSummary handles GET /api/report/summary
func (h *ReportHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.Summary(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
