package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportLevel selects how the utilization report is written.
type ReportLevel string

const (
	// ReportLevelDetailed renders bulleted sections
	ReportLevelDetailed ReportLevel = "detailed"
	// ReportLevelSummary renders narrative paragraphs
	ReportLevelSummary ReportLevel = "summary"
)

// Valid reports whether the level is one the generator understands.
func (l ReportLevel) Valid() bool {
	return l == ReportLevelDetailed || l == ReportLevelSummary
}

// OverallMetrics are program-wide totals used by the report.
type OverallMetrics struct {
	TotalProviders        int             `json:"total_providers"`
	TotalPatients         decimal.Decimal `json:"total_patients"`
	TotalServices         decimal.Decimal `json:"total_services"`
	AvgServicesPerPatient decimal.Decimal `json:"avg_services_per_patient"`
	PreventivePct         decimal.Decimal `json:"preventive_pct"`
	TreatmentPct          decimal.Decimal `json:"treatment_pct"`
}

// ProviderRank is a provider with the metric it was ranked by.
type ProviderRank struct {
	RenderingNPI string          `json:"rendering_npi"`
	Value        decimal.Decimal `json:"value"`
}

// DataSummary is the structured input for both the rule-based report and the AI prompt.
type DataSummary struct {
	Overall                  OverallMetrics           `json:"overall_metrics"`
	AgeGroups                []*AgeGroupSummary       `json:"age_groups"`
	DeliverySystems          []*DeliverySystemSummary `json:"delivery_systems"`
	TopProvidersByVolume     []ProviderRank           `json:"top_providers_by_volume"`
	TopProvidersByEfficiency []ProviderRank           `json:"top_providers_by_efficiency"`
	LowProvidersByEfficiency []ProviderRank           `json:"lowest_providers_by_efficiency"`
}

// Report is a rendered markdown utilization report.
type Report struct {
	Title       string      `json:"title"`
	Level       ReportLevel `json:"level"`
	GeneratedAt time.Time   `json:"generated_at"`
	Markdown    string      `json:"markdown"`
	AIIncluded  bool        `json:"ai_included"`
}
