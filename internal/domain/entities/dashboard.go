package entities

import "github.com/shopspring/decimal"

// FilterAll disables a dashboard filter dimension.
const FilterAll = "All"

// DashboardFilter narrows refined detail rows.
type DashboardFilter struct {
	DeliverySystem string `json:"delivery_system"`
	AgeGroup       string `json:"age_group"`
	ProviderType   string `json:"provider_type"`
}

// Matches reports whether a row passes the filter. Empty or "All" means no constraint.
func (f DashboardFilter) Matches(c Categorical) bool {
	return matchDimension(f.DeliverySystem, c.DeliverySystem) &&
		matchDimension(f.AgeGroup, c.AgeGroup) &&
		matchDimension(f.ProviderType, c.ProviderType)
}

func matchDimension(want, got string) bool {
	return want == "" || want == FilterAll || want == got
}

// KeyMetrics are the headline numbers for a filtered slice.
type KeyMetrics struct {
	TotalProviders        int             `json:"total_providers"`
	TotalPatients         decimal.Decimal `json:"total_patients"`
	TotalServices         decimal.Decimal `json:"total_services"`
	AvgServicesPerPatient decimal.Decimal `json:"avg_services_per_patient"`
}

// ServiceTypeCount is one bar of the service distribution.
type ServiceTypeCount struct {
	ServiceType string          `json:"service_type"`
	Count       decimal.Decimal `json:"count"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// AgeGroupUsage is patients and services-per-patient for one age group.
type AgeGroupUsage struct {
	AgeGroup           string          `json:"age_group"`
	Patients           decimal.Decimal `json:"patients"`
	ServicesPerPatient decimal.Decimal `json:"services_per_patient"`
}

// DeliverySystemCoverage is the mean coverage of a delivery system.
type DeliverySystemCoverage struct {
	DeliverySystem string `json:"delivery_system"`
	Coverage
}

// DeliverySystemEfficiency compares delivery systems on volume and mix.
type DeliverySystemEfficiency struct {
	DeliverySystem     string          `json:"delivery_system"`
	Patients           decimal.Decimal `json:"patients"`
	AvgServicesPerUser decimal.Decimal `json:"avg_services_per_user"`
	AvgPreventiveRatio decimal.Decimal `json:"avg_preventive_ratio"`
}

// DashboardMetrics is everything the dashboard renders for one filter.
type DashboardMetrics struct {
	Filter        DashboardFilter            `json:"filter"`
	Key           KeyMetrics                 `json:"key_metrics"`
	ServiceCounts []ServiceTypeCount         `json:"service_counts"`
	AgeGroups     []AgeGroupUsage            `json:"age_groups"`
	Coverage      []DeliverySystemCoverage   `json:"delivery_system_coverage"`
	Efficiency    []DeliverySystemEfficiency `json:"delivery_system_efficiency"`
	Heatmap       *ProviderHeatmap           `json:"provider_heatmap,omitempty"`
}

// ProviderHeatmap is mean services per user for the busiest providers, broken down by age group.
type ProviderHeatmap struct {
	AgeGroups []string             `json:"age_groups"`
	Rows      []ProviderHeatmapRow `json:"rows"`
}

// ProviderHeatmapRow holds one provider's values aligned with ProviderHeatmap.AgeGroups.
type ProviderHeatmapRow struct {
	ProviderLegalName string            `json:"provider_legal_name"`
	ServicesPerUser   []decimal.Decimal `json:"services_per_user"`
}

// FilterOptions lists the distinct values available for each filter.
type FilterOptions struct {
	DeliverySystems []string `json:"delivery_systems"`
	AgeGroups       []string `json:"age_groups"`
	ProviderTypes   []string `json:"provider_types"`
}
