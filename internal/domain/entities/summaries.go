package entities

import "github.com/shopspring/decimal"

// ServiceTotals are the summed counts shared by all summary tables.
type ServiceTotals struct {
	TotalUsers         decimal.Decimal `json:"total_users" db:"total_users"`
	TotalServices      decimal.Decimal `json:"total_services" db:"total_services"`
	PreventiveServices decimal.Decimal `json:"preventive_services" db:"preventive_services"`
	TreatmentServices  decimal.Decimal `json:"treatment_services" db:"treatment_services"`
	ExamServices       decimal.Decimal `json:"exam_services" db:"exam_services"`
}

// ServiceDistribution is the share of each category within TotalServices, as percentages.
type ServiceDistribution struct {
	PreventiveServicesPct decimal.Decimal `json:"preventive_services_pct" db:"preventive_services_pct"`
	TreatmentServicesPct  decimal.Decimal `json:"treatment_services_pct" db:"treatment_services_pct"`
	ExamServicesPct       decimal.Decimal `json:"exam_services_pct" db:"exam_services_pct"`
}

// ProviderSummary aggregates every trusted row of one provider.
type ProviderSummary struct {
	RenderingNPI         string `json:"rendering_npi" db:"rendering_npi"`
	ProviderLegalName    string `json:"provider_legal_name" db:"provider_legal_name"`
	DeliverySystemsCount int    `json:"delivery_systems_count" db:"delivery_systems_count"`
	RecordCount          int    `json:"record_count" db:"record_count"`
	ServiceTotals
	AvgServicesPerUser      decimal.Decimal `json:"avg_services_per_user" db:"avg_services_per_user"`
	AvgPreventiveRatio      decimal.Decimal `json:"avg_preventive_ratio" db:"avg_preventive_ratio"`
	AvgTreatmentRatio       decimal.Decimal `json:"avg_treatment_ratio" db:"avg_treatment_ratio"`
	AvgExamRatio            decimal.Decimal `json:"avg_exam_ratio" db:"avg_exam_ratio"`
	ProviderEfficiencyScore decimal.Decimal `json:"provider_efficiency_score" db:"provider_efficiency_score"`
}

// AgeGroupSummary aggregates one age group.
type AgeGroupSummary struct {
	AgeGroup      string `json:"age_group" db:"age_group"`
	ProviderCount int    `json:"provider_count" db:"provider_count"`
	ServiceTotals
	ServiceDistribution
	AvgServicesPerUser decimal.Decimal `json:"avg_services_per_user" db:"avg_services_per_user"`
}

// DeliverySystemSummary aggregates one delivery system.
type DeliverySystemSummary struct {
	DeliverySystem string `json:"delivery_system" db:"delivery_system"`
	ProviderCount  int    `json:"provider_count" db:"provider_count"`
	ServiceTotals
	ServiceDistribution
	AvgServicesPerUser       decimal.Decimal `json:"avg_services_per_user" db:"avg_services_per_user"`
	SystemEffectivenessScore decimal.Decimal `json:"system_effectiveness_score" db:"system_effectiveness_score"`
}

// RefinedTables is the full output of the refined layer.
type RefinedTables struct {
	Details         []*RefinedDetailRecord
	Providers       []*ProviderSummary
	AgeGroups       []*AgeGroupSummary
	DeliverySystems []*DeliverySystemSummary
}
