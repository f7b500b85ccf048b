package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ServiceIntensity buckets per-patient service volume.
type ServiceIntensity string

const (
	IntensityHigh   ServiceIntensity = "High"
	IntensityMedium ServiceIntensity = "Medium"
	IntensityLow    ServiceIntensity = "Low"
)

// Categorical holds the descriptive columns shared by every layer.
type Categorical struct {
	Year              string `json:"year" db:"year"`
	DeliverySystem    string `json:"delivery_system" db:"delivery_system"`
	ProviderType      string `json:"provider_type" db:"provider_type"`
	AgeGroup          string `json:"age_group" db:"age_group"`
	RenderingNPI      string `json:"rendering_npi" db:"rendering_npi"`
	ProviderLegalName string `json:"provider_legal_name" db:"provider_legal_name"`
}

// ServiceCountText is the text form of the eight user/service counts.
// Empty strings mean the source cell was missing.
type ServiceCountText struct {
	AdvUsers     string `json:"adv_user_cnt" db:"adv_user_cnt"`
	AdvServices  string `json:"adv_svc_cnt" db:"adv_svc_cnt"`
	PrevUsers    string `json:"prev_user_cnt" db:"prev_user_cnt"`
	PrevServices string `json:"prev_svc_cnt" db:"prev_svc_cnt"`
	TxmtUsers    string `json:"txmt_user_cnt" db:"txmt_user_cnt"`
	TxmtServices string `json:"txmt_svc_cnt" db:"txmt_svc_cnt"`
	ExamUsers    string `json:"exam_user_cnt" db:"exam_user_cnt"`
	ExamServices string `json:"exam_svc_cnt" db:"exam_svc_cnt"`
}

// AnnotationCodes are the data-quality flags that travel with each count in the raw file.
type AnnotationCodes struct {
	AdvUsers     string `json:"adv_user_annotation_code" db:"adv_user_annotation_code"`
	AdvServices  string `json:"adv_svc_annotation_code" db:"adv_svc_annotation_code"`
	PrevUsers    string `json:"prev_user_annotation_code" db:"prev_user_annotation_code"`
	PrevServices string `json:"prev_svc_annotation_code" db:"prev_svc_annotation_code"`
	TxmtUsers    string `json:"txmt_user_annotation_code" db:"txmt_user_annotation_code"`
	TxmtServices string `json:"txmt_svc_annotation_code" db:"txmt_svc_annotation_code"`
	ExamUsers    string `json:"exam_user_annotation_code" db:"exam_user_annotation_code"`
	ExamServices string `json:"exam_svc_annotation_code" db:"exam_svc_annotation_code"`
}

// RawRecord is one row of the utilization file exactly as imported.
type RawRecord struct {
	Categorical
	Counts      ServiceCountText `json:"counts"`
	Annotations AnnotationCodes  `json:"annotations"`
}

// ServiceCounts is the decimal form of ServiceCountText.
type ServiceCounts struct {
	AdvUsers     decimal.Decimal `json:"adv_user_cnt"`
	AdvServices  decimal.Decimal `json:"adv_svc_cnt"`
	PrevUsers    decimal.Decimal `json:"prev_user_cnt"`
	PrevServices decimal.Decimal `json:"prev_svc_cnt"`
	TxmtUsers    decimal.Decimal `json:"txmt_user_cnt"`
	TxmtServices decimal.Decimal `json:"txmt_svc_cnt"`
	ExamUsers    decimal.Decimal `json:"exam_user_cnt"`
	ExamServices decimal.Decimal `json:"exam_svc_cnt"`
}

// countScale matches the DECIMAL(12,2) cast applied when the trusted layer is built.
const countScale = 2

// Parse casts already normalized count text to decimal, rounded to two places.
func (t ServiceCountText) Parse() (ServiceCounts, error) {
	var c ServiceCounts
	pairs := []struct {
		name string
		text string
		dst  *decimal.Decimal
	}{
		{"adv_user_cnt", t.AdvUsers, &c.AdvUsers},
		{"adv_svc_cnt", t.AdvServices, &c.AdvServices},
		{"prev_user_cnt", t.PrevUsers, &c.PrevUsers},
		{"prev_svc_cnt", t.PrevServices, &c.PrevServices},
		{"txmt_user_cnt", t.TxmtUsers, &c.TxmtUsers},
		{"txmt_svc_cnt", t.TxmtServices, &c.TxmtServices},
		{"exam_user_cnt", t.ExamUsers, &c.ExamUsers},
		{"exam_svc_cnt", t.ExamServices, &c.ExamServices},
	}
	for _, p := range pairs {
		v, err := decimal.NewFromString(p.text)
		if err != nil {
			return ServiceCounts{}, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = v.Round(countScale)
	}
	return c, nil
}

// DerivedMetrics are the per-row metrics computed in the trusted layer.
type DerivedMetrics struct {
	TotalServices   decimal.Decimal `json:"total_services" db:"total_services"`
	ServicesPerUser decimal.Decimal `json:"services_per_user" db:"services_per_user"`
	PreventiveRatio decimal.Decimal `json:"preventive_ratio" db:"preventive_ratio"`
	TreatmentRatio  decimal.Decimal `json:"treatment_ratio" db:"treatment_ratio"`
	ExamRatio       decimal.Decimal `json:"exam_ratio" db:"exam_ratio"`
}

// TrustedRecord is a cleaned RawRecord. CountText is what gets persisted;
// Counts is the same data cast to decimal.
type TrustedRecord struct {
	Categorical
	CountText ServiceCountText `json:"counts"`
	Counts    ServiceCounts    `json:"-"`
	DerivedMetrics
}

// Coverage holds the share of all-service patients who received each category, as percentages.
type Coverage struct {
	PreventiveCoveragePct decimal.Decimal `json:"preventive_coverage_pct" db:"preventive_coverage_pct"`
	TreatmentCoveragePct  decimal.Decimal `json:"treatment_coverage_pct" db:"treatment_coverage_pct"`
	ExamCoveragePct       decimal.Decimal `json:"exam_coverage_pct" db:"exam_coverage_pct"`
}

// RefinedDetailRecord is a trusted row enriched with coverage and intensity.
type RefinedDetailRecord struct {
	TrustedRecord
	Coverage
	ServiceIntensity ServiceIntensity `json:"service_intensity" db:"service_intensity"`
}
