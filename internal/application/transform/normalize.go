package transform

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

const missingNumber = "0"

type countField struct {
	column string
	text   *string
	value  *decimal.Decimal
}

func countFields(text *entities.ServiceCountText, counts *entities.ServiceCounts) []countField {
	return []countField{
		{"adv_user_cnt", &text.AdvUsers, &counts.AdvUsers},
		{"adv_svc_cnt", &text.AdvServices, &counts.AdvServices},
		{"prev_user_cnt", &text.PrevUsers, &counts.PrevUsers},
		{"prev_svc_cnt", &text.PrevServices, &counts.PrevServices},
		{"txmt_user_cnt", &text.TxmtUsers, &counts.TxmtUsers},
		{"txmt_svc_cnt", &text.TxmtServices, &counts.TxmtServices},
		{"exam_user_cnt", &text.ExamUsers, &counts.ExamUsers},
		{"exam_svc_cnt", &text.ExamServices, &counts.ExamServices},
	}
}

// NormalizeNumberText trims a numeric cell and substitutes "0" for a missing value.
func NormalizeNumberText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return missingNumber
	}
	return s
}

// ParseCounts normalizes the eight count cells in place and casts them to decimal.
// The returned column name identifies the first cell that failed to parse.
func ParseCounts(text *entities.ServiceCountText) (entities.ServiceCounts, string, error) {
	var counts entities.ServiceCounts
	for _, f := range countFields(text, &counts) {
		*f.text = NormalizeNumberText(*f.text)
		v, err := decimal.NewFromString(*f.text)
		if err != nil {
			return entities.ServiceCounts{}, f.column, err
		}
		*f.value = Fixed(v)
	}
	return counts, "", nil
}

// Derive computes the trusted-layer metrics for one row.
func Derive(c entities.ServiceCounts) entities.DerivedMetrics {
	total := Fixed(c.AdvServices.Add(c.PrevServices).Add(c.TxmtServices).Add(c.ExamServices))
	return entities.DerivedMetrics{
		TotalServices:   total,
		ServicesPerUser: SafeRatio(total, c.AdvUsers),
		PreventiveRatio: SafeRatio(c.PrevServices, total),
		TreatmentRatio:  SafeRatio(c.TxmtServices, total),
		ExamRatio:       SafeRatio(c.ExamServices, total),
	}
}

// NormalizeRecord cleans one raw row. row is the 1-based position used in error messages.
func NormalizeRecord(row int, raw *entities.RawRecord) (*entities.TrustedRecord, error) {
	if raw == nil {
		return nil, apperrors.NewParseError(string(entities.StageTrusted), fmt.Sprintf("row %d: record is nil", row), nil)
	}

	text := raw.Counts
	counts, column, err := ParseCounts(&text)
	if err != nil {
		return nil, apperrors.NewParseError(
			string(entities.StageTrusted),
			fmt.Sprintf("row %d (npi %s): %s value %q is not numeric", row, strings.TrimSpace(raw.RenderingNPI), column, strings.TrimSpace(fieldText(raw.Counts, column))),
			err,
		)
	}

	return &entities.TrustedRecord{
		Categorical:    TrimCategorical(raw.Categorical),
		CountText:      text,
		Counts:         counts,
		DerivedMetrics: Derive(counts),
	}, nil
}

// Normalize cleans a whole raw batch. Any unparseable value fails the batch.
func Normalize(raws []*entities.RawRecord) ([]*entities.TrustedRecord, error) {
	out := make([]*entities.TrustedRecord, 0, len(raws))
	for i, raw := range raws {
		rec, err := NormalizeRecord(i+1, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// TrimCategorical strips surrounding whitespace from every descriptive column.
func TrimCategorical(c entities.Categorical) entities.Categorical {
	return entities.Categorical{
		Year:              strings.TrimSpace(c.Year),
		DeliverySystem:    strings.TrimSpace(c.DeliverySystem),
		ProviderType:      strings.TrimSpace(c.ProviderType),
		AgeGroup:          strings.TrimSpace(c.AgeGroup),
		RenderingNPI:      strings.TrimSpace(c.RenderingNPI),
		ProviderLegalName: strings.TrimSpace(c.ProviderLegalName),
	}
}

func fieldText(text entities.ServiceCountText, column string) string {
	var scratch entities.ServiceCounts
	for _, f := range countFields(&text, &scratch) {
		if f.column == column {
			return *f.text
		}
	}
	return ""
}
