package transform

import (
	"github.com/shopspring/decimal"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

var (
	highIntensityThreshold   = decimal.NewFromInt(8)
	mediumIntensityThreshold = decimal.NewFromInt(4)
)

// Intensity labels a services-per-user value.
func Intensity(servicesPerUser decimal.Decimal) entities.ServiceIntensity {
	switch {
	case servicesPerUser.GreaterThanOrEqual(highIntensityThreshold):
		return entities.IntensityHigh
	case servicesPerUser.GreaterThanOrEqual(mediumIntensityThreshold):
		return entities.IntensityMedium
	default:
		return entities.IntensityLow
	}
}

// CoveragePct is the share of all-service users that received a category.
// It is zero unless both counts are positive.
func CoveragePct(categoryUsers, advUsers decimal.Decimal) decimal.Decimal {
	if categoryUsers.Sign() <= 0 || advUsers.Sign() <= 0 {
		return decimal.Zero
	}
	return SafePercent(categoryUsers, advUsers)
}

// Refine enriches a trusted row with coverage percentages and an intensity label.
func Refine(t *entities.TrustedRecord) *entities.RefinedDetailRecord {
	c := t.Counts
	return &entities.RefinedDetailRecord{
		TrustedRecord: *t,
		Coverage: entities.Coverage{
			PreventiveCoveragePct: CoveragePct(c.PrevUsers, c.AdvUsers),
			TreatmentCoveragePct:  CoveragePct(c.TxmtUsers, c.AdvUsers),
			ExamCoveragePct:       CoveragePct(c.ExamUsers, c.AdvUsers),
		},
		ServiceIntensity: Intensity(t.ServicesPerUser),
	}
}

// RefineAll refines every row, keeping input order.
func RefineAll(trusted []*entities.TrustedRecord) []*entities.RefinedDetailRecord {
	out := make([]*entities.RefinedDetailRecord, 0, len(trusted))
	for _, t := range trusted {
		out = append(out, Refine(t))
	}
	return out
}

// BuildRefined computes every refined table from the trusted layer.
func BuildRefined(trusted []*entities.TrustedRecord) *entities.RefinedTables {
	return &entities.RefinedTables{
		Details:         RefineAll(trusted),
		Providers:       SummarizeProviders(trusted),
		AgeGroups:       SummarizeAgeGroups(trusted),
		DeliverySystems: SummarizeDeliverySystems(trusted),
	}
}
