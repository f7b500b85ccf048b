package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/zatekoja/dentalanalytics/internal/application/transform"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

const (
	// DefaultTopN is the provider ranking size when none is requested
	DefaultTopN = 10
	// MaxTopN caps provider rankings and detail pages
	MaxTopN = 100

	heatmapProviders    = 15
	heatmapMinProviders = 3
	heatmapMinAgeGroups = 2
)

// Service type labels used in the service distribution.
const (
	ServiceTypePreventive  = "Preventive"
	ServiceTypeTreatment   = "Treatment"
	ServiceTypeExamination = "Examination"
	ServiceTypeOther       = "Other"
)

// DashboardService computes dashboard views over the refined layer
type DashboardService struct {
	refined repositories.RefinedRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(refined repositories.RefinedRepository) *DashboardService {
	return &DashboardService{refined: refined}
}

// FilterOptions returns the values each dashboard filter can take
func (s *DashboardService) FilterOptions(ctx context.Context) (*entities.FilterOptions, error) {
	return s.refined.FilterOptions(ctx)
}

// Details returns a page of refined detail rows
func (s *DashboardService) Details(ctx context.Context, filter repositories.DetailFilter) ([]*entities.RefinedDetailRecord, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, apperrors.NewValidationError("limit and offset must not be negative")
	}
	if filter.Limit > MaxTopN {
		return nil, apperrors.NewValidationError(fmt.Sprintf("limit must be at most %d", MaxTopN))
	}
	if filter.Limit == 0 {
		filter.Limit = MaxTopN
	}
	return s.refined.ListDetails(ctx, filter)
}

// TopProviders ranks providers by volume or efficiency, highest first
func (s *DashboardService) TopProviders(ctx context.Context, order repositories.ProviderOrder, limit int) ([]*entities.ProviderSummary, error) {
	if order == "" {
		order = repositories.ProviderOrderVolume
	}
	if order != repositories.ProviderOrderVolume && order != repositories.ProviderOrderEfficiency {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown provider order %q", order))
	}
	if limit == 0 {
		limit = DefaultTopN
	}
	if limit < 0 || limit > MaxTopN {
		return nil, apperrors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", MaxTopN))
	}
	return s.refined.ListProviders(ctx, repositories.ProviderFilter{Order: order, Limit: limit})
}

// AgeGroups returns the age group summary table
func (s *DashboardService) AgeGroups(ctx context.Context) ([]*entities.AgeGroupSummary, error) {
	return s.refined.ListAgeGroups(ctx)
}

// DeliverySystems returns the delivery system summary table
func (s *DashboardService) DeliverySystems(ctx context.Context) ([]*entities.DeliverySystemSummary, error) {
	return s.refined.ListDeliverySystems(ctx)
}

// Metrics computes every dashboard panel for the rows matching filter
func (s *DashboardService) Metrics(ctx context.Context, filter entities.DashboardFilter) (*entities.DashboardMetrics, error) {
	rows, err := s.refined.ListDetails(ctx, repositories.DetailFilter{DashboardFilter: filter})
	if err != nil {
		return nil, err
	}
	return ComputeDashboard(filter, rows), nil
}

// ComputeDashboard derives the dashboard panels from already filtered detail rows.
func ComputeDashboard(filter entities.DashboardFilter, rows []*entities.RefinedDetailRecord) *entities.DashboardMetrics {
	return &entities.DashboardMetrics{
		Filter:        filter,
		Key:           keyMetrics(rows),
		ServiceCounts: serviceCounts(rows),
		AgeGroups:     ageGroupUsage(rows),
		Coverage:      deliverySystemCoverage(rows),
		Efficiency:    deliverySystemEfficiency(rows),
		Heatmap:       providerHeatmap(rows),
	}
}

func keyMetrics(rows []*entities.RefinedDetailRecord) entities.KeyMetrics {
	npis := make(map[string]struct{})
	patients, services := decimal.Zero, decimal.Zero
	for _, r := range rows {
		npis[r.RenderingNPI] = struct{}{}
		patients = patients.Add(r.Counts.AdvUsers)
		services = services.Add(r.TotalServices)
	}
	return entities.KeyMetrics{
		TotalProviders:        len(npis),
		TotalPatients:         patients,
		TotalServices:         services,
		AvgServicesPerPatient: transform.SafeRatio(services, patients),
	}
}

// serviceCounts splits all-service volume into the three categories plus the remainder.
func serviceCounts(rows []*entities.RefinedDetailRecord) []entities.ServiceTypeCount {
	var adv, prev, txmt, exam decimal.Decimal
	for _, r := range rows {
		adv = adv.Add(r.Counts.AdvServices)
		prev = prev.Add(r.Counts.PrevServices)
		txmt = txmt.Add(r.Counts.TxmtServices)
		exam = exam.Add(r.Counts.ExamServices)
	}
	other := adv.Sub(prev.Add(txmt).Add(exam))
	total := prev.Add(txmt).Add(exam).Add(other)

	out := make([]entities.ServiceTypeCount, 0, 4)
	for _, c := range []struct {
		label string
		count decimal.Decimal
	}{
		{ServiceTypePreventive, prev},
		{ServiceTypeTreatment, txmt},
		{ServiceTypeExamination, exam},
		{ServiceTypeOther, other},
	} {
		out = append(out, entities.ServiceTypeCount{
			ServiceType: c.label,
			Count:       c.count,
			Percentage:  transform.SafePercent(c.count, total),
		})
	}
	return out
}

// bucket collects detail rows sharing one dimension value.
type bucket struct {
	key  string
	rows []*entities.RefinedDetailRecord
}

// bucketBy groups rows by key, sorted by key.
func bucketBy(rows []*entities.RefinedDetailRecord, key func(*entities.RefinedDetailRecord) string) []*bucket {
	index := make(map[string]*bucket)
	var out []*bucket
	for _, r := range rows {
		k := key(r)
		b, ok := index[k]
		if !ok {
			b = &bucket{key: k}
			index[k] = b
			out = append(out, b)
		}
		b.rows = append(b.rows, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func (b *bucket) sum(field func(*entities.RefinedDetailRecord) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, r := range b.rows {
		total = total.Add(field(r))
	}
	return total
}

func (b *bucket) mean(field func(*entities.RefinedDetailRecord) decimal.Decimal) decimal.Decimal {
	return transform.SafeRatio(b.sum(field), decimal.NewFromInt(int64(len(b.rows))))
}

func advUsers(r *entities.RefinedDetailRecord) decimal.Decimal      { return r.Counts.AdvUsers }
func totalServices(r *entities.RefinedDetailRecord) decimal.Decimal { return r.TotalServices }

func ageGroupUsage(rows []*entities.RefinedDetailRecord) []entities.AgeGroupUsage {
	buckets := bucketBy(rows, func(r *entities.RefinedDetailRecord) string { return r.AgeGroup })
	out := make([]entities.AgeGroupUsage, 0, len(buckets))
	for _, b := range buckets {
		patients := b.sum(advUsers)
		out = append(out, entities.AgeGroupUsage{
			AgeGroup:           b.key,
			Patients:           patients,
			ServicesPerPatient: transform.SafeRatio(b.sum(totalServices), patients),
		})
	}
	return out
}

func deliverySystemCoverage(rows []*entities.RefinedDetailRecord) []entities.DeliverySystemCoverage {
	buckets := bucketBy(rows, func(r *entities.RefinedDetailRecord) string { return r.DeliverySystem })
	out := make([]entities.DeliverySystemCoverage, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, entities.DeliverySystemCoverage{
			DeliverySystem: b.key,
			Coverage: entities.Coverage{
				PreventiveCoveragePct: b.mean(func(r *entities.RefinedDetailRecord) decimal.Decimal { return r.PreventiveCoveragePct }),
				TreatmentCoveragePct:  b.mean(func(r *entities.RefinedDetailRecord) decimal.Decimal { return r.TreatmentCoveragePct }),
				ExamCoveragePct:       b.mean(func(r *entities.RefinedDetailRecord) decimal.Decimal { return r.ExamCoveragePct }),
			},
		})
	}
	return out
}

func deliverySystemEfficiency(rows []*entities.RefinedDetailRecord) []entities.DeliverySystemEfficiency {
	buckets := bucketBy(rows, func(r *entities.RefinedDetailRecord) string { return r.DeliverySystem })
	out := make([]entities.DeliverySystemEfficiency, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, entities.DeliverySystemEfficiency{
			DeliverySystem:     b.key,
			Patients:           b.sum(advUsers),
			AvgServicesPerUser: b.mean(func(r *entities.RefinedDetailRecord) decimal.Decimal { return r.ServicesPerUser }),
			AvgPreventiveRatio: b.mean(func(r *entities.RefinedDetailRecord) decimal.Decimal { return r.PreventiveRatio }),
		})
	}
	return out
}

// providerHeatmap returns nil when fewer than three providers or two age groups are present.
func providerHeatmap(rows []*entities.RefinedDetailRecord) *entities.ProviderHeatmap {
	providers := bucketBy(rows, func(r *entities.RefinedDetailRecord) string { return r.ProviderLegalName })
	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].sum(advUsers).GreaterThan(providers[j].sum(advUsers))
	})
	if len(providers) > heatmapProviders {
		providers = providers[:heatmapProviders]
	}

	ageSet := make(map[string]struct{})
	for _, r := range rows {
		ageSet[r.AgeGroup] = struct{}{}
	}
	if len(providers) < heatmapMinProviders || len(ageSet) < heatmapMinAgeGroups {
		return nil
	}

	ages := make([]string, 0, len(ageSet))
	for age := range ageSet {
		ages = append(ages, age)
	}
	sort.Strings(ages)

	heatmap := &entities.ProviderHeatmap{AgeGroups: ages}
	for _, p := range providers {
		row := entities.ProviderHeatmapRow{ProviderLegalName: p.key, ServicesPerUser: make([]decimal.Decimal, len(ages))}
		byAge := bucketBy(p.rows, func(r *entities.RefinedDetailRecord) string { return r.AgeGroup })
		for i, age := range ages {
			row.ServicesPerUser[i] = decimal.Zero
			for _, b := range byAge {
				if b.key == age {
					row.ServicesPerUser[i] = b.mean(func(r *entities.RefinedDetailRecord) decimal.Decimal { return r.ServicesPerUser })
				}
			}
		}
		heatmap.Rows = append(heatmap.Rows, row)
	}
	return heatmap
}
