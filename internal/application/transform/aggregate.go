package transform

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

// Score weights and thresholds.
var (
	spuWeight          = decimal.RequireFromString("0.3")
	preventiveWeight   = decimal.RequireFromString("4.0")
	largeVolumeUsers   = decimal.NewFromInt(500)
	mediumVolumeUsers  = decimal.NewFromInt(100)
	largeVolumeBonus   = decimal.NewFromInt(5)
	mediumVolumeBonus  = decimal.NewFromInt(3)
	smallVolumeBonus   = decimal.NewFromInt(1)
	multiSystemBonus   = decimal.NewFromInt(2)
	systemPrevWeight   = decimal.NewFromInt(5)
	systemUsersDivisor = decimal.NewFromInt(1000)
	systemSpuWeight    = decimal.RequireFromString("0.5")
)

// group accumulates sums over the trusted rows that share a key.
type group struct {
	key     string
	rows    int
	totals  entities.ServiceTotals
	spuSum  decimal.Decimal
	prevSum decimal.Decimal
	txmtSum decimal.Decimal
	examSum decimal.Decimal
	npis    map[string]struct{}
	systems map[string]struct{}
}

func newGroup(key string) *group {
	return &group{
		key:     key,
		npis:    make(map[string]struct{}),
		systems: make(map[string]struct{}),
	}
}

func (g *group) add(t *entities.TrustedRecord) {
	g.rows++
	g.totals.TotalUsers = g.totals.TotalUsers.Add(t.Counts.AdvUsers)
	g.totals.TotalServices = g.totals.TotalServices.Add(t.TotalServices)
	g.totals.PreventiveServices = g.totals.PreventiveServices.Add(t.Counts.PrevServices)
	g.totals.TreatmentServices = g.totals.TreatmentServices.Add(t.Counts.TxmtServices)
	g.totals.ExamServices = g.totals.ExamServices.Add(t.Counts.ExamServices)
	g.spuSum = g.spuSum.Add(t.ServicesPerUser)
	g.prevSum = g.prevSum.Add(t.PreventiveRatio)
	g.txmtSum = g.txmtSum.Add(t.TreatmentRatio)
	g.examSum = g.examSum.Add(t.ExamRatio)
	g.npis[t.RenderingNPI] = struct{}{}
	g.systems[t.DeliverySystem] = struct{}{}
}

func (g *group) distribution() entities.ServiceDistribution {
	return entities.ServiceDistribution{
		PreventiveServicesPct: SafePercent(g.totals.PreventiveServices, g.totals.TotalServices),
		TreatmentServicesPct:  SafePercent(g.totals.TreatmentServices, g.totals.TotalServices),
		ExamServicesPct:       SafePercent(g.totals.ExamServices, g.totals.TotalServices),
	}
}

// groupBy buckets rows by key, returning groups in first-seen order.
func groupBy(trusted []*entities.TrustedRecord, key func(*entities.TrustedRecord) string) []*group {
	index := make(map[string]*group)
	var groups []*group
	for _, t := range trusted {
		k := key(t)
		g, ok := index[k]
		if !ok {
			g = newGroup(k)
			index[k] = g
			groups = append(groups, g)
		}
		g.add(t)
	}
	return groups
}

// volumeBonus rewards providers by the number of users they served.
func volumeBonus(totalUsers decimal.Decimal) decimal.Decimal {
	switch {
	case totalUsers.GreaterThan(largeVolumeUsers):
		return largeVolumeBonus
	case totalUsers.GreaterThan(mediumVolumeUsers):
		return mediumVolumeBonus
	default:
		return smallVolumeBonus
	}
}

// ProviderEfficiencyScore combines the averages with the volume and reach bonuses.
func ProviderEfficiencyScore(avgSPU, avgPreventiveRatio, totalUsers decimal.Decimal, deliverySystems int) decimal.Decimal {
	score := spuWeight.Mul(avgSPU).
		Add(preventiveWeight.Mul(avgPreventiveRatio)).
		Add(volumeBonus(totalUsers))
	if deliverySystems > 1 {
		score = score.Add(multiSystemBonus)
	}
	return Fixed(score)
}

// SystemEffectivenessScore scores a delivery system on preventive share, reach and intensity.
func SystemEffectivenessScore(preventiveServices, totalServices, totalUsers, avgSPU decimal.Decimal) decimal.Decimal {
	prevFraction := decimal.Zero
	if totalServices.Sign() > 0 {
		prevFraction = preventiveServices.Div(totalServices)
	}
	score := systemPrevWeight.Mul(prevFraction).
		Add(totalUsers.Div(systemUsersDivisor)).
		Add(systemSpuWeight.Mul(avgSPU))
	return Fixed(score)
}

type providerKey struct {
	npi  string
	name string
}

// SummarizeProviders aggregates trusted rows per (NPI, legal name), busiest first.
func SummarizeProviders(trusted []*entities.TrustedRecord) []*entities.ProviderSummary {
	keys := make(map[string]providerKey)
	groups := groupBy(trusted, func(t *entities.TrustedRecord) string {
		k := t.RenderingNPI + "\x00" + t.ProviderLegalName
		keys[k] = providerKey{npi: t.RenderingNPI, name: t.ProviderLegalName}
		return k
	})

	out := make([]*entities.ProviderSummary, 0, len(groups))
	for _, g := range groups {
		pk := keys[g.key]
		avgSPU := mean(g.spuSum, g.rows)
		avgPrev := mean(g.prevSum, g.rows)
		out = append(out, &entities.ProviderSummary{
			RenderingNPI:            pk.npi,
			ProviderLegalName:       pk.name,
			DeliverySystemsCount:    len(g.systems),
			RecordCount:             g.rows,
			ServiceTotals:           g.totals,
			AvgServicesPerUser:      Fixed(avgSPU),
			AvgPreventiveRatio:      Fixed(avgPrev),
			AvgTreatmentRatio:       Fixed(mean(g.txmtSum, g.rows)),
			AvgExamRatio:            Fixed(mean(g.examSum, g.rows)),
			ProviderEfficiencyScore: ProviderEfficiencyScore(avgSPU, avgPrev, g.totals.TotalUsers, len(g.systems)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := a.TotalUsers.Cmp(b.TotalUsers); c != 0 {
			return c > 0
		}
		if a.RenderingNPI != b.RenderingNPI {
			return a.RenderingNPI < b.RenderingNPI
		}
		return a.ProviderLegalName < b.ProviderLegalName
	})
	return out
}

// SummarizeAgeGroups aggregates trusted rows per age group, ordered by label.
func SummarizeAgeGroups(trusted []*entities.TrustedRecord) []*entities.AgeGroupSummary {
	groups := groupBy(trusted, func(t *entities.TrustedRecord) string { return t.AgeGroup })

	out := make([]*entities.AgeGroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, &entities.AgeGroupSummary{
			AgeGroup:            g.key,
			ProviderCount:       len(g.npis),
			ServiceTotals:       g.totals,
			ServiceDistribution: g.distribution(),
			AvgServicesPerUser:  Fixed(mean(g.spuSum, g.rows)),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AgeGroup < out[j].AgeGroup })
	return out
}

// SummarizeDeliverySystems aggregates trusted rows per delivery system, busiest first.
func SummarizeDeliverySystems(trusted []*entities.TrustedRecord) []*entities.DeliverySystemSummary {
	groups := groupBy(trusted, func(t *entities.TrustedRecord) string { return t.DeliverySystem })

	out := make([]*entities.DeliverySystemSummary, 0, len(groups))
	for _, g := range groups {
		avgSPU := mean(g.spuSum, g.rows)
		score := SystemEffectivenessScore(g.totals.PreventiveServices, g.totals.TotalServices, g.totals.TotalUsers, avgSPU)
		out = append(out, &entities.DeliverySystemSummary{
			DeliverySystem:           g.key,
			ProviderCount:            len(g.npis),
			ServiceTotals:            g.totals,
			ServiceDistribution:      g.distribution(),
			AvgServicesPerUser:       Fixed(avgSPU),
			SystemEffectivenessScore: score,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := a.TotalUsers.Cmp(b.TotalUsers); c != 0 {
			return c > 0
		}
		return a.DeliverySystem < b.DeliverySystem
	})
	return out
}
