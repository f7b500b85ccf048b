package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

// RefinedAdapter implements RefinedRepository
type RefinedAdapter struct {
	client    *postgres.Client
	db        *goqu.Database
	batchSize int
}

// NewRefinedAdapter creates a new refined layer adapter
func NewRefinedAdapter(client *postgres.Client, batchSize int) repositories.RefinedRepository {
	return &RefinedAdapter{
		client:    client,
		db:        goqu.New("postgres", client.DB()),
		batchSize: batchSize,
	}
}

var (
	providerColumns = selectColumns(
		[]string{"rendering_npi", "provider_legal_name", "delivery_systems_count", "record_count"},
		totalsColumns,
		[]string{"avg_services_per_user", "avg_preventive_ratio", "avg_treatment_ratio", "avg_exam_ratio", "provider_efficiency_score"},
	)
	ageGroupColumns = selectColumns(
		[]string{"age_group", "provider_count"}, totalsColumns, distributionColumns, []string{"avg_services_per_user"},
	)
	deliverySystemColumns = selectColumns(
		[]string{"delivery_system", "provider_count"}, totalsColumns, distributionColumns,
		[]string{"avg_services_per_user", "system_effectiveness_score"},
	)
)

// ReplaceAll rebuilds the detail and summary tables together in one transaction
func (a *RefinedAdapter) ReplaceAll(ctx context.Context, tables *entities.RefinedTables) error {
	if tables == nil {
		return apperrors.NewInternalError("refined tables are nil", fmt.Errorf("nil tables"))
	}

	details := make([]goqu.Record, 0, len(tables.Details))
	for _, d := range tables.Details {
		rec := trustedRecord(&d.TrustedRecord)
		rec["preventive_coverage_pct"] = d.PreventiveCoveragePct
		rec["treatment_coverage_pct"] = d.TreatmentCoveragePct
		rec["exam_coverage_pct"] = d.ExamCoveragePct
		rec["service_intensity"] = string(d.ServiceIntensity)
		details = append(details, rec)
	}

	providers := make([]goqu.Record, 0, len(tables.Providers))
	for _, p := range tables.Providers {
		rec := goqu.Record{
			"rendering_npi":             nullable(p.RenderingNPI),
			"provider_legal_name":       nullable(p.ProviderLegalName),
			"delivery_systems_count":    p.DeliverySystemsCount,
			"record_count":              p.RecordCount,
			"avg_services_per_user":     p.AvgServicesPerUser,
			"avg_preventive_ratio":      p.AvgPreventiveRatio,
			"avg_treatment_ratio":       p.AvgTreatmentRatio,
			"avg_exam_ratio":            p.AvgExamRatio,
			"provider_efficiency_score": p.ProviderEfficiencyScore,
		}
		putTotals(rec, p.ServiceTotals)
		providers = append(providers, rec)
	}

	ages := make([]goqu.Record, 0, len(tables.AgeGroups))
	for _, g := range tables.AgeGroups {
		rec := goqu.Record{
			"age_group":             nullable(g.AgeGroup),
			"provider_count":        g.ProviderCount,
			"avg_services_per_user": g.AvgServicesPerUser,
		}
		putTotals(rec, g.ServiceTotals)
		putDistribution(rec, g.ServiceDistribution)
		ages = append(ages, rec)
	}

	systems := make([]goqu.Record, 0, len(tables.DeliverySystems))
	for _, s := range tables.DeliverySystems {
		rec := goqu.Record{
			"delivery_system":            nullable(s.DeliverySystem),
			"provider_count":             s.ProviderCount,
			"avg_services_per_user":      s.AvgServicesPerUser,
			"system_effectiveness_score": s.SystemEffectivenessScore,
		}
		putTotals(rec, s.ServiceTotals)
		putDistribution(rec, s.ServiceDistribution)
		systems = append(systems, rec)
	}

	return a.client.WithTx(ctx, func(tx *sql.Tx) error {
		for _, t := range []struct {
			table string
			rows  []goqu.Record
		}{
			{repositories.TableRefinedDetail, details},
			{repositories.TableProviderSummary, providers},
			{repositories.TableAgeGroupSummary, ages},
			{repositories.TableDeliverySystemSummary, systems},
		} {
			if err := replaceRows(ctx, tx, a.db, t.table, t.rows, a.batchSize); err != nil {
				return err
			}
		}
		return nil
	})
}

func dimensionFilter(f entities.DashboardFilter) exp.Ex {
	where := exp.Ex{}
	for col, val := range map[string]string{
		"delivery_system": f.DeliverySystem,
		"age_group":       f.AgeGroup,
		"provider_type":   f.ProviderType,
	} {
		if val != "" && val != entities.FilterAll {
			where[col] = val
		}
	}
	return where
}

// ListDetails returns refined detail rows matching the filter
func (a *RefinedAdapter) ListDetails(ctx context.Context, filter repositories.DetailFilter) ([]*entities.RefinedDetailRecord, error) {
	ds := a.db.From(repositories.TableRefinedDetail).
		Select(selectColumns(categoricalColumns, countColumns, derivedColumns, coverageColumns)...).
		Where(dimensionFilter(filter.DashboardFilter)).
		Order(goqu.C("rendering_npi").Asc(), goqu.C("delivery_system").Asc(), goqu.C("provider_type").Asc(), goqu.C("age_group").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build refined detail query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query refined details", err)
	}
	defer rows.Close()

	var out []*entities.RefinedDetailRecord
	for rows.Next() {
		d := &entities.RefinedDetailRecord{}
		var intensity string
		dest := trustedDest(&d.TrustedRecord)
		dest = append(dest, &d.PreventiveCoveragePct, &d.TreatmentCoveragePct, &d.ExamCoveragePct, &intensity)
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.NewInternalError("failed to scan refined detail", err)
		}
		d.ServiceIntensity = entities.ServiceIntensity(intensity)
		if d.Counts, err = d.CountText.Parse(); err != nil {
			return nil, apperrors.NewInternalError("refined detail holds a non-numeric count", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate refined details", err)
	}
	return out, nil
}

// ListProviders returns provider summaries ranked by volume or efficiency
func (a *RefinedAdapter) ListProviders(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.ProviderSummary, error) {
	rank := goqu.C("total_users")
	if filter.Order == repositories.ProviderOrderEfficiency {
		rank = goqu.C("provider_efficiency_score")
	}
	order := rank.Desc()
	if filter.Ascending {
		order = rank.Asc()
	}

	ds := a.db.From(repositories.TableProviderSummary).
		Select(providerColumns...).
		Order(order, goqu.C("rendering_npi").Asc(), goqu.C("provider_legal_name").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build provider summary query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query provider summaries", err)
	}
	defer rows.Close()

	var out []*entities.ProviderSummary
	for rows.Next() {
		p := &entities.ProviderSummary{}
		dest := []interface{}{textDest{&p.RenderingNPI}, textDest{&p.ProviderLegalName}, &p.DeliverySystemsCount, &p.RecordCount}
		dest = append(dest, totalsDest(&p.ServiceTotals)...)
		dest = append(dest, &p.AvgServicesPerUser, &p.AvgPreventiveRatio, &p.AvgTreatmentRatio, &p.AvgExamRatio, &p.ProviderEfficiencyScore)
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.NewInternalError("failed to scan provider summary", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate provider summaries", err)
	}
	return out, nil
}

// ListAgeGroups returns age group summaries ordered by label
func (a *RefinedAdapter) ListAgeGroups(ctx context.Context) ([]*entities.AgeGroupSummary, error) {
	query, args, err := a.db.From(repositories.TableAgeGroupSummary).
		Select(ageGroupColumns...).
		Order(goqu.C("age_group").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build age group query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query age group summaries", err)
	}
	defer rows.Close()

	var out []*entities.AgeGroupSummary
	for rows.Next() {
		g := &entities.AgeGroupSummary{}
		dest := []interface{}{textDest{&g.AgeGroup}, &g.ProviderCount}
		dest = append(dest, totalsDest(&g.ServiceTotals)...)
		dest = append(dest, distributionDest(&g.ServiceDistribution)...)
		dest = append(dest, &g.AvgServicesPerUser)
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.NewInternalError("failed to scan age group summary", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate age group summaries", err)
	}
	return out, nil
}

// ListDeliverySystems returns delivery system summaries, busiest first
func (a *RefinedAdapter) ListDeliverySystems(ctx context.Context) ([]*entities.DeliverySystemSummary, error) {
	query, args, err := a.db.From(repositories.TableDeliverySystemSummary).
		Select(deliverySystemColumns...).
		Order(goqu.C("total_users").Desc(), goqu.C("delivery_system").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build delivery system query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query delivery system summaries", err)
	}
	defer rows.Close()

	var out []*entities.DeliverySystemSummary
	for rows.Next() {
		s := &entities.DeliverySystemSummary{}
		dest := []interface{}{textDest{&s.DeliverySystem}, &s.ProviderCount}
		dest = append(dest, totalsDest(&s.ServiceTotals)...)
		dest = append(dest, distributionDest(&s.ServiceDistribution)...)
		dest = append(dest, &s.AvgServicesPerUser, &s.SystemEffectivenessScore)
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.NewInternalError("failed to scan delivery system summary", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate delivery system summaries", err)
	}
	return out, nil
}

// FilterOptions returns the distinct dimension values of the detail table
func (a *RefinedAdapter) FilterOptions(ctx context.Context) (*entities.FilterOptions, error) {
	opts := &entities.FilterOptions{}
	for _, dim := range []struct {
		column string
		dst    *[]string
	}{
		{"delivery_system", &opts.DeliverySystems},
		{"age_group", &opts.AgeGroups},
		{"provider_type", &opts.ProviderTypes},
	} {
		values, err := a.distinct(ctx, dim.column)
		if err != nil {
			return nil, err
		}
		*dim.dst = values
	}
	return opts, nil
}

func (a *RefinedAdapter) distinct(ctx context.Context, column string) ([]string, error) {
	query, args, err := a.db.From(repositories.TableRefinedDetail).
		Select(goqu.C(column)).
		Distinct().
		Where(goqu.C(column).IsNotNull()).
		Order(goqu.C(column).Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build distinct query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to list distinct %s", column), err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("failed to scan %s", column), err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to iterate %s", column), err)
	}
	return values, nil
}
