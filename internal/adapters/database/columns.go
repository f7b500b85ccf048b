package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

const defaultBatchSize = 1000

var (
	categoricalColumns = []string{
		"year", "delivery_system", "provider_type", "age_group", "rendering_npi", "provider_legal_name",
	}
	countColumns = []string{
		"adv_user_cnt", "adv_svc_cnt", "prev_user_cnt", "prev_svc_cnt",
		"txmt_user_cnt", "txmt_svc_cnt", "exam_user_cnt", "exam_svc_cnt",
	}
	annotationColumns = []string{
		"adv_user_annotation_code", "adv_svc_annotation_code", "prev_user_annotation_code", "prev_svc_annotation_code",
		"txmt_user_annotation_code", "txmt_svc_annotation_code", "exam_user_annotation_code", "exam_svc_annotation_code",
	}
	derivedColumns = []string{
		"total_services", "services_per_user", "preventive_ratio", "treatment_ratio", "exam_ratio",
	}
	coverageColumns = []string{
		"preventive_coverage_pct", "treatment_coverage_pct", "exam_coverage_pct", "service_intensity",
	}
	totalsColumns = []string{
		"total_users", "total_services", "preventive_services", "treatment_services", "exam_services",
	}
	distributionColumns = []string{
		"preventive_services_pct", "treatment_services_pct", "exam_services_pct",
	}
)

// selectColumns flattens column groups into goqu select arguments.
func selectColumns(groups ...[]string) []interface{} {
	var out []interface{}
	for _, g := range groups {
		for _, c := range g {
			out = append(out, c)
		}
	}
	return out
}

// textDest scans a nullable text column into a plain string, NULL becoming "".
type textDest struct {
	dst *string
}

func (t textDest) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t.dst = ""
	case []byte:
		*t.dst = string(v)
	case string:
		*t.dst = v
	default:
		*t.dst = fmt.Sprint(v)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func putCategorical(rec goqu.Record, c entities.Categorical) {
	rec["year"] = nullable(c.Year)
	rec["delivery_system"] = nullable(c.DeliverySystem)
	rec["provider_type"] = nullable(c.ProviderType)
	rec["age_group"] = nullable(c.AgeGroup)
	rec["rendering_npi"] = nullable(c.RenderingNPI)
	rec["provider_legal_name"] = nullable(c.ProviderLegalName)
}

func categoricalDest(c *entities.Categorical) []interface{} {
	return []interface{}{
		textDest{&c.Year}, textDest{&c.DeliverySystem}, textDest{&c.ProviderType},
		textDest{&c.AgeGroup}, textDest{&c.RenderingNPI}, textDest{&c.ProviderLegalName},
	}
}

func countText(t *entities.ServiceCountText) []*string {
	return []*string{
		&t.AdvUsers, &t.AdvServices, &t.PrevUsers, &t.PrevServices,
		&t.TxmtUsers, &t.TxmtServices, &t.ExamUsers, &t.ExamServices,
	}
}

func annotationText(a *entities.AnnotationCodes) []*string {
	return []*string{
		&a.AdvUsers, &a.AdvServices, &a.PrevUsers, &a.PrevServices,
		&a.TxmtUsers, &a.TxmtServices, &a.ExamUsers, &a.ExamServices,
	}
}

func putText(rec goqu.Record, columns []string, values []*string, nullEmpty bool) {
	for i, col := range columns {
		if nullEmpty {
			rec[col] = nullable(*values[i])
			continue
		}
		rec[col] = *values[i]
	}
}

func textDests(values []*string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = textDest{v}
	}
	return out
}

func putDerived(rec goqu.Record, d entities.DerivedMetrics) {
	rec["total_services"] = d.TotalServices
	rec["services_per_user"] = d.ServicesPerUser
	rec["preventive_ratio"] = d.PreventiveRatio
	rec["treatment_ratio"] = d.TreatmentRatio
	rec["exam_ratio"] = d.ExamRatio
}

func derivedDest(d *entities.DerivedMetrics) []interface{} {
	return []interface{}{&d.TotalServices, &d.ServicesPerUser, &d.PreventiveRatio, &d.TreatmentRatio, &d.ExamRatio}
}

func putTotals(rec goqu.Record, t entities.ServiceTotals) {
	rec["total_users"] = t.TotalUsers
	rec["total_services"] = t.TotalServices
	rec["preventive_services"] = t.PreventiveServices
	rec["treatment_services"] = t.TreatmentServices
	rec["exam_services"] = t.ExamServices
}

func totalsDest(t *entities.ServiceTotals) []interface{} {
	return []interface{}{&t.TotalUsers, &t.TotalServices, &t.PreventiveServices, &t.TreatmentServices, &t.ExamServices}
}

func putDistribution(rec goqu.Record, d entities.ServiceDistribution) {
	rec["preventive_services_pct"] = d.PreventiveServicesPct
	rec["treatment_services_pct"] = d.TreatmentServicesPct
	rec["exam_services_pct"] = d.ExamServicesPct
}

func distributionDest(d *entities.ServiceDistribution) []interface{} {
	return []interface{}{&d.PreventiveServicesPct, &d.TreatmentServicesPct, &d.ExamServicesPct}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// replaceRows empties table and inserts rows in batches. Callers run it inside a transaction.
func replaceRows(ctx context.Context, ex execer, db *goqu.Database, table string, rows []goqu.Record, batchSize int) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	query, args, err := db.Delete(table).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to clear %s", table), err)
	}

	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		batch := make([]interface{}, 0, end-start)
		for _, r := range rows[start:end] {
			batch = append(batch, r)
		}

		query, args, err := db.Insert(table).Rows(batch...).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("failed to insert into %s", table), err)
		}
	}
	return nil
}
