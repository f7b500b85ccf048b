package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

// TrustedAdapter implements TrustedRepository
type TrustedAdapter struct {
	client    *postgres.Client
	db        *goqu.Database
	batchSize int
}

// NewTrustedAdapter creates a new trusted layer adapter
func NewTrustedAdapter(client *postgres.Client, batchSize int) repositories.TrustedRepository {
	return &TrustedAdapter{
		client:    client,
		db:        goqu.New("postgres", client.DB()),
		batchSize: batchSize,
	}
}

func trustedRecord(t *entities.TrustedRecord) goqu.Record {
	rec := goqu.Record{}
	putCategorical(rec, t.Categorical)
	text := t.CountText
	putText(rec, countColumns, countText(&text), false)
	putDerived(rec, t.DerivedMetrics)
	return rec
}

// trustedDest returns scan targets in categorical, count, derived column order.
func trustedDest(t *entities.TrustedRecord) []interface{} {
	dest := categoricalDest(&t.Categorical)
	dest = append(dest, textDests(countText(&t.CountText))...)
	return append(dest, derivedDest(&t.DerivedMetrics)...)
}

// Replace swaps the trusted table contents in one transaction
func (a *TrustedAdapter) Replace(ctx context.Context, records []*entities.TrustedRecord) error {
	rows := make([]goqu.Record, 0, len(records))
	for _, t := range records {
		rows = append(rows, trustedRecord(t))
	}

	return a.client.WithTx(ctx, func(tx *sql.Tx) error {
		return replaceRows(ctx, tx, a.db, repositories.TableTrusted, rows, a.batchSize)
	})
}

// List returns every trusted row with its counts cast to decimal
func (a *TrustedAdapter) List(ctx context.Context) ([]*entities.TrustedRecord, error) {
	query, args, err := a.db.From(repositories.TableTrusted).
		Select(selectColumns(categoricalColumns, countColumns, derivedColumns)...).
		Order(goqu.C("rendering_npi").Asc(), goqu.C("delivery_system").Asc(), goqu.C("provider_type").Asc(), goqu.C("age_group").Asc(), goqu.C("year").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build trusted select query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query trusted rows", err)
	}
	defer rows.Close()

	var out []*entities.TrustedRecord
	for rows.Next() {
		t := &entities.TrustedRecord{}
		if err := rows.Scan(trustedDest(t)...); err != nil {
			return nil, apperrors.NewInternalError("failed to scan trusted row", err)
		}
		if t.Counts, err = t.CountText.Parse(); err != nil {
			return nil, apperrors.NewParseError(string(entities.StageRefined), "trusted row holds a non-numeric count", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate trusted rows", err)
	}
	return out, nil
}
