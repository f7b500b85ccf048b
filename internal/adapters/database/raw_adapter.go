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

// RawAdapter implements RawRepository
type RawAdapter struct {
	client    *postgres.Client
	db        *goqu.Database
	batchSize int
}

// NewRawAdapter creates a new raw layer adapter
func NewRawAdapter(client *postgres.Client, batchSize int) repositories.RawRepository {
	return &RawAdapter{
		client:    client,
		db:        goqu.New("postgres", client.DB()),
		batchSize: batchSize,
	}
}

// Count returns the number of imported rows
func (a *RawAdapter) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, a.client, a.db, repositories.TableRaw)
}

// Replace swaps the raw table contents in one transaction
func (a *RawAdapter) Replace(ctx context.Context, records []*entities.RawRecord) error {
	rows := make([]goqu.Record, 0, len(records))
	for _, r := range records {
		rec := goqu.Record{}
		putCategorical(rec, r.Categorical)
		putText(rec, countColumns, countText(&r.Counts), true)
		putText(rec, annotationColumns, annotationText(&r.Annotations), true)
		rows = append(rows, rec)
	}

	return a.client.WithTx(ctx, func(tx *sql.Tx) error {
		return replaceRows(ctx, tx, a.db, repositories.TableRaw, rows, a.batchSize)
	})
}

// List returns every raw row
func (a *RawAdapter) List(ctx context.Context) ([]*entities.RawRecord, error) {
	query, args, err := a.db.From(repositories.TableRaw).
		Select(selectColumns(categoricalColumns, countColumns, annotationColumns)...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build raw select query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query raw rows", err)
	}
	defer rows.Close()

	var out []*entities.RawRecord
	for rows.Next() {
		r := &entities.RawRecord{}
		dest := categoricalDest(&r.Categorical)
		dest = append(dest, textDests(countText(&r.Counts))...)
		dest = append(dest, textDests(annotationText(&r.Annotations))...)
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.NewInternalError("failed to scan raw row", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate raw rows", err)
	}
	return out, nil
}
