package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
	"github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/dentalanalytics/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// SchemaAdapter implements SchemaRepository
type SchemaAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSchemaAdapter creates a new schema adapter
func NewSchemaAdapter(client *postgres.Client) repositories.SchemaRepository {
	return &SchemaAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// EnsureSchema creates every table and index. Safe to run repeatedly.
func (a *SchemaAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, schemaSQL); err != nil {
		return apperrors.NewStageError("schema", "failed to apply schema", err)
	}
	return nil
}

// TableStatus reports whether table exists and its row count.
func (a *SchemaAdapter) TableStatus(ctx context.Context, table string) (bool, int64, error) {
	query, args, err := a.db.Select(goqu.L("to_regclass(?) IS NOT NULL", table)).ToSQL()
	if err != nil {
		return false, 0, apperrors.NewInternalError("failed to build table lookup query", err)
	}

	var exists bool
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, 0, apperrors.NewInternalError(fmt.Sprintf("failed to look up table %s", table), err)
	}
	if !exists {
		return false, 0, nil
	}

	rows, err := countRows(ctx, a.client, a.db, table)
	if err != nil {
		return true, 0, err
	}
	return true, rows, nil
}

func countRows(ctx context.Context, client *postgres.Client, db *goqu.Database, table string) (int64, error) {
	query, args, err := db.From(table).Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int64
	if err := client.DB().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, apperrors.NewInternalError(fmt.Sprintf("failed to count rows in %s", table), err)
	}
	return count, nil
}
