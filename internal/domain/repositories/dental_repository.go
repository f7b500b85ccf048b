package repositories

import (
	"context"

	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

// Table names of every layer.
const (
	TableRaw                   = "raw_dental"
	TableTrusted               = "trusted_dental"
	TableRefinedDetail         = "refined_dental"
	TableProviderSummary       = "refined_provider_summary"
	TableAgeGroupSummary       = "refined_age_group_summary"
	TableDeliverySystemSummary = "refined_delivery_system_summary"
)

// SchemaRepository owns the DDL for all layers.
type SchemaRepository interface {
	// EnsureSchema creates every table and index that does not exist yet
	EnsureSchema(ctx context.Context) error

	// TableStatus reports whether a table exists and how many rows it holds
	TableStatus(ctx context.Context, table string) (exists bool, rows int64, err error)
}

// RawRepository stores the imported file as-is.
type RawRepository interface {
	Count(ctx context.Context) (int64, error)

	// Replace swaps the table contents for records in one transaction
	Replace(ctx context.Context, records []*entities.RawRecord) error

	List(ctx context.Context) ([]*entities.RawRecord, error)
}

// TrustedRepository stores normalized rows.
type TrustedRepository interface {
	Replace(ctx context.Context, records []*entities.TrustedRecord) error
	List(ctx context.Context) ([]*entities.TrustedRecord, error)
}

// ProviderOrder selects the ranking used when listing provider summaries.
type ProviderOrder string

const (
	ProviderOrderVolume     ProviderOrder = "volume"
	ProviderOrderEfficiency ProviderOrder = "efficiency"
)

// ProviderFilter narrows and orders provider summaries.
type ProviderFilter struct {
	Order     ProviderOrder
	Ascending bool
	Limit     int
}

// DetailFilter narrows refined detail rows.
type DetailFilter struct {
	entities.DashboardFilter
	Limit  int
	Offset int
}

// RefinedRepository stores and serves the refined layer.
type RefinedRepository interface {
	// ReplaceAll rebuilds all four refined tables in one transaction
	ReplaceAll(ctx context.Context, tables *entities.RefinedTables) error

	ListDetails(ctx context.Context, filter DetailFilter) ([]*entities.RefinedDetailRecord, error)
	ListProviders(ctx context.Context, filter ProviderFilter) ([]*entities.ProviderSummary, error)
	ListAgeGroups(ctx context.Context) ([]*entities.AgeGroupSummary, error)
	ListDeliverySystems(ctx context.Context) ([]*entities.DeliverySystemSummary, error)

	// FilterOptions returns the distinct dimension values found in the detail table
	FilterOptions(ctx context.Context) (*entities.FilterOptions, error)
}
