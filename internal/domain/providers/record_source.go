package providers

import (
	"context"

	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

// RecordSource reads the raw utilization file.
type RecordSource interface {
	ReadRecords(ctx context.Context, path string) ([]*entities.RawRecord, error)
}
