package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

// InsightsProvider turns a data summary into narrative analysis, typically through a hosted language model.
type InsightsProvider interface {
	GenerateInsights(ctx context.Context, summary *entities.DataSummary) (string, error)
}

// ErrInsightsUnauthorized is returned when the text generation service rejects the credentials
var ErrInsightsUnauthorized = errors.New("insights provider unauthorized")
