// Package mocks holds testify mocks for the domain ports.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/repositories"
)

// MockSchemaRepository mocks repositories.SchemaRepository
type MockSchemaRepository struct {
	mock.Mock
}

// NewMockSchemaRepository creates a mock that asserts its expectations on cleanup
func NewMockSchemaRepository(t *testing.T) *MockSchemaRepository {
	m := &MockSchemaRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSchemaRepository) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSchemaRepository) TableStatus(ctx context.Context, table string) (bool, int64, error) {
	args := m.Called(ctx, table)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

// MockRawRepository mocks repositories.RawRepository
type MockRawRepository struct {
	mock.Mock
}

// NewMockRawRepository creates a mock that asserts its expectations on cleanup
func NewMockRawRepository(t *testing.T) *MockRawRepository {
	m := &MockRawRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRawRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRawRepository) Replace(ctx context.Context, records []*entities.RawRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockRawRepository) List(ctx context.Context) ([]*entities.RawRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RawRecord), args.Error(1)
}

// MockTrustedRepository mocks repositories.TrustedRepository
type MockTrustedRepository struct {
	mock.Mock
}

// NewMockTrustedRepository creates a mock that asserts its expectations on cleanup
func NewMockTrustedRepository(t *testing.T) *MockTrustedRepository {
	m := &MockTrustedRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTrustedRepository) Replace(ctx context.Context, records []*entities.TrustedRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockTrustedRepository) List(ctx context.Context) ([]*entities.TrustedRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TrustedRecord), args.Error(1)
}

// MockRefinedRepository mocks repositories.RefinedRepository
type MockRefinedRepository struct {
	mock.Mock
}

// NewMockRefinedRepository creates a mock that asserts its expectations on cleanup
func NewMockRefinedRepository(t *testing.T) *MockRefinedRepository {
	m := &MockRefinedRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRefinedRepository) ReplaceAll(ctx context.Context, tables *entities.RefinedTables) error {
	args := m.Called(ctx, tables)
	return args.Error(0)
}

func (m *MockRefinedRepository) ListDetails(ctx context.Context, filter repositories.DetailFilter) ([]*entities.RefinedDetailRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RefinedDetailRecord), args.Error(1)
}

func (m *MockRefinedRepository) ListProviders(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.ProviderSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProviderSummary), args.Error(1)
}

func (m *MockRefinedRepository) ListAgeGroups(ctx context.Context) ([]*entities.AgeGroupSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AgeGroupSummary), args.Error(1)
}

func (m *MockRefinedRepository) ListDeliverySystems(ctx context.Context) ([]*entities.DeliverySystemSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DeliverySystemSummary), args.Error(1)
}

func (m *MockRefinedRepository) FilterOptions(ctx context.Context) (*entities.FilterOptions, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.FilterOptions), args.Error(1)
}
