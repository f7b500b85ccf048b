package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
)

// MockCacheProvider mocks providers.CacheProvider
type MockCacheProvider struct {
	mock.Mock
}

// NewMockCacheProvider creates a mock that asserts its expectations on cleanup
func NewMockCacheProvider(t *testing.T) *MockCacheProvider {
	m := &MockCacheProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockInsightsProvider mocks providers.InsightsProvider
type MockInsightsProvider struct {
	mock.Mock
}

// NewMockInsightsProvider creates a mock that asserts its expectations on cleanup
func NewMockInsightsProvider(t *testing.T) *MockInsightsProvider {
	m := &MockInsightsProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockInsightsProvider) GenerateInsights(ctx context.Context, summary *entities.DataSummary) (string, error) {
	args := m.Called(ctx, summary)
	return args.String(0), args.Error(1)
}

// MockEventBus mocks providers.EventBus
type MockEventBus struct {
	mock.Mock
}

// NewMockEventBus creates a mock that asserts its expectations on cleanup
func NewMockEventBus(t *testing.T) *MockEventBus {
	m := &MockEventBus{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.LayerEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.LayerEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.LayerEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRecordSource mocks providers.RecordSource
type MockRecordSource struct {
	mock.Mock
}

// NewMockRecordSource creates a mock that asserts its expectations on cleanup
func NewMockRecordSource(t *testing.T) *MockRecordSource {
	m := &MockRecordSource{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRecordSource) ReadRecords(ctx context.Context, path string) ([]*entities.RawRecord, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RawRecord), args.Error(1)
}
