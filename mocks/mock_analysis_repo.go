package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"labinsight/internal/domain"
)

// MockAnalysisRepo is a mock implementation of port.AnalysisRepository.
type MockAnalysisRepo struct {
	mock.Mock
}

func (m *MockAnalysisRepo) Create(ctx context.Context, record *domain.AnalysisRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAnalysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnalysisRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisRepo) List(ctx context.Context, offset, limit int) ([]domain.AnalysisRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.AnalysisRecord), args.Int(1), args.Error(2)
}

func (m *MockAnalysisRepo) ListAll(ctx context.Context) ([]domain.AnalysisRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AnalysisRecord), args.Error(1)
}

func (m *MockAnalysisRepo) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
