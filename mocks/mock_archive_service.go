package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"labinsight/internal/domain"
	"labinsight/internal/service"
)

// MockArchiveService is a mock implementation of service.ArchiveService.
type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) Record(ctx context.Context, a *domain.Analysis, source []byte) {
	m.Called(ctx, a, source)
}

func (m *MockArchiveService) List(ctx context.Context, offset, limit int) ([]domain.AnalysisRecord, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.AnalysisRecord), args.Int(1), args.Error(2)
}

func (m *MockArchiveService) Get(ctx context.Context, id uuid.UUID) (*service.AnalysisDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnalysisDetail), args.Error(1)
}

func (m *MockArchiveService) ExportXLSX(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArchiveService) ExportCSV(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArchiveService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
