package port

import (
	"context"

	"github.com/google/uuid"

	"labinsight/internal/domain"
)

// AnalysisRepository defines the contract for archived analysis persistence.
type AnalysisRepository interface {
	Create(ctx context.Context, record *domain.AnalysisRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AnalysisRecord, error)
	List(ctx context.Context, offset, limit int) ([]domain.AnalysisRecord, int, error)
	ListAll(ctx context.Context) ([]domain.AnalysisRecord, error)
	Ping(ctx context.Context) error
}
