package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"labinsight/internal/domain"
	"labinsight/internal/port"
)

type analysisRepo struct {
	db *sqlx.DB
}

// NewAnalysisRepo creates a new PostgreSQL-backed AnalysisRepository.
func NewAnalysisRepo(db *sqlx.DB) port.AnalysisRepository {
	return &analysisRepo{db: db}
}

func (r *analysisRepo) Create(ctx context.Context, rec *domain.AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO analyses
		(id, filename, file_size, pages, model, recovery_stage, is_valid, error_message,
		 interpretacion_conceptos, resultados_simplificados, resumen_ejecutivo,
		 input_tokens, output_tokens, processing_ms, s3_bucket, s3_key, created_at)
		VALUES (:id, :filename, :file_size, :pages, :model, :recovery_stage, :is_valid, :error_message,
		 :interpretacion_conceptos, :resultados_simplificados, :resumen_ejecutivo,
		 :input_tokens, :output_tokens, :processing_ms, :s3_bucket, :s3_key, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("analysisRepo.Create: %w", err)
	}
	return nil
}

func (r *analysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	err := r.db.GetContext(ctx, &rec, "SELECT * FROM analyses WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("analysisRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *analysisRepo) List(ctx context.Context, offset, limit int) ([]domain.AnalysisRecord, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM analyses"); err != nil {
		return nil, 0, fmt.Errorf("analysisRepo.List count: %w", err)
	}

	records := []domain.AnalysisRecord{}
	err := r.db.SelectContext(ctx, &records,
		"SELECT * FROM analyses ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("analysisRepo.List: %w", err)
	}
	return records, total, nil
}

func (r *analysisRepo) ListAll(ctx context.Context) ([]domain.AnalysisRecord, error) {
	records := []domain.AnalysisRecord{}
	if err := r.db.SelectContext(ctx, &records, "SELECT * FROM analyses ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("analysisRepo.ListAll: %w", err)
	}
	return records, nil
}

func (r *analysisRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
