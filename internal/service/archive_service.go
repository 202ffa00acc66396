package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"labinsight/internal/config"
	"labinsight/internal/domain"
	"labinsight/internal/export"
	"labinsight/internal/port"
	"labinsight/pkg/logger"
)

const archiveWriteTimeout = 15 * time.Second

// AnalysisDetail is an archived analysis with a temporary link to its source document.
type AnalysisDetail struct {
	domain.AnalysisRecord
	SourceURL string `json:"source_url,omitempty"`
}

// ArchiveService records completed analyses and serves them back.
type ArchiveService interface {
	// Record stores an analysis. Failures are logged and never returned.
	Record(ctx context.Context, a *domain.Analysis, source []byte)
	List(ctx context.Context, offset, limit int) ([]domain.AnalysisRecord, int, error)
	Get(ctx context.Context, id uuid.UUID) (*AnalysisDetail, error)
	ExportXLSX(ctx context.Context) ([]byte, error)
	ExportCSV(ctx context.Context) ([]byte, error)
	Ping(ctx context.Context) error
}

type archiveService struct {
	repo    port.AnalysisRepository
	storage port.ObjectStorage
	s3Cfg   *config.S3Config
	now     func() time.Time
}

// NewArchiveService creates an ArchiveService backed by a repository. storage
// may be nil, in which case source documents are not kept.
func NewArchiveService(repo port.AnalysisRepository, storage port.ObjectStorage, s3Cfg *config.S3Config) ArchiveService {
	return &archiveService{
		repo:    repo,
		storage: storage,
		s3Cfg:   s3Cfg,
		now:     time.Now,
	}
}

func (s *archiveService) Record(ctx context.Context, a *domain.Analysis, source []byte) {
	log := logger.WithContext(ctx)
	// Archiving outlives a client that disconnects after the verdict.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveWriteTimeout)
	defer cancel()

	rec := &domain.AnalysisRecord{
		ID:                      a.ID,
		Filename:                a.Filename,
		FileSize:                int64(len(source)),
		Pages:                   a.Pages,
		Model:                   a.Model,
		Stage:                   string(a.Stage),
		IsValid:                 a.Result.IsValid,
		ErrorMessage:            a.Result.ErrorMessage,
		InterpretacionConceptos: a.Result.InterpretacionConceptos,
		ResultadosSimplificados: a.Result.ResultadosSimplificados,
		ResumenEjecutivo:        a.Result.ResumenEjecutivo,
		InputTokens:             a.Tokens.Input,
		OutputTokens:            a.Tokens.Output,
		ProcessingMS:            a.ProcessingTime.Milliseconds(),
		CreatedAt:               s.now().UTC(),
	}

	if s.storage != nil && s.s3Cfg != nil && s.s3Cfg.Bucket != "" {
		key := sourceKey(a.ID, a.Filename)
		_, err := s.storage.Upload(ctx, port.UploadInput{
			Bucket:      s.s3Cfg.Bucket,
			Key:         key,
			Body:        bytes.NewReader(source),
			ContentType: "application/pdf",
			Size:        int64(len(source)),
		})
		if err != nil {
			log.Warn("archiving source document failed", "analysis_id", a.ID, "error", fmt.Errorf("%w: %w", domain.ErrStorageUploadFailed, err))
		} else {
			rec.S3Bucket = s.s3Cfg.Bucket
			rec.S3Key = key
		}
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		log.Warn("archiving analysis failed", "analysis_id", a.ID, "error", err)
		return
	}
	log.Info("analysis archived", "analysis_id", a.ID, "source_key", rec.S3Key)
}

// sourceKey returns analyses/<id>/<sanitized name>.pdf.
func sourceKey(id uuid.UUID, filename string) string {
	base := export.SanitizeFilename(strings.TrimSuffix(filename, filepath.Ext(filename)))
	if base == "" {
		base = "document"
	}
	return path.Join("analyses", id.String(), base+".pdf")
}

func (s *archiveService) List(ctx context.Context, offset, limit int) ([]domain.AnalysisRecord, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *archiveService) Get(ctx context.Context, id uuid.UUID) (*AnalysisDetail, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAnalysisNotFound
		}
		return nil, err
	}

	detail := &AnalysisDetail{AnalysisRecord: *rec}
	if s.storage != nil && rec.S3Key != "" {
		url, err := s.storage.GetPresignedURL(ctx, rec.S3Bucket, rec.S3Key, s.s3Cfg.PresignExpiry)
		if err != nil {
			logger.WithContext(ctx).Warn("presigning source document failed", "analysis_id", id, "error", err)
		} else {
			detail.SourceURL = url
		}
	}
	return detail, nil
}

func (s *archiveService) ExportXLSX(ctx context.Context) ([]byte, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return export.WriteXLSX(records)
}

func (s *archiveService) ExportCSV(ctx context.Context) ([]byte, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *archiveService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// noopArchive is wired when archiving is disabled.
type noopArchive struct{}

// NewNoopArchive returns an ArchiveService that stores nothing.
func NewNoopArchive() ArchiveService {
	return noopArchive{}
}

func (noopArchive) Record(context.Context, *domain.Analysis, []byte) {}

func (noopArchive) List(context.Context, int, int) ([]domain.AnalysisRecord, int, error) {
	return []domain.AnalysisRecord{}, 0, nil
}

func (noopArchive) Get(context.Context, uuid.UUID) (*AnalysisDetail, error) {
	return nil, domain.ErrAnalysisNotFound
}

func (noopArchive) ExportXLSX(context.Context) ([]byte, error) {
	return nil, domain.ErrArchiveUnavailable
}

func (noopArchive) ExportCSV(context.Context) ([]byte, error) {
	return nil, domain.ErrArchiveUnavailable
}

func (noopArchive) Ping(context.Context) error {
	return nil
}
