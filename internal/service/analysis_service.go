package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"labinsight/internal/analysis"
	"labinsight/internal/config"
	"labinsight/internal/domain"
	"labinsight/internal/llm"
	"labinsight/internal/port"
	"labinsight/pkg/logger"
)

// AnalyzeInput is an uploaded document awaiting interpretation.
type AnalyzeInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AnalysisService defines the lab report interpretation contract.
type AnalysisService interface {
	Analyze(ctx context.Context, input AnalyzeInput) (*domain.Analysis, error)
}

type analysisService struct {
	extractor port.TextExtractor
	generator port.TextGenerator
	archive   ArchiveService
	uploadCfg *config.UploadConfig
	timeout   time.Duration
	now       func() time.Time
}

// NewAnalysisService creates a new AnalysisService implementation.
func NewAnalysisService(
	extractor port.TextExtractor,
	generator port.TextGenerator,
	archive ArchiveService,
	uploadCfg *config.UploadConfig,
	genCfg *config.GeneratorConfig,
) AnalysisService {
	return &analysisService{
		extractor: extractor,
		generator: generator,
		archive:   archive,
		uploadCfg: uploadCfg,
		timeout:   genCfg.PrimaryConfig().Timeout(),
		now:       time.Now,
	}
}

func (s *analysisService) Analyze(ctx context.Context, input AnalyzeInput) (*domain.Analysis, error) {
	if err := ValidateUpload(s.uploadCfg, input); err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx)
	start := s.now()
	id := uuid.New()
	log.Info("analysis started", "analysis_id", id, "filename", input.Filename, "bytes", len(input.Data))

	extracted, err := s.extractor.Extract(ctx, input.Data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, domain.ErrExtractionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	log.Info("text extracted", "analysis_id", id, "pages", extracted.PageCount, "chars", len(extracted.Text))

	generated, err := s.generate(ctx, analysis.BuildLabReportPrompt(extracted.Text))
	if err != nil {
		return nil, err
	}
	log.Info("generation completed", "analysis_id", id, "model", generated.ModelUsed,
		"input_tokens", generated.Usage.Input, "output_tokens", generated.Usage.Output, "total_tokens", generated.Usage.Total)

	outcome := analysis.Normalize(generated.Text)
	if outcome.Stage != domain.StageDirect || !outcome.Conformant {
		log.Warn("model output required recovery", "analysis_id", id,
			"stage", outcome.Stage, "conformant", outcome.Conformant, "raw_preview", llm.Truncate(generated.Text, 200))
	}

	result := &domain.Analysis{
		ID:             id,
		Filename:       input.Filename,
		Pages:          extracted.PageCount,
		ProcessingTime: s.now().Sub(start),
		Model:          generated.ModelUsed,
		Tokens:         generated.Usage,
		Stage:          outcome.Stage,
		Result:         outcome.Verdict.Result(),
	}
	s.archive.Record(ctx, result, input.Data)

	if _, err := analysis.Gate(outcome.Verdict); err != nil {
		log.Info("document rejected", "analysis_id", id, "reason", result.Result.ErrorMessage)
		return nil, err
	}

	log.Info("analysis completed", "analysis_id", id, "elapsed_ms", result.ProcessingTime.Milliseconds())
	return result, nil
}

// generate calls the generator under the configured deadline and classifies failures.
func (s *analysisService) generate(ctx context.Context, prompt string) (*port.GenerateOutput, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.generator.Generate(genCtx, port.GenerateInput{Prompt: prompt, JSONOutput: true})
	if err == nil {
		return out, nil
	}

	logger.WithContext(ctx).Error("generation failed", "error", err)

	var rlErr *llm.RateLimitError
	switch {
	case errors.As(err, &rlErr):
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationRateLimit, err)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(genCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %s", domain.ErrGenerationTimeout, s.timeout)
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
}
