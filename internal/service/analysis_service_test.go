package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"labinsight/internal/analysis"
	"labinsight/internal/config"
	"labinsight/internal/domain"
	"labinsight/internal/llm"
	"labinsight/internal/port"
	"labinsight/internal/service"
	"labinsight/mocks"
)

type analysisFixture struct {
	extractor *mocks.MockTextExtractor
	generator *mocks.MockTextGenerator
	archive   *mocks.MockArchiveService
	svc       service.AnalysisService
}

func newAnalysisFixture(timeoutSecs int) *analysisFixture {
	f := &analysisFixture{
		extractor: new(mocks.MockTextExtractor),
		generator: new(mocks.MockTextGenerator),
		archive:   new(mocks.MockArchiveService),
	}
	genCfg := &config.GeneratorConfig{Provider: "gemini", APIKey: "k", TimeoutSecs: timeoutSecs}
	f.svc = service.NewAnalysisService(f.extractor, f.generator, f.archive, testUploadConfig(), genCfg)
	return f
}

func (f *analysisFixture) expectPipeline(data []byte, pages int, raw string) {
	f.extractor.On("Extract", mock.Anything, data).
		Return(&port.ExtractOutput{Text: "Paciente: Ana\nHemoglobina 13.5 g/dL", PageCount: pages}, nil)
	f.generator.On("Generate", mock.Anything, mock.MatchedBy(func(in port.GenerateInput) bool {
		return in.JSONOutput && bytes.Contains([]byte(in.Prompt), []byte("Hemoglobina 13.5 g/dL"))
	})).Return(&port.GenerateOutput{
		Text:      raw,
		ModelUsed: "gemini-2.5-flash",
		Usage:     domain.TokenUsage{Input: 900, Output: 300, Total: 1200},
	}, nil)
	f.archive.On("Record", mock.Anything, mock.AnythingOfType("*domain.Analysis"), data).Return()
}

func TestAnalysisService_ValidReport(t *testing.T) {
	f := newAnalysisFixture(5)
	data := pdfBytes(400)
	raw := `{"isValid":true,"errorMessage":"","interpretacionConceptos":"A","resultadosSimplificados":"B","resumenEjecutivo":"C"}`
	f.expectPipeline(data, 2, raw)

	result, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "lab.pdf", ContentType: "application/pdf", Data: data})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, "lab.pdf", result.Filename)
	assert.Equal(t, domain.AnalysisResult{
		IsValid:                 true,
		InterpretacionConceptos: "A",
		ResultadosSimplificados: "B",
		ResumenEjecutivo:        "C",
	}, result.Result)
	assert.Equal(t, domain.StageDirect, result.Stage)
	assert.Equal(t, "gemini-2.5-flash", result.Model)
	assert.Equal(t, 1200, result.Tokens.Total)
	assert.NotEqual(t, uuid.Nil, result.ID)
	f.archive.AssertCalled(t, "Record", mock.Anything, result, data)
}

func TestAnalysisService_FencedRejection(t *testing.T) {
	f := newAnalysisFixture(5)
	data := pdfBytes(400)
	raw := "```json\n{\"isValid\":false,\"errorMessage\":\"No contiene datos médicos\",\"interpretacionConceptos\":\"\",\"resultadosSimplificados\":\"\",\"resumenEjecutivo\":\"\"}\n```"
	f.expectPipeline(data, 1, raw)

	result, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "factura.pdf", Data: data})

	assert.Nil(t, result)
	var rejected *domain.DocumentRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "No contiene datos médicos", rejected.Reason)
	// Rejections are archived too.
	f.archive.AssertNumberOfCalls(t, "Record", 1)
}

func TestAnalysisService_ProseFallback(t *testing.T) {
	f := newAnalysisFixture(5)
	data := pdfBytes(400)
	f.expectPipeline(data, 1, "Lo siento, no puedo procesar esto.")

	result, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	require.NoError(t, err)
	assert.True(t, result.Result.IsValid)
	assert.Contains(t, result.Result.ResultadosSimplificados, "Lo siento, no puedo procesar esto.")
	assert.Equal(t, analysis.FallbackSummaryNotice, result.Result.ResumenEjecutivo)
	assert.Equal(t, domain.StageFallback, result.Stage)
}

func TestAnalysisService_GuardRunsBeforeCollaborators(t *testing.T) {
	f := newAnalysisFixture(5)
	data := bytes.Repeat([]byte("A"), 50)

	_, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	require.Error(t, err)
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	f.archive.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalysisService_BadSignatureRejectedBeforeCollaborators(t *testing.T) {
	f := newAnalysisFixture(5)
	data := bytes.Repeat([]byte("A"), 500)

	_, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAnalysisService_ExtractionFailure(t *testing.T) {
	f := newAnalysisFixture(5)
	data := pdfBytes(400)
	f.extractor.On("Extract", mock.Anything, data).Return(nil, errors.New("xref table broken"))

	_, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "xref table broken")
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAnalysisService_CancelledDuringExtraction(t *testing.T) {
	f := newAnalysisFixture(5)
	data := pdfBytes(400)
	ctx, cancel := context.WithCancel(context.Background())
	f.extractor.On("Extract", mock.Anything, data).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	result, err := f.svc.Analyze(ctx, service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrExtractionFailed)
	f.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	f.archive.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalysisService_GenerationFailure(t *testing.T) {
	f := newAnalysisFixture(5)
	data := pdfBytes(400)
	f.extractor.On("Extract", mock.Anything, data).Return(&port.ExtractOutput{Text: "x", PageCount: 1}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	f.archive.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalysisService_GenerationRateLimited(t *testing.T) {
	f := newAnalysisFixture(5)
	data := pdfBytes(400)
	f.extractor.On("Extract", mock.Anything, data).Return(&port.ExtractOutput{Text: "x", PageCount: 1}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Return(nil, llm.NewRateLimitError("gemini", errors.New("429"), 42))

	_, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	assert.ErrorIs(t, err, domain.ErrGenerationRateLimit)
	var rlErr *llm.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "gemini", rlErr.Provider)
}

func TestAnalysisService_GenerationTimeout(t *testing.T) {
	f := newAnalysisFixture(1)
	data := pdfBytes(400)
	f.extractor.On("Extract", mock.Anything, data).Return(&port.ExtractOutput{Text: "x", PageCount: 1}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	_, err := f.svc.Analyze(context.Background(), service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	assert.ErrorIs(t, err, domain.ErrGenerationTimeout)
}

func TestAnalysisService_CallerCancelled(t *testing.T) {
	f := newAnalysisFixture(5)
	data := pdfBytes(400)
	ctx, cancel := context.WithCancel(context.Background())
	f.extractor.On("Extract", mock.Anything, data).Return(&port.ExtractOutput{Text: "x", PageCount: 1}, nil)
	f.generator.On("Generate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	result, err := f.svc.Analyze(ctx, service.AnalyzeInput{Filename: "lab.pdf", Data: data})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrGenerationTimeout)
}
