package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"labinsight/internal/domain"
	"labinsight/internal/handler"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing file", domain.ErrMissingFile, http.StatusBadRequest, "MISSING_FILE"},
		{"wrapped signature", fmt.Errorf("guard: %w", domain.ErrInvalidSignature), http.StatusBadRequest, "INVALID_SIGNATURE"},
		{"rate limited", domain.ErrGenerationRateLimit, http.StatusServiceUnavailable, "GENERATION_RATE_LIMITED"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"analysis not found", domain.ErrAnalysisNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"archive disabled", domain.ErrArchiveUnavailable, http.StatusNotFound, "ARCHIVE_DISABLED"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, detail := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, detail)
		})
	}
}

func TestMapDomainError_RejectionCarriesReason(t *testing.T) {
	err := fmt.Errorf("gate: %w", &domain.DocumentRejectedError{Reason: "Es una receta médica"})

	status, code, detail := handler.MapDomainError(err)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "DOCUMENT_REJECTED", code)
	assert.Equal(t, "Es una receta médica", detail)
}

func TestMapDomainError_ExtractionIncludesDiagnostic(t *testing.T) {
	err := fmt.Errorf("%w: xref table not found", domain.ErrExtractionFailed)

	_, _, detail := handler.MapDomainError(err)

	assert.Contains(t, detail, "Error procesando PDF: ")
	assert.Contains(t, detail, "xref table not found")
}

func TestMapDomainError_InternalHidesCause(t *testing.T) {
	_, _, detail := handler.MapDomainError(errors.New("secret dsn leaked"))

	assert.NotContains(t, detail, "secret")
}
