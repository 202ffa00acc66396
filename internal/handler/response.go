package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"labinsight/internal/domain"
	"labinsight/internal/llm"
	"labinsight/pkg/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// APIResponse is the envelope for archive endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, detail string) {
	c.JSON(status, ErrorResponse{Detail: detail, Code: code})
}

// MapDomainError translates domain errors to HTTP status codes, error codes and
// client-facing detail text.
func MapDomainError(err error) (status int, code, detail string) {
	var rejected *domain.DocumentRejectedError
	switch {
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity, "DOCUMENT_REJECTED", rejected.Reason
	case errors.Is(err, domain.ErrMissingFile):
		return http.StatusBadRequest, "MISSING_FILE", "Debe adjuntar un archivo en el campo 'file'."
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "El archivo debe ser un PDF."
	case errors.Is(err, domain.ErrInvalidContentType):
		return http.StatusBadRequest, "INVALID_CONTENT_TYPE", "El tipo de contenido declarado no corresponde a un PDF."
	case errors.Is(err, domain.ErrFileTooSmall):
		return http.StatusBadRequest, "FILE_TOO_SMALL", "El archivo está vacío o es demasiado pequeño para ser un PDF válido."
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "El archivo excede el tamaño máximo permitido."
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, "INVALID_SIGNATURE", "El contenido del archivo no corresponde a un PDF válido."
	case errors.Is(err, domain.ErrGenerationRateLimit):
		return http.StatusServiceUnavailable, "GENERATION_RATE_LIMITED", "El servicio de análisis está saturado. Intente nuevamente más tarde."
	case errors.Is(err, domain.ErrGenerationTimeout):
		return http.StatusGatewayTimeout, "GENERATION_TIMEOUT", "El servicio de análisis tardó demasiado en responder."
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway, "GENERATION_FAILED", "No se pudo generar el análisis."
	case errors.Is(err, domain.ErrExtractionFailed):
		return http.StatusInternalServerError, "EXTRACTION_FAILED", "Error procesando PDF: " + err.Error()
	case errors.Is(err, domain.ErrAnalysisNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Análisis no encontrado."
	case errors.Is(err, domain.ErrArchiveUnavailable):
		return http.StatusNotFound, "ARCHIVE_DISABLED", "El archivo de análisis no está habilitado."
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Error procesando PDF."
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, detail := MapDomainError(err)
	log := logger.WithContext(c.Request.Context())
	if status >= 500 {
		log.Error("request failed", "status", status, "code", code, "error", err)
	} else {
		log.Info("request rejected", "status", status, "code", code, "error", err)
	}

	var rlErr *llm.RateLimitError
	if errors.As(err, &rlErr) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rlErr.RetryAfter.Seconds()))))
	}
	RespondError(c, status, code, detail)
}

// parsePagination extracts offset and limit from query params with defaults.
func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
