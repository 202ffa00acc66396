package handler

import (
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labinsight/internal/domain"
	"labinsight/internal/service"
)

const successMessage = "PDF procesado correctamente"

// multipartOverhead is the allowance for form boundaries and headers on top of the file itself.
const multipartOverhead = 1 << 20

// UploadResponse is the body of a successful analysis.
type UploadResponse struct {
	Message        string                `json:"message"`
	AnalysisID     string                `json:"analysis_id"`
	Filename       string                `json:"filename"`
	Pages          int                   `json:"pages"`
	ProcessingTime float64               `json:"processing_time"`
	AnalysisResult domain.AnalysisResult `json:"analysis_result"`
	Model          string                `json:"model"`
	Tokens         domain.TokenUsage     `json:"tokens"`
}

// AnalysisHandler handles lab report uploads.
type AnalysisHandler struct {
	analysisService service.AnalysisService
	maxBytes        int64
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService, maxBytes int64) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService, maxBytes: maxBytes}
}

// Upload handles POST /upload-pdf
// @Summary      Interpret a lab report
// @Description  Validates a PDF lab report, extracts its text and returns a structured interpretation
// @Tags         analysis
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "PDF lab report"
// @Success      200 {object} UploadResponse
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Failure      504 {object} ErrorResponse
// @Router       /upload-pdf [post]
func (h *AnalysisHandler) Upload(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}

	part, err := h.filePart(c.Request)
	if err != nil {
		HandleError(c, err)
		return
	}
	defer func() { _ = part.Close() }()

	// One byte past the limit is enough for the size check to fail. The
	// remainder of an oversized part is left unread so the extension check
	// still runs first.
	data, err := io.ReadAll(io.LimitReader(part, h.maxBytes+1))
	if err != nil {
		if isBodyTooLarge(err) {
			HandleError(c, domain.ErrFileTooLarge)
			return
		}
		HandleError(c, err)
		return
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), service.AnalyzeInput{
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Message:        successMessage,
		AnalysisID:     result.ID.String(),
		Filename:       result.Filename,
		Pages:          result.Pages,
		ProcessingTime: math.Round(result.ProcessingTime.Seconds()*100) / 100,
		AnalysisResult: result.Result,
		Model:          result.Model,
		Tokens:         result.Tokens,
	})
}

// filePart streams the multipart body up to the "file" field.
func (h *AnalysisHandler) filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, domain.ErrMissingFile
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			if isBodyTooLarge(err) {
				return nil, domain.ErrFileTooLarge
			}
			return nil, domain.ErrMissingFile
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
