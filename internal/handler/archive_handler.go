package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"labinsight/internal/export"
	"labinsight/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ArchiveHandler serves archived analyses.
type ArchiveHandler struct {
	archive service.ArchiveService
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(archive service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

// List handles GET /api/v1/analyses
// @Summary      List archived analyses
// @Tags         archive
// @Produce      json
// @Param        offset query int false "Pagination offset" default(0)
// @Param        limit query int false "Pagination limit" default(20)
// @Success      200 {object} APIResponse{data=[]domain.AnalysisRecord,meta=PagMeta}
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/analyses [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	records, total, err := h.archive.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, records, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/analyses/:id
// @Summary      Get an archived analysis
// @Tags         archive
// @Produce      json
// @Param        id path string true "Analysis UUID"
// @Success      200 {object} APIResponse{data=service.AnalysisDetail}
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/analyses/{id} [get]
func (h *ArchiveHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "Identificador de análisis inválido.")
		return
	}

	detail, err := h.archive.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, detail)
}

// Export handles GET /api/v1/analyses/export?format=xlsx|csv
// @Summary      Export archived analyses
// @Tags         archive
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        format query string false "Export format" Enums(xlsx, csv) default(xlsx)
// @Success      200 {file} binary
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/analyses/export [get]
func (h *ArchiveHandler) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "xlsx"))

	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "xlsx":
		data, err = h.archive.ExportXLSX(c.Request.Context())
		contentType = xlsxContentType
	case "csv":
		data, err = h.archive.ExportCSV(c.Request.Context())
		contentType = "text/csv; charset=utf-8"
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "Formato no soportado; use xlsx o csv.")
		return
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename("lab_analyses", format, time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
