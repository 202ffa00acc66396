package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"labinsight/internal/domain"
	"labinsight/internal/export"
)

func sampleRecords() []domain.AnalysisRecord {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return []domain.AnalysisRecord{
		{
			ID:                      uuid.MustParse("11111111-1111-1111-1111-111111111111"),
			Filename:                "hemograma.pdf",
			FileSize:                20480,
			Pages:                   2,
			Model:                   "gemini-2.5-flash",
			Stage:                   "direct",
			IsValid:                 true,
			InterpretacionConceptos: "Hemoglobina normal",
			ResultadosSimplificados: "Todo bien",
			ResumenEjecutivo:        "Hemograma completo",
			InputTokens:             1200,
			OutputTokens:            400,
			ProcessingMS:            5321,
			CreatedAt:               created,
		},
		{
			ID:           uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			Filename:     "factura.pdf",
			Pages:        1,
			Stage:        "embedded",
			ErrorMessage: "Factura comercial",
			CreatedAt:    created,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, sampleRecords()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, export.BOM))

	rows, err := csv.NewReader(bytes.NewReader(data[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Columns(), rows[0])
	assert.Equal(t, "hemograma.pdf", rows[1][1])
	assert.Equal(t, "Yes", rows[1][6])
	assert.Equal(t, "5321", rows[1][13])
	assert.Equal(t, "2025-03-14T09:30:00Z", rows[1][14])
	assert.Equal(t, "No", rows[2][6])
	assert.Equal(t, "Factura comercial", rows[2][7])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteXLSX(t *testing.T) {
	data, err := export.WriteXLSX(sampleRecords())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Analyses")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", rows[1][0])
	assert.Equal(t, "Hemograma completo", rows[1][10])
	assert.Equal(t, "Factura comercial", rows[2][7])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "lab_analyses", export.SanitizeFilename("lab analyses!!"))
	assert.Equal(t, "a_b", export.SanitizeFilename("__a   b__"))
	assert.Len(t, export.SanitizeFilename(string(bytes.Repeat([]byte("x"), 150))), 100)
}

func TestBuildFilename(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "analyses_2025-01-02.xlsx", export.BuildFilename("analyses", "xlsx", now))
}
