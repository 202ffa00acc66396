// Package export renders archived analyses as spreadsheet files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"labinsight/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

const sheetName = "Analyses"

var columns = []string{
	"ID",
	"Filename",
	"Pages",
	"File Size (bytes)",
	"Model",
	"Recovery Stage",
	"Valid",
	"Rejection Reason",
	"Technical Interpretation",
	"Simplified Results",
	"Executive Summary",
	"Input Tokens",
	"Output Tokens",
	"Processing (ms)",
	"Created At",
}

// Columns returns the header row shared by every export format.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

func recordToRow(r *domain.AnalysisRecord) []string {
	return []string{
		r.ID.String(),
		r.Filename,
		strconv.Itoa(r.Pages),
		strconv.FormatInt(r.FileSize, 10),
		r.Model,
		r.Stage,
		formatBool(r.IsValid),
		r.ErrorMessage,
		r.InterpretacionConceptos,
		r.ResultadosSimplificados,
		r.ResumenEjecutivo,
		strconv.Itoa(r.InputTokens),
		strconv.Itoa(r.OutputTokens),
		strconv.FormatInt(r.ProcessingMS, 10),
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// WriteCSV writes a BOM, the header row and one row per record.
func WriteCSV(w io.Writer, records []domain.AnalysisRecord) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(recordToRow(&records[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX returns a workbook with a single sheet holding the records.
func WriteXLSX(records []domain.AnalysisRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	write := func(row int, values []string) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := write(1, columns); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for i := range records {
		if err := write(i+2, recordToRow(&records[i])); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "B", 32)
	_ = f.SetColWidth(sheetName, "H", "K", 60)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces characters unsafe for Content-Disposition with _,
// collapses repeats and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {prefix}_{YYYY-MM-DD}.{ext} for an attachment.
func BuildFilename(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(prefix), now.Format("2006-01-02"), ext)
}
