// Package pdftext extracts plain text from PDF documents held in memory.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"labinsight/internal/domain"
	"labinsight/internal/port"
)

// Extractor implements port.TextExtractor with ledongthuc/pdf.
type Extractor struct{}

// NewExtractor creates a PDF text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text of every page in order, separated by newlines, and
// the document's page count. Pages whose text cannot be read are skipped.
func (e *Extractor) Extract(ctx context.Context, data []byte) (out *port.ExtractOutput, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrExtractionFailed)
	}

	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", domain.ErrExtractionFailed, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", domain.ErrExtractionFailed, err)
	}

	pageCount := r.NumPage()
	var text strings.Builder
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable pdf page", "page", i, "error", err)
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(strings.TrimSpace(pageText))
	}

	return &port.ExtractOutput{
		Text:      text.String(),
		PageCount: pageCount,
	}, nil
}
