package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrMissingFile         = errors.New("file field is required")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInvalidContentType  = errors.New("declared content type is not accepted")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrFileTooSmall        = errors.New("file is empty or below minimum size")
	ErrInvalidSignature    = errors.New("file signature does not match expected format")
	ErrExtractionFailed    = errors.New("text extraction failed")
	ErrGenerationFailed    = errors.New("generation request failed")
	ErrGenerationTimeout   = errors.New("generation request timed out")
	ErrGenerationRateLimit = errors.New("generation provider rate limited")
	ErrAnalysisNotFound    = errors.New("analysis not found")
	ErrArchiveUnavailable  = errors.New("analysis archive is not enabled")
	ErrStorageUploadFailed = errors.New("source upload to storage failed")
)

// DocumentRejectedError reports that an uploaded document was judged not to be
// a clinical lab report. It is a client-facing outcome, not a processing failure.
type DocumentRejectedError struct {
	Reason string
}

func (e *DocumentRejectedError) Error() string {
	return fmt.Sprintf("document rejected: %s", e.Reason)
}
