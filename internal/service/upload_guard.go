package service

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"

	"labinsight/internal/config"
	"labinsight/internal/domain"
)

// ValidateUpload applies the upload checks in order: extension, declared
// content type (when present), size bounds and magic signature. It inspects
// only the input and never touches a collaborator.
func ValidateUpload(cfg *config.UploadConfig, input AnalyzeInput) error {
	if !strings.EqualFold(filepath.Ext(input.Filename), cfg.AllowedExtension) {
		return domain.ErrUnsupportedFileType
	}

	if input.ContentType != "" && cfg.ContentType != "" {
		mediaType, _, err := mime.ParseMediaType(input.ContentType)
		if err != nil || !strings.EqualFold(mediaType, cfg.ContentType) {
			return domain.ErrInvalidContentType
		}
	}

	size := int64(len(input.Data))
	if size == 0 || size < cfg.MinFileSizeBytes {
		return domain.ErrFileTooSmall
	}
	if size > cfg.MaxBytes() {
		return domain.ErrFileTooLarge
	}

	if !bytes.HasPrefix(input.Data, []byte(cfg.MagicSignature)) {
		return domain.ErrInvalidSignature
	}
	return nil
}
