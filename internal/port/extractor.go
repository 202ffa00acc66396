package port

import "context"

// ExtractOutput is the plain text of a document and its page count.
type ExtractOutput struct {
	Text      string
	PageCount int
}

// TextExtractor converts document bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (*ExtractOutput, error)
}
