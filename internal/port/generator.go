package port

import (
	"context"

	"labinsight/internal/domain"
)

// GenerateInput carries the data needed for one text generation call.
type GenerateInput struct {
	Prompt string
	// JSONOutput asks the provider to constrain its output to JSON. It is a hint;
	// callers must not rely on the output being well formed.
	JSONOutput bool
}

// GenerateOutput contains the raw completion returned by a provider.
type GenerateOutput struct {
	Text      string
	ModelUsed string
	Usage     domain.TokenUsage
}

// TextGenerator abstracts an LLM text completion provider.
type TextGenerator interface {
	Generate(ctx context.Context, input GenerateInput) (*GenerateOutput, error)
}
