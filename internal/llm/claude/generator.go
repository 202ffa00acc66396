package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"labinsight/internal/config"
	"labinsight/internal/domain"
	"labinsight/internal/llm"
	"labinsight/internal/port"
)

const (
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-sonnet-4-20250514"
	providerName = "claude"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (port.TextGenerator, error) {
		return NewGenerator(cfg), nil
	})
}

// Generator implements port.TextGenerator using the Anthropic Messages API.
type Generator struct {
	apiKey     string
	model      string
	endpoint   string
	maxRetries int
	client     *http.Client
}

// NewGenerator creates a Claude-based text generator from a provider config.
func NewGenerator(cfg *config.ProviderConfig) *Generator {
	return newGenerator(cfg, apiURL)
}

// NewGeneratorWithEndpoint creates a generator pointing at a custom API endpoint (for testing).
func NewGeneratorWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Generator {
	return newGenerator(cfg, endpoint)
}

func newGenerator(cfg *config.ProviderConfig, endpoint string) *Generator {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	return &Generator{
		apiKey:     cfg.APIKey,
		model:      model,
		endpoint:   endpoint,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: cfg.Timeout()},
	}
}

func (g *Generator) Generate(ctx context.Context, input port.GenerateInput) (*port.GenerateOutput, error) {
	reqBody := map[string]interface{}{
		"model":      g.model,
		"max_tokens": 16384,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": input.Prompt,
			},
		},
	}
	if input.JSONOutput {
		reqBody["system"] = "Respond with a single JSON object and nothing else."
	}

	body, err := llm.PostJSON(ctx, g.client, llm.Request{
		Provider: providerName,
		Endpoint: g.endpoint,
		Headers: map[string]string{
			"x-api-key":         g.apiKey,
			"anthropic-version": apiVersion,
		},
		Body:       reqBody,
		MaxRetries: g.maxRetries,
	})
	if err != nil {
		return nil, err
	}

	return parseResponse(body, g.model)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte, model string) (*port.GenerateOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	return &port.GenerateOutput{
		Text:      text.String(),
		ModelUsed: model,
		Usage: domain.TokenUsage{
			Input:  resp.Usage.InputTokens,
			Output: resp.Usage.OutputTokens,
			Total:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
