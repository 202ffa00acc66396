package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"labinsight/internal/config"
	"labinsight/internal/domain"
	"labinsight/internal/llm"
	"labinsight/internal/port"
)

const (
	apiURL       = "https://api.openai.com/v1/chat/completions"
	defaultModel = "gpt-4o"
	providerName = "openai"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (port.TextGenerator, error) {
		return NewGenerator(cfg), nil
	})
}

// Generator implements port.TextGenerator using the OpenAI Chat Completions API.
type Generator struct {
	apiKey     string
	model      string
	endpoint   string
	maxRetries int
	client     *http.Client
}

// NewGenerator creates an OpenAI-based text generator from a provider config.
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
		"model":                 g.model,
		"max_completion_tokens": 16384,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": input.Prompt,
			},
		},
	}
	if input.JSONOutput {
		reqBody["response_format"] = map[string]interface{}{
			"type": "json_object",
		}
	}

	body, err := llm.PostJSON(ctx, g.client, llm.Request{
		Provider:   providerName,
		Endpoint:   g.endpoint,
		Headers:    map[string]string{"Authorization": "Bearer " + g.apiKey},
		Body:       reqBody,
		MaxRetries: g.maxRetries,
	})
	if err != nil {
		return nil, err
	}

	return parseResponse(body, g.model)
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte, model string) (*port.GenerateOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	return &port.GenerateOutput{
		Text:      resp.Choices[0].Message.Content,
		ModelUsed: model,
		Usage: domain.TokenUsage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
			Total:  resp.Usage.TotalTokens,
		},
	}, nil
}
