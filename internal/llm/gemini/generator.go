package gemini

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
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel = "gemini-2.5-flash"
	providerName = "gemini"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (port.TextGenerator, error) {
		return NewGenerator(cfg), nil
	})
}

// Generator implements port.TextGenerator using Google's Gemini API.
type Generator struct {
	apiKey     string
	model      string
	endpoint   string
	maxRetries int
	client     *http.Client
}

// NewGenerator creates a Gemini-based text generator.
func NewGenerator(cfg *config.ProviderConfig) *Generator {
	return newGenerator(cfg, "")
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
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
	genConfig := map[string]interface{}{
		"maxOutputTokens": 16384,
	}
	if input.JSONOutput {
		genConfig["responseMimeType"] = "application/json"
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": input.Prompt},
				},
			},
		},
		"generationConfig": genConfig,
	}

	body, err := llm.PostJSON(ctx, g.client, llm.Request{
		Provider:   providerName,
		Endpoint:   g.endpoint,
		Headers:    map[string]string{"x-goog-api-key": g.apiKey},
		Body:       reqBody,
		MaxRetries: g.maxRetries,
	})
	if err != nil {
		return nil, err
	}

	return parseResponse(body, g.model)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func parseResponse(body []byte, model string) (*port.GenerateOutput, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from API: no candidates")
	}

	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty response from API: no parts (finish reason %q)", resp.Candidates[0].FinishReason)
	}

	var text strings.Builder
	for _, p := range parts {
		text.WriteString(p.Text)
	}

	return &port.GenerateOutput{
		Text:      text.String(),
		ModelUsed: model,
		Usage: domain.TokenUsage{
			Input:  resp.UsageMetadata.PromptTokenCount,
			Output: resp.UsageMetadata.CandidatesTokenCount,
			Total:  resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
