package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labinsight/internal/config"
	"labinsight/internal/domain"
	"labinsight/internal/llm"
	"labinsight/internal/llm/openai"
	"labinsight/internal/port"
)

func newTestGenerator(serverURL string) *openai.Generator {
	return openai.NewGeneratorWithEndpoint(&config.ProviderConfig{
		Provider:    "openai",
		APIKey:      "test-openai-key",
		TimeoutSecs: 30,
	}, serverURL)
}

func TestOpenAIGenerator_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-openai-key", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-4o", reqBody["model"])
		format := reqBody["response_format"].(map[string]interface{})
		assert.Equal(t, "json_object", format["type"])

		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"content":"{\"isValid\":true}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}
		}`))
	}))
	defer server.Close()

	out, err := newTestGenerator(server.URL).Generate(context.Background(), port.GenerateInput{Prompt: "p", JSONOutput: true})

	require.NoError(t, err)
	assert.Equal(t, `{"isValid":true}`, out.Text)
	assert.Equal(t, "gpt-4o", out.ModelUsed)
	assert.Equal(t, domain.TokenUsage{Input: 10, Output: 5, Total: 15}, out.Usage)
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), port.GenerateInput{Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIGenerator_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{"},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), port.GenerateInput{Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "finish_reason: length")
}

func TestOpenAIGenerator_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), port.GenerateInput{Prompt: "p"})

	var rlErr *llm.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "openai", rlErr.Provider)
}
