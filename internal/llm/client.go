package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RetryBackoff is the base delay between attempts; attempt n waits n*RetryBackoff.
var RetryBackoff = 500 * time.Millisecond

// Request describes one JSON POST to a provider API.
type Request struct {
	Provider   string
	Endpoint   string
	Headers    map[string]string
	Body       any
	MaxRetries int
}

// PostJSON sends req and returns the body of a 200 response. Transport errors
// and 5xx responses are retried up to MaxRetries times; 429 becomes a
// *RateLimitError and is never retried here.
func PostJSON(ctx context.Context, client *http.Client, req Request) ([]byte, error) {
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.WarnContext(ctx, "retrying generation request",
				"provider", req.Provider, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("calling %s API: %w", req.Provider, ctx.Err())
			case <-time.After(time.Duration(attempt) * RetryBackoff):
			}
		}

		body, err := post(ctx, client, req, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func post(ctx context.Context, client *http.Client, req Request, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s API: %w", req.Provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		baseErr := &StatusError{Provider: req.Provider, StatusCode: resp.StatusCode, Body: Truncate(string(respBody), 500)}
		retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return nil, NewRateLimitError(req.Provider, baseErr, retryAfter)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: req.Provider, StatusCode: resp.StatusCode, Body: Truncate(string(respBody), 500)}
	}
	return respBody, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	// Transport failures.
	return true
}
