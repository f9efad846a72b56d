package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "petition-workers/internal/common/errors"
)

// Completer turns a system and user prompt into raw model text.
type Completer interface {
	Complete(ctx context.Context, system, user string, payload []byte) (string, error)
}

// HTTPConfig configures HTTPClient.
type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	MaxRetries  int
	MaxTokens   int
	Temperature float32
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

// HTTPClient posts prompts to a generic JSON generation endpoint
// (POST {BaseURL}/api/ai/generate, response {"text": "..."}).
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPClient relies on the caller's context for timeouts.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Backoff == 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	return &HTTPClient{cfg: cfg, client: &http.Client{}}
}

type generateRequest struct {
	System      string          `json:"system"`
	Prompt      string          `json:"prompt"`
	Context     json.RawMessage `json:"context,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature"`
	Format      string          `json:"format"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// errRetryable marks failures worth another attempt (transport errors, 429, 5xx).
var errRetryable = errors.New("retryable")

func (c *HTTPClient) Complete(ctx context.Context, system, user string, payload []byte) (string, error) {
	body, err := json.Marshal(generateRequest{
		System:      system,
		Prompt:      user,
		Context:     payload,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Format:      "json",
	})
	if err != nil {
		return "", apperrors.NewGenerationFailedError(err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.Backoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", apperrors.NewGenerationTimeoutError(ctx.Err())
			}
		}

		text, err := c.do(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", apperrors.NewGenerationTimeoutError(ctx.Err())
		}
		if !errors.Is(err, errRetryable) {
			break
		}
	}
	return "", apperrors.NewGenerationFailedError(lastErr)
}

func (c *HTTPClient) do(ctx context.Context, body []byte) (string, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/ai/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: %v", errRetryable, err)
		}
		return "", err
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Text, nil
}
