package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	apperrors "petition-workers/internal/common/errors"
)

// OpenAIConfig configures OpenAIClient. BaseURL is optional and points the
// client at any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIClient completes prompts through the chat completions API in JSON mode.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

// Complete ignores payload; the prompt already carries the context.
func (o *OpenAIClient) Complete(ctx context.Context, system, user string, _ []byte) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature:    o.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	if o.cfg.MaxTokens > 0 {
		req.MaxCompletionTokens = o.cfg.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.NewGenerationTimeoutError(err)
		}
		return "", apperrors.NewGenerationFailedError(fmt.Errorf("openai chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewGenerationOutputInvalidError("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
