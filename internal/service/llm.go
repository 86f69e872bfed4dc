package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/config"
)

// ErrLLMDisabled is returned when no API key is configured.
var ErrLLMDisabled = errors.New("llm client disabled: no API key configured")

// Completer is the opaque language-model capability: prompt in, text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIClient(cfg *config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	if cfg.APIKey == "" {
		logger.Warn("LLM API key not configured, reasoning disabled")
		return &OpenAIClient{model: cfg.Model, logger: logger}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", ErrLLMDisabled
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
