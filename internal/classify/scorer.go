package classify

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Scorer sends one batch prompt to the relevance-scoring service and
// returns the raw response text.
type Scorer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIScorer talks to any OpenAI-compatible chat-completions endpoint
// (DeepSeek in production).
type OpenAIScorer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIScorer builds a scorer from configuration.
func NewOpenAIScorer(cfg ScorerConfig) (*OpenAIScorer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("scoring service API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIScorer{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

// ScorerConfig describes the scoring endpoint.
type ScorerConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Complete performs a single chat completion with a per-request timeout.
func (s *OpenAIScorer) Complete(ctx context.Context, system, user string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
