// Package openai provides a chat client for OpenAI-compatible inference
// APIs (GitHub Models).
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
	"github.com/omnirecall/omnirecall/internal/metrics"
)

const (
	providerName   = "github-models"
	defaultBaseURL = "https://models.github.ai/inference"
	defaultModel   = "deepseek/DeepSeek-V3-0324"
)

// Compile-time check: ChatClient implements domain.ChatClient.
var _ domain.ChatClient = (*ChatClient)(nil)

// ChatClient talks to an OpenAI-compatible chat completions API.
type ChatClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	Token   string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewChatClient creates an OpenAI-compatible chat provider.
func NewChatClient(cfg *Config) *ChatClient {
	clientCfg := openai.DefaultConfig(cfg.Token)
	if baseURL := strings.TrimSuffix(cfg.BaseURL, "/"); baseURL != "" {
		clientCfg.BaseURL = baseURL
	} else {
		clientCfg.BaseURL = defaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &ChatClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: cfg.Logger,
	}
}

// ProviderName implements domain.ChatClient.
func (c *ChatClient) ProviderName() string { return providerName }

// Complete implements domain.ChatClient. Rate limits surface as transient
// errors so the router retries; missing or blank content does not.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (domain.ChatResponse, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		return domain.ChatResponse{}, classifyAPIError(err)
	}

	text := extractContent(resp)
	if strings.TrimSpace(text) == "" {
		return domain.ChatResponse{}, fmt.Errorf("chat completion without text content: %w", domain.ErrEmptyResponse)
	}

	metrics.ChatRequestDuration.WithLabelValues(providerName, c.model).Observe(duration.Seconds())
	return domain.ChatResponse{
		Text:     text,
		Model:    c.model,
		Provider: providerName,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func extractContent(resp openai.ChatCompletionResponse) string {
	for _, choice := range resp.Choices {
		if choice.Message.Content != "" {
			return choice.Message.Content
		}
	}
	return ""
}

// classifyAPIError maps API failures onto the domain error taxonomy: 429 is
// a rate limit, 5xx is transient, everything else aborts the provider.
func classifyAPIError(err error) error {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		// Connection-level failure, let the net error drive transience.
		return fmt.Errorf("chat completion request: %w", err)
	}

	switch {
	case status == 429:
		return fmt.Errorf("chat API rate limited: %w", domain.ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("chat API error %d: %w", status, domain.ErrProviderTransient)
	default:
		return fmt.Errorf("chat API error %d: %w", status, err)
	}
}
