// Package gemini provides chat and embedding clients for the Google
// Generative Language API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
	"github.com/omnirecall/omnirecall/internal/metrics"
)

const (
	chatProviderName = "gemini"
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultChatModel = "gemini-2.5-flash"
)

var defaultChatFallbackModels = []string{
	"gemini-2.5-flash-lite",
	"gemini-flash-latest",
	"gemini-flash-lite-latest",
}

// Config holds the Gemini API settings shared by chat and embedding clients.
type Config struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	ChatFallbackModels []string
	EmbeddingModel     string
	HTTPClient         *http.Client
	Logger             *zap.Logger
}

// Compile-time check: ChatClient implements domain.ChatClient.
var _ domain.ChatClient = (*ChatClient)(nil)

// ChatClient calls generateContent, failing over across a candidate model
// list when a model is rate limited or unavailable.
type ChatClient struct {
	apiKey  string
	baseURL string
	models  []string
	http    *http.Client
	logger  *zap.Logger
}

// NewChatClient creates a Gemini chat provider.
func NewChatClient(cfg *Config) *ChatClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	fallbacks := cfg.ChatFallbackModels
	if len(fallbacks) == 0 {
		fallbacks = defaultChatFallbackModels
	}
	models := make([]string, 0, 1+len(fallbacks))
	seen := make(map[string]struct{})
	for _, m := range append([]string{chatModel}, fallbacks...) {
		m = normalizeModel(m)
		if m == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(m)]; dup {
			continue
		}
		seen[strings.ToLower(m)] = struct{}{}
		models = append(models, m)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &ChatClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		models:  models,
		http:    httpClient,
		logger:  cfg.Logger,
	}
}

// ProviderName implements domain.ChatClient.
func (c *ChatClient) ProviderName() string { return chatProviderName }

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Complete implements domain.ChatClient. Each candidate model is tried in
// order; rate limits and unavailable models fail over to the next, other
// failures abort.
func (c *ChatClient) Complete(ctx context.Context, prompt string) (domain.ChatResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.ChatResponse{}, fmt.Errorf("gemini API key is not configured")
	}

	var lastErr error
	for _, model := range c.models {
		start := time.Now()
		text, status, body, err := c.generateContent(ctx, model, prompt)
		if err != nil {
			// Transport-level failure, let the router decide.
			return domain.ChatResponse{}, fmt.Errorf("gemini request for model %s: %w", model, err)
		}

		switch {
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("gemini model %s rate limited: %w", model, domain.ErrRateLimited)
			c.logger.Warn("gemini model rate limited, trying next candidate", zap.String("model", model))
			continue
		case status != http.StatusOK:
			lastErr = fmt.Errorf("gemini API returned %d for model %s: %s", status, model, body)
			if canFailover(status, body) {
				c.logger.Warn("gemini model failed, trying next candidate",
					zap.String("model", model),
					zap.Int("status", status),
				)
				continue
			}
			return domain.ChatResponse{}, lastErr
		}

		if strings.TrimSpace(text) == "" {
			return domain.ChatResponse{}, fmt.Errorf("gemini response without chat text: %w", domain.ErrEmptyResponse)
		}

		metrics.ChatRequestDuration.WithLabelValues(chatProviderName, model).Observe(time.Since(start).Seconds())
		return domain.ChatResponse{Text: text, Model: model, Provider: chatProviderName}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no gemini models available for chat")
	}
	return domain.ChatResponse{}, lastErr
}

func (c *ChatClient) generateContent(ctx context.Context, model, prompt string) (text string, status int, body string, err error) {
	reqURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, url.QueryEscape(c.apiKey))
	payload, err := json.Marshal(generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", 0, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, string(raw), nil
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", resp.StatusCode, string(raw), fmt.Errorf("decode response: %w", err)
	}
	for _, candidate := range parsed.Candidates {
		for _, p := range candidate.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text, resp.StatusCode, string(raw), nil
			}
		}
	}
	return "", resp.StatusCode, string(raw), nil
}

// canFailover reports whether a non-200 response is worth trying the next
// candidate model for: quota, availability, or routing problems rather than
// a broken request.
func canFailover(status int, body string) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	lower := strings.ToLower(body)
	for _, marker := range []string{"resource_exhausted", "quota", "rate", "not found", "unavailable"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func normalizeModel(model string) string {
	trimmed := strings.TrimSpace(model)
	return strings.TrimPrefix(trimmed, "models/")
}
