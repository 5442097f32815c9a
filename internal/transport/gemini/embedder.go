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

var defaultEmbeddingModels = []string{"gemini-embedding-001", "embedding-001"}

// Compile-time check: Embedder implements domain.EmbeddingClient.
var _ domain.EmbeddingClient = (*Embedder)(nil)

// Embedder calls embedContent. Failures come back as status-coded results
// rather than errors: the ingestion pipeline treats them as degraded chunks,
// not fatal conditions.
type Embedder struct {
	apiKey  string
	baseURL string
	models  []string
	http    *http.Client
	logger  *zap.Logger
}

// NewEmbedder creates a Gemini embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	models := make([]string, 0, 1+len(defaultEmbeddingModels))
	if m := normalizeModel(cfg.EmbeddingModel); m != "" {
		models = append(models, m)
	}
	for _, m := range defaultEmbeddingModels {
		if !containsFold(models, m) {
			models = append(models, m)
		}
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Embedder{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		models:  models,
		http:    httpClient,
		logger:  cfg.Logger,
	}
}

type embedContentRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed implements domain.EmbeddingClient. A model missing embedContent
// support fails over to the next candidate; rate limits, auth rejections,
// and HTTP failures come back as statuses for the caller to count.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{Status: domain.EmbeddingEmpty, Message: "input text is empty"}, nil
	}
	if strings.TrimSpace(e.apiKey) == "" {
		return domain.EmbeddingResult{Status: domain.EmbeddingEmpty, Message: "gemini API key missing"}, nil
	}

	for _, model := range e.models {
		result, retryNext, err := e.embedWithModel(ctx, model, text)
		if err != nil {
			if ctx.Err() != nil {
				return domain.EmbeddingResult{}, ctx.Err()
			}
			e.logger.Warn("gemini embedding request failed, trying next model",
				zap.String("model", model),
				zap.Error(err),
			)
			continue
		}
		if retryNext {
			e.logger.Warn("gemini embedding model not available, trying next",
				zap.String("model", model),
			)
			continue
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(chatProviderName, model, string(result.Status)).Inc()
		return result, nil
	}

	e.logger.Warn("no compatible gemini embedding model found")
	return domain.EmbeddingResult{
		Status:  domain.EmbeddingNotSupported,
		Message: "no compatible gemini embedding model",
	}, nil
}

func (e *Embedder) embedWithModel(ctx context.Context, model, text string) (domain.EmbeddingResult, bool, error) {
	reqURL := fmt.Sprintf("%s/models/%s:embedContent?key=%s", e.baseURL, model, url.QueryEscape(e.apiKey))
	payload, err := json.Marshal(embedContentRequest{
		Model:   "models/" + model,
		Content: content{Parts: []part{{Text: text}}},
	})
	if err != nil {
		return domain.EmbeddingResult{}, false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return domain.EmbeddingResult{}, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		return domain.EmbeddingResult{}, false, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.EmbeddingResult{}, false, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return domain.EmbeddingResult{Status: domain.EmbeddingRateLimited, Model: model}, false, nil
	case http.StatusNotFound:
		return domain.EmbeddingResult{}, true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.EmbeddingResult{
			Status:  domain.EmbeddingError,
			Model:   model,
			Message: fmt.Sprintf("auth rejected: %d", resp.StatusCode),
		}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return domain.EmbeddingResult{
			Status:  domain.EmbeddingError,
			Model:   model,
			Message: fmt.Sprintf("HTTP %d", resp.StatusCode),
		}, false, nil
	}

	var parsed embedContentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.EmbeddingResult{
			Status:  domain.EmbeddingEmpty,
			Model:   model,
			Message: "malformed embedding response",
		}, false, nil
	}
	if len(parsed.Embedding.Values) == 0 {
		return domain.EmbeddingResult{
			Status:  domain.EmbeddingEmpty,
			Model:   model,
			Message: "missing embedding values",
		}, false, nil
	}

	metrics.EmbeddingRequestDuration.WithLabelValues(chatProviderName, model).Observe(time.Since(start).Seconds())
	return domain.EmbeddingResult{
		Vector: parsed.Embedding.Values,
		Status: domain.EmbeddingSuccess,
		Model:  model,
	}, false, nil
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
