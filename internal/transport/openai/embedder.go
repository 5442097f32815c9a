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

const defaultEmbeddingModel = "text-embedding-3-small"

// Compile-time check: Embedder implements domain.EmbeddingClient.
var _ domain.EmbeddingClient = (*Embedder)(nil)

// Embedder vectorizes text through an OpenAI-compatible embeddings API.
// Failures come back as status-coded results, not errors: the ingestion
// pipeline counts them as degraded chunks.
type Embedder struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider. cfg.Model
// names the embedding model.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.Token)
	if baseURL := strings.TrimSuffix(cfg.BaseURL, "/"); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: cfg.Logger,
	}
}

// Embed implements domain.EmbeddingClient.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{Status: domain.EmbeddingEmpty, Message: "blank input"}, nil
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("create embeddings: %w", err)
		}
		result := classifyEmbedError(err)
		result.Model = e.model
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, string(result.Status)).Inc()
		return result, nil
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, string(domain.EmbeddingEmpty)).Inc()
		return domain.EmbeddingResult{
			Status:  domain.EmbeddingEmpty,
			Model:   e.model,
			Message: "missing embedding values",
		}, nil
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, string(domain.EmbeddingSuccess)).Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())

	return domain.EmbeddingResult{
		Vector: resp.Data[0].Embedding,
		Status: domain.EmbeddingSuccess,
		Model:  e.model,
	}, nil
}

// classifyEmbedError maps an API failure onto an embedding status: 429 is a
// rate limit, auth rejections and everything else are plain errors.
func classifyEmbedError(err error) domain.EmbeddingResult {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == 429:
		return domain.EmbeddingResult{Status: domain.EmbeddingRateLimited, Message: "rate limited"}
	case status == 401 || status == 403:
		return domain.EmbeddingResult{
			Status:  domain.EmbeddingError,
			Message: fmt.Sprintf("auth rejected: %d", status),
		}
	case status > 0:
		return domain.EmbeddingResult{
			Status:  domain.EmbeddingError,
			Message: fmt.Sprintf("HTTP %d", status),
		}
	default:
		return domain.EmbeddingResult{Status: domain.EmbeddingError, Message: err.Error()}
	}
}
