package omnirecall

import (
	"context"
	"fmt"

	"github.com/omnirecall/omnirecall/internal/domain"
)

// Embedder vectorizes a single text. Implementations return a nil or empty
// vector when the input cannot be embedded.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// embedderAdapter wraps the public Embedder to satisfy the internal
// status-coded contract.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
		}
		return domain.EmbeddingResult{Status: domain.EmbeddingError, Message: err.Error()}, nil
	}
	if len(vec) == 0 {
		return domain.EmbeddingResult{Status: domain.EmbeddingEmpty}, nil
	}
	return domain.EmbeddingResult{Vector: vec, Status: domain.EmbeddingSuccess}, nil
}

// noopEmbedder reports every input as unembeddable. Chunks are stored
// without vectors and recall falls back to keyword and recency scoring.
type noopEmbedder struct{}

func (noopEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Status: domain.EmbeddingNotSupported, Message: "no embedder configured"}, nil
}
