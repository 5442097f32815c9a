package ingestion

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/omnirecall/omnirecall/internal/domain"
)

// embedTexts fans texts out to the embedding client with bounded
// concurrency, clamped to [1,8]. Results come back index-aligned with the
// input; a provider error degrades that index to an error-status result
// without aborting siblings. Cancellation aborts the whole batch.
func (s *Service) embedTexts(
	ctx context.Context, texts []string, contextID, operation string,
) ([]domain.EmbeddingResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	parallelism := min(max(s.opts.EmbeddingParallelism, 1), 8)
	results := make([]domain.EmbeddingResult, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.embedder.Embed(gctx, text)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("embedding generation failed",
					zap.String("operation", operation),
					zap.String("context_id", contextID),
					zap.Int("chunk_index", i),
					zap.Error(err),
				)
				results[i] = domain.EmbeddingResult{
					Status:  domain.EmbeddingError,
					Message: err.Error(),
				}
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
