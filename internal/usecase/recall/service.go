// Package recall scores stored chunks against a query with a hybrid of
// vector similarity, keyword overlap, and recency.
package recall

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
)

const unknownFileName = "unknown"

// Options holds recall tuning knobs.
type Options struct {
	CandidateWindow int
	SnippetLength   int
}

// DefaultOptions returns the standard recall settings.
func DefaultOptions() Options {
	return Options{
		CandidateWindow: 300,
		SnippetLength:   180,
	}
}

// Result is a scored recall response.
type Result struct {
	Query     string            `json:"query"`
	Citations []domain.Citation `json:"citations"`
}

// Service ranks recent chunks against queries.
type Service struct {
	store    Store
	embedder domain.EmbeddingClient
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a recall service.
func New(store Store, embedder domain.EmbeddingClient, opts Options, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Search embeds the query, scores the most recent chunks with the hybrid
// blend, and returns the top citations. A failed or empty query embedding
// degrades to keyword-and-recency scoring rather than failing the search.
func (s *Service) Search(ctx context.Context, query string, topK int) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}

	candidates, err := s.store.GetRecentChunks(ctx, s.candidateWindow())
	if err != nil {
		return Result{}, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return Result{Query: query, Citations: []domain.Citation{}}, nil
	}

	queryVector := s.embedQuery(ctx, query)
	terms := keywordTerms(query)
	now := s.now().UTC()

	type scored struct {
		chunk domain.Chunk
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{
			chunk: c,
			score: hybridScore(
				cosineSimilarity(queryVector, c.Embedding),
				keywordScore(terms, c.Content),
				recencyScore(c.CreatedAt, now),
			),
		}
	}

	// Stable keeps the recency tie-break deterministic for equal scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].chunk.CreatedAt.After(ranked[j].chunk.CreatedAt)
	})

	if n := max(1, topK); len(ranked) > n {
		ranked = ranked[:n]
	}

	docIDs := make([]string, 0, len(ranked))
	for _, r := range ranked {
		docIDs = append(docIDs, r.chunk.DocumentID)
	}
	docs, err := s.store.GetDocumentsByIDs(ctx, docIDs)
	if err != nil {
		return Result{}, fmt.Errorf("resolve documents: %w", err)
	}

	citations := make([]domain.Citation, len(ranked))
	for i, r := range ranked {
		fileName := unknownFileName
		if doc, ok := docs[r.chunk.DocumentID]; ok {
			fileName = doc.FileName
		}
		citations[i] = domain.Citation{
			DocumentID: r.chunk.DocumentID,
			FileName:   fileName,
			ChunkID:    r.chunk.ID,
			ChunkIndex: r.chunk.ChunkIndex,
			Snippet:    domain.BuildSnippet(r.chunk.Content, s.snippetLength()),
			Score:      roundScore(r.score),
			CreatedAt:  r.chunk.CreatedAt,
		}
	}

	s.logger.Debug("recall search complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("citations", len(citations)),
	)
	return Result{Query: query, Citations: citations}, nil
}

// embedQuery returns the query vector, or nil when the provider fails or
// reports a degraded status. Recall still works on keyword and recency
// signals alone.
func (s *Service) embedQuery(ctx context.Context, query string) []float32 {
	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, falling back to keyword scoring", zap.Error(err))
		return nil
	}
	if res.Status != domain.EmbeddingSuccess || len(res.Vector) == 0 {
		s.logger.Warn("query embedding unavailable",
			zap.String("status", string(res.Status)),
			zap.String("message", res.Message),
		)
		return nil
	}
	return res.Vector
}

func (s *Service) candidateWindow() int {
	if s.opts.CandidateWindow > 0 {
		return s.opts.CandidateWindow
	}
	return DefaultOptions().CandidateWindow
}

func (s *Service) snippetLength() int {
	if s.opts.SnippetLength > 0 {
		return s.opts.SnippetLength
	}
	return DefaultOptions().SnippetLength
}
