// Package chat grounds chat completions in recalled evidence and routes
// them across providers with retry and fallback.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
)

// QualityOptions controls the evidence gate and degraded-answer behavior.
type QualityOptions struct {
	MinCitationCount               int
	MinStrongCitationScore         float64
	InsufficientEvidenceMessage    string
	EnableRecallOnlyFallback       bool
	RecallOnlyFallbackMaxCitations int
	RecallOnlyFallbackMessage      string
}

// DefaultQualityOptions returns the standard quality settings. The
// recall-only fallback stays off unless explicitly enabled.
func DefaultQualityOptions() QualityOptions {
	return QualityOptions{
		MinCitationCount:               1,
		MinStrongCitationScore:         0.25,
		InsufficientEvidenceMessage:    "Insufficient evidence in current indexed snippets. Try uploading more relevant documents or increasing TopK.",
		EnableRecallOnlyFallback:       false,
		RecallOnlyFallbackMaxCitations: 4,
		RecallOnlyFallbackMessage:      "AI providers are temporarily unavailable on free tier. Returning retrieval-only answer from indexed snippets.",
	}
}

// Service orchestrates recall, the evidence gate, grounded prompting, and
// answer post-processing.
type Service struct {
	recaller Recaller
	router   *Router
	opts     QualityOptions
	logger   *zap.Logger
}

// New creates a chat orchestration service.
func New(recaller Recaller, router *Router, opts QualityOptions, logger *zap.Logger) *Service {
	return &Service{
		recaller: recaller,
		router:   router,
		opts:     opts,
		logger:   logger,
	}
}

// Complete answers a prompt grounded in recalled snippets. Weak evidence
// short-circuits to a guard response without spending provider quota; total
// provider failure optionally degrades to a retrieval-only answer.
func (s *Service) Complete(ctx context.Context, prompt string, topK int) (domain.ChatOutcome, error) {
	recalled, err := s.recaller.Search(ctx, prompt, topK)
	if err != nil {
		return domain.ChatOutcome{}, err
	}
	citations := recalled.Citations

	if !hasSufficientEvidence(citations, s.opts) {
		s.logger.Info("evidence gate rejected prompt",
			zap.Int("citations", len(citations)),
		)
		return domain.ChatOutcome{
			Answer:    s.opts.InsufficientEvidenceMessage,
			Provider:  "guard",
			Model:     "insufficient-evidence",
			Citations: citations,
		}, nil
	}

	grounded := buildGroundedPrompt(prompt, citations)

	resp, err := s.router.Complete(ctx, grounded)
	if err != nil {
		var unavailable *domain.ProviderUnavailableError
		if errors.As(err, &unavailable) && s.opts.EnableRecallOnlyFallback {
			s.logger.Warn("all providers failed, serving recall-only answer", zap.Error(err))
			return domain.ChatOutcome{
				Answer:    buildRecallOnlyAnswer(citations, s.opts),
				Provider:  "recall-only",
				Model:     "free-tier-fallback",
				Citations: citations,
			}, nil
		}
		return domain.ChatOutcome{}, err
	}

	answer, referenced := postProcessAnswer(resp.Text, citations)
	return domain.ChatOutcome{
		Answer:    answer,
		Provider:  resp.Provider,
		Model:     resp.Model,
		Citations: referenced,
	}, nil
}

// hasSufficientEvidence requires a minimum citation count plus at least one
// citation at or above the strong-score threshold.
func hasSufficientEvidence(citations []domain.Citation, opts QualityOptions) bool {
	if len(citations) < max(1, opts.MinCitationCount) {
		return false
	}
	threshold := max(0, opts.MinStrongCitationScore)
	for _, c := range citations {
		if c.Score >= threshold {
			return true
		}
	}
	return false
}

// buildGroundedPrompt frames the question inside numbered context snippets
// so the model can cite them back.
func buildGroundedPrompt(question string, citations []domain.Citation) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant that answers using the provided context snippets.\n")
	sb.WriteString("The snippets can be partial excerpts from larger documents.\n")
	sb.WriteString("If the user asks for improvements, critique, rewrite ideas, or optimization advice, provide actionable suggestions grounded in the snippet content.\n")
	sb.WriteString("Only say you do not know when the snippets are clearly unrelated to the question.\n")
	sb.WriteString("\nContext:\n")
	if len(citations) == 0 {
		sb.WriteString("[no context]\n")
	} else {
		for i, c := range citations {
			fmt.Fprintf(&sb, "[%d] file=%s chunk=%d score=%.4f\n", i+1, c.FileName, c.ChunkIndex, c.Score)
			sb.WriteString(c.Snippet)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Question: %s\n", question)
	sb.WriteString("Answer concisely and cite snippet numbers like [1], [2] when used.\n")
	sb.WriteString("When giving advice, include concrete changes and examples based on the snippets.\n")
	return sb.String()
}

// buildRecallOnlyAnswer renders the top citations as a plain-text evidence
// list when no provider could answer.
func buildRecallOnlyAnswer(citations []domain.Citation, opts QualityOptions) string {
	limit := max(1, opts.RecallOnlyFallbackMaxCitations)
	if len(citations) > limit {
		citations = citations[:limit]
	}
	if len(citations) == 0 {
		return opts.RecallOnlyFallbackMessage
	}

	var sb strings.Builder
	sb.WriteString(opts.RecallOnlyFallbackMessage)
	sb.WriteString("\n\nTop retrieved evidence:\n")
	for i, c := range citations {
		fmt.Fprintf(&sb, "[%d] %s (chunk %d, score %.3f)\n", i+1, c.FileName, c.ChunkIndex, c.Score)
		sb.WriteString(c.Snippet)
		sb.WriteString("\n")
		if i < len(citations)-1 {
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
