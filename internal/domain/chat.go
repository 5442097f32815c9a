package domain

import (
	"context"
	"time"
)

// ChatResponse is a single completion from a chat provider.
type ChatResponse struct {
	Text     string
	Model    string
	Provider string
}

// ChatClient is one chat completion provider. Implementations must surface
// transient failures (rate limit, timeout, transport) in a way IsTransient
// recognizes, so the router can distinguish retry-worthy errors from
// fail-fast ones.
type ChatClient interface {
	ProviderName() string
	Complete(ctx context.Context, prompt string) (ChatResponse, error)
}

// Citation is a ranked chunk returned from recall, annotated with document
// metadata and its blended relevance score. Constructed fresh per search,
// never persisted.
type Citation struct {
	DocumentID string    `json:"documentId"`
	FileName   string    `json:"fileName"`
	ChunkID    string    `json:"chunkId"`
	ChunkIndex int       `json:"chunkIndex"`
	Snippet    string    `json:"snippet"`
	Score      float64   `json:"score"`
	CreatedAt  time.Time `json:"createdAtUtc"`
}

// ChatOutcome is the orchestrator's final answer plus the subset of citations
// the answer actually references.
type ChatOutcome struct {
	Answer    string
	Provider  string
	Model     string
	Citations []Citation
}
