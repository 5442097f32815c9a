package domain

import "context"

// EmbeddingStatus classifies the outcome of a single embedding call. Partial
// failure is expected and common during ingestion, so outcomes travel as data
// instead of errors.
type EmbeddingStatus string

const (
	// EmbeddingSuccess means a vector was produced.
	EmbeddingSuccess EmbeddingStatus = "success"
	// EmbeddingEmpty means the provider returned no vector for the input.
	EmbeddingEmpty EmbeddingStatus = "empty"
	// EmbeddingRateLimited means the provider rejected the call with a rate limit.
	EmbeddingRateLimited EmbeddingStatus = "rate_limited"
	// EmbeddingNotSupported means no compatible embedding model was available.
	EmbeddingNotSupported EmbeddingStatus = "not_supported"
	// EmbeddingError means the call failed for any other reason.
	EmbeddingError EmbeddingStatus = "error"
)

// EmbeddingResult carries the vector (possibly empty) and the status of one
// embedding call. Model and Message are diagnostic and may be empty.
type EmbeddingResult struct {
	Vector  []float32
	Status  EmbeddingStatus
	Model   string
	Message string
}

// EmbeddingClient vectorizes a single text. Batching is the embedding
// pipeline's responsibility, not the client's.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}
