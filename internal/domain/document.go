package domain

import (
	"fmt"
	"time"
)

// Document is an ingested document's metadata record. Created once per unique
// content hash and immutable afterwards, except ChunkCount bookkeeping on
// re-embedding.
type Document struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	SourceType  string    `json:"sourceType"`
	BlobPath    string    `json:"blobPath"`
	ContentHash string    `json:"contentHash"`
	ChunkCount  int       `json:"chunkCount"`
	CreatedAt   time.Time `json:"createdAtUtc"`
}

// Chunk is a bounded word-window slice of a document's text, the unit of
// embedding and retrieval. Embedding is nil when vectorization failed or has
// not happened yet; such chunks stay retrievable via keyword and recency
// scoring.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	ChunkIndex int       `json:"chunkIndex"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"createdAtUtc"`
}

// ChunkID builds the canonical chunk identity from its owning document and
// zero-based ordinal.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%04d", documentID, index)
}

// HasEmbedding reports whether the chunk carries a non-empty vector.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
