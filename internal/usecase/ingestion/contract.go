package ingestion

import (
	"context"

	"github.com/omnirecall/omnirecall/internal/domain"
)

// Store defines the storage contract for ingestion operations.
type Store interface {
	UpsertDocument(ctx context.Context, doc domain.Document) error
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) error
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	FindDocumentByHash(ctx context.Context, contentHash string) (domain.Document, error)
	ListDocuments(ctx context.Context, maxCount int) ([]domain.Document, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
	DeleteDocument(ctx context.Context, id string) error
}

// RawStore persists raw normalized document text, returning an opaque locator.
type RawStore interface {
	Save(ctx context.Context, fileName, content, contentHash string) (string, error)
	Load(ctx context.Context, contentHash string) (string, error)
}
