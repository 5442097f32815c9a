package recall

import (
	"context"

	"github.com/omnirecall/omnirecall/internal/domain"
)

// Store is the chunk and document access recall needs.
type Store interface {
	GetRecentChunks(ctx context.Context, maxCount int) ([]domain.Chunk, error)
	GetDocumentsByIDs(ctx context.Context, ids []string) (map[string]domain.Document, error)
}
