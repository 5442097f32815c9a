package recall

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

type mockStore struct {
	recentFn func(ctx context.Context, maxCount int) ([]domain.Chunk, error)
	docsFn   func(ctx context.Context, ids []string) (map[string]domain.Document, error)
}

func (m *mockStore) GetRecentChunks(ctx context.Context, maxCount int) ([]domain.Chunk, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, maxCount)
	}
	return nil, nil
}

func (m *mockStore) GetDocumentsByIDs(ctx context.Context, ids []string) (map[string]domain.Document, error) {
	if m.docsFn != nil {
		return m.docsFn(ctx, ids)
	}
	return map[string]domain.Document{}, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Vector: []float32{1, 0}, Status: domain.EmbeddingSuccess}, nil
}

func newTestService(store *mockStore, emb *mockEmbedder) *Service {
	svc := New(store, emb, DefaultOptions(), zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func testChunk(docID string, index int, content string, vec []float32, age time.Duration) domain.Chunk {
	return domain.Chunk{
		ID:         domain.ChunkID(docID, index),
		DocumentID: docID,
		ChunkIndex: index,
		Content:    content,
		Embedding:  vec,
		CreatedAt:  testNow.Add(-age),
	}
}
