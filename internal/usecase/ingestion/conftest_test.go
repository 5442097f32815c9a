package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
)

// mockDocStore implements Store for tests.
type mockDocStore struct {
	upsertDocFn    func(ctx context.Context, doc domain.Document) error
	upsertChunksFn func(ctx context.Context, chunks []domain.Chunk) error
	getDocFn       func(ctx context.Context, id string) (domain.Document, error)
	findByHashFn   func(ctx context.Context, hash string) (domain.Document, error)
	listFn         func(ctx context.Context, maxCount int) ([]domain.Document, error)
	getChunksFn    func(ctx context.Context, documentID string) ([]domain.Chunk, error)
	deleteFn       func(ctx context.Context, id string) error
}

func (m *mockDocStore) UpsertDocument(ctx context.Context, doc domain.Document) error {
	if m.upsertDocFn != nil {
		return m.upsertDocFn(ctx, doc)
	}
	return nil
}

func (m *mockDocStore) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if m.upsertChunksFn != nil {
		return m.upsertChunksFn(ctx, chunks)
	}
	return nil
}

func (m *mockDocStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	if m.getDocFn != nil {
		return m.getDocFn(ctx, id)
	}
	return domain.Document{}, domain.ErrNotFound
}

func (m *mockDocStore) FindDocumentByHash(ctx context.Context, hash string) (domain.Document, error) {
	if m.findByHashFn != nil {
		return m.findByHashFn(ctx, hash)
	}
	return domain.Document{}, domain.ErrNotFound
}

func (m *mockDocStore) ListDocuments(ctx context.Context, maxCount int) ([]domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx, maxCount)
	}
	return nil, nil
}

func (m *mockDocStore) GetChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if m.getChunksFn != nil {
		return m.getChunksFn(ctx, documentID)
	}
	return nil, nil
}

func (m *mockDocStore) DeleteDocument(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockRawStore implements RawStore for tests.
type mockRawStore struct {
	saveFn    func(ctx context.Context, fileName, content, contentHash string) (string, error)
	loadFn    func(ctx context.Context, contentHash string) (string, error)
	saveCalls int
}

func (m *mockRawStore) Save(ctx context.Context, fileName, content, contentHash string) (string, error) {
	m.saveCalls++
	if m.saveFn != nil {
		return m.saveFn(ctx, fileName, content, contentHash)
	}
	return "raw/" + contentHash + "/" + fileName, nil
}

func (m *mockRawStore) Load(ctx context.Context, contentHash string) (string, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, contentHash)
	}
	return "", fmt.Errorf("raw content missing for hash %s", contentHash)
}

// mockEmbedder implements domain.EmbeddingClient with an atomic call count.
type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Vector: []float32{1, 0}, Status: domain.EmbeddingSuccess}, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestService(store *mockDocStore, raw *mockRawStore, emb *mockEmbedder) *Service {
	svc := New(store, raw, emb, Options{
		ChunkSizeWords:       4,
		ChunkOverlapWords:    1,
		EmbeddingParallelism: 3,
	}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC) }
	var next int
	svc.newID = func() string {
		next++
		return "doc_test"
	}
	return svc
}
