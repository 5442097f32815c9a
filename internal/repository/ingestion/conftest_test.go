package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/omnirecall/omnirecall/internal/db"
	"github.com/omnirecall/omnirecall/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn      func(ctx context.Context, key string, data []byte) error
	jsonSetMultiFn func(ctx context.Context, items []db.JSONSetItem) error
	jsonGetFn      func(ctx context.Context, key string) ([]byte, error)
	jsonGetMultiFn func(ctx context.Context, keys []string) ([][]byte, error)
	delFn          func(ctx context.Context, keys ...string) error
	getFn          func(ctx context.Context, key string) ([]byte, error)
	setFn          func(ctx context.Context, key string, value []byte) error
	zaddFn         func(ctx context.Context, key string, items []db.ZAddItem) error
	zrevRangeFn    func(ctx context.Context, key string, start, stop int) ([]string, error)
	zrangeFn       func(ctx context.Context, key string, start, stop int) ([]string, error)
	zremFn         func(ctx context.Context, key string, members ...string) error
}

func (m *mockStore) JSONSet(ctx context.Context, key string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, data)
	}
	return nil
}

func (m *mockStore) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	if m.jsonSetMultiFn != nil {
		return m.jsonSetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) JSONGet(ctx context.Context, key string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.jsonGetMultiFn != nil {
		return m.jsonGetMultiFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockStore) ZAdd(ctx context.Context, key string, items []db.ZAddItem) error {
	if m.zaddFn != nil {
		return m.zaddFn(ctx, key, items)
	}
	return nil
}

func (m *mockStore) ZRevRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	if m.zrevRangeFn != nil {
		return m.zrevRangeFn(ctx, key, start, stop)
	}
	return nil, nil
}

func (m *mockStore) ZRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	if m.zrangeFn != nil {
		return m.zrangeFn(ctx, key, start, stop)
	}
	return nil, nil
}

func (m *mockStore) ZRem(ctx context.Context, key string, members ...string) error {
	if m.zremFn != nil {
		return m.zremFn(ctx, key, members...)
	}
	return nil
}

func newTestRepo() (*Repo, *mockStore) {
	ms := &mockStore{}
	return New(ms, "test:"), ms
}

func testChunk(t *testing.T, docID string, index int) domain.Chunk {
	t.Helper()
	return domain.Chunk{
		ID:         domain.ChunkID(docID, index),
		DocumentID: docID,
		ChunkIndex: index,
		Content:    "chunk content",
		Embedding:  []float32{0.1, 0.2},
		CreatedAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}
