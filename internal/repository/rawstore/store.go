// Package rawstore persists raw document content keyed by content hash.
package rawstore

import (
	"context"
	"fmt"
)

// kv is the consumer interface for raw content storage.
type kv interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Store writes raw normalized document text and returns an opaque locator.
type Store struct {
	kv     kv
	prefix string
}

// New creates a raw document store. prefix namespaces every key.
func New(kv kv, prefix string) *Store {
	return &Store{kv: kv, prefix: prefix}
}

// Save stores content under its hash and returns the storage locator.
// Saving the same hash twice overwrites identical bytes, so the write is
// idempotent.
func (s *Store) Save(ctx context.Context, fileName, content, contentHash string) (string, error) {
	key := s.prefix + "raw:" + contentHash
	if err := s.kv.Set(ctx, key, []byte(content)); err != nil {
		return "", fmt.Errorf("save raw content: %w", err)
	}
	return fmt.Sprintf("raw/%s/%s", contentHash, fileName), nil
}

// Load returns raw content previously stored for the given hash.
func (s *Store) Load(ctx context.Context, contentHash string) (string, error) {
	data, err := s.kv.Get(ctx, s.prefix+"raw:"+contentHash)
	if err != nil {
		return "", fmt.Errorf("load raw content: %w", err)
	}
	return string(data), nil
}
