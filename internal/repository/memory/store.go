// Package memory provides in-memory Store and RawStore implementations for
// local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/omnirecall/omnirecall/internal/domain"
)

// Store keeps documents and chunks in process memory.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]domain.Document
	chunks map[string]domain.Chunk
	byHash map[string]string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		docs:   make(map[string]domain.Document),
		chunks: make(map[string]domain.Chunk),
		byHash: make(map[string]string),
	}
}

// UpsertDocument stores or replaces a document record.
func (s *Store) UpsertDocument(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.byHash[doc.ContentHash] = doc.ID
	return nil
}

// UpsertChunks stores or replaces chunk records.
func (s *Store) UpsertChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

// GetDocument returns a document by id, or domain.ErrNotFound.
func (s *Store) GetDocument(_ context.Context, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

// FindDocumentByHash returns the document with the given content hash, or
// domain.ErrNotFound.
func (s *Store) FindDocumentByHash(_ context.Context, contentHash string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[contentHash]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

// ListDocuments returns up to maxCount documents, most recent first.
func (s *Store) ListDocuments(_ context.Context, maxCount int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	if n := max(1, maxCount); len(docs) > n {
		docs = docs[:n]
	}
	return docs, nil
}

// GetChunksByDocument returns a document's chunks in ordinal order.
func (s *Store) GetChunksByDocument(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var chunks []domain.Chunk
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			chunks = append(chunks, c)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

// GetRecentChunks returns up to maxCount chunks, most recent first.
func (s *Store) GetRecentChunks(_ context.Context, maxCount int) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]domain.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].CreatedAt.After(chunks[j].CreatedAt) })
	if n := max(1, maxCount); len(chunks) > n {
		chunks = chunks[:n]
	}
	return chunks, nil
}

// GetDocumentsByIDs resolves documents; unresolved ids are absent from the map.
func (s *Store) GetDocumentsByIDs(_ context.Context, ids []string) (map[string]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Document, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			out[id] = doc
		}
	}
	return out, nil
}

// DeleteDocument removes a document and cascades to its chunks. Deleting a
// missing document is a no-op.
func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		delete(s.byHash, doc.ContentHash)
	}
	delete(s.docs, id)
	for cid, c := range s.chunks {
		if c.DocumentID == id {
			delete(s.chunks, cid)
		}
	}
	return nil
}

// Ping always succeeds: in-memory storage has no remote dependency.
func (s *Store) Ping(_ context.Context) error { return nil }

// RawStore keeps raw document content in process memory.
type RawStore struct {
	mu  sync.RWMutex
	raw map[string]string
}

// NewRawStore creates an empty in-memory raw store.
func NewRawStore() *RawStore {
	return &RawStore{raw: make(map[string]string)}
}

// Save stores content under its hash and returns the storage locator.
func (s *RawStore) Save(_ context.Context, fileName, content, contentHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[contentHash] = content
	return fmt.Sprintf("memory://raw/%s/%s", contentHash, fileName), nil
}

// Load returns raw content previously stored for the given hash.
func (s *RawStore) Load(_ context.Context, contentHash string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.raw[contentHash]
	if !ok {
		return "", fmt.Errorf("raw content missing for hash %s", contentHash)
	}
	return content, nil
}
