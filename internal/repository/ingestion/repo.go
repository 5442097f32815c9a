// Package ingestion persists Document and Chunk records over the db facade.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/omnirecall/omnirecall/internal/db"
	"github.com/omnirecall/omnirecall/internal/domain"
)

// store is the consumer interface for ingestion records (ISP).
type store interface {
	JSONSet(ctx context.Context, key string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, keys ...string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	ZAdd(ctx context.Context, key string, items []db.ZAddItem) error
	ZRevRange(ctx context.Context, key string, start, stop int) ([]string, error)
	ZRange(ctx context.Context, key string, start, stop int) ([]string, error)
	ZRem(ctx context.Context, key string, members ...string) error
}

// Repo implements the Store contract consumed by the ingestion and recall
// services. Documents and chunks live as JSON values; sorted sets index
// documents by creation time, chunks per document by ordinal, and all chunks
// by creation time for the recall candidate window.
type Repo struct {
	store  store
	prefix string
}

// New creates an ingestion repository. prefix namespaces every key.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

func (r *Repo) docKey(id string) string       { return r.prefix + "doc:" + id }
func (r *Repo) chunkKey(id string) string     { return r.prefix + "chunk:" + id }
func (r *Repo) docChunksKey(id string) string { return r.prefix + "doc:" + id + ":chunks" }
func (r *Repo) docsKey() string               { return r.prefix + "docs" }
func (r *Repo) chunksKey() string             { return r.prefix + "chunks" }
func (r *Repo) hashKey(hash string) string    { return r.prefix + "hash:" + hash }

// UpsertDocument writes the document record and its recency and content-hash
// index entries.
func (r *Repo) UpsertDocument(ctx context.Context, doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := r.store.JSONSet(ctx, r.docKey(doc.ID), data); err != nil {
		return fmt.Errorf("json.set %s: %w", r.docKey(doc.ID), err)
	}
	score := float64(doc.CreatedAt.UnixMilli())
	if err := r.store.ZAdd(ctx, r.docsKey(), []db.ZAddItem{{Member: doc.ID, Score: score}}); err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	if err := r.store.Set(ctx, r.hashKey(doc.ContentHash), []byte(doc.ID)); err != nil {
		return fmt.Errorf("index content hash: %w", err)
	}
	return nil
}

// UpsertChunks writes chunk records grouped by owning document, splitting
// pipelined writes at db.MaxPipelineBatch items.
func (r *Repo) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	byDoc := make(map[string][]domain.Chunk)
	for _, c := range chunks {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	for docID, group := range byDoc {
		for offset := 0; offset < len(group); offset += db.MaxPipelineBatch {
			if err := ctx.Err(); err != nil {
				return err
			}
			upper := min(offset+db.MaxPipelineBatch, len(group))
			batch := group[offset:upper]

			items := make([]db.JSONSetItem, 0, len(batch))
			ordinals := make([]db.ZAddItem, 0, len(batch))
			recents := make([]db.ZAddItem, 0, len(batch))
			for _, c := range batch {
				data, err := json.Marshal(c)
				if err != nil {
					return fmt.Errorf("marshal chunk %s: %w", c.ID, err)
				}
				items = append(items, db.JSONSetItem{Key: r.chunkKey(c.ID), Data: data})
				ordinals = append(ordinals, db.ZAddItem{Member: c.ID, Score: float64(c.ChunkIndex)})
				recents = append(recents, db.ZAddItem{Member: c.ID, Score: float64(c.CreatedAt.UnixMilli())})
			}

			if err := r.store.JSONSetMulti(ctx, items); err != nil {
				return fmt.Errorf("upsert chunks for %s: %w", docID, err)
			}
			if err := r.store.ZAdd(ctx, r.docChunksKey(docID), ordinals); err != nil {
				return fmt.Errorf("index chunks for %s: %w", docID, err)
			}
			if err := r.store.ZAdd(ctx, r.chunksKey(), recents); err != nil {
				return fmt.Errorf("index recent chunks: %w", err)
			}
		}
	}
	return nil
}

// GetDocument returns a document by id, or domain.ErrNotFound.
func (r *Repo) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	raw, err := r.store.JSONGet(ctx, r.docKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Document{}, domain.ErrNotFound
		}
		return domain.Document{}, fmt.Errorf("json.get %s: %w", r.docKey(id), err)
	}
	var doc domain.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	return doc, nil
}

// FindDocumentByHash resolves a document through the content-hash index, or
// domain.ErrNotFound.
func (r *Repo) FindDocumentByHash(ctx context.Context, contentHash string) (domain.Document, error) {
	id, err := r.store.Get(ctx, r.hashKey(contentHash))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Document{}, domain.ErrNotFound
		}
		return domain.Document{}, fmt.Errorf("get hash index: %w", err)
	}
	return r.GetDocument(ctx, string(id))
}

// ListDocuments returns up to maxCount documents, most recent first.
func (r *Repo) ListDocuments(ctx context.Context, maxCount int) ([]domain.Document, error) {
	ids, err := r.store.ZRevRange(ctx, r.docsKey(), 0, max(1, maxCount)-1)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(id)
	}
	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	docs := make([]domain.Document, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// GetChunksByDocument returns a document's chunks in ordinal order.
func (r *Repo) GetChunksByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	ids, err := r.store.ZRange(ctx, r.docChunksKey(documentID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", documentID, err)
	}
	return r.fetchChunks(ctx, ids)
}

// GetRecentChunks returns up to maxCount chunks across all documents, most
// recent first. This is the recall candidate window.
func (r *Repo) GetRecentChunks(ctx context.Context, maxCount int) ([]domain.Chunk, error) {
	ids, err := r.store.ZRevRange(ctx, r.chunksKey(), 0, max(1, maxCount)-1)
	if err != nil {
		return nil, fmt.Errorf("list recent chunks: %w", err)
	}
	return r.fetchChunks(ctx, ids)
}

// GetDocumentsByIDs resolves documents in one batched read. Unresolved ids
// are simply absent from the result map.
func (r *Repo) GetDocumentsByIDs(ctx context.Context, ids []string) (map[string]domain.Document, error) {
	distinct := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}
	if len(distinct) == 0 {
		return map[string]domain.Document{}, nil
	}

	keys := make([]string, len(distinct))
	for i, id := range distinct {
		keys[i] = r.docKey(id)
	}
	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch documents by ids: %w", err)
	}

	out := make(map[string]domain.Document, len(distinct))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document %s: %w", distinct[i], err)
		}
		out[doc.ID] = doc
	}
	return out, nil
}

// DeleteDocument removes a document, its chunks, and all index entries.
// Already-absent keys are tolerated.
func (r *Repo) DeleteDocument(ctx context.Context, id string) error {
	doc, err := r.GetDocument(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	chunkIDs, err := r.store.ZRange(ctx, r.docChunksKey(id), 0, -1)
	if err != nil {
		return fmt.Errorf("list chunks for delete %s: %w", id, err)
	}

	for offset := 0; offset < len(chunkIDs); offset += db.MaxPipelineBatch {
		if err := ctx.Err(); err != nil {
			return err
		}
		upper := min(offset+db.MaxPipelineBatch, len(chunkIDs))
		batch := chunkIDs[offset:upper]

		keys := make([]string, len(batch))
		for i, cid := range batch {
			keys[i] = r.chunkKey(cid)
		}
		if err := r.store.Del(ctx, keys...); err != nil {
			return fmt.Errorf("delete chunks for %s: %w", id, err)
		}
		if err := r.store.ZRem(ctx, r.chunksKey(), batch...); err != nil {
			return fmt.Errorf("unindex chunks for %s: %w", id, err)
		}
	}

	if err := r.store.Del(ctx, r.docChunksKey(id), r.docKey(id)); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if err := r.store.ZRem(ctx, r.docsKey(), id); err != nil {
		return fmt.Errorf("unindex document %s: %w", id, err)
	}
	if doc.ContentHash != "" {
		if err := r.store.Del(ctx, r.hashKey(doc.ContentHash)); err != nil {
			return fmt.Errorf("delete hash index for %s: %w", id, err)
		}
	}
	return nil
}

func (r *Repo) fetchChunks(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.chunkKey(id)
	}
	raws, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}

	chunks := make([]domain.Chunk, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		var c domain.Chunk
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("unmarshal chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
