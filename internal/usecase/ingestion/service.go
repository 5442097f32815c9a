// Package ingestion deduplicates, chunks, embeds, and persists documents.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/chunker"
	"github.com/omnirecall/omnirecall/internal/domain"
)

const chunkPreviewSnippetLen = 220

// Options holds chunking and embedding settings for ingestion.
type Options struct {
	ChunkSizeWords       int
	ChunkOverlapWords    int
	EmbeddingParallelism int
}

// DefaultOptions returns the standard ingestion settings.
func DefaultOptions() Options {
	return Options{
		ChunkSizeWords:       120,
		ChunkOverlapWords:    24,
		EmbeddingParallelism: 3,
	}
}

// IngestResult describes a completed (or deduplicated) ingest.
type IngestResult struct {
	DocumentID  string    `json:"documentId"`
	FileName    string    `json:"fileName"`
	SourceType  string    `json:"sourceType"`
	BlobPath    string    `json:"blobPath"`
	ChunkCount  int       `json:"chunkCount"`
	ContentHash string    `json:"contentHash"`
	CreatedAt   time.Time `json:"createdAtUtc"`
}

// ReindexResult counts per-status embedding outcomes of a reindex pass.
type ReindexResult struct {
	DocumentID       string    `json:"documentId"`
	ChunkCount       int       `json:"chunkCount"`
	EmbeddedCount    int       `json:"embeddedCount"`
	RateLimitedCount int       `json:"rateLimitedCount"`
	EmptyCount       int       `json:"emptyCount"`
	FailedCount      int       `json:"failedCount"`
	ReindexedAt      time.Time `json:"reindexedAtUtc"`
}

// ChunkPreview is a truncated view of a stored chunk.
type ChunkPreview struct {
	ChunkID      string    `json:"chunkId"`
	ChunkIndex   int       `json:"chunkIndex"`
	Snippet      string    `json:"snippet"`
	HasEmbedding bool      `json:"hasEmbedding"`
	CreatedAt    time.Time `json:"createdAtUtc"`
}

// Service handles document ingestion with dedupe and parallel embedding.
type Service struct {
	store    Store
	raw      RawStore
	embedder domain.EmbeddingClient
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// New creates an ingestion service.
func New(store Store, raw RawStore, embedder domain.EmbeddingClient, opts Options, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		raw:      raw,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		newID:    newDocumentID,
	}
}

func newDocumentID() string {
	return "doc_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Ingest normalizes and stores content as a chunked, embedded document.
// Byte-identical normalized content resolves to the existing document with
// no raw-store write and no re-embedding.
func (s *Service) Ingest(ctx context.Context, fileName, content, sourceType string) (IngestResult, error) {
	if strings.TrimSpace(fileName) == "" {
		return IngestResult{}, fmt.Errorf("file name is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return IngestResult{}, fmt.Errorf("content is required: %w", domain.ErrInvalidInput)
	}

	normalized := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	contentHash := computeSHA256(normalized)

	existing, err := s.store.FindDocumentByHash(ctx, contentHash)
	if err == nil {
		s.logger.Info("deduplicated ingest, returning existing document",
			zap.String("file_name", fileName),
			zap.String("document_id", existing.ID),
		)
		return resultFromDocument(existing), nil
	}
	if !isNotFound(err) {
		return IngestResult{}, fmt.Errorf("dedupe lookup: %w", err)
	}

	createdAt := s.now().UTC()
	documentID := s.newID()

	blobPath, err := s.raw.Save(ctx, fileName, normalized, contentHash)
	if err != nil {
		return IngestResult{}, fmt.Errorf("save raw content: %w", err)
	}

	texts := chunker.Chunk(normalized, s.opts.ChunkSizeWords, s.opts.ChunkOverlapWords)
	if len(texts) == 0 {
		return IngestResult{}, domain.ErrNoChunksProduced
	}

	embeddings, err := s.embedTexts(ctx, texts, fileName, "ingest")
	if err != nil {
		return IngestResult{}, err
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(documentID, i),
			DocumentID: documentID,
			ChunkIndex: i,
			Content:    text,
			Embedding:  embeddings[i].Vector,
			CreatedAt:  createdAt,
		}
	}

	doc := domain.Document{
		ID:          documentID,
		FileName:    fileName,
		SourceType:  sourceType,
		BlobPath:    blobPath,
		ContentHash: contentHash,
		ChunkCount:  len(texts),
		CreatedAt:   createdAt,
	}

	if err := s.store.UpsertDocument(ctx, doc); err != nil {
		return IngestResult{}, fmt.Errorf("upsert document: %w", err)
	}
	if err := s.store.UpsertChunks(ctx, chunks); err != nil {
		return IngestResult{}, fmt.Errorf("upsert chunks: %w", err)
	}

	s.logger.Info("ingested document",
		zap.String("document_id", documentID),
		zap.Int("chunk_count", len(texts)),
	)
	return resultFromDocument(doc), nil
}

// Reindex re-embeds all chunks of a document in ordinal order. Only a
// successful embedding with a non-empty vector replaces a chunk's existing
// vector; every other status leaves the vector untouched and increments its
// counter.
func (s *Service) Reindex(ctx context.Context, documentID string) (ReindexResult, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return ReindexResult{}, err
	}

	chunks, err := s.store.GetChunksByDocument(ctx, documentID)
	if err != nil {
		return ReindexResult{}, fmt.Errorf("load chunks: %w", err)
	}

	reindexedAt := s.now().UTC()
	if len(chunks) == 0 {
		return ReindexResult{DocumentID: documentID, ReindexedAt: reindexedAt}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := s.embedTexts(ctx, texts, documentID, "reindex")
	if err != nil {
		return ReindexResult{}, err
	}

	result := ReindexResult{
		DocumentID:  documentID,
		ChunkCount:  len(chunks),
		ReindexedAt: reindexedAt,
	}
	updated := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		emb := embeddings[i]
		switch {
		case emb.Status == domain.EmbeddingSuccess && len(emb.Vector) > 0:
			result.EmbeddedCount++
			c.Embedding = emb.Vector
		case emb.Status == domain.EmbeddingRateLimited:
			result.RateLimitedCount++
		case emb.Status == domain.EmbeddingError:
			result.FailedCount++
		default:
			result.EmptyCount++
		}
		updated[i] = c
	}

	if err := s.store.UpsertChunks(ctx, updated); err != nil {
		return ReindexResult{}, fmt.Errorf("upsert chunks: %w", err)
	}
	return result, nil
}

// GetDocument returns a document's metadata, or domain.ErrNotFound.
func (s *Service) GetDocument(ctx context.Context, documentID string) (domain.Document, error) {
	return s.store.GetDocument(ctx, documentID)
}

// GetContent returns a document's stored raw text alongside its metadata,
// or domain.ErrNotFound when the document does not exist.
func (s *Service) GetContent(ctx context.Context, documentID string) (domain.Document, string, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return domain.Document{}, "", err
	}
	content, err := s.raw.Load(ctx, doc.ContentHash)
	if err != nil {
		return domain.Document{}, "", fmt.Errorf("load raw content: %w", err)
	}
	return doc, content, nil
}

// ListDocuments returns up to maxCount documents, most recent first.
func (s *Service) ListDocuments(ctx context.Context, maxCount int) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx, maxCount)
}

// GetChunks returns up to maxCount ordinal-ordered chunk previews.
func (s *Service) GetChunks(ctx context.Context, documentID string, maxCount int) ([]ChunkPreview, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	chunks, err := s.store.GetChunksByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if n := max(1, maxCount); len(chunks) > n {
		chunks = chunks[:n]
	}

	previews := make([]ChunkPreview, len(chunks))
	for i, c := range chunks {
		previews[i] = ChunkPreview{
			ChunkID:      c.ID,
			ChunkIndex:   c.ChunkIndex,
			Snippet:      domain.BuildSnippet(c.Content, chunkPreviewSnippetLen),
			HasEmbedding: c.HasEmbedding(),
			CreatedAt:    c.CreatedAt,
		}
	}
	return previews, nil
}

// DeleteDocument removes a document and its chunks, reporting whether it
// existed. Deleting a missing document is not an error.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	return true, nil
}

func resultFromDocument(doc domain.Document) IngestResult {
	return IngestResult{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		SourceType:  doc.SourceType,
		BlobPath:    doc.BlobPath,
		ChunkCount:  doc.ChunkCount,
		ContentHash: doc.ContentHash,
		CreatedAt:   doc.CreatedAt,
	}
}

func computeSHA256(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
