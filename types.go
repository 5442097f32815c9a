package omnirecall

import (
	"time"

	"github.com/omnirecall/omnirecall/internal/domain"
	ingestionuc "github.com/omnirecall/omnirecall/internal/usecase/ingestion"
)

// Document describes a stored document.
type Document struct {
	ID          string
	FileName    string
	SourceType  string
	BlobPath    string
	ContentHash string
	ChunkCount  int
	CreatedAt   time.Time
}

// IngestResult describes a completed (or deduplicated) ingest.
type IngestResult struct {
	DocumentID  string
	FileName    string
	SourceType  string
	BlobPath    string
	ChunkCount  int
	ContentHash string
	CreatedAt   time.Time
}

// ReindexResult counts per-status embedding outcomes of a re-embed pass.
type ReindexResult struct {
	DocumentID       string
	ChunkCount       int
	EmbeddedCount    int
	RateLimitedCount int
	EmptyCount       int
	FailedCount      int
	ReindexedAt      time.Time
}

// ChunkPreview is a truncated view of one stored chunk.
type ChunkPreview struct {
	ChunkID      string
	ChunkIndex   int
	Snippet      string
	HasEmbedding bool
	CreatedAt    time.Time
}

// Citation is a ranked recall hit.
type Citation struct {
	DocumentID string
	FileName   string
	ChunkID    string
	ChunkIndex int
	Snippet    string
	Score      float64
	CreatedAt  time.Time
}

// ChatAnswer is a grounded completion plus the citations it references.
type ChatAnswer struct {
	Answer    string
	Provider  string
	Model     string
	Citations []Citation
}

func documentFromDomain(d domain.Document) Document {
	return Document{
		ID:          d.ID,
		FileName:    d.FileName,
		SourceType:  d.SourceType,
		BlobPath:    d.BlobPath,
		ContentHash: d.ContentHash,
		ChunkCount:  d.ChunkCount,
		CreatedAt:   d.CreatedAt,
	}
}

func ingestResultFromInternal(r ingestionuc.IngestResult) IngestResult {
	return IngestResult{
		DocumentID:  r.DocumentID,
		FileName:    r.FileName,
		SourceType:  r.SourceType,
		BlobPath:    r.BlobPath,
		ChunkCount:  r.ChunkCount,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt,
	}
}

func reindexResultFromInternal(r ingestionuc.ReindexResult) ReindexResult {
	return ReindexResult{
		DocumentID:       r.DocumentID,
		ChunkCount:       r.ChunkCount,
		EmbeddedCount:    r.EmbeddedCount,
		RateLimitedCount: r.RateLimitedCount,
		EmptyCount:       r.EmptyCount,
		FailedCount:      r.FailedCount,
		ReindexedAt:      r.ReindexedAt,
	}
}

func chunkPreviewFromInternal(p ingestionuc.ChunkPreview) ChunkPreview {
	return ChunkPreview{
		ChunkID:      p.ChunkID,
		ChunkIndex:   p.ChunkIndex,
		Snippet:      p.Snippet,
		HasEmbedding: p.HasEmbedding,
		CreatedAt:    p.CreatedAt,
	}
}

func citationFromDomain(c domain.Citation) Citation {
	return Citation{
		DocumentID: c.DocumentID,
		FileName:   c.FileName,
		ChunkID:    c.ChunkID,
		ChunkIndex: c.ChunkIndex,
		Snippet:    c.Snippet,
		Score:      c.Score,
		CreatedAt:  c.CreatedAt,
	}
}

func citationsFromDomain(cs []domain.Citation) []Citation {
	out := make([]Citation, len(cs))
	for i, c := range cs {
		out[i] = citationFromDomain(c)
	}
	return out
}

func chatAnswerFromDomain(o domain.ChatOutcome) ChatAnswer {
	return ChatAnswer{
		Answer:    o.Answer,
		Provider:  o.Provider,
		Model:     o.Model,
		Citations: citationsFromDomain(o.Citations),
	}
}
