package omnirecall

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/omnirecall/omnirecall/internal/db/redis"
	"github.com/omnirecall/omnirecall/internal/domain"
	ingestionrepo "github.com/omnirecall/omnirecall/internal/repository/ingestion"
	"github.com/omnirecall/omnirecall/internal/repository/memory"
	"github.com/omnirecall/omnirecall/internal/repository/rawstore"
	"github.com/omnirecall/omnirecall/internal/transport/gemini"
	"github.com/omnirecall/omnirecall/internal/transport/openai"
	chatuc "github.com/omnirecall/omnirecall/internal/usecase/chat"
	ingestionuc "github.com/omnirecall/omnirecall/internal/usecase/ingestion"
	recalluc "github.com/omnirecall/omnirecall/internal/usecase/recall"
)

const defaultReadinessTimeout = 10 * time.Second

// ErrChatNotConfigured is returned by Chat when no chat provider was set up.
var ErrChatNotConfigured = errors.New("omnirecall: chat provider not configured")

// Client is the omnirecall SDK entry point.
type Client struct {
	closeFn func()
	ping    func(ctx context.Context) error

	ingest *ingestionuc.Service
	recall *recalluc.Service
	chat   *chatuc.Service
}

// New creates a Client and connects to the storage backend.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix: "omnirecall:",
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.driver == "" {
		return nil, errors.New("omnirecall: storage required (use WithValkey, WithRedis or WithMemory)")
	}

	c := &Client{}

	var (
		docStore    ingestionuc.Store
		recallStore recalluc.Store
		raw         ingestionuc.RawStore
	)
	switch cfg.driver {
	case "memory":
		store := memory.NewStore()
		docStore = store
		recallStore = store
		raw = memory.NewRawStore()
		c.ping = store.Ping
	case "valkey", "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
			DB:       cfg.db,
		})
		if err != nil {
			return nil, fmt.Errorf("omnirecall: create %s store: %w", cfg.driver, err)
		}
		if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("omnirecall: storage not ready: %w", err)
		}
		repo := ingestionrepo.New(store, cfg.keyPrefix)
		docStore = repo
		recallStore = repo
		raw = rawstore.New(store, cfg.keyPrefix)
		c.closeFn = store.Close
		c.ping = store.Ping
	default:
		return nil, fmt.Errorf("omnirecall: unknown driver %q", cfg.driver)
	}

	embedder := buildEmbedder(cfg)

	ingestOpts := ingestionuc.DefaultOptions()
	if cfg.chunkSizeWords > 0 {
		ingestOpts.ChunkSizeWords = cfg.chunkSizeWords
		ingestOpts.ChunkOverlapWords = cfg.chunkOverlapWords
	}
	if cfg.embeddingParallelism > 0 {
		ingestOpts.EmbeddingParallelism = cfg.embeddingParallelism
	}
	c.ingest = ingestionuc.New(docStore, raw, embedder, ingestOpts, cfg.logger)

	recallOpts := recalluc.DefaultOptions()
	if cfg.candidateWindow > 0 {
		recallOpts.CandidateWindow = cfg.candidateWindow
	}
	if cfg.snippetLength > 0 {
		recallOpts.SnippetLength = cfg.snippetLength
	}
	c.recall = recalluc.New(recallStore, embedder, recallOpts, cfg.logger)

	if primary, fallback := buildChatClients(cfg); primary != nil {
		router := chatuc.NewRouter(primary, fallback, chatuc.DefaultRouterOptions(), cfg.logger)
		quality := chatuc.DefaultQualityOptions()
		quality.EnableRecallOnlyFallback = cfg.recallOnlyFallback
		c.chat = chatuc.New(c.recall, router, quality, cfg.logger)
	}

	return c, nil
}

func buildEmbedder(cfg *clientConfig) domain.EmbeddingClient {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}
	}
	if cfg.geminiAPIKey != "" {
		return gemini.NewEmbedder(&gemini.Config{
			APIKey: cfg.geminiAPIKey,
			Logger: cfg.logger,
		})
	}
	return noopEmbedder{}
}

// buildChatClients resolves the primary/fallback pair. A missing slot is
// filled with a client that fails fast, keeping the router's two-provider
// shape.
func buildChatClients(cfg *clientConfig) (primary, fallback domain.ChatClient) {
	if cfg.primary != nil {
		primary = &chatProviderAdapter{inner: cfg.primary}
		if cfg.fallback != nil {
			fallback = &chatProviderAdapter{inner: cfg.fallback}
		} else {
			fallback = disabledChatClient{}
		}
		return primary, fallback
	}

	if cfg.geminiAPIKey != "" {
		primary = gemini.NewChatClient(&gemini.Config{
			APIKey: cfg.geminiAPIKey,
			Logger: cfg.logger,
		})
	}
	var github domain.ChatClient
	if cfg.githubModelsToken != "" {
		github = openai.NewChatClient(&openai.Config{
			Token:  cfg.githubModelsToken,
			Logger: cfg.logger,
		})
	}

	switch {
	case primary != nil && github != nil:
		return primary, github
	case primary != nil:
		return primary, disabledChatClient{}
	case github != nil:
		return github, disabledChatClient{}
	default:
		return nil, nil
	}
}

// disabledChatClient fails fast so the router moves on without retries.
type disabledChatClient struct{}

func (disabledChatClient) ProviderName() string { return "disabled" }

func (disabledChatClient) Complete(context.Context, string) (domain.ChatResponse, error) {
	return domain.ChatResponse{}, ErrChatNotConfigured
}

// Close releases all resources.
func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

// Ping checks storage connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ingest chunks, embeds, and stores a document. Re-ingesting byte-identical
// content returns the existing document.
func (c *Client) Ingest(ctx context.Context, fileName, content, sourceType string) (IngestResult, error) {
	r, err := c.ingest.Ingest(ctx, fileName, content, sourceType)
	if err != nil {
		return IngestResult{}, err
	}
	return ingestResultFromInternal(r), nil
}

// Document returns a stored document by ID.
func (c *Client) Document(ctx context.Context, documentID string) (Document, error) {
	d, err := c.ingest.GetDocument(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	return documentFromDomain(d), nil
}

// Content returns the stored normalized text for a document.
func (c *Client) Content(ctx context.Context, documentID string) (string, error) {
	_, content, err := c.ingest.GetContent(ctx, documentID)
	if err != nil {
		return "", err
	}
	return content, nil
}

// Documents lists stored documents, newest first.
func (c *Client) Documents(ctx context.Context, maxCount int) ([]Document, error) {
	docs, err := c.ingest.ListDocuments(ctx, maxCount)
	if err != nil {
		return nil, err
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = documentFromDomain(d)
	}
	return out, nil
}

// Chunks returns truncated previews of a document's chunks in order.
func (c *Client) Chunks(ctx context.Context, documentID string, maxCount int) ([]ChunkPreview, error) {
	previews, err := c.ingest.GetChunks(ctx, documentID, maxCount)
	if err != nil {
		return nil, err
	}
	out := make([]ChunkPreview, len(previews))
	for i, p := range previews {
		out[i] = chunkPreviewFromInternal(p)
	}
	return out, nil
}

// Delete removes a document and its chunks, reporting whether it existed.
func (c *Client) Delete(ctx context.Context, documentID string) (bool, error) {
	return c.ingest.DeleteDocument(ctx, documentID)
}

// Reindex re-embeds every chunk of a document and reports per-status counts.
func (c *Client) Reindex(ctx context.Context, documentID string) (ReindexResult, error) {
	r, err := c.ingest.Reindex(ctx, documentID)
	if err != nil {
		return ReindexResult{}, err
	}
	return reindexResultFromInternal(r), nil
}

// Search scores recent chunks against the query and returns the top
// citations.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]Citation, error) {
	result, err := c.recall.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return citationsFromDomain(result.Citations), nil
}

// Chat answers a prompt grounded in recalled snippets, with provider
// failover. Requires a configured chat provider.
func (c *Client) Chat(ctx context.Context, prompt string, topK int) (ChatAnswer, error) {
	if c.chat == nil {
		return ChatAnswer{}, ErrChatNotConfigured
	}
	outcome, err := c.chat.Complete(ctx, prompt, topK)
	if err != nil {
		return ChatAnswer{}, err
	}
	return chatAnswerFromDomain(outcome), nil
}
