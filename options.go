package omnirecall

import (
	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string // "valkey", "redis" or "memory"
	addrs    []string
	username string
	password string
	db       int

	keyPrefix string

	embedder Embedder
	primary  ChatProvider
	fallback ChatProvider

	geminiAPIKey      string
	githubModelsToken string

	chunkSizeWords       int
	chunkOverlapWords    int
	embeddingParallelism int

	candidateWindow int
	snippetLength   int

	recallOnlyFallback bool

	logger *zap.Logger
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithMemory configures the client to run over in-process storage. Useful
// for tests and single-shot tooling; nothing survives the process.
func WithMemory() Option {
	return func(c *clientConfig) {
		c.driver = "memory"
	}
}

// WithKeyPrefix sets the storage key namespace (default "omnirecall:").
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithEmbedder sets a custom embedding provider.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithGemini enables the Gemini embedding and chat clients with the given
// API key. Gemini becomes the primary chat provider.
func WithGemini(apiKey string) Option {
	return func(c *clientConfig) {
		c.geminiAPIKey = apiKey
	}
}

// WithGitHubModels enables the GitHub Models chat client as the fallback
// provider (or the primary when Gemini is not configured).
func WithGitHubModels(token string) Option {
	return func(c *clientConfig) {
		c.githubModelsToken = token
	}
}

// WithChatProviders sets custom chat providers. fallback may be nil.
// Overrides WithGemini and WithGitHubModels chat wiring.
func WithChatProviders(primary, fallback ChatProvider) Option {
	return func(c *clientConfig) {
		c.primary = primary
		c.fallback = fallback
	}
}

// WithChunking overrides the chunk size and overlap, both in words.
func WithChunking(sizeWords, overlapWords int) Option {
	return func(c *clientConfig) {
		c.chunkSizeWords = sizeWords
		c.chunkOverlapWords = overlapWords
	}
}

// WithEmbeddingParallelism bounds concurrent embedding calls during ingest.
func WithEmbeddingParallelism(n int) Option {
	return func(c *clientConfig) {
		c.embeddingParallelism = n
	}
}

// WithRecallTuning overrides the scoring candidate window and snippet length.
func WithRecallTuning(candidateWindow, snippetLength int) Option {
	return func(c *clientConfig) {
		c.candidateWindow = candidateWindow
		c.snippetLength = snippetLength
	}
}

// WithRecallOnlyFallback makes Chat return a retrieval-only answer instead
// of an error when every chat provider is unavailable.
func WithRecallOnlyFallback() Option {
	return func(c *clientConfig) {
		c.recallOnlyFallback = true
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
