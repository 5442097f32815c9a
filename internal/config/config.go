package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the omnirecall API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Recall    RecallConfig    `yaml:"recall"`
	Chat      ChatConfig      `yaml:"chat"`
	Providers ProvidersConfig `yaml:"providers"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, memory (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IngestionConfig holds chunking, embedding, and upload settings.
type IngestionConfig struct {
	ChunkSizeWords       int   `yaml:"chunk_size_words"`
	ChunkOverlapWords    int   `yaml:"chunk_overlap_words"`
	EmbeddingParallelism int   `yaml:"embedding_parallelism"`
	MaxUploadBytes       int64 `yaml:"max_upload_bytes"`
}

// RecallConfig holds recall scoring settings.
type RecallConfig struct {
	CandidateWindow int `yaml:"candidate_window"`
	SnippetLength   int `yaml:"snippet_length"`
}

// ChatConfig holds chat quality and routing settings.
type ChatConfig struct {
	Quality ChatQualityConfig `yaml:"quality"`
	Routing ChatRoutingConfig `yaml:"routing"`
}

// ChatQualityConfig holds the evidence gate and fallback answer settings.
type ChatQualityConfig struct {
	MinCitationCount               int     `yaml:"min_citation_count"`
	MinStrongCitationScore         float64 `yaml:"min_strong_citation_score"`
	InsufficientEvidenceMessage    string  `yaml:"insufficient_evidence_message"`
	EnableRecallOnlyFallback       bool    `yaml:"enable_recall_only_fallback"`
	RecallOnlyFallbackMaxCitations int     `yaml:"recall_only_fallback_max_citations"`
	RecallOnlyFallbackMessage      string  `yaml:"recall_only_fallback_message"`
}

// ChatRoutingConfig holds provider retry and backoff settings.
type ChatRoutingConfig struct {
	MaxAttemptsPerProvider int `yaml:"max_attempts_per_provider"`
	RetryBaseDelayMs       int `yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs        int `yaml:"retry_max_delay_ms"`
}

// ProvidersConfig holds AI provider settings.
type ProvidersConfig struct {
	Gemini       GeminiConfig       `yaml:"gemini"`
	GitHubModels GitHubModelsConfig `yaml:"github_models"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey             string   `yaml:"api_key"`
	BaseURL            string   `yaml:"base_url"`
	ChatModel          string   `yaml:"chat_model"`
	ChatFallbackModels []string `yaml:"chat_fallback_models"`
	EmbeddingModel     string   `yaml:"embedding_model"`
}

// GitHubModelsConfig holds GitHub Models (OpenAI-compatible) settings.
type GitHubModelsConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "omnirecall:"
	}
	if c.Ingestion.ChunkSizeWords <= 0 {
		c.Ingestion.ChunkSizeWords = 120
	}
	if c.Ingestion.ChunkOverlapWords <= 0 {
		c.Ingestion.ChunkOverlapWords = 24
	}
	if c.Ingestion.EmbeddingParallelism <= 0 {
		c.Ingestion.EmbeddingParallelism = 3
	}
	if c.Ingestion.MaxUploadBytes <= 0 {
		c.Ingestion.MaxUploadBytes = 10 * 1024 * 1024
	}
	if c.Recall.CandidateWindow <= 0 {
		c.Recall.CandidateWindow = 300
	}
	if c.Recall.SnippetLength <= 0 {
		c.Recall.SnippetLength = 180
	}
	if c.Chat.Quality.MinCitationCount <= 0 {
		c.Chat.Quality.MinCitationCount = 1
	}
	if c.Chat.Quality.MinStrongCitationScore <= 0 {
		c.Chat.Quality.MinStrongCitationScore = 0.25
	}
	if c.Chat.Quality.RecallOnlyFallbackMaxCitations <= 0 {
		c.Chat.Quality.RecallOnlyFallbackMaxCitations = 4
	}
	if c.Chat.Routing.MaxAttemptsPerProvider <= 0 {
		c.Chat.Routing.MaxAttemptsPerProvider = 2
	}
	if c.Chat.Routing.RetryBaseDelayMs <= 0 {
		c.Chat.Routing.RetryBaseDelayMs = 500
	}
	if c.Chat.Routing.RetryMaxDelayMs <= 0 {
		c.Chat.Routing.RetryMaxDelayMs = 5000
	}
	if c.Providers.Gemini.BaseURL == "" {
		c.Providers.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Providers.Gemini.ChatModel == "" {
		c.Providers.Gemini.ChatModel = "gemini-2.5-flash"
	}
	if c.Providers.Gemini.EmbeddingModel == "" {
		c.Providers.Gemini.EmbeddingModel = "gemini-embedding-001"
	}
	if c.Providers.GitHubModels.BaseURL == "" {
		c.Providers.GitHubModels.BaseURL = "https://models.github.ai/inference"
	}
	if c.Providers.GitHubModels.Model == "" {
		c.Providers.GitHubModels.Model = "deepseek/DeepSeek-V3-0324"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis", "memory":
	default:
		return fmt.Errorf("database.driver must be valkey, redis, or memory, got %q", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
	}
	if c.Ingestion.ChunkOverlapWords >= c.Ingestion.ChunkSizeWords {
		return fmt.Errorf(
			"ingestion.chunk_overlap_words (%d) must be less than ingestion.chunk_size_words (%d)",
			c.Ingestion.ChunkOverlapWords, c.Ingestion.ChunkSizeWords,
		)
	}
	if c.Chat.Routing.RetryMaxDelayMs < c.Chat.Routing.RetryBaseDelayMs {
		return fmt.Errorf(
			"chat.routing.retry_max_delay_ms (%d) must be at least retry_base_delay_ms (%d)",
			c.Chat.Routing.RetryMaxDelayMs, c.Chat.Routing.RetryBaseDelayMs,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
