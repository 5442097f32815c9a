package config

import "testing"

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 0},
		Database: DatabaseConfig{
			Driver: "valkey",
			Addrs:  []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_InvalidDriver(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "postgres", Addrs: []string{"localhost:5432"}},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "valkey", Addrs: []string{}},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing addrs")
	}
}

func TestValidate_MemoryDriverWithoutAddrs(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory driver should not require addrs: %v", err)
	}
}

func TestValidate_OverlapMustBeBelowChunkSize(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{Driver: "memory"},
		Ingestion: IngestionConfig{ChunkSizeWords: 50, ChunkOverlapWords: 50},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for overlap >= chunk size")
	}
}

func TestValidate_RetryMaxBelowBase(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "memory"},
		Chat: ChatConfig{
			Routing: ChatRoutingConfig{RetryBaseDelayMs: 2000, RetryMaxDelayMs: 1000},
		},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for retry max below base")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Storage.KeyPrefix != "omnirecall:" {
		t.Errorf("expected KeyPrefix='omnirecall:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Ingestion.ChunkSizeWords != 120 {
		t.Errorf("expected ChunkSizeWords=120, got %d", cfg.Ingestion.ChunkSizeWords)
	}
	if cfg.Ingestion.ChunkOverlapWords != 24 {
		t.Errorf("expected ChunkOverlapWords=24, got %d", cfg.Ingestion.ChunkOverlapWords)
	}
	if cfg.Ingestion.EmbeddingParallelism != 3 {
		t.Errorf("expected EmbeddingParallelism=3, got %d", cfg.Ingestion.EmbeddingParallelism)
	}
	if cfg.Ingestion.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("expected MaxUploadBytes=10MiB, got %d", cfg.Ingestion.MaxUploadBytes)
	}
	if cfg.Recall.CandidateWindow != 300 {
		t.Errorf("expected CandidateWindow=300, got %d", cfg.Recall.CandidateWindow)
	}
	if cfg.Recall.SnippetLength != 180 {
		t.Errorf("expected SnippetLength=180, got %d", cfg.Recall.SnippetLength)
	}
	if cfg.Chat.Quality.MinCitationCount != 1 {
		t.Errorf("expected MinCitationCount=1, got %d", cfg.Chat.Quality.MinCitationCount)
	}
	if cfg.Chat.Quality.MinStrongCitationScore != 0.25 {
		t.Errorf("expected MinStrongCitationScore=0.25, got %v", cfg.Chat.Quality.MinStrongCitationScore)
	}
	if cfg.Chat.Quality.RecallOnlyFallbackMaxCitations != 4 {
		t.Errorf("expected RecallOnlyFallbackMaxCitations=4, got %d", cfg.Chat.Quality.RecallOnlyFallbackMaxCitations)
	}
	if cfg.Chat.Routing.MaxAttemptsPerProvider != 2 {
		t.Errorf("expected MaxAttemptsPerProvider=2, got %d", cfg.Chat.Routing.MaxAttemptsPerProvider)
	}
	if cfg.Chat.Routing.RetryBaseDelayMs != 500 {
		t.Errorf("expected RetryBaseDelayMs=500, got %d", cfg.Chat.Routing.RetryBaseDelayMs)
	}
	if cfg.Chat.Routing.RetryMaxDelayMs != 5000 {
		t.Errorf("expected RetryMaxDelayMs=5000, got %d", cfg.Chat.Routing.RetryMaxDelayMs)
	}
	if cfg.Providers.Gemini.ChatModel != "gemini-2.5-flash" {
		t.Errorf("expected default Gemini chat model, got %q", cfg.Providers.Gemini.ChatModel)
	}
	if cfg.Providers.GitHubModels.Model != "deepseek/DeepSeek-V3-0324" {
		t.Errorf("expected default GitHub Models model, got %q", cfg.Providers.GitHubModels.Model)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database:  DatabaseConfig{Driver: "redis", ReadinessTimeout: 15},
		Storage:   StorageConfig{KeyPrefix: "custom:"},
		Ingestion: IngestionConfig{ChunkSizeWords: 200, ChunkOverlapWords: 40, EmbeddingParallelism: 5},
		Recall:    RecallConfig{CandidateWindow: 500, SnippetLength: 240},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Ingestion.ChunkSizeWords != 200 {
		t.Errorf("expected ChunkSizeWords=200, got %d", cfg.Ingestion.ChunkSizeWords)
	}
	if cfg.Recall.CandidateWindow != 500 {
		t.Errorf("expected CandidateWindow=500, got %d", cfg.Recall.CandidateWindow)
	}
}
