package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
)

func newTestEmbedder(serverURL string) *Embedder {
	return NewEmbedder(&Config{
		Token:   "test-token",
		BaseURL: serverURL,
		Model:   "text-embedding-3-small",
		Logger:  zap.NewNop(),
	})
}

func TestEmbedderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [{"embedding": [0.1, 0.2, 0.3], "index": 0}],
			"model": "text-embedding-3-small"
		}`))
	}))
	defer server.Close()

	result, err := newTestEmbedder(server.URL).Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if result.Status != domain.EmbeddingSuccess {
		t.Fatalf("status: got %s, want %s", result.Status, domain.EmbeddingSuccess)
	}
	if len(result.Vector) != 3 {
		t.Errorf("vector length: got %d, want 3", len(result.Vector))
	}
	if result.Model != "text-embedding-3-small" {
		t.Errorf("model: got %q", result.Model)
	}
}

func TestEmbedderBlankInput(t *testing.T) {
	result, err := newTestEmbedder("http://unused").Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if result.Status != domain.EmbeddingEmpty {
		t.Errorf("status: got %s, want %s", result.Status, domain.EmbeddingEmpty)
	}
}

func TestEmbedderRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	result, err := newTestEmbedder(server.URL).Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if result.Status != domain.EmbeddingRateLimited {
		t.Errorf("status: got %s, want %s", result.Status, domain.EmbeddingRateLimited)
	}
}

func TestEmbedderAuthRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad token", "type": "auth"}}`))
	}))
	defer server.Close()

	result, err := newTestEmbedder(server.URL).Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if result.Status != domain.EmbeddingError {
		t.Errorf("status: got %s, want %s", result.Status, domain.EmbeddingError)
	}
}

func TestEmbedderMissingValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [], "model": "text-embedding-3-small"}`))
	}))
	defer server.Close()

	result, err := newTestEmbedder(server.URL).Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if result.Status != domain.EmbeddingEmpty {
		t.Errorf("status: got %s, want %s", result.Status, domain.EmbeddingEmpty)
	}
}
