package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
	"github.com/omnirecall/omnirecall/internal/repository/memory"
	chatuc "github.com/omnirecall/omnirecall/internal/usecase/chat"
	healthuc "github.com/omnirecall/omnirecall/internal/usecase/health"
	ingestionuc "github.com/omnirecall/omnirecall/internal/usecase/ingestion"
	recalluc "github.com/omnirecall/omnirecall/internal/usecase/recall"
)

// stubEmbedder returns a fixed vector for every input.
type stubEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (e *stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return e.result, nil
}

func okEmbedder() *stubEmbedder {
	return &stubEmbedder{result: domain.EmbeddingResult{
		Vector: []float32{0.5, 0.5, 0.5},
		Status: domain.EmbeddingSuccess,
		Model:  "test-embed",
	}}
}

// stubChatClient answers every prompt with a canned response or error.
type stubChatClient struct {
	name  string
	text  string
	model string
	err   error
	calls int
}

func (c *stubChatClient) ProviderName() string { return c.name }

func (c *stubChatClient) Complete(context.Context, string) (domain.ChatResponse, error) {
	c.calls++
	if c.err != nil {
		return domain.ChatResponse{}, c.err
	}
	return domain.ChatResponse{Text: c.text, Model: c.model, Provider: c.name}, nil
}

type testEnv struct {
	store    *memory.Store
	router   chi.Router
	primary  *stubChatClient
	fallback *stubChatClient
}

// newTestEnv assembles the full API over in-memory storage with stub
// providers, mirroring the production composition root.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	store := memory.NewStore()
	raw := memory.NewRawStore()

	ingestSvc := ingestionuc.New(store, raw, okEmbedder(), ingestionuc.DefaultOptions(), logger)
	recallSvc := recalluc.New(store, okEmbedder(), recalluc.DefaultOptions(), logger)

	primary := &stubChatClient{name: "gemini", text: "Grounded answer [1].", model: "gemini-2.5-flash"}
	fallback := &stubChatClient{name: "github-models", text: "fallback", model: "deepseek"}
	chatRouter := chatuc.NewRouter(primary, fallback, chatuc.DefaultRouterOptions(), logger)
	chatSvc := chatuc.New(recallSvc, chatRouter, chatuc.DefaultQualityOptions(), logger)

	healthSvc := healthuc.New(store, nil)

	server := NewServer(ingestSvc, recallSvc, chatSvc, healthSvc, 0, logger)
	r := chi.NewRouter()
	server.Routes(r)

	return &testEnv{store: store, router: r, primary: primary, fallback: fallback}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// uploadRequest builds a multipart upload with a single file part.
func uploadRequest(t *testing.T, fileName, content, sourceType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if sourceType != "" {
		if err := mw.WriteField("sourceType", sourceType); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
