package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
	"github.com/omnirecall/omnirecall/internal/usecase/recall"
)

// scriptedClient replays a fixed sequence of responses and errors.
type scriptedClient struct {
	name       string
	steps      []scriptStep
	calls      int
	lastPrompt string
}

type scriptStep struct {
	resp domain.ChatResponse
	err  error
}

func respondWith(text, model, provider string) scriptStep {
	return scriptStep{resp: domain.ChatResponse{Text: text, Model: model, Provider: provider}}
}

func failWith(err error) scriptStep {
	return scriptStep{err: err}
}

func newScriptedClient(name string, steps ...scriptStep) *scriptedClient {
	return &scriptedClient{name: name, steps: steps}
}

func (c *scriptedClient) ProviderName() string { return c.name }

func (c *scriptedClient) Complete(_ context.Context, prompt string) (domain.ChatResponse, error) {
	c.calls++
	c.lastPrompt = prompt
	if len(c.steps) == 0 {
		return domain.ChatResponse{}, domain.ErrEmptyResponse
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	return step.resp, step.err
}

type stubRecaller struct {
	result    recall.Result
	err       error
	lastQuery string
}

func (s *stubRecaller) Search(_ context.Context, query string, _ int) (recall.Result, error) {
	s.lastQuery = query
	return s.result, s.err
}

func testLogger() *zap.Logger { return zap.NewNop() }

func newTestRouter(primary, fallback domain.ChatClient) *Router {
	r := NewRouter(primary, fallback, RouterOptions{MaxAttemptsPerProvider: 2}, zap.NewNop())
	r.sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func testCitation(docID, fileName, snippet string, index int, score float64) domain.Citation {
	return domain.Citation{
		DocumentID: docID,
		FileName:   fileName,
		ChunkID:    domain.ChunkID(docID, index),
		ChunkIndex: index,
		Snippet:    snippet,
		Score:      score,
		CreatedAt:  time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	}
}
