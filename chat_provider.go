package omnirecall

import (
	"context"
	"fmt"

	"github.com/omnirecall/omnirecall/internal/domain"
)

// ChatResult is one completion from a chat provider.
type ChatResult struct {
	Text     string
	Model    string
	Provider string
}

// ChatProvider is a chat completion backend. Returned errors should wrap
// ErrRateLimited for quota rejections so the router retries them.
type ChatProvider interface {
	ProviderName() string
	Complete(ctx context.Context, prompt string) (ChatResult, error)
}

// chatProviderAdapter wraps the public ChatProvider to satisfy the internal
// contract.
type chatProviderAdapter struct {
	inner ChatProvider
}

func (a *chatProviderAdapter) ProviderName() string { return a.inner.ProviderName() }

func (a *chatProviderAdapter) Complete(ctx context.Context, prompt string) (domain.ChatResponse, error) {
	r, err := a.inner.Complete(ctx, prompt)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("%s: %w", a.inner.ProviderName(), err)
	}
	return domain.ChatResponse{Text: r.Text, Model: r.Model, Provider: r.Provider}, nil
}
