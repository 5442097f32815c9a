package chat

import (
	"context"

	"github.com/omnirecall/omnirecall/internal/usecase/recall"
)

// Recaller retrieves scored citations for a query.
type Recaller interface {
	Search(ctx context.Context, query string, topK int) (recall.Result, error)
}
