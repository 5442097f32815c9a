package omnirecall

import "github.com/omnirecall/omnirecall/internal/domain"

// Sentinel errors surfaced by the client. Match with errors.Is.
var (
	// ErrNotFound signals a missing document.
	ErrNotFound = domain.ErrNotFound
	// ErrInvalidInput signals a rejected argument (blank content, query, prompt).
	ErrInvalidInput = domain.ErrInvalidInput
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = domain.ErrRateLimited
)
