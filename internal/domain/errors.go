package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidInput signals a caller error rejected before any I/O.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoChunksProduced signals that chunking yielded nothing to embed.
	ErrNoChunksProduced = errors.New("no chunks produced for document")
	// ErrRateLimited signals a provider rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderTransient marks a retry-worthy provider failure that is not
	// otherwise recognizable as a rate limit or network error.
	ErrProviderTransient = errors.New("transient provider failure")
	// ErrEmptyResponse signals a provider response without usable chat text.
	ErrEmptyResponse = errors.New("provider returned no chat text")
)

// ProviderUnavailableError aggregates both causes when the primary and
// fallback chat providers are exhausted.
type ProviderUnavailableError struct {
	Primary     string
	Fallback    string
	PrimaryErr  error
	FallbackErr error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("both chat providers failed: primary=%s, fallback=%s", e.Primary, e.Fallback)
}

// Unwrap surfaces the fallback cause when present, otherwise the primary one.
func (e *ProviderUnavailableError) Unwrap() error {
	if e.FallbackErr != nil {
		return e.FallbackErr
	}
	return e.PrimaryErr
}

// IsTransient reports whether a provider failure is retry-worthy: rate
// limits, timeouts, and network-level errors. Anything else (auth rejection,
// malformed response) fails the provider immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderTransient) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
