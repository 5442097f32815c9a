package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/omnirecall/omnirecall/internal/domain"
	"github.com/omnirecall/omnirecall/internal/metrics"
)

// RouterOptions tunes per-provider retries and backoff.
type RouterOptions struct {
	MaxAttemptsPerProvider int
	RetryBaseDelay         time.Duration
	RetryMaxDelay          time.Duration
}

// DefaultRouterOptions returns the standard routing settings.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		MaxAttemptsPerProvider: 2,
		RetryBaseDelay:         500 * time.Millisecond,
		RetryMaxDelay:          5 * time.Second,
	}
}

// Router tries the primary chat provider with bounded retries, then the
// fallback. Transient failures retry with exponential backoff; anything else
// abandons that provider immediately.
type Router struct {
	primary  domain.ChatClient
	fallback domain.ChatClient
	opts     RouterOptions
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRouter creates a primary/fallback chat router.
func NewRouter(primary, fallback domain.ChatClient, opts RouterOptions, logger *zap.Logger) *Router {
	return &Router{
		primary:  primary,
		fallback: fallback,
		opts:     opts,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Complete routes a prompt through primary then fallback. When both are
// exhausted it returns a domain.ProviderUnavailableError carrying each
// provider's final cause.
func (r *Router) Complete(ctx context.Context, prompt string) (domain.ChatResponse, error) {
	resp, primaryErr := r.tryProvider(ctx, r.primary, prompt)
	if primaryErr == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return domain.ChatResponse{}, ctx.Err()
	}

	metrics.ChatFailoversTotal.Inc()
	r.logger.Warn("primary provider failed after retries, falling back",
		zap.String("primary", r.primary.ProviderName()),
		zap.String("fallback", r.fallback.ProviderName()),
		zap.Error(primaryErr),
	)

	resp, fallbackErr := r.tryProvider(ctx, r.fallback, prompt)
	if fallbackErr == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return domain.ChatResponse{}, ctx.Err()
	}

	return domain.ChatResponse{}, &domain.ProviderUnavailableError{
		Primary:     r.primary.ProviderName(),
		Fallback:    r.fallback.ProviderName(),
		PrimaryErr:  primaryErr,
		FallbackErr: fallbackErr,
	}
}

func (r *Router) tryProvider(ctx context.Context, client domain.ChatClient, prompt string) (domain.ChatResponse, error) {
	attempts := max(1, r.opts.MaxAttemptsPerProvider)
	var lastErr error

	for i := 1; i <= attempts; i++ {
		resp, err := client.Complete(ctx, prompt)
		if err == nil {
			metrics.ChatProviderAttemptsTotal.WithLabelValues(client.ProviderName(), "success").Inc()
			return resp, nil
		}
		if !domain.IsTransient(err) {
			metrics.ChatProviderAttemptsTotal.WithLabelValues(client.ProviderName(), "failed").Inc()
			r.logger.Warn("non-transient provider failure",
				zap.String("provider", client.ProviderName()),
				zap.Error(err),
			)
			return domain.ChatResponse{}, err
		}

		lastErr = err
		metrics.ChatProviderAttemptsTotal.WithLabelValues(client.ProviderName(), "transient").Inc()
		r.logger.Warn("transient provider failure",
			zap.String("provider", client.ProviderName()),
			zap.Int("attempt", i),
			zap.Int("total_attempts", attempts),
			zap.Error(err),
		)

		if i < attempts {
			if delay := backoffDelay(i, r.opts); delay > 0 {
				if err := r.sleep(ctx, delay); err != nil {
					return domain.ChatResponse{}, err
				}
			}
		}
	}
	return domain.ChatResponse{}, lastErr
}

// backoffDelay grows the base delay by powers of two per attempt, saturating
// at the max. A zero or negative base disables waiting.
func backoffDelay(attempt int, opts RouterOptions) time.Duration {
	base := opts.RetryBaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := opts.RetryMaxDelay
	if maxDelay < base {
		maxDelay = base
	}

	delay := base
	for i := 0; i < attempt-1; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
