// internal/llmclient/guarded.go
package llmclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Guarded wraps a client with a shared rate limit and bounded retries.
// Retries use exponential backoff and stop early on context errors.
type Guarded struct {
	inner      Client
	limiter    *rate.Limiter
	maxRetries int
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// NewGuarded wraps inner. A non-positive rps disables rate limiting.
func NewGuarded(inner Client, rps float64, burst, maxRetries int, logger *zap.Logger) *Guarded {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Guarded{
		inner:      inner,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     logger.Named("llm_guard"),
	}
}

// Generate waits for a rate limit token before every attempt.
func (g *Guarded) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	attempt := 0
	operation := func() error {
		attempt++
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter wait failed: %w", err))
		}
		resp, err := g.inner.Generate(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			g.logger.Warn("LLM request failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		out = resp
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), uint64(g.maxRetries)), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return "", err
	}
	return out, nil
}
