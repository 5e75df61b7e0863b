package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/markwise/markwise-api/pkg/ai"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	maxJitter          = time.Second
)

// RetryPolicy wraps a single provider call with bounded retries and full
// exponential backoff plus jitter. Attempt i (zero-indexed) waits
// baseDelay*2^i + uniform(0, 1s) before attempt i+1.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewRetryPolicy builds a policy with the given budget. Non-positive values
// fall back to the defaults (3 attempts, 1s base delay).
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxJitter:   maxJitter,
		sleep:       sleepContext,
		jitter:      rand.Float64,
	}
}

// NoRetry is a single-attempt policy for lighter call sites.
func NoRetry() RetryPolicy {
	return NewRetryPolicy(1, defaultBaseDelay)
}

// Delay computes the backoff before the attempt following zero-indexed
// attempt i. Exposed for the orchestrator's diagnostics and for tests.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	backoff := p.BaseDelay * (1 << attempt)
	return backoff + time.Duration(p.jitter()*float64(p.MaxJitter))
}

// Do runs fn until it succeeds, the retry budget is exhausted, or the
// context is cancelled. Only transport-level failures are retried; an
// unconfigured provider or any other error class short-circuits out. The
// final attempt's failure is returned, not swallowed.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, int, error) {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		text, err := fn(ctx)
		if err == nil {
			return text, attempt + 1, nil
		}
		lastErr = err

		if errors.Is(err, ai.ErrUnconfigured) || !ai.IsTransport(err) {
			return "", attempt + 1, err
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		if err := p.sleep(ctx, p.Delay(attempt)); err != nil {
			return "", attempt + 1, fmt.Errorf("retry aborted: %w", err)
		}
	}
	return "", p.MaxAttempts, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
