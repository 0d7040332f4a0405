package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"promptopt/internal/logging"
)

// CallPolicy configures the wrappers applied around a provider.
type CallPolicy struct {
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
}

// Wrap applies throttling, retries and a per-attempt timeout, outermost first.
func Wrap(provider Provider, policy CallPolicy, logger logging.Logger) Provider {
	wrapped := provider
	if policy.Timeout > 0 {
		wrapped = WithTimeout(wrapped, policy.Timeout)
	}
	if policy.MaxAttempts > 1 {
		wrapped = WithRetry(wrapped, policy.MaxAttempts, policy.InitialBackoff, logger)
	}
	if policy.RequestsPerSecond > 0 {
		wrapped = WithRateLimit(wrapped, rate.NewLimiter(rate.Limit(policy.RequestsPerSecond), max(policy.Burst, 1)))
	}
	return wrapped
}

// WithRateLimit waits on limiter before each call.
func WithRateLimit(provider Provider, limiter *rate.Limiter) Provider {
	return ProviderFunc(func(ctx context.Context, req Request) (Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("rate limit wait: %w", err)
		}
		return provider.Complete(ctx, req)
	})
}

// WithTimeout bounds every call by timeout.
func WithTimeout(provider Provider, timeout time.Duration) Provider {
	return ProviderFunc(func(ctx context.Context, req Request) (Response, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		resp, err := provider.Complete(callCtx, req)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Response{}, fmt.Errorf("call timed out after %s: %w", timeout, err)
		}
		return resp, err
	})
}

// WithRetry retries transient failures with exponential backoff.
func WithRetry(provider Provider, maxAttempts int, initial time.Duration, logger logging.Logger) Provider {
	logger = logging.OrNop(logger)
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	return ProviderFunc(func(ctx context.Context, req Request) (Response, error) {
		attempt := 0
		operation := func() (Response, error) {
			attempt++
			resp, err := provider.Complete(ctx, req)
			if err == nil {
				return resp, nil
			}
			if ctx.Err() != nil || !Retryable(err) {
				return Response{}, backoff.Permanent(err)
			}
			logger.Warn("provider call failed, retrying", "model", req.Model, "attempt", attempt, "error", err)
			return Response{}, err
		}
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = initial
		return backoff.Retry(ctx, operation,
			backoff.WithBackOff(policy),
			backoff.WithMaxTries(uint(maxAttempts)),
		)
	})
}

// Retryable reports whether err is transient: throttling, server errors,
// timeouts and network failures.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyResponse) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
