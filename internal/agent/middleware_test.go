package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type flakyProvider struct {
	failures []error
	calls    int
}

func (f *flakyProvider) Complete(ctx context.Context, req Request) (Response, error) {
	f.calls++
	if f.calls <= len(f.failures) {
		return Response{}, f.failures[f.calls-1]
	}
	return Response{Text: "ok"}, nil
}

// TestWithRetryRecoversFromTransientErrors verifies retryable failures are retried.
func TestWithRetryRecoversFromTransientErrors(t *testing.T) {
	flaky := &flakyProvider{failures: []error{
		&StatusError{Provider: "test", StatusCode: 503},
		&StatusError{Provider: "test", StatusCode: 429},
	}}
	provider := WithRetry(flaky, 3, time.Millisecond, nil)
	resp, err := provider.Complete(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "ok" || flaky.calls != 3 {
		t.Fatalf("expected success on third call, got %q after %d", resp.Text, flaky.calls)
	}
}

// TestWithRetryStopsOnPermanentError verifies client errors are not retried.
func TestWithRetryStopsOnPermanentError(t *testing.T) {
	flaky := &flakyProvider{failures: []error{&StatusError{Provider: "test", StatusCode: 400, Body: "bad"}}}
	provider := WithRetry(flaky, 5, time.Millisecond, nil)
	_, err := provider.Complete(context.Background(), Request{Model: "m"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 400 {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if flaky.calls != 1 {
		t.Fatalf("expected one call, got %d", flaky.calls)
	}
}

// TestWithRetryGivesUpAfterMaxAttempts verifies the attempt budget.
func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	transient := &StatusError{Provider: "test", StatusCode: 500}
	flaky := &flakyProvider{failures: []error{transient, transient, transient, transient}}
	provider := WithRetry(flaky, 2, time.Millisecond, nil)
	if _, err := provider.Complete(context.Background(), Request{Model: "m"}); err == nil {
		t.Fatalf("expected error after retries")
	}
	if flaky.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", flaky.calls)
	}
}

// TestWithTimeoutBoundsCalls verifies slow providers are cut off.
func TestWithTimeoutBoundsCalls(t *testing.T) {
	slow := ProviderFunc(func(ctx context.Context, req Request) (Response, error) {
		<-ctx.Done()
		return Response{}, ctx.Err()
	})
	provider := WithTimeout(slow, 10*time.Millisecond)
	_, err := provider.Complete(context.Background(), Request{Model: "m"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !Retryable(err) {
		t.Fatalf("expected timeouts to be retryable")
	}
}

// TestWithRateLimitHonorsCancellation verifies waiting respects the context.
func TestWithRateLimitHonorsCancellation(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	calls := 0
	provider := WithRateLimit(ProviderFunc(func(context.Context, Request) (Response, error) {
		calls++
		return Response{Text: "ok"}, nil
	}), limiter)

	if _, err := provider.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := provider.Complete(ctx, Request{}); err == nil {
		t.Fatalf("expected second call to be throttled")
	}
	if calls != 1 {
		t.Fatalf("expected one call to reach the provider, got %d", calls)
	}
}
