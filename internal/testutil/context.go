package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// DefaultTimeout bounds a test context when the caller passes zero.
const DefaultTimeout = 5 * time.Second

// Context derives from t.Context, so it is cancelled when the test ends, and
// times out after timeout or one second before the test deadline, whichever
// is sooner. context.Cause names the test that ran out of time.
func Context(t testing.TB, timeout time.Duration) context.Context {
	t.Helper()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if dt, ok := t.(interface{ Deadline() (time.Time, bool) }); ok {
		if deadline, ok := dt.Deadline(); ok {
			if remaining := time.Until(deadline) - time.Second; remaining > 0 && remaining < timeout {
				timeout = remaining
			}
		}
	}
	cause := fmt.Errorf("%s: test context expired after %s", t.Name(), timeout)
	ctx, cancel := context.WithTimeoutCause(t.Context(), timeout, cause)
	t.Cleanup(cancel)
	return ctx
}
