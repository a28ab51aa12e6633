package slack

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter is used when a 429 response has no usable Retry-After header.
const DefaultRetryAfter = 5 * time.Second

// RetryPolicy decides how long to wait after a 429 and performs the wait.
// There is no attempt cap: a rate-limited request is retried until it
// succeeds, fails otherwise, or the context is canceled.
type RetryPolicy struct {
	DefaultDelay time.Duration // Delay when Retry-After is absent or unparseable (5s)

	// Sleep waits for d or until ctx is done. Tests replace it with a
	// recording no-op.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used by NewClient.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		DefaultDelay: DefaultRetryAfter,
		Sleep:        sleepContext,
	}
}

// Delay reads the Retry-After header as an integer number of seconds.
func (p *RetryPolicy) Delay(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return p.DefaultDelay
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return p.DefaultDelay
	}
	return time.Duration(secs) * time.Second
}

// Wait sleeps for d unless ctx is canceled first.
func (p *RetryPolicy) Wait(ctx context.Context, d time.Duration) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if err := sleep(ctx, d); err != nil {
		return canceled(err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
