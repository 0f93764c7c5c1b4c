package getair

import (
	"context"
	"time"
)

// Backoff determines how often, and how long between attempts, a failing request is retried.
type Backoff struct {
	Initial  time.Duration
	Max      time.Duration
	Attempts int
}

var (
	DefaultBackoff     = Backoff{Initial: time.Second, Max: 8 * time.Second, Attempts: 4}
	DefaultAuthBackoff = Backoff{Initial: time.Second, Max: 4 * time.Second, Attempts: 3}
)

// Delay returns the time to wait after the given (1-based) failed attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	delay := b.Initial
	for i := 1; i < attempt && delay < b.Max; i++ {
		delay *= 2
	}
	return min(delay, b.Max)
}

func (b Backoff) attempts() int {
	return max(b.Attempts, 1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
