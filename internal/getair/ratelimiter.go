package getair

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultAuthLimit   = 5
	DefaultAuthWindow  = time.Minute
	DefaultAuthMaxWait = 2 * time.Minute
)

// RateLimiter admits at most limit attempts in any rolling window.
// Attempts beyond the limit are delayed until the window admits them.
// If that takes longer than maxWait, Wait fails with ErrRateLimited.
type RateLimiter struct {
	limit    int
	window   time.Duration
	maxWait  time.Duration
	now      func() time.Time
	admitted []time.Time
	lock     sync.Mutex
}

func NewRateLimiter(limit int, window time.Duration, maxWait time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   max(limit, 1),
		window:  window,
		maxWait: maxWait,
		now:     time.Now,
	}
}

// Wait blocks until an attempt is admitted.
func (r *RateLimiter) Wait(ctx context.Context) error {
	deadline := r.now().Add(r.maxWait)
	for {
		wait, ok := r.tryAdmit()
		if ok {
			return nil
		}
		if r.now().Add(wait).After(deadline) {
			return fmt.Errorf("%w: %d attempts in the last %s", ErrRateLimited, r.limit, r.window)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Admitted returns the number of attempts in the current window.
func (r *RateLimiter) Admitted() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.prune(r.now())
	return len(r.admitted)
}

func (r *RateLimiter) tryAdmit() (time.Duration, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	now := r.now()
	r.prune(now)
	if len(r.admitted) < r.limit {
		r.admitted = append(r.admitted, now)
		return 0, true
	}
	return r.admitted[0].Add(r.window).Sub(now), false
}

func (r *RateLimiter) prune(now time.Time) {
	var i int
	for i < len(r.admitted) && now.Sub(r.admitted[i]) >= r.window {
		i++
	}
	r.admitted = r.admitted[i:]
}
