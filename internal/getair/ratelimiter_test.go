package getair

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Wait(t *testing.T) {
	const (
		limit  = 5
		window = 200 * time.Millisecond
	)
	r := NewRateLimiter(limit, window, time.Second)

	var lock sync.Mutex
	var admitted []time.Time
	var wg sync.WaitGroup
	for range 3 * limit {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Wait(context.Background()))
			lock.Lock()
			admitted = append(admitted, time.Now())
			lock.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, admitted, 3*limit)
	for i := range admitted {
		var inWindow int
		for j := range admitted {
			if d := admitted[j].Sub(admitted[i]); d >= 0 && d < window-10*time.Millisecond {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, limit)
	}
}

func TestRateLimiter_MaxWait(t *testing.T) {
	r := NewRateLimiter(2, time.Hour, time.Second)
	require.NoError(t, r.Wait(context.Background()))
	require.NoError(t, r.Wait(context.Background()))
	assert.Equal(t, 2, r.Admitted())

	start := time.Now()
	err := r.Wait(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 2, r.Admitted())
}

func TestRateLimiter_Cancel(t *testing.T) {
	r := NewRateLimiter(1, time.Hour, 2*time.Hour)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_Window(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(5, time.Minute, 0)
	r.now = func() time.Time { return now }

	for range 5 {
		require.NoError(t, r.Wait(context.Background()))
		now = now.Add(10 * time.Second)
	}
	// t=50s: five attempts in the last minute
	assert.ErrorIs(t, r.Wait(context.Background()), ErrRateLimited)

	// t=60s: the first attempt left the window
	now = now.Add(10 * time.Second)
	assert.NoError(t, r.Wait(context.Background()))
	assert.ErrorIs(t, r.Wait(context.Background()), ErrRateLimited)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 8 * time.Second, Attempts: 5}
	var got []time.Duration
	for attempt := 1; attempt <= 6; attempt++ {
		got = append(got, b.Delay(attempt))
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second, 8 * time.Second}, got)
	assert.Equal(t, 1, Backoff{}.attempts())
}
