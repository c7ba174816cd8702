package bgg

import (
	"context"
	"sync"
	"time"
)

// limiter enforces a minimum delay between dispatched requests.
// The mutex is held for the full wait so concurrent callers serialize at the
// dispatch point; retries go through the same gate as first attempts.
type limiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	next     time.Time
}

func newLimiter(minDelay time.Duration) *limiter {
	return &limiter{minDelay: minDelay}
}

// wait blocks until a request may be dispatched, or the context is canceled.
func (l *limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if d := time.Until(l.next); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	l.next = time.Now().Add(l.minDelay)
	return nil
}
