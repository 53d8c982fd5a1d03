package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter is a token bucket refilled continuously at perMinute tokens per
// minute, holding at most perMinute tokens.
type rateLimiter struct {
	lastRefill time.Time
	now        func() time.Time
	tokens     float64
	capacity   float64
	perSecond  float64
	mu         sync.Mutex
}

// newRateLimiter creates a limiter allowing requestsPerMinute calls per minute.
// A non-positive rate disables limiting.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &rateLimiter{
		tokens:     float64(requestsPerMinute),
		capacity:   float64(requestsPerMinute),
		perSecond:  float64(requestsPerMinute) / 60.0,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// wait blocks until a token is available or the context is done. A nil
// limiter never blocks.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	for {
		delay := rl.reserve()
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// reserve takes a token if one is available and otherwise reports how long
// until the next one.
func (rl *rateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.perSecond)

	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	missing := 1 - rl.tokens
	return time.Duration(missing / rl.perSecond * float64(time.Second))
}
