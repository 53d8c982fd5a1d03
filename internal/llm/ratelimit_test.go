package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("burst up to capacity", func(t *testing.T) {
		rl := newRateLimiter(10)
		for i := 0; i < 10; i++ {
			assert.Zero(t, rl.reserve())
		}
		assert.Positive(t, rl.reserve())
	})

	t.Run("refills over time", func(t *testing.T) {
		rl := newRateLimiter(60)
		clock := time.Now()
		rl.now = func() time.Time { return clock }
		rl.lastRefill = clock

		for i := 0; i < 60; i++ {
			require.Zero(t, rl.reserve())
		}
		wait := rl.reserve()
		assert.InDelta(t, float64(time.Second), float64(wait), float64(10*time.Millisecond))

		clock = clock.Add(2 * time.Second)
		assert.Zero(t, rl.reserve())
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl := newRateLimiter(1)
		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := rl.wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("disabled limiter never blocks", func(t *testing.T) {
		rl := newRateLimiter(0)
		assert.Nil(t, rl)
		assert.NoError(t, rl.wait(context.Background()))
	})
}
