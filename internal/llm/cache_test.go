package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplyCache(t *testing.T) {
	cache := newReplyCache(time.Minute)
	clock := time.Now()
	cache.now = func() time.Time { return clock }

	key := cacheKey("prompt")
	assert.Equal(t, key, cacheKey("prompt"))
	assert.NotEqual(t, key, cacheKey("other prompt"))

	_, ok := cache.get(key)
	assert.False(t, ok)

	cache.set(key, "reply")
	got, ok := cache.get(key)
	assert.True(t, ok)
	assert.Equal(t, "reply", got)

	clock = clock.Add(2 * time.Minute)
	_, ok = cache.get(key)
	assert.False(t, ok, "expired entries are not returned")
}

func TestReplyCache_Disabled(t *testing.T) {
	cache := newReplyCache(0)
	assert.Nil(t, cache)

	cache.set("k", "v")
	_, ok := cache.get("k")
	assert.False(t, ok)
	assert.Zero(t, cache.size())
}
