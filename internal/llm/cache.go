package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// replyCache stores model replies keyed by a hash of the prompt. Identical
// transactions in one run share a prompt, so they share a reply.
type replyCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	writes  int
	mu      sync.RWMutex
}

// sweepEvery is how many writes pass between expiry sweeps.
const sweepEvery = 256

type cacheEntry struct {
	expiry time.Time
	reply  string
}

// newReplyCache creates a cache with the given TTL. A non-positive TTL
// disables caching.
func newReplyCache(ttl time.Duration) *replyCache {
	if ttl <= 0 {
		return nil
	}
	return &replyCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// get returns a reply that has not expired.
func (c *replyCache) get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiry) {
		return "", false
	}
	return entry.reply, true
}

// set stores a reply, periodically dropping expired entries.
func (c *replyCache) set(key, reply string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.writes++
	if c.writes%sweepEvery == 0 {
		for k, entry := range c.entries {
			if now.After(entry.expiry) {
				delete(c.entries, k)
			}
		}
	}
	c.entries[key] = cacheEntry{reply: reply, expiry: now.Add(c.ttl)}
}

// size returns the number of stored entries, expired or not.
func (c *replyCache) size() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
