package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/provider"
)

// KeyFunc derives a cache key from a literal tag and the text being analyzed.
type KeyFunc func(tag, text string) string

// SHA256Key is the default KeyFunc: the tag plus a hex SHA-256 digest of text.
func SHA256Key(tag, text string) string {
	sum := sha256.Sum256([]byte(text))
	return tag + "_" + hex.EncodeToString(sum[:])
}

// Cache memoizes completion text by key for the lifetime of the process.
// There is no eviction. Two concurrent misses on one key may both compute;
// the first value stored wins and is what every later caller sees.
type Cache struct {
	mu      sync.Mutex
	entries map[string]string

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// GetOrCompute returns the cached value for key, or runs compute and stores its
// result. Errors from compute are returned and not cached.
func (c *Cache) GetOrCompute(key string, compute func() (string, error)) (string, error) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return v, nil
	}
	c.mu.Unlock()
	c.misses.Add(1)

	v, err := compute()
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, nil
	}
	c.entries[key] = v
	return v, nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// CachedCompleter pairs a completion client with the cache that lives and dies
// with it. Every pipeline sharing a CachedCompleter shares its entries.
type CachedCompleter struct {
	provider.Completer
	Cache *Cache
	Key   KeyFunc
}

// NewCachedCompleter wraps c with a fresh cache keyed by SHA256Key.
func NewCachedCompleter(c provider.Completer) *CachedCompleter {
	return &CachedCompleter{Completer: c, Cache: NewCache(), Key: SHA256Key}
}

// CompleteCached returns the memoized completion for (tag, keyText) or performs
// the request. keyText is what the key is derived from; text is what is sent.
func (c *CachedCompleter) CompleteCached(ctx context.Context, tag, keyText, prompt, text string, maxTokens int) (string, error) {
	keyFn := c.Key
	if keyFn == nil {
		keyFn = SHA256Key
	}
	return c.Cache.GetOrCompute(keyFn(tag, keyText), func() (string, error) {
		return c.Complete(ctx, prompt, text, maxTokens)
	})
}
