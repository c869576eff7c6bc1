package feature

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// CompletionCache keeps recent complete completion results keyed by
// document version, position, trigger and registry generation. Results a
// provider marked incomplete are never stored.
//
// A nil *CompletionCache is valid and caches nothing.
type CompletionCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCompletionCache creates a cache holding at most maxEntries results,
// each for at most ttl. A zero ttl keeps entries until they are evicted.
func NewCompletionCache(maxEntries int64, ttl time.Duration) (*CompletionCache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("completion cache: max entries must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("completion cache: %w", err)
	}
	return &CompletionCache{cache: c, ttl: ttl}, nil
}

type completionKey struct {
	uri        string
	version    int
	pos        Position
	trigger    CompletionTriggerKind
	char       string
	generation uint64
}

func (k completionKey) String() string {
	return fmt.Sprintf("%s@%d:%d:%d:%d:%q#%d", k.uri, k.version, k.pos.Line, k.pos.Character, k.trigger, k.char, k.generation)
}

func (c *CompletionCache) get(key completionKey) (*CompletionResult, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key.String())
	if !ok {
		return nil, false
	}
	res, ok := v.(*CompletionResult)
	if !ok {
		c.cache.Del(key.String())
		return nil, false
	}
	return cloneCompletionResult(res), true
}

func (c *CompletionCache) set(key completionKey, res *CompletionResult) {
	if c == nil {
		return
	}
	c.cache.SetWithTTL(key.String(), cloneCompletionResult(res), 1, c.ttl)
}

// Wait blocks until pending writes are visible to readers.
func (c *CompletionCache) Wait() {
	if c != nil {
		c.cache.Wait()
	}
}

// Clear drops every cached result.
func (c *CompletionCache) Clear() {
	if c != nil {
		c.cache.Clear()
	}
}

// Close stops the cache's background goroutines.
func (c *CompletionCache) Close() {
	if c != nil {
		c.cache.Close()
	}
}
