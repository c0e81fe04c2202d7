package similarity

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoized token pairs.
const DefaultCacheSize = 10_000

// Pair is an unordered token pair stored in canonical (A <= B) order.
type Pair struct {
	A, B string
}

// Cache memoizes token similarities. Implementations must be safe for
// concurrent use; a miss only costs a recomputation.
type Cache interface {
	Get(key Pair) (float64, bool)
	Add(key Pair, value float64)
}

type lruCache struct {
	inner *lru.Cache[Pair, float64]
}

// NewLRUCache returns a fixed-capacity, thread-safe LRU cache.
// Non-positive sizes fall back to DefaultCacheSize.
func NewLRUCache(size int) Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	inner, err := lru.New[Pair, float64](size)
	if err != nil {
		// lru.New only fails for non-positive sizes
		panic(err)
	}
	return &lruCache{inner: inner}
}

func (c *lruCache) Get(key Pair) (float64, bool) {
	return c.inner.Get(key)
}

func (c *lruCache) Add(key Pair, value float64) {
	c.inner.Add(key, value)
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(Pair) (float64, bool) { return 0, false }
func (NopCache) Add(Pair, float64)        {}
