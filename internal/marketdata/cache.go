package marketdata

import (
	"sync"
	"time"
)

type cacheEntry struct {
	price float64
	at    time.Time
}

// PriceCache is a thread-safe TTL cache of last-seen prices. The streaming
// feed writes into it; pollers read from it before hitting the REST API.
type PriceCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func NewPriceCache(ttl time.Duration) *PriceCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PriceCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *PriceCache) Set(symbol string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = cacheEntry{price: price, at: time.Now()}
}

// Get returns the cached price if present and fresh.
func (c *PriceCache) Get(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok || time.Since(e.at) > c.ttl {
		return 0, false
	}
	return e.price, true
}
