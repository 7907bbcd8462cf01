package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryCache keeps the cache contract in process memory. Expired entries are
// dropped lazily on read.
type MemoryCache struct {
	mu       sync.Mutex
	now      func() time.Time
	keys     map[string]cacheEntry[struct{}]
	products map[int64]cacheEntry[domain.Product]
	revoked  map[string]cacheEntry[struct{}]
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		now:      time.Now,
		keys:     make(map[string]cacheEntry[struct{}]),
		products: make(map[int64]cacheEntry[domain.Product]),
		revoked:  make(map[string]cacheEntry[struct{}]),
	}
}

func live[K comparable, T any](m map[K]cacheEntry[T], key K, now time.Time) (T, bool) {
	e, ok := m[key]
	if !ok {
		var zero T
		return zero, false
	}
	if now.After(e.expiresAt) {
		delete(m, key)
		return e.value, false
	}
	return e.value, true
}

func (c *MemoryCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, ok := live(c.keys, key, now); ok {
		return false, nil
	}
	c.keys[key] = cacheEntry[struct{}]{expiresAt: now.Add(idempotencyKeyTTL)}
	return true, nil
}

func (c *MemoryCache) ReleaseIdempotency(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
	return nil
}

func (c *MemoryCache) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := live(c.products, id, c.now())
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *MemoryCache) SetProduct(_ context.Context, p domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = cacheEntry[domain.Product]{value: p, expiresAt: c.now().Add(productCacheTTL)}
	return nil
}

func (c *MemoryCache) InvalidateProduct(_ context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.products, id)
	}
	return nil
}

func (c *MemoryCache) RevokeToken(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[tokenID] = cacheEntry[struct{}]{expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := live(c.revoked, tokenID, c.now())
	return ok, nil
}
