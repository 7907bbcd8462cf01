package port

import (
	"context"
	"time"

	"github.com/rl1809/eco-bazaar/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency claims a key, returns false if it is already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// GetProduct returns (nil, nil) on a cache miss
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	SetProduct(ctx context.Context, p domain.Product) error
	InvalidateProduct(ctx context.Context, ids ...int64) error

	// RevokeToken deny-lists a token id until ttl passes
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}
