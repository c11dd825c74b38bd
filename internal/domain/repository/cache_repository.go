package repository

import (
	"context"
	"time"

	"github.com/urban-indicators/internal/domain"
)

// CacheRepository is a key/value cache
type CacheRepository interface {
	// Get returns the cached value, nil without error on a miss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key is present
	Exists(ctx context.Context, key string) (bool, error)

	// GetLayer returns a cached provider layer, nil without error on a miss
	GetLayer(ctx context.Context, key string) (*domain.FeatureSet, error)

	// SetLayer caches a provider layer
	SetLayer(ctx context.Context, key string, layer *domain.FeatureSet, ttl time.Duration) error
}
