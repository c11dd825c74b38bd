package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
)

type cachedVectorRepository struct {
	next   repository.VectorRepository
	cache  repository.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedVectorRepository serves repeated layer fetches from the cache.
// Reference layers are fetched once per area, so a warm cache saves most
// provider calls on re-runs. Cache failures fall through to the provider.
func NewCachedVectorRepository(next repository.VectorRepository, cache repository.CacheRepository, ttl time.Duration, logger *zap.Logger) repository.VectorRepository {
	return &cachedVectorRepository{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// LayerCacheKey identifies a layer fetch by layer, id field and normalized box.
func LayerCacheKey(layerID int, bbox domain.BoundingBox, idField string) string {
	e := bbox.Normalize()
	return fmt.Sprintf("vector:layer:%d:%s:%d:%.6f,%.6f,%.6f,%.6f",
		layerID, idField, bbox.CoordinateSystem(), e.XMin, e.YMin, e.XMax, e.YMax)
}

func (r *cachedVectorRepository) FetchLayer(ctx context.Context, layerID int, bbox domain.BoundingBox, idField string) (*domain.FeatureSet, error) {
	key := LayerCacheKey(layerID, bbox, idField)

	cached, err := r.cache.GetLayer(ctx, key)
	if err != nil {
		r.logger.Warn("vector cache read failed", zap.String("key", key), zap.Error(err))
	}
	if cached != nil {
		r.logger.Debug("vector layer served from cache",
			zap.Int("layer_id", layerID),
			zap.Int("features", cached.Len()),
		)
		return cached, nil
	}

	fs, err := r.next.FetchLayer(ctx, layerID, bbox, idField)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetLayer(ctx, key, fs, r.ttl); err != nil {
		r.logger.Warn("vector cache write failed", zap.String("key", key), zap.Error(err))
	}
	return fs, nil
}
