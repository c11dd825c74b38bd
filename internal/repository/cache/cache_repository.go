package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
)

type cacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCacheRepository(redis *Redis) repository.CacheRepository {
	return &cacheRepository{
		client: redis.Client(),
		logger: redis.logger,
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		r.logger.Error("Failed to get from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	r.logger.Debug("Cache hit", zap.String("key", key))
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.client.Set(ctx, key, value, ttl).Err()
	if err != nil {
		r.logger.Error("Failed to set cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache set error: %w", err)
	}

	r.logger.Debug("Cache set", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, key).Err()
	if err != nil {
		r.logger.Error("Failed to delete from cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("cache delete error: %w", err)
	}

	r.logger.Debug("Cache deleted", zap.String("key", key))
	return nil
}

func (r *cacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	val, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Failed to check cache existence", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("cache exists error: %w", err)
	}

	return val > 0, nil
}

// cachedLayer is the stored form of a FeatureSet
type cachedLayer struct {
	IDField  string                     `json:"id_field"`
	Features *geojson.FeatureCollection `json:"features"`
}

func (r *cacheRepository) GetLayer(ctx context.Context, key string) (*domain.FeatureSet, error) {
	data, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil // Cache miss
	}

	var cl cachedLayer
	if err := json.Unmarshal(data, &cl); err != nil {
		r.logger.Error("Failed to unmarshal layer from cache", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("unmarshal layer: %w", err)
	}
	return FeatureSetFromGeoJSON(cl.IDField, cl.Features)
}

func (r *cacheRepository) SetLayer(ctx context.Context, key string, layer *domain.FeatureSet, ttl time.Duration) error {
	data, err := json.Marshal(cachedLayer{
		IDField:  layer.IDField,
		Features: FeatureSetToGeoJSON(layer),
	})
	if err != nil {
		r.logger.Error("Failed to marshal layer", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("marshal layer: %w", err)
	}

	return r.Set(ctx, key, data, ttl)
}

// FeatureSetToGeoJSON converts features to a GeoJSON collection, ids as feature ids.
func FeatureSetToGeoJSON(fs *domain.FeatureSet) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range fs.Features {
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return fc
}

// FeatureSetFromGeoJSON is the inverse of FeatureSetToGeoJSON.
func FeatureSetFromGeoJSON(idField string, fc *geojson.FeatureCollection) (*domain.FeatureSet, error) {
	fs := &domain.FeatureSet{IDField: idField}
	if fc == nil {
		return fs, nil
	}
	fs.Features = make([]domain.Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		var id int64
		if gf.ID != nil {
			v, err := domain.ToInt64(gf.ID)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			id = v
		}
		fs.Features = append(fs.Features, domain.Feature{
			ID:         id,
			Geometry:   gf.Geometry,
			Properties: map[string]interface{}(gf.Properties),
		})
	}
	return fs, nil
}
