// Package app assembles the pipeline from configuration. The entry points
// under cmd/ share it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/infrastructure/geoserver"
	"github.com/urban-indicators/internal/infrastructure/gsheets"
	"github.com/urban-indicators/internal/infrastructure/statsnz"
	"github.com/urban-indicators/internal/infrastructure/survey"
	"github.com/urban-indicators/internal/repository/cache"
	"github.com/urban-indicators/internal/repository/postgres"
	"github.com/urban-indicators/internal/usecase"
)

// Redis returns the shared Redis connection, nil when REDIS_HOST is empty.
func Redis(cfg *config.Config, log *zap.Logger) (*cache.Redis, error) {
	if cfg.Redis.Host == "" {
		log.Info("Redis not configured, cache and stream triggers disabled")
		return nil, nil
	}
	return cache.NewRedis(&cfg.Redis, log)
}

// NewPipeline wires the materialize use case. redisClient may be nil.
func NewPipeline(ctx context.Context, cfg *config.Config, db *postgres.DB, redisClient *cache.Redis, log *zap.Logger) (*usecase.MaterializeUseCase, error) {
	// 1. Store
	store := postgres.NewStoreRepository(db, log)

	// 2. Vector source, cached when Redis is available
	var vectors repository.VectorRepository = statsnz.NewStatsNZClient(&cfg.StatsNZ, log)
	if redisClient != nil {
		vectors = cache.NewCachedVectorRepository(vectors, cache.NewCacheRepository(redisClient), cfg.Cache.VectorCacheTTL, log)
	}

	// 3. Survey files and map server
	surveys := survey.NewSurveyReader(&cfg.Data, log)
	mapServer := geoserver.NewGeoServerClient(cfg, log)

	// 4. Flow publisher, only when sheets are enabled
	var publisher *usecase.FlowPublisher
	if cfg.Sheets.Enabled {
		credentials, err := cfg.GoogleCredentials()
		if err != nil {
			return nil, err
		}
		sheetsClient, err := gsheets.NewSheetsClient(ctx, &cfg.Sheets, credentials, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		publisher = usecase.NewFlowPublisher(sheetsClient, usecase.PublisherConfig{
			AdminEmail: cfg.Sheets.AdminEmail,
			Cooldown:   cfg.Sheets.Cooldown,
			MaxRetries: cfg.Sheets.MaxRetries,
		}, usecase.SleepContext, log)
	} else {
		log.Info("Flow sheet publishing disabled")
	}

	// 5. Use cases
	filter := usecase.NewAreaFilter(vectors, cfg.Data.Reference(), log)
	return usecase.NewMaterializeUseCase(
		usecase.NewTableLoader(store, log),
		usecase.NewBoundaryBuilder(vectors, filter, cfg.Areas, log),
		surveys,
		usecase.NewViewProvisioner(mapServer, log),
		usecase.NewFlowDatasetBuilder(store, domain.FlowCategories, log),
		publisher,
		usecase.MaterializeOptions{
			Areas:      cfg.Areas,
			DataStore:  cfg.DataStoreName(),
			Exclusions: cfg.Data.ModeShareExclusion,
			With2023:   cfg.Data.ModeShare2023Path != "",
		},
		log,
	), nil
}
