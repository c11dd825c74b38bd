package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
)

// StatusCacheKey holds the cached pipeline status. The worker deletes it
// after every run.
const StatusCacheKey = "status:tables"

const statusCacheTTL = 5 * time.Minute

// StatsUseCase reports what the pipeline has materialized
type StatsUseCase struct {
	statsRepo repository.StatsRepository
	cacheRepo repository.CacheRepository
	areas     []domain.AreaOfInterest
	logger    *zap.Logger
}

// NewStatsUseCase creates a new StatsUseCase. cacheRepo may be nil.
func NewStatsUseCase(
	statsRepo repository.StatsRepository,
	cacheRepo repository.CacheRepository,
	areas []domain.AreaOfInterest,
	logger *zap.Logger,
) *StatsUseCase {
	return &StatsUseCase{
		statsRepo: statsRepo,
		cacheRepo: cacheRepo,
		areas:     areas,
		logger:    logger,
	}
}

// GetStatistics returns table statuses, using the cache when possible
func (uc *StatsUseCase) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	// 1. Cache
	if cached := uc.cached(ctx); cached != nil {
		uc.logger.Debug("Statistics fetched from cache")
		return cached, nil
	}

	// 2. Database
	stats, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}

	// 3. Cache the fresh result
	uc.store(ctx, stats)
	return stats, nil
}

// RefreshStatistics bypasses the cache and replaces its entry
func (uc *StatsUseCase) RefreshStatistics(ctx context.Context) (*domain.Statistics, error) {
	uc.logger.Info("Refreshing statistics")

	stats, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	uc.store(ctx, stats)
	return stats, nil
}

// GetFlowSheets returns the published flow sheet urls
func (uc *StatsUseCase) GetFlowSheets(ctx context.Context) ([]domain.FlowPublicationRecord, error) {
	sheets, err := uc.statsRepo.ListFlowSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list flow sheets: %w", err)
	}
	return sheets, nil
}

// Areas returns the configured areas of interest
func (uc *StatsUseCase) Areas() []domain.AreaOfInterest {
	return uc.areas
}

func (uc *StatsUseCase) load(ctx context.Context) (*domain.Statistics, error) {
	tables, err := uc.statsRepo.GetTableStatuses(ctx, domain.DerivedTables())
	if err != nil {
		return nil, fmt.Errorf("get table statuses: %w", err)
	}

	stats := &domain.Statistics{Tables: tables, LastUpdated: time.Now().UTC()}
	for _, t := range tables {
		if t.Table == domain.FlowSheetsTable {
			stats.Published = t.Exists
		}
	}
	return stats, nil
}

func (uc *StatsUseCase) cached(ctx context.Context) *domain.Statistics {
	if uc.cacheRepo == nil {
		return nil
	}
	data, err := uc.cacheRepo.Get(ctx, StatusCacheKey)
	if err != nil {
		uc.logger.Warn("Failed to get stats from cache", zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}
	var stats domain.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		uc.logger.Warn("Failed to decode cached stats", zap.Error(err))
		return nil
	}
	return &stats
}

func (uc *StatsUseCase) store(ctx context.Context, stats *domain.Statistics) {
	if uc.cacheRepo == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		uc.logger.Warn("Failed to encode stats", zap.Error(err))
		return
	}
	if err := uc.cacheRepo.Set(ctx, StatusCacheKey, data, statusCacheTTL); err != nil {
		uc.logger.Warn("Failed to cache stats", zap.Error(err))
	}
}
