package testhelpers

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/repository/postgres"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewStoreRepositoryForTest creates a store repository with test database and logger
func NewStoreRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.StoreRepository {
	return postgres.NewStoreRepository(NewDBForTest(db, logger), logger)
}

// NewStatsRepositoryForTest creates a stats repository with test database and logger
func NewStatsRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.StatsRepository {
	return postgres.NewStatsRepository(NewDBForTest(db, logger), logger)
}
