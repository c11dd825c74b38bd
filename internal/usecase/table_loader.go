package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
)

// TableBuilder produces the full contents of a derived table.
type TableBuilder func(ctx context.Context) (*domain.RecordSet, error)

// TableLoader builds a derived table only when it does not exist yet.
type TableLoader struct {
	store  repository.StoreRepository
	logger *zap.Logger
}

// NewTableLoader creates a new TableLoader
func NewTableLoader(store repository.StoreRepository, logger *zap.Logger) *TableLoader {
	return &TableLoader{
		store:  store,
		logger: logger,
	}
}

// Ensure returns the key columns of the table, building and persisting it
// first when absent. An existing table is read back and build is never
// called, unless spec.RequireRows is set and the table is empty. The outcome
// reports which of the two happened.
func (l *TableLoader) Ensure(ctx context.Context, spec domain.TableSpec, build TableBuilder) (*domain.RecordSet, domain.StageOutcome, error) {
	exists, err := l.store.TableExists(ctx, spec.Name)
	if err != nil {
		return nil, domain.OutcomeFailed, fmt.Errorf("check table %s: %w", spec.Name, err)
	}

	if exists {
		keys, err := l.store.Read(ctx, spec.Name, spec.PrimaryKey...)
		if err != nil {
			return nil, domain.OutcomeFailed, fmt.Errorf("read keys of %s: %w", spec.Name, err)
		}
		if !spec.RequireRows || keys.Len() > 0 {
			l.logger.Info("Table exists, skipping", zap.String("table", spec.Name))
			return keys, domain.OutcomeSkipped, nil
		}
		l.logger.Warn("Table exists but is empty, initialising", zap.String("table", spec.Name))
	} else {
		l.logger.Info("Table does not exist, initialising", zap.String("table", spec.Name))
	}

	records, err := build(ctx)
	if err != nil {
		return nil, domain.OutcomeFailed, fmt.Errorf("build table %s: %w", spec.Name, err)
	}

	if err := l.store.Write(ctx, spec.Name, records, domain.WriteReplace, spec.PrimaryKey); err != nil {
		return nil, domain.OutcomeFailed, fmt.Errorf("write table %s: %w", spec.Name, err)
	}

	keys, err := records.Project(spec.PrimaryKey...)
	if err != nil {
		return nil, domain.OutcomeFailed, fmt.Errorf("project keys of %s: %w", spec.Name, err)
	}

	l.logger.Info("Table initialised", zap.String("table", spec.Name), zap.Int("rows", records.Len()))
	return keys, domain.OutcomeBuilt, nil
}
