package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
)

type statsRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStatsRepository creates the table status repository
func NewStatsRepository(db *DB, logger *zap.Logger) repository.StatsRepository {
	return &statsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *statsRepository) GetTableStatuses(ctx context.Context, tables []string) ([]domain.TableStatus, error) {
	var existing []string
	err := r.db.SelectContext(ctx, &existing, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY($1)`, pq.Array(tables))
	if err != nil {
		r.logger.Error("failed to list tables", zap.Error(err))
		return nil, errors.ErrDatabaseError.Wrap(err)
	}
	present := make(map[string]bool, len(existing))
	for _, t := range existing {
		present[t] = true
	}

	statuses := make([]domain.TableStatus, 0, len(tables))
	for _, t := range tables {
		st := domain.TableStatus{Table: t, Exists: present[t]}
		if st.Exists {
			if err := r.db.GetContext(ctx, &st.Rows, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(t))); err != nil {
				r.logger.Error("failed to count rows", zap.String("table", t), zap.Error(err))
				return nil, errors.ErrDatabaseError.Detail("table", t).Wrap(err)
			}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (r *statsRepository) ListFlowSheets(ctx context.Context) ([]domain.FlowPublicationRecord, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, domain.FlowSheetsTable); err != nil {
		return nil, errors.ErrDatabaseError.Wrap(err)
	}
	if !exists {
		return []domain.FlowPublicationRecord{}, nil
	}

	var records []domain.FlowPublicationRecord
	query := fmt.Sprintf(`SELECT urban_area_name, external_sheet_url FROM %s ORDER BY urban_area_name`,
		quoteIdent(domain.FlowSheetsTable))
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, errors.ErrDatabaseError.Wrap(err)
	}
	return records, nil
}
