package repository

import (
	"context"

	"github.com/urban-indicators/internal/domain"
)

// StatsRepository reports on materialized tables
type StatsRepository interface {
	// GetTableStatuses returns existence and row count for each table, in order
	GetTableStatuses(ctx context.Context, tables []string) ([]domain.TableStatus, error)

	// ListFlowSheets returns the published flow sheet urls, empty before publishing
	ListFlowSheets(ctx context.Context) ([]domain.FlowPublicationRecord, error)
}
