package repository

import (
	"context"

	"github.com/urban-indicators/internal/domain"
)

// StoreRepository is the relational/spatial store holding derived tables.
type StoreRepository interface {
	// TableExists reports whether a table of that name exists
	TableExists(ctx context.Context, name string) (bool, error)

	// Write persists records. WriteReplace drops any existing table first;
	// the whole write is atomic.
	Write(ctx context.Context, name string, records *domain.RecordSet, mode domain.WriteMode, primaryKey []string) error

	// Read returns the named columns of every row
	Read(ctx context.Context, name string, columns ...string) (*domain.RecordSet, error)

	// RawQuery runs SQL with :named parameters
	RawQuery(ctx context.Context, query string, params map[string]interface{}) (*domain.RecordSet, error)
}
