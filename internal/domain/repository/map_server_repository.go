package repository

import (
	"context"

	"github.com/urban-indicators/internal/domain"
)

// MapServerRepository manages workspaces, datastores and layers on the map server.
type MapServerRepository interface {
	// EnsureWorkspace creates the workspace; an existing one is success
	EnsureWorkspace(ctx context.Context, workspace string) error

	// EnsureDataStore creates a PostGIS datastore in the workspace unless it exists.
	// A store created concurrently yields errors.ErrResourceConflict.
	EnsureDataStore(ctx context.Context, workspace, store string) error

	// FeatureTypeExists reports whether a layer with that name is published in the store
	FeatureTypeExists(ctx context.Context, workspace, store, name string) (bool, error)

	// CreateFeatureType publishes a table or virtual view as a layer.
	// An existing layer yields errors.ErrResourceConflict.
	CreateFeatureType(ctx context.Context, workspace, store string, view domain.ViewDefinition) error
}
