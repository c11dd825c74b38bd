package repository

import (
	"context"

	"github.com/urban-indicators/internal/domain"
)

// VectorRepository fetches boundary layers from the vector data provider.
type VectorRepository interface {
	// FetchLayer returns every feature of a layer intersecting the bounding box.
	// The box is given in WGS84; implementations reproject it to the provider's
	// native coordinate system. idField names the attribute used as Feature.ID,
	// empty when features carry no numeric id.
	FetchLayer(ctx context.Context, layerID int, bbox domain.BoundingBox, idField string) (*domain.FeatureSet, error)
}
