package usecase

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
	"github.com/urban-indicators/internal/pkg/geo"
)

// AreaFilter restricts boundary features to a named urban area using a
// reference polygon layer.
type AreaFilter struct {
	vectors   repository.VectorRepository
	reference domain.ReferenceLayer
	logger    *zap.Logger
}

// NewAreaFilter creates a filter against the given reference layer
func NewAreaFilter(
	vectors repository.VectorRepository,
	reference domain.ReferenceLayer,
	logger *zap.Logger,
) *AreaFilter {
	return &AreaFilter{
		vectors:   vectors,
		reference: reference,
		logger:    logger,
	}
}

// Filter returns the features intersecting the area's reference polygons,
// annotated with the area's canonical name. Geometries are not clipped and
// the input set is not modified. An area missing from the reference layer
// yields an empty set.
func (f *AreaFilter) Filter(ctx context.Context, features *domain.FeatureSet, area domain.AreaOfInterest) (*domain.FeatureSet, error) {
	refs, err := f.referencePolygons(ctx, area)
	if err != nil {
		return nil, err
	}

	out := &domain.FeatureSet{IDField: features.IDField}
	if len(refs) == 0 {
		f.logger.Warn("Urban area not found in reference layer",
			zap.String("area", area.CanonicalName),
			zap.Int("layer_id", f.reference.LayerID))
		return out, nil
	}

	seen := make(map[int64]bool, features.Len())
	for _, feat := range features.Features {
		if seen[feat.ID] {
			return nil, errors.ErrSchemaViolation.WithDetails(map[string]interface{}{
				"id_field": features.IDField,
				"id":       feat.ID,
				"area":     area.CanonicalName,
			}).Wrap(fmt.Errorf("duplicate feature id %d", feat.ID))
		}
		seen[feat.ID] = true
		if intersectsAny(feat.Geometry, refs) {
			out.Features = append(out.Features, annotate(feat, area.CanonicalName))
		}
	}

	f.logger.Debug("Filtered features by urban area",
		zap.String("area", area.CanonicalName),
		zap.Int("input", features.Len()),
		zap.Int("kept", out.Len()))
	return out, nil
}

// FilterMainland is Filter followed by dropping every feature the vintage
// does not classify as mainland.
func (f *AreaFilter) FilterMainland(ctx context.Context, features *domain.FeatureSet, area domain.AreaOfInterest, vintage domain.Vintage) (*domain.FeatureSet, error) {
	inArea, err := f.Filter(ctx, features, area)
	if err != nil {
		return nil, err
	}

	out := &domain.FeatureSet{IDField: inArea.IDField}
	for _, feat := range inArea.Features {
		if vintage.StatisticalArea(feat).LandOrWater == domain.LandWaterMainland {
			out.Features = append(out.Features, feat)
		}
	}
	return out, nil
}

func (f *AreaFilter) referencePolygons(ctx context.Context, area domain.AreaOfInterest) ([]orb.Geometry, error) {
	layer, err := f.vectors.FetchLayer(ctx, f.reference.LayerID, area.BBox, f.reference.IDField)
	if err != nil {
		return nil, fmt.Errorf("fetch reference layer %d for %s: %w", f.reference.LayerID, area.CanonicalName, err)
	}

	var refs []orb.Geometry
	for _, ref := range layer.Features {
		if ref.String(f.reference.NameField) == area.CanonicalName {
			refs = append(refs, ref.Geometry)
		}
	}
	return refs, nil
}

func intersectsAny(g orb.Geometry, refs []orb.Geometry) bool {
	for _, ref := range refs {
		if geo.Intersects(g, ref) {
			return true
		}
	}
	return false
}

func annotate(feat domain.Feature, areaName string) domain.Feature {
	props := make(map[string]interface{}, len(feat.Properties)+1)
	for k, v := range feat.Properties {
		props[k] = v
	}
	props[domain.UrbanAreaNameField] = areaName
	return domain.Feature{ID: feat.ID, Geometry: feat.Geometry, Properties: props}
}
