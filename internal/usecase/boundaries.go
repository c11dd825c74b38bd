package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
)

// BoundaryBuilder materializes the mainland statistical areas of every area
// of interest into one boundary table per vintage.
type BoundaryBuilder struct {
	vectors repository.VectorRepository
	filter  *AreaFilter
	areas   []domain.AreaOfInterest
	logger  *zap.Logger
}

// NewBoundaryBuilder creates a new BoundaryBuilder
func NewBoundaryBuilder(
	vectors repository.VectorRepository,
	filter *AreaFilter,
	areas []domain.AreaOfInterest,
	logger *zap.Logger,
) *BoundaryBuilder {
	return &BoundaryBuilder{
		vectors: vectors,
		filter:  filter,
		areas:   areas,
		logger:  logger,
	}
}

// Builder returns the TableBuilder of the vintage's boundary table
func (b *BoundaryBuilder) Builder(vintage domain.Vintage) TableBuilder {
	return func(ctx context.Context) (*domain.RecordSet, error) {
		return b.Build(ctx, vintage)
	}
}

// Build fetches the vintage layer for each area, keeps the mainland features
// inside the area and concatenates them in area order. A statistical area
// assigned to two urban areas is a schema violation.
func (b *BoundaryBuilder) Build(ctx context.Context, vintage domain.Vintage) (*domain.RecordSet, error) {
	var features []domain.Feature
	owner := make(map[int64]string)

	for _, area := range b.areas {
		layer, err := b.vectors.FetchLayer(ctx, vintage.LayerID, area.BBox, vintage.IndexField)
		if err != nil {
			return nil, fmt.Errorf("fetch %s for %s: %w", vintage.Name, area.CanonicalName, err)
		}

		kept, err := b.filter.FilterMainland(ctx, layer, area, vintage)
		if err != nil {
			return nil, err
		}

		for _, f := range kept.Features {
			if prev, ok := owner[f.ID]; ok {
				return nil, errors.ErrSchemaViolation.WithDetails(map[string]interface{}{
					"vintage": vintage.Name,
					"id":      f.ID,
					"areas":   []string{prev, area.CanonicalName},
				})
			}
			owner[f.ID] = area.CanonicalName
		}
		features = append(features, kept.Features...)

		b.logger.Info("Fetched statistical areas",
			zap.String("vintage", vintage.Name),
			zap.String("area", area.CanonicalName),
			zap.Int("fetched", layer.Len()),
			zap.Int("kept", kept.Len()))
	}

	return BoundaryRecords(vintage.IndexField, features)
}

// BoundaryRecords lays features out as a table: the id column, the remaining
// properties sorted by name, the urban area annotation, then geometry.
// Property column types are inferred over all features; a property with
// mixed types is stored as text.
func BoundaryRecords(idField string, features []domain.Feature) (*domain.RecordSet, error) {
	types := make(map[string]domain.ColumnType)
	for _, f := range features {
		for k, v := range f.Properties {
			if k == idField || k == domain.UrbanAreaNameField || k == domain.GeometryColumn || v == nil {
				continue
			}
			types[k] = widenType(types[k], v)
		}
	}

	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	sort.Strings(names)

	rs := &domain.RecordSet{Columns: make([]domain.Column, 0, len(names)+3)}
	rs.Columns = append(rs.Columns, domain.Column{Name: idField, Type: domain.ColumnBigInt})
	for _, k := range names {
		rs.Columns = append(rs.Columns, domain.Column{Name: k, Type: types[k]})
	}
	rs.Columns = append(rs.Columns,
		domain.Column{Name: domain.UrbanAreaNameField, Type: domain.ColumnText},
		domain.Column{Name: domain.GeometryColumn, Type: domain.ColumnGeometry},
	)

	rs.Rows = make([][]interface{}, 0, len(features))
	for _, f := range features {
		if f.Geometry == nil {
			return nil, errors.ErrSchemaViolation.Detail("id", f.ID).Wrap(fmt.Errorf("feature has no geometry"))
		}
		row := make([]interface{}, 0, len(rs.Columns))
		row = append(row, f.ID)
		for _, k := range names {
			row = append(row, columnValue(types[k], f.Properties[k]))
		}
		var urbanArea interface{}
		if name := f.String(domain.UrbanAreaNameField); name != "" {
			urbanArea = name
		}
		row = append(row, urbanArea, f.Geometry)
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

func valueType(v interface{}) domain.ColumnType {
	switch v.(type) {
	case bool:
		return domain.ColumnBoolean
	case float64, float32:
		return domain.ColumnFloat
	case int, int32, int64:
		return domain.ColumnBigInt
	default:
		return domain.ColumnText
	}
}

func widenType(current domain.ColumnType, v interface{}) domain.ColumnType {
	t := valueType(v)
	switch {
	case current == "" || current == t:
		return t
	case (current == domain.ColumnBigInt && t == domain.ColumnFloat) || (current == domain.ColumnFloat && t == domain.ColumnBigInt):
		return domain.ColumnFloat
	default:
		return domain.ColumnText
	}
}

func columnValue(t domain.ColumnType, v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch t {
	case domain.ColumnText:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	case domain.ColumnFloat:
		switch n := v.(type) {
		case int:
			return float64(n)
		case int32:
			return float64(n)
		case int64:
			return float64(n)
		case float32:
			return float64(n)
		}
	}
	return v
}
