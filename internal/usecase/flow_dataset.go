package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
)

const flowLocationsSQL = `
	SELECT DISTINCT "SA22018_V1_00" AS id,
	                "SA22018_V1_NAME" AS name,
	                ST_Y(ST_Centroid(geometry)) AS lat,
	                ST_X(ST_Centroid(geometry)) AS lon
	FROM sa2s
	WHERE "UR2023_V1_00_NAME" ILIKE :urban_area_name
	ORDER BY id`

// FlowDatasetBuilder queries the SA2 mode-share tables for one urban area's
// flow map: SA2 centroids and one origin/destination count per category.
type FlowDatasetBuilder struct {
	store      repository.StoreRepository
	categories []domain.FlowCategory
	logger     *zap.Logger
}

// NewFlowDatasetBuilder creates a builder for the given flow categories
func NewFlowDatasetBuilder(store repository.StoreRepository, categories []domain.FlowCategory, logger *zap.Logger) *FlowDatasetBuilder {
	return &FlowDatasetBuilder{
		store:      store,
		categories: categories,
		logger:     logger,
	}
}

// flowsSQL sums each category's mode columns for flows with both ends in the area
func (b *FlowDatasetBuilder) flowsSQL() string {
	var sb strings.Builder
	sb.WriteString(`
	SELECT ms."SA2_code_usual_residence_address" AS origin,
	       ms."SA2_code_workplace_address" AS dest`)
	for _, c := range b.categories {
		terms := make([]string, len(c.Modes))
		for i, m := range c.Modes {
			terms[i] = fmt.Sprintf(`ms.%q`, m)
		}
		fmt.Fprintf(&sb, ",\n\t       (%s) AS %q", strings.Join(terms, " + "), c.Name)
	}
	sb.WriteString(`
	FROM mode_share AS ms
	    JOIN sa2s AS workplace ON workplace."SA22018_V1_00" = ms."SA2_code_workplace_address"
	    JOIN sa2s AS residence ON residence."SA22018_V1_00" = ms."SA2_code_usual_residence_address"
	WHERE workplace."UR2023_V1_00_NAME" ILIKE :urban_area_name
	  AND residence."UR2023_V1_00_NAME" ILIKE :urban_area_name
	ORDER BY origin, dest`)
	return sb.String()
}

// Build returns the flow map data of the area, matching its name
// case-insensitively.
func (b *FlowDatasetBuilder) Build(ctx context.Context, area domain.AreaOfInterest) (*domain.FlowDataset, error) {
	params := map[string]interface{}{"urban_area_name": area.CanonicalName}

	locRows, err := b.store.RawQuery(ctx, flowLocationsSQL, params)
	if err != nil {
		return nil, fmt.Errorf("query locations of %s: %w", area.CanonicalName, err)
	}
	flowRows, err := b.store.RawQuery(ctx, b.flowsSQL(), params)
	if err != nil {
		return nil, fmt.Errorf("query flows of %s: %w", area.CanonicalName, err)
	}

	ds := &domain.FlowDataset{
		UrbanAreaName: area.CanonicalName,
		DisplayName:   area.DisplayName,
		Flows:         make(map[string][]domain.Flow, len(b.categories)),
	}
	if ds.DisplayName == "" {
		ds.DisplayName = area.CanonicalName
	}

	for i, row := range locRows.Rows {
		loc, err := flowLocation(row)
		if err != nil {
			return nil, fmt.Errorf("location row %d of %s: %w", i, area.CanonicalName, err)
		}
		ds.Locations = append(ds.Locations, loc)
	}

	for _, c := range b.categories {
		ds.Categories = append(ds.Categories, c.Name)
	}
	for i, row := range flowRows.Rows {
		if len(row) != 2+len(b.categories) {
			return nil, fmt.Errorf("flow row %d of %s has %d columns", i, area.CanonicalName, len(row))
		}
		origin, err := domain.ToInt64(row[0])
		if err != nil {
			return nil, fmt.Errorf("flow row %d origin: %w", i, err)
		}
		dest, err := domain.ToInt64(row[1])
		if err != nil {
			return nil, fmt.Errorf("flow row %d dest: %w", i, err)
		}
		for j, c := range b.categories {
			var count int64
			if row[2+j] != nil {
				if count, err = domain.ToInt64(row[2+j]); err != nil {
					return nil, fmt.Errorf("flow row %d %s: %w", i, c.Name, err)
				}
			}
			ds.Flows[c.Name] = append(ds.Flows[c.Name], domain.Flow{Origin: origin, Dest: dest, Count: count})
		}
	}

	b.logger.Info("Built flow dataset",
		zap.String("area", area.CanonicalName),
		zap.Int("locations", len(ds.Locations)),
		zap.Int("flows", flowRows.Len()))
	return ds, nil
}

func flowLocation(row []interface{}) (domain.FlowLocation, error) {
	if len(row) != 4 {
		return domain.FlowLocation{}, fmt.Errorf("expected 4 columns, got %d", len(row))
	}
	id, err := domain.ToInt64(row[0])
	if err != nil {
		return domain.FlowLocation{}, err
	}
	name, _ := row[1].(string)
	lat, err := toFloat(row[2])
	if err != nil {
		return domain.FlowLocation{}, err
	}
	lon, err := toFloat(row[3])
	if err != nil {
		return domain.FlowLocation{}, err
	}
	return domain.FlowLocation{ID: id, Name: name, Lat: lat, Lon: lon}, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		var f float64
		_, err := fmt.Sscan(n, &f)
		return f, err
	default:
		return 0, fmt.Errorf("unsupported numeric value %v (%T)", v, v)
	}
}
