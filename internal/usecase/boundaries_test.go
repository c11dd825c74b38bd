package usecase_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/pkg/errors"
	"github.com/urban-indicators/internal/usecase"
)

func TestBoundaryRecords(t *testing.T) {
	features := []domain.Feature{
		{
			ID:       1,
			Geometry: square(0, 0, 1),
			Properties: map[string]interface{}{
				"SA12018_V1_00":           float64(1),
				"LANDWATER_NAME":          "Mainland",
				"AREA_SQ_KM":              0.5,
				"LAND_AREA_SQ_KM":         float64(1),
				domain.UrbanAreaNameField: "Hamilton",
			},
		},
		{
			ID:       2,
			Geometry: square(1, 1, 1),
			Properties: map[string]interface{}{
				"SA12018_V1_00":   float64(2),
				"LANDWATER_NAME":  nil,
				"AREA_SQ_KM":      1.5,
				"LAND_AREA_SQ_KM": "n/a",
			},
		},
	}

	rs, err := usecase.BoundaryRecords("SA12018_V1_00", features)
	require.NoError(t, err)

	assert.Equal(t, []domain.Column{
		{Name: "SA12018_V1_00", Type: domain.ColumnBigInt},
		{Name: "AREA_SQ_KM", Type: domain.ColumnFloat},
		{Name: "LANDWATER_NAME", Type: domain.ColumnText},
		{Name: "LAND_AREA_SQ_KM", Type: domain.ColumnText},
		{Name: domain.UrbanAreaNameField, Type: domain.ColumnText},
		{Name: domain.GeometryColumn, Type: domain.ColumnGeometry},
	}, rs.Columns)
	assert.Equal(t, []interface{}{int64(1), 0.5, "Mainland", "1", "Hamilton", square(0, 0, 1)}, rs.Rows[0])
	assert.Equal(t, []interface{}{int64(2), 1.5, nil, "n/a", nil, square(1, 1, 1)}, rs.Rows[1])
}

func TestBoundaryRecords_MissingGeometry(t *testing.T) {
	_, err := usecase.BoundaryRecords("SA12018_V1_00", []domain.Feature{{ID: 1}})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSchemaViolation))
}

func TestBoundaryBuilder_Build(t *testing.T) {
	ctx := context.Background()

	t.Run("concatenates mainland areas in area order", func(t *testing.T) {
		vectors := &MockVectorRepository{}
		vectors.On("FetchLayer", ctx, domain.UrbanRural2023.LayerID, hamilton.BBox, mock.Anything).
			Return(featureSet("", urbanArea("Hamilton", 0, 0)), nil)
		vectors.On("FetchLayer", ctx, domain.UrbanRural2023.LayerID, tauranga.BBox, mock.Anything).
			Return(featureSet("", urbanArea("Tauranga", 100, 100)), nil)
		vectors.On("FetchLayer", ctx, domain.SA12018.LayerID, hamilton.BBox, domain.SA12018.IndexField).
			Return(featureSet(domain.SA12018.IndexField, sa1(1, 1, 1, "Mainland"), sa1(2, 2, 2, "Inlet")), nil)
		vectors.On("FetchLayer", ctx, domain.SA12018.LayerID, tauranga.BBox, domain.SA12018.IndexField).
			Return(featureSet(domain.SA12018.IndexField, sa1(3, 101, 101, "Mainland")), nil)

		filter := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())
		b := usecase.NewBoundaryBuilder(vectors, filter, []domain.AreaOfInterest{hamilton, tauranga}, zap.NewNop())

		rs, err := b.Build(ctx, domain.SA12018)
		require.NoError(t, err)
		require.Equal(t, 2, rs.Len())

		ui := rs.ColumnIndex(domain.UrbanAreaNameField)
		assert.Equal(t, []interface{}{int64(1), "Hamilton"}, []interface{}{rs.Rows[0][0], rs.Rows[0][ui]})
		assert.Equal(t, []interface{}{int64(3), "Tauranga"}, []interface{}{rs.Rows[1][0], rs.Rows[1][ui]})
		vectors.AssertExpectations(t)
	})

	t.Run("area assigned twice is a schema violation", func(t *testing.T) {
		vectors := &MockVectorRepository{}
		vectors.On("FetchLayer", ctx, domain.UrbanRural2023.LayerID, mock.Anything, mock.Anything).
			Return(featureSet("", urbanArea("Hamilton", 0, 0), urbanArea("Tauranga", 0, 0)), nil)
		vectors.On("FetchLayer", ctx, domain.SA12018.LayerID, mock.Anything, mock.Anything).
			Return(featureSet(domain.SA12018.IndexField, sa1(1, 1, 1, "Mainland")), nil)

		filter := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())
		b := usecase.NewBoundaryBuilder(vectors, filter, []domain.AreaOfInterest{hamilton, tauranga}, zap.NewNop())

		_, err := b.Build(ctx, domain.SA12018)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrSchemaViolation))
	})
	t.Run("duplicate id within one layer is a schema violation", func(t *testing.T) {
		vectors := &MockVectorRepository{}
		vectors.On("FetchLayer", ctx, domain.UrbanRural2023.LayerID, mock.Anything, mock.Anything).
			Return(featureSet("", urbanArea("Hamilton", 0, 0)), nil)
		vectors.On("FetchLayer", ctx, domain.SA12018.LayerID, mock.Anything, mock.Anything).
			Return(featureSet(domain.SA12018.IndexField, sa1(7, 1, 1, "Mainland"), sa1(7, 2, 2, "Mainland")), nil)

		filter := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())
		b := usecase.NewBoundaryBuilder(vectors, filter, []domain.AreaOfInterest{hamilton}, zap.NewNop())

		rs, err := b.Build(ctx, domain.SA12018)
		require.Error(t, err)
		assert.Nil(t, rs)
		assert.True(t, stderrors.Is(err, errors.ErrSchemaViolation))
	})
}
