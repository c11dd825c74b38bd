package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/usecase"
)

func isLocationsQuery(q string) bool {
	return strings.Contains(q, "ST_Centroid")
}

func TestFlowDatasetBuilder_Build(t *testing.T) {
	ctx := context.Background()
	params := map[string]interface{}{"urban_area_name": "Hamilton"}
	categories := []domain.FlowCategory{
		{Name: "Active_Transport", Modes: []string{"Walk_or_jog", "Bicycle"}},
		{Name: "Total", Modes: []string{"Total"}},
	}

	t.Run("locations and per-category flows", func(t *testing.T) {
		store := &MockStoreRepository{}
		store.On("RawQuery", ctx, mock.MatchedBy(isLocationsQuery), params).Return(&domain.RecordSet{
			Rows: [][]interface{}{
				{int64(100), "Hamilton Central", -37.78, 175.28},
				{int64(200), "Frankton", -37.79, 175.26},
			},
		}, nil)
		store.On("RawQuery", ctx, mock.MatchedBy(func(q string) bool {
			return strings.Contains(q, `(ms."Walk_or_jog" + ms."Bicycle") AS "Active_Transport"`) &&
				strings.Contains(q, `(ms."Total") AS "Total"`)
		}), params).Return(&domain.RecordSet{
			Rows: [][]interface{}{
				{int64(100), int64(200), int64(3), int64(15)},
				{int64(200), int64(100), nil, int64(9)},
			},
		}, nil)

		b := usecase.NewFlowDatasetBuilder(store, categories, zap.NewNop())
		ds, err := b.Build(ctx, hamilton)
		require.NoError(t, err)

		assert.Equal(t, "Hamilton | Kirikiriroa", ds.DisplayName)
		assert.Equal(t, []string{"Active_Transport", "Total"}, ds.Categories)
		assert.Equal(t, domain.FlowLocation{ID: 200, Name: "Frankton", Lat: -37.79, Lon: 175.26}, ds.Locations[1])
		assert.Equal(t, []domain.Flow{{Origin: 100, Dest: 200, Count: 3}, {Origin: 200, Dest: 100, Count: 0}}, ds.Flows["Active_Transport"])
		assert.Equal(t, []domain.Flow{{Origin: 100, Dest: 200, Count: 15}, {Origin: 200, Dest: 100, Count: 9}}, ds.Flows["Total"])
		store.AssertExpectations(t)
	})

	t.Run("query error", func(t *testing.T) {
		store := &MockStoreRepository{}
		store.On("RawQuery", ctx, mock.Anything, params).Return(nil, errors.New("relation \"sa2s\" does not exist"))

		b := usecase.NewFlowDatasetBuilder(store, categories, zap.NewNop())
		_, err := b.Build(ctx, hamilton)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Hamilton")
	})

	t.Run("short flow row", func(t *testing.T) {
		store := &MockStoreRepository{}
		store.On("RawQuery", ctx, mock.MatchedBy(isLocationsQuery), params).Return(&domain.RecordSet{}, nil)
		store.On("RawQuery", ctx, mock.Anything, params).Return(&domain.RecordSet{
			Rows: [][]interface{}{{int64(100), int64(200)}},
		}, nil)

		b := usecase.NewFlowDatasetBuilder(store, categories, zap.NewNop())
		_, err := b.Build(ctx, hamilton)
		require.Error(t, err)
	})
}
