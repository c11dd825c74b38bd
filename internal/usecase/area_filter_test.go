package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	apperrors "github.com/urban-indicators/internal/pkg/errors"
	"github.com/urban-indicators/internal/usecase"
)

func TestAreaFilter_Filter(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps intersecting features and annotates them", func(t *testing.T) {
		vectors := &MockVectorRepository{}
		vectors.On("FetchLayer", ctx, domain.UrbanRural2023.LayerID, hamilton.BBox, domain.UrbanRural2023.IDField).
			Return(featureSet(domain.UrbanRural2023.IDField,
				urbanArea("Hamilton", 0, 0),
				urbanArea("Cambridge", 50, 50),
			), nil)

		input := featureSet(domain.SA12018.IndexField,
			sa1(1, 1, 1, "Mainland"),
			sa1(2, 9.5, 9.5, "Mainland"), // straddles the boundary
			sa1(3, 20, 20, "Mainland"),
			sa1(4, 51, 51, "Mainland"), // inside another urban area
		)

		f := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())
		out, err := f.Filter(ctx, input, hamilton)
		require.NoError(t, err)

		assert.Equal(t, []int64{1, 2}, ids(out))
		for _, feat := range out.Features {
			assert.Equal(t, "Hamilton", feat.String(domain.UrbanAreaNameField))
		}
		vectors.AssertExpectations(t)
	})

	t.Run("does not modify input features or geometry", func(t *testing.T) {
		vectors := &MockVectorRepository{}
		vectors.On("FetchLayer", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(featureSet("", urbanArea("Hamilton", 0, 0)), nil)

		input := featureSet(domain.SA12018.IndexField, sa1(1, 9.5, 9.5, "Mainland"))
		original := input.Features[0].Geometry

		f := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())
		out, err := f.Filter(ctx, input, hamilton)
		require.NoError(t, err)
		require.Equal(t, 1, out.Len())

		_, annotated := input.Features[0].Properties[domain.UrbanAreaNameField]
		assert.False(t, annotated)
		assert.Equal(t, original, out.Features[0].Geometry)
		assert.Equal(t, square(9.5, 9.5, 1), out.Features[0].Geometry)
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		vectors := &MockVectorRepository{}
		vectors.On("FetchLayer", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(featureSet("", urbanArea("Hamilton", 0, 0)), nil)

		input := featureSet(domain.SA12018.IndexField, sa1(7, 1, 1, "Mainland"), sa1(7, 2, 2, "Mainland"))

		f := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())
		_, err := f.Filter(ctx, input, hamilton)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrSchemaViolation))
		assert.Contains(t, err.Error(), "duplicate feature id 7")
	})

	t.Run("unknown area yields empty set", func(t *testing.T) {
		vectors := &MockVectorRepository{}
		vectors.On("FetchLayer", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(featureSet("", urbanArea("Cambridge", 0, 0)), nil)

		f := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())
		out, err := f.Filter(ctx, featureSet("", sa1(1, 1, 1, "Mainland")), hamilton)
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
	})

	t.Run("reference fetch error", func(t *testing.T) {
		vectors := &MockVectorRepository{}
		vectors.On("FetchLayer", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("timeout"))

		f := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())
		_, err := f.Filter(ctx, featureSet(""), hamilton)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Hamilton")
	})
}

func TestAreaFilter_FilterMainland(t *testing.T) {
	ctx := context.Background()
	vectors := &MockVectorRepository{}
	vectors.On("FetchLayer", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(featureSet("", urbanArea("Hamilton", 0, 0)), nil)
	f := usecase.NewAreaFilter(vectors, domain.UrbanRural2023, zap.NewNop())

	t.Run("by land/water attribute", func(t *testing.T) {
		input := featureSet(domain.SA12018.IndexField,
			sa1(1, 1, 1, "Mainland"),
			sa1(2, 2, 2, "Inlet"),
			sa1(3, 3, 3, "Inland Water"),
			sa1(4, 4, 4, "Oceanic"),
		)
		out, err := f.FilterMainland(ctx, input, hamilton, domain.SA12018)
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(out))
	})

	t.Run("by name prefix", func(t *testing.T) {
		input := featureSet(domain.SA22018.IndexField,
			sa2(10, 1, 1, "Hamilton Central"),
			sa2(11, 2, 2, "Inlet Waikato River"),
			sa2(12, 3, 3, "Inland water Lake Rotoroa"),
			sa2(13, 4, 4, "Oceanic Waikato"),
		)
		out, err := f.FilterMainland(ctx, input, hamilton, domain.SA22018)
		require.NoError(t, err)
		assert.Equal(t, []int64{10}, ids(out))
	})
}

func ids(fs *domain.FeatureSet) []int64 {
	out := make([]int64, 0, fs.Len())
	for _, f := range fs.Features {
		out = append(out, f.ID)
	}
	return out
}
