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

const testStore = "urban PostGIS"

type reported struct {
	view    string
	outcome domain.StageOutcome
}

func collect(out *[]reported) func(string, domain.StageOutcome, error) {
	return func(view string, outcome domain.StageOutcome, _ error) {
		*out = append(*out, reported{view, outcome})
	}
}

func TestViewProvisioner_EnsureWorkspaceViews(t *testing.T) {
	ctx := context.Background()
	ws := usecase.EmissionsViews(testStore)

	t.Run("creates only missing views", func(t *testing.T) {
		server := &MockMapServerRepository{}
		server.On("EnsureWorkspace", ctx, usecase.EmissionsWorkspace).Return(nil)
		server.On("EnsureDataStore", ctx, usecase.EmissionsWorkspace, testStore).Return(nil)
		server.On("FeatureTypeExists", ctx, usecase.EmissionsWorkspace, testStore, "sa1s").Return(true, nil)
		server.On("FeatureTypeExists", ctx, usecase.EmissionsWorkspace, testStore, mock.Anything).Return(false, nil)
		server.On("CreateFeatureType", ctx, usecase.EmissionsWorkspace, testStore, mock.Anything).Return(nil)

		var got []reported
		p := usecase.NewViewProvisioner(server, zap.NewNop())
		require.NoError(t, p.EnsureWorkspaceViews(ctx, ws, collect(&got)))

		assert.Equal(t, []reported{
			{"sa1s", domain.OutcomeSkipped},
			{"vkt_sum", domain.OutcomeBuilt},
			{"sa1_emissions_all_cars", domain.OutcomeBuilt},
			{"sa1_emissions_fuel_type", domain.OutcomeBuilt},
		}, got)
		server.AssertNumberOfCalls(t, "CreateFeatureType", 3)
	})

	t.Run("second run creates nothing", func(t *testing.T) {
		server := &MockMapServerRepository{}
		server.On("EnsureWorkspace", ctx, mock.Anything).Return(nil)
		server.On("EnsureDataStore", ctx, mock.Anything, mock.Anything).Return(nil)
		server.On("FeatureTypeExists", ctx, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

		p := usecase.NewViewProvisioner(server, zap.NewNop())
		require.NoError(t, p.EnsureWorkspaceViews(ctx, ws, nil))
		server.AssertNotCalled(t, "CreateFeatureType", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failing view does not stop the rest", func(t *testing.T) {
		server := &MockMapServerRepository{}
		server.On("EnsureWorkspace", ctx, mock.Anything).Return(nil)
		server.On("EnsureDataStore", ctx, mock.Anything, mock.Anything).Return(nil)
		server.On("FeatureTypeExists", ctx, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		server.On("CreateFeatureType", ctx, mock.Anything, mock.Anything, mock.MatchedBy(func(v domain.ViewDefinition) bool {
			return v.Name == "vkt_sum"
		})).Return(errors.New("geoserver status 500"))
		server.On("CreateFeatureType", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		var got []reported
		p := usecase.NewViewProvisioner(server, zap.NewNop())
		err := p.EnsureWorkspaceViews(ctx, ws, collect(&got))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "vkt_sum")
		assert.Len(t, got, 4)
		assert.Equal(t, reported{"vkt_sum", domain.OutcomeFailed}, got[1])
		server.AssertNumberOfCalls(t, "CreateFeatureType", 4)
	})

	t.Run("conflicts on create count as existing", func(t *testing.T) {
		server := &MockMapServerRepository{}
		server.On("EnsureWorkspace", ctx, mock.Anything).Return(nil)
		server.On("EnsureDataStore", ctx, mock.Anything, mock.Anything).
			Return(apperrors.ErrResourceConflict.Detail("datastore", testStore))
		server.On("FeatureTypeExists", ctx, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		server.On("CreateFeatureType", ctx, mock.Anything, mock.Anything, mock.MatchedBy(func(v domain.ViewDefinition) bool {
			return v.Name == "vkt_sum"
		})).Return(apperrors.ErrResourceConflict.Detail("view", "vkt_sum"))
		server.On("CreateFeatureType", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		var got []reported
		p := usecase.NewViewProvisioner(server, zap.NewNop())
		require.NoError(t, p.EnsureWorkspaceViews(ctx, ws, collect(&got)))

		assert.Equal(t, reported{"vkt_sum", domain.OutcomeSkipped}, got[1])
		assert.Equal(t, reported{"sa1s", domain.OutcomeBuilt}, got[0])
	})

	t.Run("workspace failure stops before views", func(t *testing.T) {
		server := &MockMapServerRepository{}
		server.On("EnsureWorkspace", ctx, mock.Anything).Return(errors.New("unauthorized"))

		p := usecase.NewViewProvisioner(server, zap.NewNop())
		err := p.EnsureWorkspaceViews(ctx, ws, nil)
		require.Error(t, err)
		server.AssertNotCalled(t, "FeatureTypeExists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestModeShareViews(t *testing.T) {
	names := func(ws domain.WorkspaceViews) []string {
		var out []string
		for _, v := range ws.Views {
			out = append(out, v.Name)
		}
		return out
	}

	assert.Equal(t, []string{"sa2s", "mode_share"}, names(usecase.ModeShareViews(testStore, false)))
	assert.Equal(t, []string{"sa2s", "mode_share", "sa2s_2023", "mode_share_2023"}, names(usecase.ModeShareViews(testStore, true)))

	ws := usecase.EmissionsViews(testStore)
	fuel := ws.Views[3]
	require.True(t, fuel.IsVirtual())
	assert.Contains(t, fuel.SQL, "%FUEL_TYPE%")
	assert.Equal(t, "FUEL_TYPE", fuel.Parameters[0].Name)
	assert.False(t, ws.Views[0].IsVirtual())
}
