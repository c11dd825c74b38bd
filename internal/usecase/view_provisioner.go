package usecase

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
)

// ViewProvisioner creates map-server layers that do not exist yet. Existing
// layers are never compared or updated.
type ViewProvisioner struct {
	server repository.MapServerRepository
	logger *zap.Logger
}

// NewViewProvisioner creates a new ViewProvisioner
func NewViewProvisioner(server repository.MapServerRepository, logger *zap.Logger) *ViewProvisioner {
	return &ViewProvisioner{
		server: server,
		logger: logger,
	}
}

// EnsureView publishes the view unless a layer with its name exists.
// It reports whether the layer was created. A conflict on create counts as
// the layer existing.
func (p *ViewProvisioner) EnsureView(ctx context.Context, workspace, store string, view domain.ViewDefinition) (bool, error) {
	exists, err := p.server.FeatureTypeExists(ctx, workspace, store, view.Name)
	if err != nil {
		return false, fmt.Errorf("check view %s:%s: %w", workspace, view.Name, err)
	}
	if exists {
		p.logger.Debug("View exists, skipping", zap.String("workspace", workspace), zap.String("view", view.Name))
		return false, nil
	}

	err = p.server.CreateFeatureType(ctx, workspace, store, view)
	if stderrors.Is(err, errors.ErrResourceConflict) {
		p.logger.Info("View created concurrently, skipping", zap.String("workspace", workspace), zap.String("view", view.Name))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create view %s:%s: %w", workspace, view.Name, err)
	}
	p.logger.Info("View created", zap.String("workspace", workspace), zap.String("view", view.Name))
	return true, nil
}

// EnsureWorkspaceViews ensures the workspace and datastore, then every view.
// A failing view does not stop the others; all failures are returned
// together. report, when set, is called once per view.
func (p *ViewProvisioner) EnsureWorkspaceViews(ctx context.Context, ws domain.WorkspaceViews, report func(view string, outcome domain.StageOutcome, err error)) error {
	if report == nil {
		report = func(string, domain.StageOutcome, error) {}
	}

	p.logger.Info("Provisioning views",
		zap.String("workspace", ws.Workspace),
		zap.Int("views", len(ws.Views)))

	if err := p.server.EnsureWorkspace(ctx, ws.Workspace); err != nil {
		return fmt.Errorf("ensure workspace %s: %w", ws.Workspace, err)
	}
	if err := p.server.EnsureDataStore(ctx, ws.Workspace, ws.DataStore); err != nil && !stderrors.Is(err, errors.ErrResourceConflict) {
		return fmt.Errorf("ensure datastore %s/%s: %w", ws.Workspace, ws.DataStore, err)
	}

	var errs error
	for _, view := range ws.Views {
		created, err := p.EnsureView(ctx, ws.Workspace, ws.DataStore, view)
		switch {
		case err != nil:
			p.logger.Error("Failed to provision view",
				zap.String("workspace", ws.Workspace),
				zap.String("view", view.Name),
				zap.Error(err))
			report(view.Name, domain.OutcomeFailed, err)
			errs = multierr.Append(errs, err)
		case created:
			report(view.Name, domain.OutcomeBuilt, nil)
		default:
			report(view.Name, domain.OutcomeSkipped, nil)
		}
	}
	return errs
}
