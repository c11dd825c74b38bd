package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/logger"
)

// Stage names reported in a RunSummary
const (
	StageTable   = "table"
	StageView    = "view"
	StagePublish = "publish"
)

// MaterializeOptions are the run-wide settings of the pipeline
type MaterializeOptions struct {
	Areas      []domain.AreaOfInterest
	DataStore  string
	Exclusions []string
	// With2023 builds the 2023 SA2 and long-format mode-share tables
	With2023 bool
}

// MaterializeUseCase runs the whole pipeline: boundary and survey tables,
// map server views, then flow sheet publishing. Every stage is skipped when
// its output already exists, so a run can be repeated at any time.
type MaterializeUseCase struct {
	loader     *TableLoader
	boundaries *BoundaryBuilder
	surveys    repository.SurveyRepository
	views      *ViewProvisioner
	flows      *FlowDatasetBuilder
	publisher  *FlowPublisher
	opts       MaterializeOptions
	logger     *zap.Logger
}

// NewMaterializeUseCase creates the pipeline. A nil publisher disables flow
// sheet publishing.
func NewMaterializeUseCase(
	loader *TableLoader,
	boundaries *BoundaryBuilder,
	surveys repository.SurveyRepository,
	views *ViewProvisioner,
	flows *FlowDatasetBuilder,
	publisher *FlowPublisher,
	opts MaterializeOptions,
	logger *zap.Logger,
) *MaterializeUseCase {
	return &MaterializeUseCase{
		loader:     loader,
		boundaries: boundaries,
		surveys:    surveys,
		views:      views,
		flows:      flows,
		publisher:  publisher,
		opts:       opts,
		logger:     logger,
	}
}

// pipelineRun carries the state of one Run
type pipelineRun struct {
	summary *domain.RunSummary
	log     *zap.Logger
}

// Run executes the pipeline once. Table failures stop the run since later
// tables depend on earlier ones; view and publish failures are collected and
// returned after every remaining stage has been attempted. The summary is
// returned in both cases.
func (uc *MaterializeUseCase) Run(ctx context.Context, trigger string, requestID *uuid.UUID) (*domain.RunSummary, error) {
	runID := uuid.New()
	run := &pipelineRun{
		summary: &domain.RunSummary{
			RunID:     runID,
			RequestID: requestID,
			Trigger:   trigger,
			StartedAt: time.Now().UTC(),
		},
		log: logger.ForRun(uc.logger, runID.String()),
	}
	run.log.Info("Pipeline run started", zap.String("trigger", trigger))

	err := uc.run(ctx, run)

	run.summary.FinishedAt = time.Now().UTC()
	if err != nil {
		run.summary.Error = err.Error()
		run.log.Error("Pipeline run failed",
			zap.Duration("duration", run.summary.FinishedAt.Sub(run.summary.StartedAt)),
			zap.Int("failed", run.summary.Count(domain.OutcomeFailed)),
			zap.Error(err))
		return run.summary, err
	}
	run.log.Info("Pipeline run finished",
		zap.Duration("duration", run.summary.FinishedAt.Sub(run.summary.StartedAt)),
		zap.Int("built", run.summary.Count(domain.OutcomeBuilt)),
		zap.Int("skipped", run.summary.Count(domain.OutcomeSkipped)))
	return run.summary, nil
}

func (uc *MaterializeUseCase) run(ctx context.Context, run *pipelineRun) error {
	// 1. SA1 boundaries and the emissions survey
	sa1Keys, err := uc.table(ctx, run, domain.TableSpec{
		Name:       domain.SA12018.Table,
		PrimaryKey: []string{domain.SA12018.IndexField},
	}, uc.boundaries.Builder(domain.SA12018))
	if err != nil {
		return err
	}
	sa1IDs, err := sa1Keys.Int64Set(domain.SA12018.IndexField)
	if err != nil {
		return fmt.Errorf("sa1 ids: %w", err)
	}

	_, err = uc.table(ctx, run, domain.TableSpec{
		Name:       domain.VehicleStatsTable,
		PrimaryKey: []string{domain.SA12018.IndexField, domain.VehicleClassColumn, domain.FuelTypeColumn},
	}, uc.vehicleStatsBuilder(sa1IDs))
	if err != nil {
		return err
	}

	// 2. SA2 2018 boundaries and the wide mode-share extract
	if err := uc.modeShare(ctx, run, domain.SA22018); err != nil {
		return err
	}

	// 3. SA2 2023 boundaries and the long mode-share extract
	if uc.opts.With2023 {
		if err := uc.modeShare(ctx, run, domain.SA22023); err != nil {
			return err
		}
	} else {
		run.log.Info("2023 mode share not configured, skipping", zap.String("table", domain.SA22023.ModeShareTable))
	}

	// 4. Map server views
	var errs error
	report := uc.reporter(run)
	errs = multierr.Append(errs, uc.views.EnsureWorkspaceViews(ctx, EmissionsViews(uc.opts.DataStore), report))
	errs = multierr.Append(errs, uc.views.EnsureWorkspaceViews(ctx, ModeShareViews(uc.opts.DataStore, uc.opts.With2023), report))

	// 5. Flow sheets
	if uc.publisher == nil {
		run.log.Info("Flow map publishing disabled")
		return errs
	}
	if err := uc.publish(ctx, run); err != nil {
		return multierr.Append(errs, err)
	}
	return multierr.Append(errs, uc.views.EnsureWorkspaceViews(ctx, FlowSheetsView(uc.opts.DataStore), report))
}

func (uc *MaterializeUseCase) table(ctx context.Context, run *pipelineRun, spec domain.TableSpec, build TableBuilder) (*domain.RecordSet, error) {
	keys, outcome, err := uc.loader.Ensure(ctx, spec, build)
	run.summary.Add(StageTable, spec.Name, outcome, err)
	return keys, err
}

func (uc *MaterializeUseCase) reporter(run *pipelineRun) func(string, domain.StageOutcome, error) {
	return func(view string, outcome domain.StageOutcome, err error) {
		run.summary.Add(StageView, view, outcome, err)
	}
}

func (uc *MaterializeUseCase) vehicleStatsBuilder(ids map[int64]struct{}) TableBuilder {
	return func(ctx context.Context) (*domain.RecordSet, error) {
		wide, err := uc.surveys.ReadEmissions(ctx)
		if err != nil {
			return nil, err
		}
		records, err := MeltBySuffix(wide, ids, domain.FuelTypeVocabulary, string(domain.DefaultFuelType))
		if err != nil {
			return nil, err
		}
		return VehicleStatsRecords(records, wide.Metrics)
	}
}

func (uc *MaterializeUseCase) modeShare(ctx context.Context, run *pipelineRun, vintage domain.Vintage) error {
	keys, err := uc.table(ctx, run, domain.TableSpec{
		Name:       vintage.Table,
		PrimaryKey: []string{vintage.IndexField},
	}, uc.boundaries.Builder(vintage))
	if err != nil {
		return err
	}
	ids, err := keys.Int64Set(vintage.IndexField)
	if err != nil {
		return fmt.Errorf("%s ids: %w", vintage.Name, err)
	}

	_, err = uc.table(ctx, run, domain.TableSpec{
		Name:       vintage.ModeShareTable,
		PrimaryKey: []string{domain.ModeShareOriginColumn, domain.ModeShareDestColumn},
	}, uc.modeShareBuilder(vintage, ids))
	return err
}

func (uc *MaterializeUseCase) modeShareBuilder(vintage domain.Vintage, ids map[int64]struct{}) TableBuilder {
	return func(ctx context.Context) (*domain.RecordSet, error) {
		var table *domain.ModeShareTable
		switch vintage.Reshape {
		case domain.ReshapePivotToWide:
			obs, err := uc.surveys.ReadModeShareObservations(ctx, vintage)
			if err != nil {
				return nil, err
			}
			if table, err = PivotToWide(obs, ids, uc.opts.Exclusions); err != nil {
				return nil, err
			}
		default:
			rs, err := uc.surveys.ReadModeShare(ctx, vintage)
			if err != nil {
				return nil, err
			}
			if table, err = NormalizeWide(rs, ids, uc.opts.Exclusions); err != nil {
				return nil, err
			}
		}
		return table.RecordSet(), nil
	}
}

// publish is gated on a non-empty flow_sheets table: it is written only once
// every area with locations was published, so a partial or empty publish is
// retried in full on the next run.
func (uc *MaterializeUseCase) publish(ctx context.Context, run *pipelineRun) error {
	spec := domain.TableSpec{
		Name:        domain.FlowSheetsTable,
		PrimaryKey:  []string{"urban_area_name"},
		RequireRows: true,
	}
	_, outcome, err := uc.loader.Ensure(ctx, spec, func(ctx context.Context) (*domain.RecordSet, error) {
		datasets := make([]*domain.FlowDataset, 0, len(uc.opts.Areas))
		for _, area := range uc.opts.Areas {
			ds, err := uc.flows.Build(ctx, area)
			if err != nil {
				return nil, err
			}
			if len(ds.Locations) == 0 {
				run.log.Warn("No SA2s for urban area, not publishing", zap.String("area", area.CanonicalName))
				continue
			}
			datasets = append(datasets, ds)
		}
		if len(datasets) == 0 {
			return nil, fmt.Errorf("no area of interest has flow locations, nothing to publish")
		}

		urls, err := uc.publisher.Publish(ctx, datasets)
		run.summary.FlowSheets = urls
		if err != nil {
			return nil, err
		}
		return FlowSheetRecords(datasets, urls), nil
	})
	run.summary.Add(StagePublish, domain.FlowSheetsTable, outcome, err)
	return err
}

// FlowSheetRecords lays published urls out as the flow_sheets table in
// dataset order.
func FlowSheetRecords(datasets []*domain.FlowDataset, urls map[string]string) *domain.RecordSet {
	rs := &domain.RecordSet{
		Columns: []domain.Column{
			{Name: "urban_area_name", Type: domain.ColumnText},
			{Name: "external_sheet_url", Type: domain.ColumnText},
		},
	}
	for _, ds := range datasets {
		if url, ok := urls[ds.UrbanAreaName]; ok {
			rs.Rows = append(rs.Rows, []interface{}{ds.UrbanAreaName, url})
		}
	}
	return rs
}
