package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
)

const (
	propertiesSheet = "properties"
	locationsSheet  = "locations"
	defaultSheet    = "Sheet1"

	// cooldownProgressInterval is how often a waiting publisher logs
	cooldownProgressInterval = 10 * time.Second
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// SleepContext waits on a timer, returning early with ctx.Err()
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PublisherConfig controls flow sheet publishing
type PublisherConfig struct {
	AdminEmail string
	Cooldown   time.Duration
	// MaxRetries bounds retries after a quota error; attempts are MaxRetries+1
	MaxRetries int
}

// FlowPublisher writes one spreadsheet per urban area and shares it.
type FlowPublisher struct {
	sheets repository.SheetRepository
	cfg    PublisherConfig
	wait   WaitFunc
	logger *zap.Logger
}

// NewFlowPublisher creates a new FlowPublisher
func NewFlowPublisher(sheets repository.SheetRepository, cfg PublisherConfig, wait WaitFunc, logger *zap.Logger) *FlowPublisher {
	if wait == nil {
		wait = SleepContext
	}
	return &FlowPublisher{
		sheets: sheets,
		cfg:    cfg,
		wait:   wait,
		logger: logger,
	}
}

// Publish writes every dataset and returns the sheet url per urban area.
// A failing area does not stop the others; the returned error aggregates the
// failures and urls holds only the areas that succeeded.
func (p *FlowPublisher) Publish(ctx context.Context, datasets []*domain.FlowDataset) (map[string]string, error) {
	urls := make(map[string]string, len(datasets))
	var errs error
	for _, ds := range datasets {
		url, err := p.PublishArea(ctx, ds)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish %s: %w", ds.UrbanAreaName, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		urls[ds.UrbanAreaName] = url
	}
	return urls, errs
}

// PublishArea runs one area through writing and the permission check. A
// quota error at any step restarts the area from writing after the cooldown,
// at most MaxRetries times.
func (p *FlowPublisher) PublishArea(ctx context.Context, ds *domain.FlowDataset) (string, error) {
	log := p.logger.With(zap.String("area", ds.UrbanAreaName))
	state := domain.PublishPending
	retries := 0

	for {
		state = p.transition(log, state, domain.PublishWriting)
		sheet, err := p.writeArea(ctx, ds)
		if err == nil {
			state = p.transition(log, state, domain.PublishPermissionCheck)
			err = p.reconcilePermissions(ctx, sheet.ID)
		}
		if err == nil {
			p.transition(log, state, domain.PublishDone)
			log.Info("Flow sheet published", zap.String("url", sheet.URL))
			return sheet.URL, nil
		}

		if !stderrors.Is(err, errors.ErrQuotaExceeded) || retries >= p.cfg.MaxRetries {
			p.transition(log, state, domain.PublishFailed)
			log.Error("Flow sheet publishing failed", zap.Int("retries", retries), zap.Error(err))
			return "", err
		}

		retries++
		state = p.transition(log, state, domain.PublishRateLimited)
		log.Warn("Sheet quota exceeded, cooling down",
			zap.Int("retry", retries),
			zap.Int("max_retries", p.cfg.MaxRetries),
			zap.Duration("cooldown", p.cfg.Cooldown))
		if err := p.cooldown(ctx, log); err != nil {
			p.transition(log, state, domain.PublishFailed)
			return "", err
		}
	}
}

func (p *FlowPublisher) transition(log *zap.Logger, from, to domain.PublishState) domain.PublishState {
	log.Debug("Publish state", zap.String("from", string(from)), zap.String("to", string(to)))
	return to
}

func (p *FlowPublisher) cooldown(ctx context.Context, log *zap.Logger) error {
	remaining := p.cfg.Cooldown
	for remaining > 0 {
		step := cooldownProgressInterval
		if remaining < step {
			step = remaining
		}
		if err := p.wait(ctx, step); err != nil {
			return err
		}
		remaining -= step
		if remaining > 0 {
			log.Info("Waiting for sheet quota", zap.Duration("remaining", remaining))
		}
	}
	return nil
}

// writeArea fills the properties, locations and per-category sheets,
// reusing worksheets left by an earlier run and dropping stale ones.
func (p *FlowPublisher) writeArea(ctx context.Context, ds *domain.FlowDataset) (*domain.Spreadsheet, error) {
	sheet, err := p.sheets.OpenOrCreate(ctx, SheetTitle(ds))
	if err != nil {
		return nil, err
	}

	existing, err := p.sheets.ListWorksheets(ctx, sheet.ID)
	if err != nil {
		return nil, err
	}
	byTitle := make(map[string]domain.Worksheet, len(existing))
	for _, ws := range existing {
		byTitle[ws.Title] = ws
	}

	contents := SheetContents(ds)
	wanted := make(map[string]bool, len(contents))
	for _, c := range contents {
		wanted[c.Title] = true

		switch ws, ok := byTitle[c.Title]; {
		case ok:
			if err := p.sheets.ClearWorksheet(ctx, sheet.ID, ws.Title); err != nil {
				return nil, err
			}
		case c.Title == propertiesSheet && hasSheet(byTitle, defaultSheet):
			def := byTitle[defaultSheet]
			if err := p.sheets.RenameWorksheet(ctx, sheet.ID, def.ID, propertiesSheet); err != nil {
				return nil, err
			}
			delete(byTitle, defaultSheet)
			byTitle[propertiesSheet] = domain.Worksheet{ID: def.ID, Title: propertiesSheet}
		default:
			ws, err := p.sheets.AddWorksheet(ctx, sheet.ID, c.Title)
			if err != nil {
				return nil, err
			}
			byTitle[c.Title] = *ws
		}

		if err := p.sheets.WriteValues(ctx, sheet.ID, c.Title, c.Rows); err != nil {
			return nil, err
		}
	}

	for title, ws := range byTitle {
		if wanted[title] {
			continue
		}
		if err := p.sheets.DeleteWorksheet(ctx, sheet.ID, ws.ID); err != nil {
			return nil, err
		}
	}
	return sheet, nil
}

func hasSheet(byTitle map[string]domain.Worksheet, title string) bool {
	_, ok := byTitle[title]
	return ok
}

// reconcilePermissions leaves exactly one anyone-reader grant. The admin is
// granted write access and offered ownership only when holding neither write
// access nor a pending transfer. A second call with no external change makes
// no requests beyond the listing.
func (p *FlowPublisher) reconcilePermissions(ctx context.Context, spreadsheetID string) error {
	perms, err := p.sheets.ListPermissions(ctx, spreadsheetID)
	if err != nil {
		return err
	}

	var readers []domain.Permission
	var admin *domain.Permission
	for i, perm := range perms {
		if perm.IsAnyoneReader() {
			readers = append(readers, perm)
		}
		if p.cfg.AdminEmail != "" && perm.Type == domain.PermissionTypeUser &&
			strings.EqualFold(perm.EmailAddress, p.cfg.AdminEmail) {
			admin = &perms[i]
		}
	}

	if len(readers) == 0 {
		if err := p.sheets.CreatePermission(ctx, spreadsheetID, domain.Permission{
			Type: domain.PermissionTypeAnyone,
			Role: domain.RoleReader,
		}); err != nil {
			return err
		}
	}
	for _, dup := range readers[min(1, len(readers)):] {
		if err := p.sheets.DeletePermission(ctx, spreadsheetID, dup.ID); err != nil {
			return err
		}
	}

	if p.cfg.AdminEmail == "" || adminSettled(admin) {
		return nil
	}

	if err := p.sheets.CreatePermission(ctx, spreadsheetID, domain.Permission{
		Type:         domain.PermissionTypeUser,
		Role:         domain.RoleWriter,
		EmailAddress: p.cfg.AdminEmail,
	}); err != nil {
		return err
	}
	p.logger.Info("Transferring sheet ownership", zap.String("spreadsheet_id", spreadsheetID))
	return p.sheets.TransferOwnership(ctx, spreadsheetID, p.cfg.AdminEmail)
}

func adminSettled(admin *domain.Permission) bool {
	if admin == nil {
		return false
	}
	return admin.Role == domain.RoleWriter || admin.Role == domain.RoleOwner || admin.PendingOwner
}

// SheetTitle is the spreadsheet title of an urban area's flow map
func SheetTitle(ds *domain.FlowDataset) string {
	return ds.DisplayName + " Mode Shares"
}

// SheetContent is the full content of one worksheet
type SheetContent struct {
	Title string
	Rows  [][]interface{}
}

// SheetContents lays a dataset out as flow map worksheets: properties,
// locations, then one sheet per category in dataset order.
func SheetContents(ds *domain.FlowDataset) []SheetContent {
	properties := [][]interface{}{
		{"property", "value"},
		{"title", SheetTitle(ds)},
		{"description", fmt.Sprintf("Commuter flows between SA2s of %s by main means of travel to work, 2018 census.", ds.DisplayName)},
		{"source.name", "Stats NZ | Tatauranga Aotearoa"},
		{"source.url", "https://datafinder.stats.govt.nz/data/category/census/2018/commuter-view/"},
		{"createdBy.name", "Geospatial Research Institute | Toi Hangarau"},
		{"createdBy.url", "http://geospatial.ac.nz"},
		{"mapbox.mapStyle", ""},
		{"colors.scheme", "Default"},
		{"colors.darkMode", "no"},
		{"animate.flows", "no"},
		{"clustering", "no"},
		{"flows.sheets", strings.Join(ds.Categories, ",")},
	}

	locations := make([][]interface{}, 0, len(ds.Locations)+1)
	locations = append(locations, []interface{}{"id", "name", "lat", "lon"})
	for _, l := range ds.Locations {
		locations = append(locations, []interface{}{l.ID, l.Name, l.Lat, l.Lon})
	}

	out := []SheetContent{
		{Title: propertiesSheet, Rows: properties},
		{Title: locationsSheet, Rows: locations},
	}
	for _, c := range ds.Categories {
		rows := make([][]interface{}, 0, len(ds.Flows[c])+1)
		rows = append(rows, []interface{}{"origin", "dest", "count"})
		for _, f := range ds.Flows[c] {
			rows = append(rows, []interface{}{f.Origin, f.Dest, f.Count})
		}
		out = append(out, SheetContent{Title: c, Rows: rows})
	}
	return out
}
