package gsheets

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/urban-indicators/internal/config"
	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

type client struct {
	sheets  *sheets.Service
	drive   *drive.Service
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewSheetsClient authenticates with the service-account JSON and returns the
// sheet service. Calls are paced to cfg.RequestsPerMinute.
func NewSheetsClient(ctx context.Context, cfg *config.SheetsConfig, credentials []byte, logger *zap.Logger) (repository.SheetRepository, error) {
	auth := []option.ClientOption{
		option.WithCredentialsJSON(credentials),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
	}
	return newClient(ctx, cfg, logger, auth, auth)
}

func newClient(ctx context.Context, cfg *config.SheetsConfig, logger *zap.Logger, sheetsOpts, driveOpts []option.ClientOption) (*client, error) {
	sheetsSvc, err := sheets.NewService(ctx, sheetsOpts...)
	if err != nil {
		return nil, errors.ErrConfigurationMissing.Detail("service", "sheets").Wrap(err)
	}
	driveSvc, err := drive.NewService(ctx, driveOpts...)
	if err != nil {
		return nil, errors.ErrConfigurationMissing.Detail("service", "drive").Wrap(err)
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &client{
		sheets:  sheetsSvc,
		drive:   driveSvc,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

func (c *client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sheets rate limiter: %w", err)
	}
	return nil
}

func (c *client) OpenOrCreate(ctx context.Context, title string) (*domain.Spreadsheet, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(title), spreadsheetMimeType)
	list, err := c.drive.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return nil, classify(err, "open", title)
	}
	if len(list.Files) > 0 {
		f := list.Files[0]
		c.logger.Debug("Opened spreadsheet", zap.String("title", title), zap.String("spreadsheet_id", f.Id))
		return &domain.Spreadsheet{ID: f.Id, Title: f.Name, URL: spreadsheetURL(f.Id)}, nil
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	created, err := c.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Context(ctx).Do()
	if err != nil {
		return nil, classify(err, "create", title)
	}

	url := created.SpreadsheetUrl
	if url == "" {
		url = spreadsheetURL(created.SpreadsheetId)
	}
	c.logger.Info("Created spreadsheet", zap.String("title", title), zap.String("spreadsheet_id", created.SpreadsheetId))
	return &domain.Spreadsheet{ID: created.SpreadsheetId, Title: title, URL: url}, nil
}

func (c *client) ListWorksheets(ctx context.Context, spreadsheetID string) ([]domain.Worksheet, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	ss, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, "list worksheets", spreadsheetID)
	}

	out := make([]domain.Worksheet, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties == nil {
			continue
		}
		out = append(out, domain.Worksheet{ID: s.Properties.SheetId, Title: s.Properties.Title})
	}
	return out, nil
}

func (c *client) AddWorksheet(ctx context.Context, spreadsheetID, title string) (*domain.Worksheet, error) {
	resp, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{Title: title},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return nil, errors.ErrExternalService.Detail("worksheet", title).
			Wrap(fmt.Errorf("add sheet returned no properties"))
	}
	props := resp.Replies[0].AddSheet.Properties
	return &domain.Worksheet{ID: props.SheetId, Title: props.Title}, nil
}

func (c *client) RenameWorksheet(ctx context.Context, spreadsheetID string, worksheetID int64, title string) error {
	_, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:         worksheetID,
				Title:           title,
				ForceSendFields: []string{"SheetId"},
			},
			Fields: "title",
		},
	})
	return err
}

func (c *client) DeleteWorksheet(ctx context.Context, spreadsheetID string, worksheetID int64) error {
	_, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		DeleteSheet: &sheets.DeleteSheetRequest{
			SheetId:         worksheetID,
			ForceSendFields: []string{"SheetId"},
		},
	})
	return err
}

func (c *client) batchUpdate(ctx context.Context, spreadsheetID string, req *sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{req},
	}).Context(ctx).Do()
	if err != nil {
		return nil, classify(err, "update", spreadsheetID)
	}
	return resp, nil
}

func (c *client) ClearWorksheet(ctx context.Context, spreadsheetID, title string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	_, err := c.sheets.Spreadsheets.Values.Clear(spreadsheetID, quoteSheet(title), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, "clear", title)
	}
	return nil
}

func (c *client) WriteValues(ctx context.Context, spreadsheetID, title string, rows [][]interface{}) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	rng := quoteSheet(title) + "!A1"
	_, err := c.sheets.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err, "write", title)
	}
	c.logger.Debug("Wrote worksheet",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("worksheet", title),
		zap.Int("rows", len(rows)))
	return nil
}

func (c *client) ListPermissions(ctx context.Context, spreadsheetID string) ([]domain.Permission, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	list, err := c.drive.Permissions.List(spreadsheetID).
		Fields("permissions(id,type,role,emailAddress,pendingOwner)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err, "list permissions", spreadsheetID)
	}

	out := make([]domain.Permission, 0, len(list.Permissions))
	for _, p := range list.Permissions {
		out = append(out, domain.Permission{
			ID:           p.Id,
			Type:         p.Type,
			Role:         p.Role,
			EmailAddress: p.EmailAddress,
			PendingOwner: p.PendingOwner,
		})
	}
	return out, nil
}

func (c *client) CreatePermission(ctx context.Context, spreadsheetID string, perm domain.Permission) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	call := c.drive.Permissions.Create(spreadsheetID, &drive.Permission{
		Type:         perm.Type,
		Role:         perm.Role,
		EmailAddress: perm.EmailAddress,
	}).Context(ctx)
	if perm.Type == domain.PermissionTypeUser {
		call = call.SendNotificationEmail(true)
	}
	if _, err := call.Do(); err != nil {
		return classify(err, "grant", perm.Type+":"+perm.Role)
	}
	return nil
}

func (c *client) DeletePermission(ctx context.Context, spreadsheetID, permissionID string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := c.drive.Permissions.Delete(spreadsheetID, permissionID).Context(ctx).Do(); err != nil {
		return classify(err, "revoke", permissionID)
	}
	return nil
}

// TransferOwnership marks the user's writer grant as pending owner. The
// transfer completes when the user accepts it in Drive.
func (c *client) TransferOwnership(ctx context.Context, spreadsheetID, email string) error {
	perms, err := c.ListPermissions(ctx, spreadsheetID)
	if err != nil {
		return err
	}

	var permID string
	for _, p := range perms {
		if p.Type == domain.PermissionTypeUser && strings.EqualFold(p.EmailAddress, email) {
			permID = p.ID
			break
		}
	}
	if permID == "" {
		return errors.ErrExternalService.Detail("email", email).
			Wrap(fmt.Errorf("no permission for %s to transfer ownership to", email))
	}

	if err := c.wait(ctx); err != nil {
		return err
	}
	_, err = c.drive.Permissions.Update(spreadsheetID, permID, &drive.Permission{
		Role:         domain.RoleWriter,
		PendingOwner: true,
	}).Context(ctx).Do()
	if err != nil {
		return classify(err, "transfer ownership", email)
	}
	c.logger.Info("Requested ownership transfer",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("email", email))
	return nil
}

// classify maps quota responses to ErrQuotaExceeded so callers can back off.
// Sheets answers quota exhaustion with 429, Drive with 403 rateLimitExceeded.
func classify(err error, op, target string) error {
	details := map[string]interface{}{"operation": op, "target": target}

	var gerr *googleapi.Error
	if stderrors.As(err, &gerr) {
		if isQuotaError(gerr) {
			return errors.ErrQuotaExceeded.WithDetails(details).Wrap(err)
		}
		details["status_code"] = gerr.Code
	}
	return errors.ErrExternalService.WithDetails(details).
		Wrap(fmt.Errorf("%s %s: %w", op, target, err))
}

func isQuotaError(gerr *googleapi.Error) bool {
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}

// quoteSheet renders a worksheet title as an A1 range prefix
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}

func spreadsheetURL(id string) string {
	return "https://docs.google.com/spreadsheets/d/" + id
}
