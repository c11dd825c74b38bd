package repository

import (
	"context"

	"github.com/urban-indicators/internal/domain"
)

// SheetRepository is the spreadsheet service. Any call may fail with
// errors.ErrQuotaExceeded when the service rate-limits the caller.
type SheetRepository interface {
	// OpenOrCreate returns the spreadsheet with that title, creating it if missing
	OpenOrCreate(ctx context.Context, title string) (*domain.Spreadsheet, error)

	ListWorksheets(ctx context.Context, spreadsheetID string) ([]domain.Worksheet, error)
	AddWorksheet(ctx context.Context, spreadsheetID, title string) (*domain.Worksheet, error)
	RenameWorksheet(ctx context.Context, spreadsheetID string, worksheetID int64, title string) error
	ClearWorksheet(ctx context.Context, spreadsheetID, title string) error
	DeleteWorksheet(ctx context.Context, spreadsheetID string, worksheetID int64) error

	// WriteValues overwrites the worksheet starting at A1
	WriteValues(ctx context.Context, spreadsheetID, title string, rows [][]interface{}) error

	ListPermissions(ctx context.Context, spreadsheetID string) ([]domain.Permission, error)
	CreatePermission(ctx context.Context, spreadsheetID string, perm domain.Permission) error
	DeletePermission(ctx context.Context, spreadsheetID, permissionID string) error

	// TransferOwnership starts an ownership transfer to email, who must accept it
	TransferOwnership(ctx context.Context, spreadsheetID, email string) error
}
