package repository

import (
	"context"

	"github.com/urban-indicators/internal/domain"
)

// SurveyRepository reads the raw survey extracts.
type SurveyRepository interface {
	// ReadEmissions reads the vehicle emissions workbook
	ReadEmissions(ctx context.Context) (*domain.WideTable, error)

	// ReadModeShare reads the wide mode-share extract for a vintage, one
	// column per travel mode
	ReadModeShare(ctx context.Context, vintage domain.Vintage) (*domain.RecordSet, error)

	// ReadModeShareObservations reads a long mode-share extract
	ReadModeShareObservations(ctx context.Context, vintage domain.Vintage) ([]domain.LongObservation, error)
}
