package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/urban-indicators/internal/domain"
)

type MockVectorRepository struct {
	mock.Mock
}

func (m *MockVectorRepository) FetchLayer(ctx context.Context, layerID int, bbox domain.BoundingBox, idField string) (*domain.FeatureSet, error) {
	args := m.Called(ctx, layerID, bbox, idField)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeatureSet), args.Error(1)
}

type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) TableExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoreRepository) Write(ctx context.Context, name string, records *domain.RecordSet, mode domain.WriteMode, primaryKey []string) error {
	return m.Called(ctx, name, records, mode, primaryKey).Error(0)
}

func (m *MockStoreRepository) Read(ctx context.Context, name string, columns ...string) (*domain.RecordSet, error) {
	args := m.Called(ctx, name, columns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecordSet), args.Error(1)
}

func (m *MockStoreRepository) RawQuery(ctx context.Context, query string, params map[string]interface{}) (*domain.RecordSet, error) {
	args := m.Called(ctx, query, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecordSet), args.Error(1)
}

type MockMapServerRepository struct {
	mock.Mock
}

func (m *MockMapServerRepository) EnsureWorkspace(ctx context.Context, workspace string) error {
	return m.Called(ctx, workspace).Error(0)
}

func (m *MockMapServerRepository) EnsureDataStore(ctx context.Context, workspace, store string) error {
	return m.Called(ctx, workspace, store).Error(0)
}

func (m *MockMapServerRepository) FeatureTypeExists(ctx context.Context, workspace, store, name string) (bool, error) {
	args := m.Called(ctx, workspace, store, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockMapServerRepository) CreateFeatureType(ctx context.Context, workspace, store string, view domain.ViewDefinition) error {
	return m.Called(ctx, workspace, store, view).Error(0)
}

type MockSurveyRepository struct {
	mock.Mock
}

func (m *MockSurveyRepository) ReadEmissions(ctx context.Context) (*domain.WideTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WideTable), args.Error(1)
}

func (m *MockSurveyRepository) ReadModeShare(ctx context.Context, vintage domain.Vintage) (*domain.RecordSet, error) {
	args := m.Called(ctx, vintage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecordSet), args.Error(1)
}

func (m *MockSurveyRepository) ReadModeShareObservations(ctx context.Context, vintage domain.Vintage) ([]domain.LongObservation, error) {
	args := m.Called(ctx, vintage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LongObservation), args.Error(1)
}

type MockSheetRepository struct {
	mock.Mock
}

func (m *MockSheetRepository) OpenOrCreate(ctx context.Context, title string) (*domain.Spreadsheet, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Spreadsheet), args.Error(1)
}

func (m *MockSheetRepository) ListWorksheets(ctx context.Context, spreadsheetID string) ([]domain.Worksheet, error) {
	args := m.Called(ctx, spreadsheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Worksheet), args.Error(1)
}

func (m *MockSheetRepository) AddWorksheet(ctx context.Context, spreadsheetID, title string) (*domain.Worksheet, error) {
	args := m.Called(ctx, spreadsheetID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Worksheet), args.Error(1)
}

func (m *MockSheetRepository) RenameWorksheet(ctx context.Context, spreadsheetID string, worksheetID int64, title string) error {
	return m.Called(ctx, spreadsheetID, worksheetID, title).Error(0)
}

func (m *MockSheetRepository) ClearWorksheet(ctx context.Context, spreadsheetID, title string) error {
	return m.Called(ctx, spreadsheetID, title).Error(0)
}

func (m *MockSheetRepository) DeleteWorksheet(ctx context.Context, spreadsheetID string, worksheetID int64) error {
	return m.Called(ctx, spreadsheetID, worksheetID).Error(0)
}

func (m *MockSheetRepository) WriteValues(ctx context.Context, spreadsheetID, title string, rows [][]interface{}) error {
	return m.Called(ctx, spreadsheetID, title, rows).Error(0)
}

func (m *MockSheetRepository) ListPermissions(ctx context.Context, spreadsheetID string) ([]domain.Permission, error) {
	args := m.Called(ctx, spreadsheetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Permission), args.Error(1)
}

func (m *MockSheetRepository) CreatePermission(ctx context.Context, spreadsheetID string, perm domain.Permission) error {
	return m.Called(ctx, spreadsheetID, perm).Error(0)
}

func (m *MockSheetRepository) DeletePermission(ctx context.Context, spreadsheetID, permissionID string) error {
	return m.Called(ctx, spreadsheetID, permissionID).Error(0)
}

func (m *MockSheetRepository) TransferOwnership(ctx context.Context, spreadsheetID, email string) error {
	return m.Called(ctx, spreadsheetID, email).Error(0)
}

type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) GetTableStatuses(ctx context.Context, tables []string) ([]domain.TableStatus, error) {
	args := m.Called(ctx, tables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TableStatus), args.Error(1)
}

func (m *MockStatsRepository) ListFlowSheets(ctx context.Context) ([]domain.FlowPublicationRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FlowPublicationRecord), args.Error(1)
}

// memStore is an in-memory StoreRepository for multi-table pipeline tests
type memStore struct {
	tables map[string]*domain.RecordSet
	writes []string
	// query answers RawQuery, empty results when nil
	query func(sql string) *domain.RecordSet
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string]*domain.RecordSet)}
}

func (s *memStore) TableExists(_ context.Context, name string) (bool, error) {
	_, ok := s.tables[name]
	return ok, nil
}

func (s *memStore) Write(_ context.Context, name string, records *domain.RecordSet, _ domain.WriteMode, _ []string) error {
	s.tables[name] = records
	s.writes = append(s.writes, name)
	return nil
}

func (s *memStore) Read(_ context.Context, name string, columns ...string) (*domain.RecordSet, error) {
	return s.tables[name].Project(columns...)
}

func (s *memStore) RawQuery(_ context.Context, query string, _ map[string]interface{}) (*domain.RecordSet, error) {
	if s.query == nil {
		return &domain.RecordSet{}, nil
	}
	return s.query(query), nil
}
