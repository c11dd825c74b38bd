package postgres_test

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/suite"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/repository/postgres/testhelpers"
)

const (
	testBoundaryTable = "test_store_boundaries"
	testAppendTable   = "test_store_append"
)

// StoreRepositoryTestSuite covers the derived table store against PostGIS
type StoreRepositoryTestSuite struct {
	suite.Suite
	testDB *testhelpers.TestDB
	repo   repository.StoreRepository
	stats  repository.StatsRepository
	ctx    context.Context
}

func (s *StoreRepositoryTestSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDB(s.T())
	s.ctx = context.Background()
	s.repo = testhelpers.NewStoreRepositoryForTest(s.testDB.DB, s.testDB.Logger)
	s.stats = testhelpers.NewStatsRepositoryForTest(s.testDB.DB, s.testDB.Logger)
}

func (s *StoreRepositoryTestSuite) SetupTest() {
	s.Require().NoError(s.testDB.DropTables(s.ctx, testBoundaryTable, testAppendTable, "sa2s", "mode_share"))
}

func (s *StoreRepositoryTestSuite) TearDownSuite() {
	if s.testDB != nil {
		_ = s.testDB.DropTables(s.ctx, testBoundaryTable, testAppendTable, "sa2s", "mode_share")
		s.testDB.Close()
	}
}

func boundaryRecords(ids ...int64) *domain.RecordSet {
	rs := &domain.RecordSet{
		Columns: []domain.Column{
			{Name: "SA12018_V1_00", Type: domain.ColumnBigInt},
			{Name: "LANDWATER_NAME", Type: domain.ColumnText},
			{Name: "AREA_SQ_KM", Type: domain.ColumnFloat},
			{Name: domain.GeometryColumn, Type: domain.ColumnGeometry},
		},
	}
	for _, id := range ids {
		x := float64(id) / 1000
		rs.Rows = append(rs.Rows, []interface{}{
			id, "Mainland", 0.25,
			orb.Polygon{{{x, -37}, {x + 0.1, -37}, {x + 0.1, -37.1}, {x, -37.1}, {x, -37}}},
		})
	}
	return rs
}

func (s *StoreRepositoryTestSuite) TestTableExists() {
	exists, err := s.repo.TableExists(s.ctx, testBoundaryTable)
	s.Require().NoError(err)
	s.False(exists)

	err = s.repo.Write(s.ctx, testBoundaryTable, boundaryRecords(1), domain.WriteReplace, []string{"SA12018_V1_00"})
	s.Require().NoError(err)

	exists, err = s.repo.TableExists(s.ctx, testBoundaryTable)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StoreRepositoryTestSuite) TestWriteReplaceDiscardsPreviousRows() {
	pk := []string{"SA12018_V1_00"}
	s.Require().NoError(s.repo.Write(s.ctx, testBoundaryTable, boundaryRecords(1, 2, 3), domain.WriteReplace, pk))
	s.Require().NoError(s.repo.Write(s.ctx, testBoundaryTable, boundaryRecords(4), domain.WriteReplace, pk))

	rs, err := s.repo.Read(s.ctx, testBoundaryTable, "SA12018_V1_00")
	s.Require().NoError(err)
	s.Require().Equal(1, rs.Len())
	s.Equal(int64(4), rs.Rows[0][0])
}

func (s *StoreRepositoryTestSuite) TestWriteAppend() {
	pk := []string{"SA12018_V1_00"}
	s.Require().NoError(s.repo.Write(s.ctx, testAppendTable, boundaryRecords(1), domain.WriteAppend, pk))
	s.Require().NoError(s.repo.Write(s.ctx, testAppendTable, boundaryRecords(2), domain.WriteAppend, pk))

	rs, err := s.repo.Read(s.ctx, testAppendTable, "SA12018_V1_00")
	s.Require().NoError(err)
	s.Equal(2, rs.Len())
}

func (s *StoreRepositoryTestSuite) TestFailedWriteLeavesTableAbsent() {
	// duplicate primary key fails the insert, the create is rolled back
	err := s.repo.Write(s.ctx, testBoundaryTable, boundaryRecords(1, 1), domain.WriteReplace, []string{"SA12018_V1_00"})
	s.Error(err)

	exists, err := s.repo.TableExists(s.ctx, testBoundaryTable)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *StoreRepositoryTestSuite) TestReadGeometryRoundTrip() {
	s.Require().NoError(s.repo.Write(s.ctx, testBoundaryTable, boundaryRecords(500), domain.WriteReplace, nil))

	rs, err := s.repo.Read(s.ctx, testBoundaryTable, "SA12018_V1_00", domain.GeometryColumn)
	s.Require().NoError(err)
	s.Require().Equal(1, rs.Len())
	s.Equal(domain.ColumnGeometry, rs.Columns[1].Type)

	poly, ok := rs.Rows[0][1].(orb.Polygon)
	s.Require().True(ok, "expected polygon, got %T", rs.Rows[0][1])
	s.InDelta(0.5, poly[0][0][0], 1e-9)
}

func (s *StoreRepositoryTestSuite) TestReadMissingTable() {
	_, err := s.repo.Read(s.ctx, testBoundaryTable, "SA12018_V1_00")
	s.Error(err)
}

func (s *StoreRepositoryTestSuite) TestRawQueryNamedParams() {
	s.Require().NoError(testhelpers.LoadFixtures(s.ctx, s.testDB.DB, testhelpers.ModeShareFixture))

	rs, err := s.repo.RawQuery(s.ctx, `
		SELECT "SA22018_V1_00" AS id, "SA22018_V1_NAME" AS name
		FROM sa2s
		WHERE "UR2023_V1_00_NAME" ILIKE :urban_area_name
		ORDER BY id`,
		map[string]interface{}{"urban_area_name": "hamilton"})
	s.Require().NoError(err)
	s.Equal(3, rs.Len())
	s.Equal("id", rs.Columns[0].Name)
	s.Equal("Hamilton Central", rs.Rows[0][1])
}

func (s *StoreRepositoryTestSuite) TestTableStatuses() {
	s.Require().NoError(s.repo.Write(s.ctx, testBoundaryTable, boundaryRecords(1, 2), domain.WriteReplace, nil))

	statuses, err := s.stats.GetTableStatuses(s.ctx, []string{testBoundaryTable, testAppendTable})
	s.Require().NoError(err)
	s.Require().Len(statuses, 2)
	s.Equal(domain.TableStatus{Table: testBoundaryTable, Exists: true, Rows: 2}, statuses[0])
	s.Equal(domain.TableStatus{Table: testAppendTable}, statuses[1])
}

func TestStoreRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(StoreRepositoryTestSuite))
}
