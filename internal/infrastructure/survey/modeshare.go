package survey

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/pkg/errors"
)

// ReadModeShare reads a wide means-of-travel CSV into a RecordSet. Column
// types are inferred: bigint when every value is an integer, double precision
// when every value is numeric, text otherwise.
func (r *reader) ReadModeShare(ctx context.Context, vintage domain.Vintage) (*domain.RecordSet, error) {
	path, err := r.modeSharePath(vintage)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Reading mode share extract", zap.String("vintage", vintage.Name), zap.String("path", path))

	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	rs, err := inferRecordSet(header, records)
	if err != nil {
		return nil, errors.ErrSchemaViolation.Detail("path", path).Wrap(err)
	}

	r.logger.Info("Read mode share extract",
		zap.String("vintage", vintage.Name),
		zap.Int("rows", rs.Len()),
		zap.Int("columns", len(rs.Columns)))
	return rs, nil
}

// longColumns lists accepted header names per role, compared case-insensitively
var longColumns = struct {
	origin, dest, category, value, status []string
}{
	origin:   []string{"SA2_code_usual_residence_address", "SA22023_V1_00_usual_residence_address", "usual_residence_address", "origin"},
	dest:     []string{"SA2_code_workplace_address", "SA22023_V1_00_workplace_address", "workplace_address", "dest"},
	category: []string{"Main_means_of_travel_to_work", "Main means of travel to work", "means_of_travel", "category"},
	value:    []string{"OBS_VALUE", "count", "value"},
	status:   []string{"OBS_STATUS", "status"},
}

// ReadModeShareObservations reads a long means-of-travel CSV with one row per
// origin, destination and travel mode.
func (r *reader) ReadModeShareObservations(ctx context.Context, vintage domain.Vintage) ([]domain.LongObservation, error) {
	path, err := r.modeSharePath(vintage)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Reading long mode share extract", zap.String("vintage", vintage.Name), zap.String("path", path))

	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	obs, err := parseObservations(header, records)
	if err != nil {
		return nil, errors.ErrSchemaViolation.Detail("path", path).Wrap(err)
	}

	r.logger.Info("Read long mode share extract",
		zap.String("vintage", vintage.Name),
		zap.Int("observations", len(obs)))
	return obs, nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.ErrSchemaViolation.Detail("path", path).Wrap(fmt.Errorf("empty file"))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return header, records, nil
}

func inferRecordSet(header []string, records [][]string) (*domain.RecordSet, error) {
	types := make([]domain.ColumnType, len(header))
	for j := range header {
		types[j] = domain.ColumnBigInt
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d", i+2, len(rec), len(header))
		}
		for j, cell := range rec {
			types[j] = widen(types[j], strings.TrimSpace(cell))
		}
	}

	rs := &domain.RecordSet{
		Columns: make([]domain.Column, len(header)),
		Rows:    make([][]interface{}, 0, len(records)),
	}
	for j, name := range header {
		rs.Columns[j] = domain.Column{Name: name, Type: types[j]}
	}
	for _, rec := range records {
		row := make([]interface{}, len(rec))
		for j, cell := range rec {
			row[j] = convert(types[j], strings.TrimSpace(cell))
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

func widen(t domain.ColumnType, cell string) domain.ColumnType {
	if cell == "" || t == domain.ColumnText {
		return t
	}
	if t == domain.ColumnBigInt {
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return t
		}
		t = domain.ColumnFloat
	}
	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return t
	}
	return domain.ColumnText
}

func convert(t domain.ColumnType, cell string) interface{} {
	if cell == "" {
		return nil
	}
	switch t {
	case domain.ColumnBigInt:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return v
	case domain.ColumnFloat:
		v, _ := strconv.ParseFloat(cell, 64)
		return v
	default:
		return cell
	}
}

func findColumn(header []string, candidates []string) int {
	for _, c := range candidates {
		for j, h := range header {
			if strings.EqualFold(h, c) {
				return j
			}
		}
	}
	return -1
}

func parseObservations(header []string, records [][]string) ([]domain.LongObservation, error) {
	origin := findColumn(header, longColumns.origin)
	dest := findColumn(header, longColumns.dest)
	category := findColumn(header, longColumns.category)
	value := findColumn(header, longColumns.value)
	status := findColumn(header, longColumns.status)

	var missing []string
	for _, c := range []struct {
		name string
		idx  int
	}{{"origin", origin}, {"dest", dest}, {"category", category}, {"value", value}} {
		if c.idx < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("long extract is missing %s columns", strings.Join(missing, ", "))
	}

	out := make([]domain.LongObservation, 0, len(records))
	for i, rec := range records {
		line := i + 2
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d", line, len(rec), len(header))
		}
		o, ok := parseID(rec[origin])
		if !ok {
			return nil, fmt.Errorf("line %d: invalid origin %q", line, rec[origin])
		}
		d, ok := parseID(rec[dest])
		if !ok {
			return nil, fmt.Errorf("line %d: invalid destination %q", line, rec[dest])
		}

		obs := domain.LongObservation{
			OriginID: o,
			DestID:   d,
			Category: strings.TrimSpace(rec[category]),
		}
		if status >= 0 {
			obs.Status = strings.TrimSpace(rec[status])
		}
		// confidential cells may be blank or non-numeric; the status flag marks them
		if v, ok := parseID(rec[value]); ok {
			obs.Observation = v
		} else if obs.Status == "" {
			return nil, fmt.Errorf("line %d: invalid observation %q", line, rec[value])
		}
		out = append(out, obs)
	}
	return out, nil
}
