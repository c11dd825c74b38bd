package usecase

import (
	"fmt"
	"strings"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/pkg/errors"
)

// confidentialStatus marks a suppressed cell in long census extracts
const confidentialStatus = "C"

// modeShareDuplicatedColumns repeat what the SA2 boundary table already holds
var modeShareDuplicatedColumns = []string{
	"SA2_name_usual_residence_address",
	"SA2_usual_residence_easting",
	"SA2_usual_residence_northing",
	"SA2_name_workplace_address",
	"SA2_workplace_easting",
	"SA2_workplace_northing",
}

// SplitCategory splits a label into a class and the first vocabulary entry it
// ends with. Labels without a known suffix keep the whole label as class and
// get fallback as subtype.
func SplitCategory(label string, vocabulary []string, fallback string) domain.Category {
	for _, subtype := range vocabulary {
		if strings.HasSuffix(label, subtype) {
			return domain.Category{
				Class:   strings.TrimSpace(strings.TrimSuffix(label, subtype)),
				Subtype: subtype,
			}
		}
	}
	return domain.Category{Class: label, Subtype: fallback}
}

// MeltBySuffix turns a two-level-header table into one record per entity,
// category and metric. Rows whose entity is not in ids are dropped; a nil
// ids keeps every row. Missing cells produce no record.
func MeltBySuffix(table *domain.WideTable, ids map[int64]struct{}, vocabulary []string, fallback string) ([]domain.EmissionsRecord, error) {
	width := len(table.Categories) * len(table.Metrics)
	categories := make([]domain.Category, len(table.Categories))
	for i, label := range table.Categories {
		categories[i] = SplitCategory(label, vocabulary, fallback)
	}

	var out []domain.EmissionsRecord
	for _, row := range table.Rows {
		if ids != nil {
			if _, ok := ids[row.EntityID]; !ok {
				continue
			}
		}
		if len(row.Values) != width {
			return nil, errors.ErrSchemaViolation.Detail("entity", row.EntityID).
				Wrap(fmt.Errorf("row has %d values, header has %d", len(row.Values), width))
		}
		for ci, cat := range categories {
			for mi, metric := range table.Metrics {
				v := row.Values[ci*len(table.Metrics)+mi]
				if v == nil {
					continue
				}
				out = append(out, domain.EmissionsRecord{
					AreaID:       row.EntityID,
					VehicleClass: cat.Class,
					FuelType:     cat.Subtype,
					MetricName:   metric,
					Value:        *v,
				})
			}
		}
	}
	return out, nil
}

type vehicleKey struct {
	area  int64
	class string
	fuel  string
}

// VehicleStatsRecords lays emissions records out as the vehicle_stats table:
// one row per (area, vehicle class, fuel type) and one column per metric.
// Two records for the same key and metric are a schema violation.
func VehicleStatsRecords(records []domain.EmissionsRecord, metrics []string) (*domain.RecordSet, error) {
	metricIdx := make(map[string]int, len(metrics))
	rs := &domain.RecordSet{
		Columns: []domain.Column{
			{Name: domain.SA12018.IndexField, Type: domain.ColumnBigInt},
			{Name: domain.VehicleClassColumn, Type: domain.ColumnText},
			{Name: domain.FuelTypeColumn, Type: domain.ColumnText},
		},
	}
	for i, m := range metrics {
		metricIdx[m] = i
		rs.Columns = append(rs.Columns, domain.Column{Name: m, Type: domain.ColumnFloat})
	}

	rowIdx := make(map[vehicleKey]int)
	for _, rec := range records {
		mi, ok := metricIdx[rec.MetricName]
		if !ok {
			return nil, errors.ErrSchemaViolation.Detail("metric", rec.MetricName).
				Wrap(fmt.Errorf("unknown metric %q", rec.MetricName))
		}

		key := vehicleKey{area: rec.AreaID, class: rec.VehicleClass, fuel: rec.FuelType}
		ri, ok := rowIdx[key]
		if !ok {
			ri = len(rs.Rows)
			rowIdx[key] = ri
			row := make([]interface{}, 3+len(metrics))
			row[0], row[1], row[2] = rec.AreaID, rec.VehicleClass, rec.FuelType
			rs.Rows = append(rs.Rows, row)
		}

		cell := &rs.Rows[ri][3+mi]
		if *cell != nil {
			return nil, errors.ErrSchemaViolation.WithDetails(map[string]interface{}{
				"table":         domain.VehicleStatsTable,
				"area":          rec.AreaID,
				"vehicle_class": rec.VehicleClass,
				"fuel_type":     rec.FuelType,
				"metric":        rec.MetricName,
			}).Wrap(fmt.Errorf("duplicate %s value for %d/%s/%s", rec.MetricName, rec.AreaID, rec.VehicleClass, rec.FuelType))
		}
		*cell = rec.Value
	}
	return rs, nil
}

// NormalizeLabel turns a category label into a column name: commas are
// removed and spaces become underscores.
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(strings.ReplaceAll(label, ",", ""))
	return strings.Join(strings.Fields(label), "_")
}

type odKey struct {
	origin int64
	dest   int64
}

// modeShareBuilder accumulates wide mode-share rows keyed by origin/destination
type modeShareBuilder struct {
	table    *domain.ModeShareTable
	modeSeen map[string]bool
	rowIdx   map[odKey]int
}

func newModeShareBuilder() *modeShareBuilder {
	return &modeShareBuilder{
		table:    &domain.ModeShareTable{},
		modeSeen: map[string]bool{},
		rowIdx:   map[odKey]int{},
	}
}

func (b *modeShareBuilder) addMode(mode string) {
	if !b.modeSeen[mode] {
		b.modeSeen[mode] = true
		b.table.Modes = append(b.table.Modes, mode)
	}
}

// row returns the record for the pair, creating it when new
func (b *modeShareBuilder) row(origin, dest int64) (*domain.ModeShareRecord, bool) {
	key := odKey{origin, dest}
	if i, ok := b.rowIdx[key]; ok {
		return &b.table.Records[i], false
	}
	b.rowIdx[key] = len(b.table.Records)
	b.table.Records = append(b.table.Records, domain.ModeShareRecord{
		OriginAreaID: origin,
		DestAreaID:   dest,
		ModeCounts:   map[string]int64{},
	})
	return &b.table.Records[len(b.table.Records)-1], true
}

// derive adds the total of every mode not in exclusions as the last column
func (b *modeShareBuilder) derive(exclusions []string) *domain.ModeShareTable {
	excluded := make(map[string]bool, len(exclusions)+1)
	for _, e := range exclusions {
		excluded[NormalizeLabel(e)] = true
	}
	excluded[domain.ModeShareDerivedColumn] = true

	modes := b.table.Modes[:0:0]
	for _, m := range b.table.Modes {
		if m != domain.ModeShareDerivedColumn {
			modes = append(modes, m)
		}
	}

	for i := range b.table.Records {
		rec := &b.table.Records[i]
		var total int64
		for _, m := range modes {
			if !excluded[m] {
				total += rec.ModeCounts[m]
			}
		}
		rec.ModeCounts[domain.ModeShareDerivedColumn] = total
	}
	b.table.Modes = append(modes, domain.ModeShareDerivedColumn)
	return b.table
}

func inIDs(ids map[int64]struct{}, origin, dest int64) bool {
	if ids == nil {
		return true
	}
	_, o := ids[origin]
	_, d := ids[dest]
	return o && d
}

func suppressed(value int64, status string) bool {
	return value == domain.SuppressedValue || strings.EqualFold(strings.TrimSpace(status), confidentialStatus)
}

// PivotToWide pivots long observations to one column per normalized
// category. Pairs with an origin or destination outside ids are dropped
// before anything else; suppressed values become 0. A repeated
// (origin, destination, category) is a schema violation.
func PivotToWide(obs []domain.LongObservation, ids map[int64]struct{}, exclusions []string) (*domain.ModeShareTable, error) {
	b := newModeShareBuilder()
	for _, o := range obs {
		if !inIDs(ids, o.OriginID, o.DestID) {
			continue
		}
		mode := NormalizeLabel(o.Category)
		if mode == "" {
			return nil, errors.ErrSchemaViolation.
				WithDetails(map[string]interface{}{"origin": o.OriginID, "dest": o.DestID}).
				Wrap(fmt.Errorf("observation without category"))
		}
		b.addMode(mode)

		rec, _ := b.row(o.OriginID, o.DestID)
		if _, dup := rec.ModeCounts[mode]; dup {
			return nil, errors.ErrSchemaViolation.WithDetails(map[string]interface{}{
				"origin":   o.OriginID,
				"dest":     o.DestID,
				"category": mode,
			}).Wrap(fmt.Errorf("duplicate observation %d -> %d %s", o.OriginID, o.DestID, mode))
		}

		value := o.Observation
		if suppressed(value, o.Status) {
			value = 0
		}
		rec.ModeCounts[mode] = value
	}

	// categories missing for a pair were not observed
	for i := range b.table.Records {
		for _, m := range b.table.Modes {
			if _, ok := b.table.Records[i].ModeCounts[m]; !ok {
				b.table.Records[i].ModeCounts[m] = 0
			}
		}
	}
	return b.derive(exclusions), nil
}

// NormalizeWide cleans an already-wide mode-share extract: columns repeated
// from the boundary table are dropped, pairs outside ids removed, suppressed
// and blank counts zeroed and labels normalized.
func NormalizeWide(rs *domain.RecordSet, ids map[int64]struct{}, exclusions []string) (*domain.ModeShareTable, error) {
	oi := rs.ColumnIndex(domain.ModeShareOriginColumn)
	di := rs.ColumnIndex(domain.ModeShareDestColumn)
	if oi < 0 || di < 0 {
		return nil, errors.ErrSchemaViolation.
			Wrap(fmt.Errorf("mode share extract needs %s and %s columns", domain.ModeShareOriginColumn, domain.ModeShareDestColumn))
	}

	dropped := make(map[string]bool, len(modeShareDuplicatedColumns))
	for _, c := range modeShareDuplicatedColumns {
		dropped[c] = true
	}

	b := newModeShareBuilder()
	type modeColumn struct {
		idx  int
		mode string
	}
	var modeCols []modeColumn
	for j, c := range rs.Columns {
		if j == oi || j == di || dropped[c.Name] {
			continue
		}
		if c.Type == domain.ColumnText || c.Type == domain.ColumnGeometry {
			return nil, errors.ErrSchemaViolation.Detail("column", c.Name).
				Wrap(fmt.Errorf("mode column %s is not numeric", c.Name))
		}
		mode := NormalizeLabel(c.Name)
		if b.modeSeen[mode] {
			return nil, errors.ErrSchemaViolation.Detail("column", c.Name).
				Wrap(fmt.Errorf("duplicate mode column %s", mode))
		}
		b.addMode(mode)
		modeCols = append(modeCols, modeColumn{idx: j, mode: mode})
	}

	for r, row := range rs.Rows {
		origin, err := domain.ToInt64(row[oi])
		if err != nil {
			return nil, errors.ErrSchemaViolation.Detail("row", r).Wrap(err)
		}
		dest, err := domain.ToInt64(row[di])
		if err != nil {
			return nil, errors.ErrSchemaViolation.Detail("row", r).Wrap(err)
		}
		if !inIDs(ids, origin, dest) {
			continue
		}

		rec, created := b.row(origin, dest)
		if !created {
			return nil, errors.ErrSchemaViolation.WithDetails(map[string]interface{}{
				"origin": origin,
				"dest":   dest,
			}).Wrap(fmt.Errorf("duplicate pair %d -> %d", origin, dest))
		}
		for _, mc := range modeCols {
			var value int64
			if row[mc.idx] != nil {
				if value, err = domain.ToInt64(row[mc.idx]); err != nil {
					return nil, errors.ErrSchemaViolation.
						WithDetails(map[string]interface{}{"row": r, "column": mc.mode}).Wrap(err)
				}
			}
			if suppressed(value, "") {
				value = 0
			}
			rec.ModeCounts[mc.mode] = value
		}
	}
	return b.derive(exclusions), nil
}
