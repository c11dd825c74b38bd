package domain

// FuelType is the subtype split off a vehicle category label.
type FuelType string

const (
	FuelPetrol       FuelType = "Petrol"
	FuelDiesel       FuelType = "Diesel"
	FuelElectric     FuelType = "Electric"
	FuelHybrid       FuelType = "Hybrid"
	FuelPluginHybrid FuelType = "Plugin Hybrid"
)

// FuelTypeVocabulary is ordered by match priority: "Plugin Hybrid" must be
// tested before "Hybrid".
var FuelTypeVocabulary = []string{
	string(FuelPetrol),
	string(FuelDiesel),
	string(FuelElectric),
	string(FuelPluginHybrid),
	string(FuelHybrid),
}

// DefaultFuelType is assigned to vehicle labels without a recognized fuel suffix.
const DefaultFuelType = FuelDiesel

// SuppressedValue is the sentinel used by the census for confidential counts.
const SuppressedValue = -999

// Category is a label split into a class and subtype.
type Category struct {
	Class   string
	Subtype string
}

// WideTable is a survey extract with a two-level header: each value column is
// identified by a (category, metric) pair, rows are keyed by entity id.
type WideTable struct {
	Categories []string
	Metrics    []string
	Rows       []WideRow
}

// WideRow holds one entity's values indexed like WideTable.Categories/Metrics.
// A nil value is a missing cell.
type WideRow struct {
	EntityID int64
	Values   []*float64
}

// EmissionsRecord is one long-format emissions observation.
type EmissionsRecord struct {
	AreaID       int64
	VehicleClass string
	FuelType     string
	MetricName   string
	Value        float64
}

// LongObservation is one row of a long-format mode-share extract.
type LongObservation struct {
	OriginID    int64
	DestID      int64
	Category    string
	Observation int64
	Status      string
}

// ModeShareRecord holds commuter counts by travel mode for an origin/destination pair.
type ModeShareRecord struct {
	OriginAreaID int64
	DestAreaID   int64
	ModeCounts   map[string]int64
}

// ModeShareTable is the normalized, wide mode-share result with a stable
// column order.
type ModeShareTable struct {
	Modes   []string
	Records []ModeShareRecord
}

// Mode-share storage columns
const (
	ModeShareOriginColumn  = "SA2_code_usual_residence_address"
	ModeShareDestColumn    = "SA2_code_workplace_address"
	ModeShareDerivedColumn = "Total_non_stationary"
)

// ModeShareExclusions are categories that do not contribute to the derived
// total: people who did not travel, and pre-computed totals.
var ModeShareExclusions = []string{
	"Work_at_home",
	"Did_not_go_to_work_today",
	"Did_not_go_to_work",
	"Study_at_home",
	"Total",
	"Total_stated",
	"Not_elsewhere_included",
}

// RecordSet lays the table out for storage: origin, destination, then one
// bigint column per mode in table order.
func (t *ModeShareTable) RecordSet() *RecordSet {
	rs := &RecordSet{
		Columns: make([]Column, 0, len(t.Modes)+2),
		Rows:    make([][]interface{}, 0, len(t.Records)),
	}
	rs.Columns = append(rs.Columns,
		Column{Name: ModeShareOriginColumn, Type: ColumnBigInt},
		Column{Name: ModeShareDestColumn, Type: ColumnBigInt},
	)
	for _, m := range t.Modes {
		rs.Columns = append(rs.Columns, Column{Name: m, Type: ColumnBigInt})
	}
	for _, r := range t.Records {
		row := make([]interface{}, 0, len(t.Modes)+2)
		row = append(row, r.OriginAreaID, r.DestAreaID)
		for _, m := range t.Modes {
			row = append(row, r.ModeCounts[m])
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}

// VehicleStatsTable holds the reshaped emissions survey.
const VehicleStatsTable = "vehicle_stats"

// Vehicle stats key columns
const (
	VehicleClassColumn = "vehicle_class"
	FuelTypeColumn     = "fuel_type"
)
