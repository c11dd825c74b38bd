package domain

import "time"

// TableStatus reports whether a derived table has been materialized.
type TableStatus struct {
	Table  string `json:"table" db:"table_name"`
	Exists bool   `json:"exists" db:"table_exists"`
	Rows   int64  `json:"rows" db:"row_count"`
}

// Statistics is the pipeline status served by the API.
type Statistics struct {
	Tables      []TableStatus `json:"tables"`
	Published   bool          `json:"published"`
	LastUpdated time.Time     `json:"last_updated"`
}

// DerivedTables lists every table the pipeline materializes, in build order.
func DerivedTables() []string {
	return []string{
		SA12018.Table,
		VehicleStatsTable,
		SA22018.Table,
		SA22018.ModeShareTable,
		SA22023.Table,
		SA22023.ModeShareTable,
		FlowSheetsTable,
	}
}
