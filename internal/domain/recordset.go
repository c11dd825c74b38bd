package domain

import "fmt"

// ColumnType is the storage type of a RecordSet column.
type ColumnType string

const (
	ColumnBigInt   ColumnType = "bigint"
	ColumnFloat    ColumnType = "double precision"
	ColumnText     ColumnType = "text"
	ColumnBoolean  ColumnType = "boolean"
	ColumnGeometry ColumnType = "geometry"
)

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// RecordSet is a column-typed table of rows, the unit exchanged with the store.
// Geometry cells hold orb.Geometry values.
type RecordSet struct {
	Columns []Column        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// WriteMode controls what happens when the target table already exists.
type WriteMode string

const (
	WriteReplace WriteMode = "replace"
	WriteAppend  WriteMode = "append"
)

// TableSpec names a derived table and its primary key columns. With
// RequireRows an existing but empty table counts as absent.
type TableSpec struct {
	Name        string
	PrimaryKey  []string
	RequireRows bool
}

// ColumnIndex returns the position of a column or -1.
func (rs *RecordSet) ColumnIndex(name string) int {
	for i, c := range rs.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Project returns a new RecordSet with only the named columns.
func (rs *RecordSet) Project(columns ...string) (*RecordSet, error) {
	idx := make([]int, len(columns))
	out := &RecordSet{Columns: make([]Column, len(columns))}
	for i, name := range columns {
		j := rs.ColumnIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
		idx[i] = j
		out.Columns[i] = rs.Columns[j]
	}
	out.Rows = make([][]interface{}, len(rs.Rows))
	for r, row := range rs.Rows {
		projected := make([]interface{}, len(idx))
		for i, j := range idx {
			projected[i] = row[j]
		}
		out.Rows[r] = projected
	}
	return out, nil
}

// Int64Set collects the integer values of a column. Values stored as other
// numeric types are converted.
func (rs *RecordSet) Int64Set(column string) (map[int64]struct{}, error) {
	j := rs.ColumnIndex(column)
	if j < 0 {
		return nil, fmt.Errorf("column %q not found", column)
	}
	ids := make(map[int64]struct{}, len(rs.Rows))
	for _, row := range rs.Rows {
		id, err := ToInt64(row[j])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", column, err)
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// ToInt64 converts the numeric representations produced by drivers and
// decoders into int64.
func ToInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		var id int64
		_, err := fmt.Sscan(string(n), &id)
		return id, err
	case string:
		var id int64
		_, err := fmt.Sscan(n, &id)
		return id, err
	default:
		return 0, fmt.Errorf("unsupported id value %v (%T)", v, v)
	}
}
