package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"go.uber.org/zap"

	"github.com/urban-indicators/internal/domain"
	"github.com/urban-indicators/internal/domain/repository"
	"github.com/urban-indicators/internal/pkg/errors"
)

type storeRepository struct {
	db        *DB
	logger    *zap.Logger
	batchRows int
}

// NewStoreRepository creates the PostGIS-backed derived table store
func NewStoreRepository(db *DB, logger *zap.Logger) repository.StoreRepository {
	return &storeRepository{
		db:        db,
		logger:    logger,
		batchRows: DefaultInsertBatch,
	}
}

func (r *storeRepository) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, name)
	if err != nil {
		return false, errors.ErrDatabaseError.Detail("table", name).Wrap(err)
	}
	return exists, nil
}

// Write runs drop, create and insert in one transaction, so a failure leaves
// the previous state of the table untouched.
func (r *storeRepository) Write(ctx context.Context, name string, records *domain.RecordSet, mode domain.WriteMode, primaryKey []string) error {
	if records == nil || len(records.Columns) == 0 {
		return fmt.Errorf("write %s: record set has no columns", name)
	}
	for _, pk := range primaryKey {
		if records.ColumnIndex(pk) < 0 {
			return fmt.Errorf("write %s: primary key column %q not in record set", name, pk)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.ErrDatabaseError.Detail("table", name).Wrap(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if mode == domain.WriteReplace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
			return errors.ErrDatabaseError.Detail("table", name).Wrap(err)
		}
	}

	if _, err := tx.ExecContext(ctx, createTableSQL(name, records.Columns, primaryKey)); err != nil {
		return errors.ErrDatabaseError.Detail("table", name).Wrap(err)
	}

	if err := r.insertRows(ctx, tx, name, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.ErrDatabaseError.Detail("table", name).Wrap(err)
	}

	r.logger.Debug("table written",
		zap.String("table", name),
		zap.String("mode", string(mode)),
		zap.Int("rows", records.Len()),
	)
	return nil
}

func createTableSQL(name string, columns []domain.Column, primaryKey []string) string {
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		defs = append(defs, quoteIdent(c.Name)+" "+columnDDL(c.Type))
	}
	if len(primaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+quoteIdents(primaryKey)+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
}

func columnDDL(t domain.ColumnType) string {
	switch t {
	case domain.ColumnGeometry:
		return fmt.Sprintf("geometry(Geometry, %d)", SRID4326)
	case "":
		return string(domain.ColumnText)
	default:
		return string(t)
	}
}

func (r *storeRepository) insertRows(ctx context.Context, tx *sqlx.Tx, name string, records *domain.RecordSet) error {
	ncols := len(records.Columns)
	size := batchSize(ncols, r.batchRows)
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", quoteIdent(name), columnNames(records.Columns))

	for start := 0; start < len(records.Rows); start += size {
		end := start + size
		if end > len(records.Rows) {
			end = len(records.Rows)
		}

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]interface{}, 0, (end-start)*ncols)
		for i, row := range records.Rows[start:end] {
			if len(row) != ncols {
				return errors.ErrSchemaViolation.
					WithDetails(map[string]interface{}{"table": name, "row": start + i}).
					Wrap(fmt.Errorf("row has %d values, expected %d", len(row), ncols))
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j, col := range records.Columns {
				if j > 0 {
					sb.WriteString(", ")
				}
				args = append(args, nil)
				placeholder := fmt.Sprintf("$%d", len(args))
				if col.Type == domain.ColumnGeometry {
					wkbBytes, err := encodeGeometry(row[j])
					if err != nil {
						return fmt.Errorf("write %s row %d: %w", name, start+i, err)
					}
					args[len(args)-1] = wkbBytes
					sb.WriteString(fmt.Sprintf("ST_GeomFromWKB(%s, %d)", placeholder, SRID4326))
					continue
				}
				args[len(args)-1] = row[j]
				sb.WriteString(placeholder)
			}
			sb.WriteByte(')')
		}

		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return errors.ErrDatabaseError.
				WithDetails(map[string]interface{}{"table": name, "batch_start": start}).
				Wrap(err)
		}
	}
	return nil
}

func columnNames(columns []domain.Column) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return quoteIdents(names)
}

func encodeGeometry(v interface{}) ([]byte, error) {
	switch g := v.(type) {
	case nil:
		return nil, nil
	case orb.Geometry:
		return wkb.Marshal(g)
	case []byte:
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported geometry value %T", v)
	}
}

func (r *storeRepository) Read(ctx context.Context, name string, columns ...string) (*domain.RecordSet, error) {
	types, err := r.columnTypes(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, errors.ErrTableNotFound.Detail("table", name)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("read %s: no columns requested", name)
	}

	selects := make([]string, len(columns))
	rs := &domain.RecordSet{Columns: make([]domain.Column, len(columns))}
	for i, c := range columns {
		t, ok := types[c]
		if !ok {
			return nil, fmt.Errorf("read %s: column %q does not exist", name, c)
		}
		rs.Columns[i] = domain.Column{Name: c, Type: t}
		if t == domain.ColumnGeometry {
			selects[i] = fmt.Sprintf("ST_AsBinary(%s)", quoteIdent(c))
			continue
		}
		selects[i] = quoteIdent(c)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), quoteIdent(name))
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, errors.ErrDatabaseError.Detail("table", name).Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, errors.ErrDatabaseError.Detail("table", name).Wrap(err)
		}
		for i, col := range rs.Columns {
			values[i], err = decodeValue(col.Type, values[i])
			if err != nil {
				return nil, fmt.Errorf("read %s.%s: %w", name, col.Name, err)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError.Detail("table", name).Wrap(err)
	}
	return rs, nil
}

func (r *storeRepository) columnTypes(ctx context.Context, name string) (map[string]domain.ColumnType, error) {
	var cols []struct {
		Name    string `db:"column_name"`
		DType   string `db:"data_type"`
		UDTName string `db:"udt_name"`
	}
	err := r.db.SelectContext(ctx, &cols, `
		SELECT column_name, data_type, udt_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, name)
	if err != nil {
		return nil, errors.ErrDatabaseError.Detail("table", name).Wrap(err)
	}
	types := make(map[string]domain.ColumnType, len(cols))
	for _, c := range cols {
		types[c.Name] = columnTypeOf(c.DType, c.UDTName)
	}
	return types, nil
}

func columnTypeOf(dataType, udtName string) domain.ColumnType {
	switch {
	case udtName == "geometry":
		return domain.ColumnGeometry
	case udtName == "int2", udtName == "int4", udtName == "int8":
		return domain.ColumnBigInt
	case udtName == "float4", udtName == "float8", udtName == "numeric":
		return domain.ColumnFloat
	case udtName == "bool":
		return domain.ColumnBoolean
	case strings.HasPrefix(dataType, "character"), udtName == "text":
		return domain.ColumnText
	default:
		return domain.ColumnType(dataType)
	}
}

func decodeValue(t domain.ColumnType, v interface{}) (interface{}, error) {
	switch t {
	case domain.ColumnGeometry:
		b, ok := v.([]byte)
		if !ok || b == nil {
			return nil, nil
		}
		return wkb.Unmarshal(b)
	default:
		return normalizeScalar(v), nil
	}
}

// normalizeScalar maps driver-specific representations onto the value types
// a RecordSet carries.
func normalizeScalar(v interface{}) interface{} {
	switch n := v.(type) {
	case []byte:
		return string(n)
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

func (r *storeRepository) RawQuery(ctx context.Context, query string, params map[string]interface{}) (*domain.RecordSet, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	rows, err := r.db.NamedQueryContext(ctx, query, params)
	if err != nil {
		return nil, errors.ErrDatabaseError.Wrap(err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.ErrDatabaseError.Wrap(err)
	}
	rs := &domain.RecordSet{Columns: make([]domain.Column, len(colTypes))}
	for i, ct := range colTypes {
		rs.Columns[i] = domain.Column{Name: ct.Name(), Type: driverColumnType(ct)}
	}

	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, errors.ErrDatabaseError.Wrap(err)
		}
		for i := range values {
			values[i] = normalizeScalar(values[i])
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError.Wrap(err)
	}
	return rs, nil
}

func driverColumnType(ct *sql.ColumnType) domain.ColumnType {
	switch strings.ToUpper(ct.DatabaseTypeName()) {
	case "INT2", "INT4", "INT8":
		return domain.ColumnBigInt
	case "FLOAT4", "FLOAT8", "NUMERIC":
		return domain.ColumnFloat
	case "BOOL":
		return domain.ColumnBoolean
	case "TEXT", "VARCHAR", "BPCHAR", "NAME":
		return domain.ColumnText
	default:
		return domain.ColumnType(strings.ToLower(ct.DatabaseTypeName()))
	}
}
