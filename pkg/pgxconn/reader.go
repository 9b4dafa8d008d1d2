package pgxconn

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

// Reader is a forward-only cursor over pgx.Rows.
type Reader struct {
	rows     pgx.Rows
	conn     *Conn
	behavior data.CommandBehavior
	read     int
	closed   bool
}

// Ensure *Reader implements data.ContextReader.
var _ data.ContextReader = (*Reader)(nil)

type oidType struct {
	name string
	typ  data.DbType
}

var oidTypes = map[uint32]oidType{
	pgtype.BoolOID:        {"bool", data.DbTypeBoolean},
	pgtype.ByteaOID:       {"bytea", data.DbTypeBinary},
	pgtype.Int2OID:        {"int2", data.DbTypeInt16},
	pgtype.Int4OID:        {"int4", data.DbTypeInt32},
	pgtype.Int8OID:        {"int8", data.DbTypeInt64},
	pgtype.Float4OID:      {"float4", data.DbTypeSingle},
	pgtype.Float8OID:      {"float8", data.DbTypeDouble},
	pgtype.NumericOID:     {"numeric", data.DbTypeDecimal},
	pgtype.TextOID:        {"text", data.DbTypeString},
	pgtype.VarcharOID:     {"varchar", data.DbTypeString},
	pgtype.BPCharOID:      {"bpchar", data.DbTypeStringFixedLength},
	pgtype.UUIDOID:        {"uuid", data.DbTypeGuid},
	pgtype.DateOID:        {"date", data.DbTypeDate},
	pgtype.TimeOID:        {"time", data.DbTypeTime},
	pgtype.TimestampOID:   {"timestamp", data.DbTypeDateTime2},
	pgtype.TimestamptzOID: {"timestamptz", data.DbTypeDateTimeOffset},
	pgtype.IntervalOID:    {"interval", data.DbTypeObject},
	pgtype.JSONOID:        {"json", data.DbTypeString},
	pgtype.JSONBOID:       {"jsonb", data.DbTypeString},
}

// DbTypeForOID maps a PostgreSQL type OID to a DbType and type name.
// Unknown OIDs are DbTypeObject with an empty name.
func DbTypeForOID(oid uint32) (data.DbType, string) {
	if t, ok := oidTypes[oid]; ok {
		return t.typ, t.name
	}
	return data.DbTypeObject, ""
}

func (r *Reader) Columns() ([]data.ColumnInfo, error) {
	fields := r.rows.FieldDescriptions()
	cols := make([]data.ColumnInfo, len(fields))
	for i, fd := range fields {
		typ, name := DbTypeForOID(fd.DataTypeOID)
		cols[i] = data.ColumnInfo{Name: fd.Name, Type: typ, DatabaseType: name}
	}
	return cols, nil
}

func (r *Reader) Next() bool {
	if r.closed {
		return false
	}
	if r.behavior.Has(data.BehaviorSingleRow) && r.read > 0 {
		return false
	}
	if !r.rows.Next() {
		return false
	}
	r.read++
	return true
}

func (r *Reader) NextContext(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.FromDriver("read", err)
	}
	if r.Next() {
		return true, nil
	}
	return false, r.Err()
}

// Values returns the current row. UUIDs are returned as uuid.UUID and
// numerics as decimal.Decimal.
func (r *Reader) Values() ([]any, error) {
	values, err := r.rows.Values()
	if err != nil {
		return nil, errors.FromDriver("read", err)
	}
	for i, v := range values {
		values[i] = normalizeValue(v)
	}
	return values, nil
}

func (r *Reader) Scan(dest ...any) error {
	return errors.FromDriver("read", r.rows.Scan(dest...))
}

func (r *Reader) Err() error {
	return errors.FromDriver("read", r.rows.Err())
}

// Close releases the rows and, with BehaviorCloseConnection, the
// connection.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	r.rows.Close()
	err := errors.FromDriver("close reader", r.rows.Err())
	if r.behavior.Has(data.BehaviorCloseConnection) && r.conn != nil {
		err = errors.Join(err, r.conn.Close())
	}
	return err
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x)
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		dv, err := x.Value()
		if err != nil {
			return v
		}
		s, ok := dv.(string)
		if !ok {
			return v
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return v
		}
		return d
	}
	return v
}
