package sqlxconn

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

// Reader is a forward-only cursor over *sqlx.Rows.
type Reader struct {
	rows     *sqlx.Rows
	conn     *Conn
	behavior data.CommandBehavior
	read     int
	closed   bool
}

// Ensure *Reader implements data.ContextReader.
var _ data.ContextReader = (*Reader)(nil)

// Columns describes the result columns using the driver's scan types.
func (r *Reader) Columns() ([]data.ColumnInfo, error) {
	types, err := r.rows.ColumnTypes()
	if err != nil {
		return nil, errors.FromDriver("columns", err)
	}

	cols := make([]data.ColumnInfo, len(types))
	for i, ct := range types {
		cols[i] = data.ColumnInfo{
			Name:         ct.Name(),
			Type:         data.DbTypeForScanType(ct.ScanType()),
			DatabaseType: ct.DatabaseTypeName(),
		}
	}
	return cols, nil
}

// Next advances to the next row. With BehaviorSingleRow it stops after the
// first one.
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

// Values returns the current row with SQL NULL as nil.
func (r *Reader) Values() ([]any, error) {
	values, err := r.rows.SliceScan()
	if err != nil {
		return nil, errors.FromDriver("read", err)
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
// connection. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	err := errors.FromDriver("close reader", r.rows.Close())
	if r.behavior.Has(data.BehaviorCloseConnection) && r.conn != nil {
		err = errors.Join(err, r.conn.Close())
	}
	return err
}
