package data

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/VatsalSy/dbscope/internal/errors"
)

// RowState tracks how a DataRow differs from the values last accepted.
type RowState int

const (
	RowDetached RowState = iota
	RowUnchanged
	RowAdded
	RowModified
	RowDeleted
)

func (s RowState) String() string {
	switch s {
	case RowDetached:
		return "Detached"
	case RowUnchanged:
		return "Unchanged"
	case RowAdded:
		return "Added"
	case RowModified:
		return "Modified"
	case RowDeleted:
		return "Deleted"
	default:
		return fmt.Sprintf("RowState(%d)", int(s))
	}
}

// DataColumn describes one column of a DataTable.
type DataColumn struct {
	Name         string
	DatabaseType string
	Type         DbType
	ordinal      int
}

// Ordinal returns the column's position in its table.
func (c *DataColumn) Ordinal() int {
	return c.ordinal
}

// DataTable is an in-memory result set that keeps the original and current
// version of every row. NULL cells hold nil.
//
// A DataTable is not safe for concurrent use.
type DataTable struct {
	colIndex   map[string]int
	keyIndex   map[string]*DataRow
	Name       string
	columns    []*DataColumn
	rows       []*DataRow
	primaryKey []int
	loading    bool
}

// NewDataTable returns an empty table.
func NewDataTable(name string) *DataTable {
	return &DataTable{
		Name:     name,
		colIndex: make(map[string]int),
		keyIndex: make(map[string]*DataRow),
	}
}

// AddColumn appends a column. Existing rows get nil in the new column.
func (t *DataTable) AddColumn(name string, typ DbType) (*DataColumn, error) {
	key := strings.ToLower(name)
	if _, ok := t.colIndex[key]; ok {
		return nil, errors.InvalidOperation("add column", errors.Errorf("column %q already exists", name))
	}

	col := &DataColumn{Name: name, Type: typ, ordinal: len(t.columns)}
	t.columns = append(t.columns, col)
	t.colIndex[key] = col.ordinal

	for _, r := range t.rows {
		r.current = append(r.current, nil)
		if r.original != nil {
			r.original = append(r.original, nil)
		}
	}
	return col, nil
}

// Columns returns the table's columns in ordinal order.
func (t *DataTable) Columns() []*DataColumn {
	out := make([]*DataColumn, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks up a column by name, ignoring case.
func (t *DataTable) Column(name string) (*DataColumn, bool) {
	i, ok := t.colIndex[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// SetPrimaryKey sets the columns used by Find and by Load to match incoming
// rows against existing ones. Calling it with no names removes the key.
func (t *DataTable) SetPrimaryKey(names ...string) error {
	ords := make([]int, 0, len(names))
	for _, name := range names {
		col, ok := t.Column(name)
		if !ok {
			return errors.InvalidOperation("primary key", errors.Errorf("column %q does not exist", name))
		}
		ords = append(ords, col.ordinal)
	}

	prev := t.primaryKey
	t.primaryKey = ords
	if err := t.reindex(); err != nil {
		t.primaryKey = prev
		_ = t.reindex()
		return err
	}
	return nil
}

// PrimaryKey returns the primary key columns.
func (t *DataTable) PrimaryKey() []*DataColumn {
	out := make([]*DataColumn, len(t.primaryKey))
	for i, ord := range t.primaryKey {
		out[i] = t.columns[ord]
	}
	return out
}

// Rows returns all rows, including deleted ones.
func (t *DataTable) Rows() []*DataRow {
	out := make([]*DataRow, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *DataTable) Len() int {
	return len(t.rows)
}

// AddRow appends a row in the Added state. values are given in column order.
func (t *DataTable) AddRow(values ...any) (*DataRow, error) {
	if len(values) != len(t.columns) {
		return nil, errors.InvalidOperation("add row",
			errors.Errorf("got %d values for %d columns", len(values), len(t.columns)))
	}

	r := &DataRow{table: t, current: normalizeValues(values), state: RowAdded}
	if err := t.insert(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Find returns the row whose primary key equals keys.
func (t *DataTable) Find(keys ...any) (*DataRow, bool) {
	if len(t.primaryKey) == 0 || len(keys) != len(t.primaryKey) {
		return nil, false
	}
	r, ok := t.keyIndex[formatKey(normalizeValues(keys))]
	return r, ok
}

// AcceptChanges commits every row: deleted rows are removed and the rest
// become Unchanged with their current values as the original ones.
func (t *DataTable) AcceptChanges() {
	kept := t.rows[:0]
	for _, r := range t.rows {
		if r.state == RowDeleted {
			r.state = RowDetached
			continue
		}
		r.acceptChanges()
		kept = append(kept, r)
	}
	clearTail(t.rows, len(kept))
	t.rows = kept
	_ = t.reindex()
}

// RejectChanges reverts every row: added rows are removed and the rest get
// their original values back.
func (t *DataTable) RejectChanges() {
	kept := t.rows[:0]
	for _, r := range t.rows {
		if r.state == RowAdded {
			r.state = RowDetached
			continue
		}
		r.rejectChanges()
		kept = append(kept, r)
	}
	clearTail(t.rows, len(kept))
	t.rows = kept
	_ = t.reindex()
}

// BeginLoadData suspends primary key uniqueness checks until EndLoadData.
func (t *DataTable) BeginLoadData() {
	t.loading = true
}

// EndLoadData rebuilds the key index and fails if two rows share a primary
// key.
func (t *DataTable) EndLoadData() error {
	t.loading = false
	return t.reindex()
}

func (t *DataTable) insert(r *DataRow) error {
	if err := t.index(r); err != nil {
		return err
	}
	t.rows = append(t.rows, r)
	return nil
}

func (t *DataTable) remove(r *DataRow) {
	for i, row := range t.rows {
		if row == r {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			break
		}
	}
	t.unindex(r)
}

// index registers r under its key. Outside BeginLoadData a key already held
// by another row is an error.
func (t *DataTable) index(r *DataRow) error {
	if len(t.primaryKey) == 0 {
		return nil
	}
	key := t.rowKey(r)
	if other, dup := t.keyIndex[key]; dup && other != r {
		if !t.loading {
			return errors.InvalidOperation("primary key", errors.Errorf("duplicate primary key %v", t.keyValues(r)))
		}
		return nil
	}
	t.keyIndex[key] = r
	return nil
}

func (t *DataTable) unindex(r *DataRow) {
	if len(t.primaryKey) == 0 {
		return
	}
	key := t.rowKey(r)
	if t.keyIndex[key] == r {
		delete(t.keyIndex, key)
	}
}

func (t *DataTable) reindex() error {
	t.keyIndex = make(map[string]*DataRow, len(t.rows))
	if len(t.primaryKey) == 0 {
		return nil
	}

	var dupErr error
	for _, r := range t.rows {
		key := t.rowKey(r)
		if _, dup := t.keyIndex[key]; dup {
			if dupErr == nil {
				dupErr = errors.InvalidOperation("primary key", errors.Errorf("duplicate primary key %v", t.keyValues(r)))
			}
			continue
		}
		t.keyIndex[key] = r
	}
	return dupErr
}

// rowKey uses the original values of deleted rows so that Load can still
// match them.
func (t *DataTable) rowKey(r *DataRow) string {
	values := r.current
	if r.state == RowDeleted && r.original != nil {
		values = r.original
	}
	return t.keyOf(values)
}

func (t *DataTable) keyOf(values []any) string {
	return formatKey(t.keyParts(values))
}

func (t *DataTable) keyParts(values []any) []any {
	parts := make([]any, len(t.primaryKey))
	for i, ord := range t.primaryKey {
		parts[i] = values[ord]
	}
	return parts
}

func (t *DataTable) keyValues(r *DataRow) []any {
	if r.state == RowDeleted && r.original != nil {
		return t.keyParts(r.original)
	}
	return t.keyParts(r.current)
}

func formatKey(parts []any) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(0)
		}
		b.WriteString(keyPart(p))
	}
	return b.String()
}

// keyPart renders a key value so that equal numbers of different Go integer
// types, and strings and byte slices, produce the same key.
func keyPart(v any) string {
	if v == nil {
		return "\x01NULL"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "i:" + strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return "i:" + strconv.FormatInt(int64(u), 10)
		}
		return "i:" + strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return "f:" + strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.String:
		return "s:" + rv.String()
	}
	if b, ok := v.([]byte); ok {
		return "s:" + string(b)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func clearTail(rows []*DataRow, from int) {
	for i := from; i < len(rows); i++ {
		rows[i] = nil
	}
}

// normalizeValues copies values, turning DBNull into nil and copying byte
// slices that a driver may reuse.
func normalizeValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case Null:
			out[i] = nil
		case []byte:
			if x != nil {
				out[i] = append([]byte{}, x...)
			}
		default:
			if IsNull(v) {
				out[i] = nil
			} else {
				out[i] = v
			}
		}
	}
	return out
}
