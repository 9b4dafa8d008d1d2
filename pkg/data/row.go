package data

import (
	"reflect"

	"github.com/VatsalSy/dbscope/internal/errors"
)

// DataRow is one row of a DataTable with its current and original values.
type DataRow struct {
	table    *DataTable
	current  []any
	original []any
	state    RowState
}

func (r *DataRow) State() RowState {
	return r.state
}

// Values returns a copy of the current values in column order.
func (r *DataRow) Values() []any {
	out := make([]any, len(r.current))
	copy(out, r.current)
	return out
}

// Value returns the current value at ordinal i.
func (r *DataRow) Value(i int) any {
	return r.current[i]
}

// Get returns the current value of the named column.
func (r *DataRow) Get(name string) (any, bool) {
	col, ok := r.table.Column(name)
	if !ok {
		return nil, false
	}
	return r.current[col.ordinal], true
}

// Original returns the value of the named column as last accepted. Added
// rows have no original version.
func (r *DataRow) Original(name string) (any, bool) {
	col, ok := r.table.Column(name)
	if !ok || r.original == nil {
		return nil, false
	}
	return r.original[col.ordinal], true
}

// Set changes the current value of the named column. An Unchanged row becomes
// Modified.
func (r *DataRow) Set(name string, value any) error {
	col, ok := r.table.Column(name)
	if !ok {
		return errors.InvalidOperation("set", errors.Errorf("column %q does not exist", name))
	}
	if r.state == RowDeleted || r.state == RowDetached {
		return errors.InvalidOperation("set", errors.Errorf("row is %s", r.state))
	}

	v := normalizeValues([]any{value})[0]
	if r.table.isKeyColumn(col.ordinal) {
		next := append([]any(nil), r.current...)
		next[col.ordinal] = v
		key := r.table.keyOf(next)
		if other, dup := r.table.keyIndex[key]; dup && other != r && !r.table.loading {
			return errors.InvalidOperation("set", errors.Errorf("duplicate primary key %v", r.table.keyParts(next)))
		}
		r.table.unindex(r)
		r.current[col.ordinal] = v
		_ = r.table.index(r)
	} else {
		r.current[col.ordinal] = v
	}

	if r.state == RowUnchanged {
		r.state = RowModified
	}
	return nil
}

// Delete marks the row Deleted. An Added row is removed from its table.
func (r *DataRow) Delete() {
	switch r.state {
	case RowAdded:
		r.table.remove(r)
		r.state = RowDetached
	case RowUnchanged, RowModified:
		r.table.unindex(r)
		r.state = RowDeleted
		_ = r.table.index(r)
	}
}

func (r *DataRow) acceptChanges() {
	r.original = append(r.original[:0], r.current...)
	r.state = RowUnchanged
}

func (r *DataRow) rejectChanges() {
	if r.original != nil {
		r.current = append(r.current[:0], r.original...)
	}
	r.state = RowUnchanged
}

func (r *DataRow) hasChanges() bool {
	return !valuesEqual(r.current, r.original)
}

func valuesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (t *DataTable) isKeyColumn(ord int) bool {
	for _, k := range t.primaryKey {
		if k == ord {
			return true
		}
	}
	return false
}
