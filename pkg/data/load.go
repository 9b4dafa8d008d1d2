package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/VatsalSy/dbscope/internal/errors"
)

// LoadOption controls how Load merges incoming rows into rows that already
// exist with the same primary key. The zero value behaves as
// LoadPreserveChanges.
type LoadOption int

const (
	// LoadOverwriteChanges replaces both versions of a matching row with the
	// incoming values and marks it Unchanged.
	LoadOverwriteChanges LoadOption = iota + 1

	// LoadPreserveChanges replaces the original version and keeps local
	// edits in the current one.
	LoadPreserveChanges

	// LoadUpsert replaces the current version and keeps the original one.
	LoadUpsert
)

func (o LoadOption) String() string {
	switch o {
	case LoadOverwriteChanges:
		return "OverwriteChanges"
	case LoadPreserveChanges, 0:
		return "PreserveChanges"
	case LoadUpsert:
		return "Upsert"
	default:
		return fmt.Sprintf("LoadOption(%d)", int(o))
	}
}

// ParseLoadOption maps names such as "overwrite", "preserve_changes" or
// "Upsert" to a LoadOption. An empty name is LoadPreserveChanges.
func ParseLoadOption(name string) (LoadOption, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "", "preserve", "preservechanges":
		return LoadPreserveChanges, nil
	case "overwrite", "overwritechanges":
		return LoadOverwriteChanges, nil
	case "upsert":
		return LoadUpsert, nil
	}
	return LoadPreserveChanges, errors.Configuration("load_option", errors.Errorf("unknown load option %q", name))
}

// Load reads every row from r and merges it into the table. Columns the
// table does not have yet are added from the reader's metadata. Load does
// not close r.
func (t *DataTable) Load(r Reader, option LoadOption) error {
	return t.load(r, option, func() (bool, error) {
		if r.Next() {
			return true, nil
		}
		return false, r.Err()
	})
}

// LoadContext is Load with a cancellable advance step.
func (t *DataTable) LoadContext(ctx context.Context, r Reader, option LoadOption) error {
	cr := AsContextReader(r)
	return t.load(r, option, func() (bool, error) {
		return cr.NextContext(ctx)
	})
}

func (t *DataTable) load(r Reader, option LoadOption, next func() (bool, error)) error {
	if option == 0 {
		option = LoadPreserveChanges
	}

	cols, err := r.Columns()
	if err != nil {
		return errors.FromDriver("columns", err)
	}

	ordinals := make([]int, len(cols))
	for i, ci := range cols {
		col, ok := t.Column(ci.Name)
		if !ok {
			if col, err = t.AddColumn(ci.Name, ci.Type); err != nil {
				return err
			}
			col.DatabaseType = ci.DatabaseType
		}
		ordinals[i] = col.ordinal
	}

	for {
		ok, err := next()
		if err != nil {
			return errors.FromDriver("read", err)
		}
		if !ok {
			return nil
		}

		raw, err := r.Values()
		if err != nil {
			return errors.FromDriver("read", err)
		}
		if err := t.loadRow(ordinals, normalizeValues(raw), option); err != nil {
			return err
		}
	}
}

func (t *DataTable) loadRow(ordinals []int, raw []any, option LoadOption) error {
	incoming := make([]any, len(t.columns))
	for i, ord := range ordinals {
		incoming[ord] = raw[i]
	}

	var existing *DataRow
	if len(t.primaryKey) > 0 {
		existing = t.keyIndex[t.keyOf(incoming)]
	}

	if existing == nil {
		row := &DataRow{table: t, current: incoming}
		if option == LoadUpsert {
			row.state = RowAdded
		} else {
			row.original = append([]any(nil), incoming...)
			row.state = RowUnchanged
		}
		return t.insert(row)
	}

	// Columns the reader did not supply keep their existing values.
	supplied := make([]bool, len(t.columns))
	for _, ord := range ordinals {
		supplied[ord] = true
	}
	for i := range incoming {
		if !supplied[i] {
			incoming[i] = existing.current[i]
		}
	}

	mergeRow(existing, incoming, option)
	return nil
}

func mergeRow(row *DataRow, incoming []any, option LoadOption) {
	switch option {
	case LoadOverwriteChanges:
		row.current = append([]any(nil), incoming...)
		row.original = append([]any(nil), incoming...)
		row.state = RowUnchanged

	case LoadPreserveChanges:
		row.original = append([]any(nil), incoming...)
		switch row.state {
		case RowUnchanged:
			row.current = append([]any(nil), incoming...)
		case RowAdded, RowModified:
			row.state = RowModified
		}

	case LoadUpsert:
		row.current = append([]any(nil), incoming...)
		switch row.state {
		case RowUnchanged:
			if row.hasChanges() {
				row.state = RowModified
			}
		case RowModified:
			if !row.hasChanges() {
				row.state = RowUnchanged
			}
		case RowDeleted:
			row.state = RowModified
		}
	}
}
