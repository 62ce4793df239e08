package table

import (
	"fmt"
	"strings"
)

// Row holds one record keyed by canonical column name. An empty string is
// the null value: the source exports are CSV-shaped and cannot distinguish
// the two, so neither do we.
type Row map[string]string

// Table is an ordered set of columns plus rows. Column order matters only
// for serialization; algorithms must never depend on it.
type Table struct {
	Cols []string
	Rows []Row
}

func New(cols ...string) *Table {
	return &Table{Cols: append([]string(nil), cols...)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Empty() bool { return t.Len() == 0 }

func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

func (t *Table) HasCol(name string) bool {
	for _, c := range t.Cols {
		if c == name {
			return true
		}
	}
	return false
}

// AddCol registers a column if it is not already present.
func (t *Table) AddCol(name string) {
	if !t.HasCol(name) {
		t.Cols = append(t.Cols, name)
	}
}

// Get returns the value of col in row i, or "" when absent.
func (t *Table) Get(i int, col string) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][col]
}

// SchemaError reports canonical columns that an input table must carry but
// does not. It is fatal to the component that raises it; columns are never
// silently defaulted.
type SchemaError struct {
	Dataset string
	Vendor  string
	Missing []string
}

func (e *SchemaError) Error() string {
	ctx := e.Dataset
	if e.Vendor != "" {
		ctx += " vendor=" + e.Vendor
	}
	return fmt.Sprintf("missing required columns in %s: %s", ctx, strings.Join(e.Missing, ", "))
}

// Require checks that every listed column exists, returning a SchemaError
// naming all the missing ones at once.
func (t *Table) Require(dataset, vendor string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.HasCol(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Dataset: dataset, Vendor: vendor, Missing: missing}
	}
	return nil
}

// Select returns a copy of the table restricted to the given columns, in the
// given order. Columns the table does not have are skipped, matching the
// keep-list semantics of the gold outputs.
func (t *Table) Select(cols ...string) *Table {
	var keep []string
	for _, c := range cols {
		if t.HasCol(c) {
			keep = append(keep, c)
		}
	}
	out := New(keep...)
	for _, r := range t.Rows {
		nr := make(Row, len(keep))
		for _, c := range keep {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		out.Append(nr)
	}
	return out
}

// Clone performs a deep copy.
func (t *Table) Clone() *Table {
	out := New(t.Cols...)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}
