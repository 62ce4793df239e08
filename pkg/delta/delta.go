// Package delta computes key-based change-sets between two snapshots of a
// dataset. Rows are identified by the (scope id, floc) business key and
// carry a soft-removal date: a parseable removal date means the row is
// inactive, anything else means active.
package delta

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gridscope/gridscope/pkg/table"
)

// Delta-type tags stamped on every emitted row.
const (
	TypeAddedNew       = "added_new"
	TypeReactivated    = "reactivated"
	TypeRemovedSoft    = "removed_soft"
	TypeRemovedMissing = "removed_missing_in_current"
	TypeUpdatedActive  = "updated_active"
)

// Column names added to change-set outputs.
const (
	KeyCol       = "_key"
	IsActiveCol  = "_is_active"
	DeltaTypeCol = "_delta_type"
)

// Options configures a diff.
type Options struct {
	Dataset string
	Vendor  string

	// KeyCols are the identity columns; defaults to SCOPE_ID, FLOC.
	KeyCols []string
	// RemovalCol is the soft-removal date column; defaults to
	// SCOPE_REMOVAL_DATE.
	RemovalCol string
	// Keyer overrides key derivation. The default trims each key column
	// and joins them with "|".
	Keyer func(table.Row) string
}

func (o *Options) defaults() {
	if len(o.KeyCols) == 0 {
		o.KeyCols = []string{"SCOPE_ID", "FLOC"}
	}
	if o.RemovalCol == "" {
		o.RemovalCol = "SCOPE_REMOVAL_DATE"
	}
	if o.Keyer == nil {
		cols := o.KeyCols
		o.Keyer = func(r table.Row) string {
			parts := make([]string, len(cols))
			for i, c := range cols {
				parts[i] = strings.TrimSpace(r[c])
			}
			return strings.Join(parts, "|")
		}
	}
}

// ChangeSet is the output of diffing two snapshots: three disjoint row
// partitions plus counters. Unchanged rows are never emitted.
type ChangeSet struct {
	Added   *table.Table
	Removed *table.Table
	Updated *table.Table
	Metrics Metrics
}

// Metrics summarizes a diff for the run registry.
type Metrics struct {
	PreviousFound      bool
	AddedRows          int
	ReactivatedRows    int
	RemovedRows        int
	RemovedSoftRows    int
	RemovedMissingRows int
	UpdatedRows        int
	Note               string
}

// DuplicateKeyError reports non-unique business keys within one snapshot.
// It carries a bounded sample (10 keys) with occurrence counts.
type DuplicateKeyError struct {
	Dataset string
	Vendor  string
	Side    string // "current" or "previous"
	Total   int
	Samples map[string]int
}

func (e *DuplicateKeyError) Error() string {
	keys := make([]string, 0, len(e.Samples))
	for k := range e.Samples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, e.Samples[k])
	}
	return fmt.Sprintf("duplicate business keys in %s snapshot of %s vendor=%s (%d duplicated rows; sample %s)",
		e.Side, e.Dataset, e.Vendor, e.Total, strings.Join(parts, ", "))
}

const duplicateSampleCap = 10

// Skipped builds the change-set for a run with no prior snapshot: an
// explicit zero-row result, not an error.
func Skipped(opts Options) *ChangeSet {
	opts.defaults()
	return &ChangeSet{
		Added:   emptyOut(nil, opts),
		Removed: emptyOut(nil, opts),
		Updated: emptyOut(nil, opts),
		Metrics: Metrics{PreviousFound: false, Note: "no prior snapshot found; delta skipped"},
	}
}

// Diff computes the change-set between the current and previous snapshots.
// Both snapshots must carry the key columns and the removal column, and
// keys must be unique within each snapshot.
func Diff(current, previous *table.Table, opts Options) (*ChangeSet, error) {
	opts.defaults()

	for side, t := range map[string]*table.Table{"current": current, "previous": previous} {
		if err := t.Require(opts.Dataset, opts.Vendor, append(opts.KeyCols, opts.RemovalCol)...); err != nil {
			return nil, fmt.Errorf("%s snapshot: %w", side, err)
		}
	}

	curIdx, err := index(current, opts, "current")
	if err != nil {
		return nil, err
	}
	prevIdx, err := index(previous, opts, "previous")
	if err != nil {
		return nil, err
	}

	compareCols := sharedCompareCols(current, previous, opts)

	var addedKeys, removedSoftKeys, removedMissingKeys, updatedKeys []string
	addedType := map[string]string{}

	for key, cur := range curIdx {
		prev, inBoth := prevIdx[key]
		switch {
		case !inBoth:
			if cur.active {
				addedKeys = append(addedKeys, key)
				addedType[key] = TypeAddedNew
			}
		case !prev.active && cur.active:
			addedKeys = append(addedKeys, key)
			addedType[key] = TypeReactivated
		case prev.active && !cur.active:
			removedSoftKeys = append(removedSoftKeys, key)
		case prev.active && cur.active:
			if len(compareCols) > 0 &&
				Signature(current.Rows[cur.row], compareCols) != Signature(previous.Rows[prev.row], compareCols) {
				updatedKeys = append(updatedKeys, key)
			}
		}
	}
	for key, prev := range prevIdx {
		if _, inBoth := curIdx[key]; !inBoth && prev.active {
			removedMissingKeys = append(removedMissingKeys, key)
		}
	}

	// Sort each partition by key so identical inputs always produce
	// byte-identical change-sets.
	sort.Strings(addedKeys)
	sort.Strings(removedSoftKeys)
	sort.Strings(removedMissingKeys)
	sort.Strings(updatedKeys)

	added := emptyOut(current, opts)
	for _, k := range addedKeys {
		added.Append(outRow(current, curIdx[k], k, addedType[k]))
	}
	removed := emptyOut(current, opts)
	reactivated := 0
	for _, k := range addedKeys {
		if addedType[k] == TypeReactivated {
			reactivated++
		}
	}
	for _, k := range removedSoftKeys {
		// Soft removals come from the current snapshot so the removal
		// date is preserved.
		removed.Append(outRow(current, curIdx[k], k, TypeRemovedSoft))
	}
	for _, k := range removedMissingKeys {
		// Vanished rows come from the previous snapshot, the last known
		// state.
		removed.Append(outRow(previous, prevIdx[k], k, TypeRemovedMissing))
	}
	updated := emptyOut(current, opts)
	for _, k := range updatedKeys {
		updated.Append(outRow(current, curIdx[k], k, TypeUpdatedActive))
	}

	return &ChangeSet{
		Added:   added,
		Removed: removed,
		Updated: updated,
		Metrics: Metrics{
			PreviousFound:      true,
			AddedRows:          added.Len(),
			ReactivatedRows:    reactivated,
			RemovedRows:        removed.Len(),
			RemovedSoftRows:    len(removedSoftKeys),
			RemovedMissingRows: len(removedMissingKeys),
			UpdatedRows:        updated.Len(),
		},
	}, nil
}

type entry struct {
	row    int
	active bool
}

func index(t *table.Table, opts Options, side string) (map[string]entry, error) {
	idx := make(map[string]entry, t.Len())
	counts := make(map[string]int, t.Len())
	for i, r := range t.Rows {
		key := opts.Keyer(r)
		counts[key]++
		_, removed := table.ParseDate(r[opts.RemovalCol])
		idx[key] = entry{row: i, active: !removed}
	}
	samples := map[string]int{}
	total := 0
	for k, n := range counts {
		if n > 1 {
			total += n
			if len(samples) < duplicateSampleCap {
				samples[k] = n
			}
		}
	}
	if total > 0 {
		return nil, &DuplicateKeyError{
			Dataset: opts.Dataset,
			Vendor:  opts.Vendor,
			Side:    side,
			Total:   total,
			Samples: samples,
		}
	}
	return idx, nil
}

// sharedCompareCols returns the columns both snapshots carry, minus the key
// and removal columns, alphabetically sorted.
func sharedCompareCols(current, previous *table.Table, opts Options) []string {
	skip := map[string]bool{opts.RemovalCol: true}
	for _, c := range opts.KeyCols {
		skip[c] = true
	}
	var cols []string
	for _, c := range current.Cols {
		if !skip[c] && previous.HasCol(c) {
			cols = append(cols, c)
		}
	}
	sort.Strings(cols)
	return cols
}

func emptyOut(src *table.Table, opts Options) *table.Table {
	var cols []string
	if src != nil {
		cols = append(cols, src.Cols...)
	} else {
		cols = append(cols, opts.KeyCols...)
		cols = append(cols, opts.RemovalCol)
	}
	cols = append(cols, KeyCol, IsActiveCol, DeltaTypeCol)
	return table.New(cols...)
}

func outRow(src *table.Table, e entry, key, deltaType string) table.Row {
	r := make(table.Row, len(src.Rows[e.row])+3)
	for k, v := range src.Rows[e.row] {
		r[k] = v
	}
	r[KeyCol] = key
	r[IsActiveCol] = table.FormatBool(e.active)
	r[DeltaTypeCol] = deltaType
	return r
}
