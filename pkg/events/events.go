// Package events collapses the append-only scope event log into one
// authoritative latest event per (vendor, business key).
package events

import (
	"sort"
	"time"

	"github.com/gridscope/gridscope/pkg/table"
)

// Event types recognized by the collapse ordering. Anything else still
// flows through with priority 0.
const (
	TypeRemoval    = "removal"
	TypeMoveToHelo = "move_to_helo"
)

// typePriority encodes the business rule that a move to helo supersedes a
// removal recorded for the same effective date.
func typePriority(eventType string) int {
	switch eventType {
	case TypeMoveToHelo:
		return 2
	case TypeRemoval:
		return 1
	}
	return 0
}

// Event is one dated fact about a business key. The struct doubles as the
// output allow-list: columns outside it are dropped on read.
type Event struct {
	Vendor        string
	ScopeID       string
	Floc          string
	Key           string // scope_floc_key
	Type          string
	EffectiveDate time.Time // zero means unknown
	RunDate       string    // ISO date, lexicographic order == chronological
	RunID         string
	SourceFile    string
	SourceSheet   string
	VisitNo       string
}

// Collapse reduces an event log to exactly one event per (vendor, key): the
// maximum under (effective date, run date, type priority, run id), all
// descending with nulls last. The run id tie-break is deterministic only,
// it carries no business meaning. Output is sorted by (vendor, key).
func Collapse(log []Event) []Event {
	sorted := append([]Event(nil), log...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return beats(sorted[i], sorted[j])
	})

	type vk struct{ vendor, key string }
	seen := make(map[vk]bool, len(sorted))
	out := make([]Event, 0, len(sorted))
	for _, e := range sorted {
		id := vk{e.Vendor, e.Key}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// beats reports whether a should be picked over b.
func beats(a, b Event) bool {
	if c := compareDateDesc(a.EffectiveDate, b.EffectiveDate); c != 0 {
		return c < 0
	}
	if c := compareStringDesc(a.RunDate, b.RunDate); c != 0 {
		return c < 0
	}
	if pa, pb := typePriority(a.Type), typePriority(b.Type); pa != pb {
		return pa > pb
	}
	return compareStringDesc(a.RunID, b.RunID) < 0
}

// compareDateDesc orders descending with the zero time last.
func compareDateDesc(a, b time.Time) int {
	switch {
	case a.Equal(b):
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	case a.After(b):
		return -1
	}
	return 1
}

// compareStringDesc orders descending with "" last.
func compareStringDesc(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case a > b:
		return -1
	}
	return 1
}

// Columns of the persisted event line dataset.
var Columns = []string{
	"vendor",
	"scope_floc_key",
	"event_type",
	"event_effective_date",
	"run_date",
	"run_id",
	"source_file_saved",
	"source_sheet",
	"visit_no",
	"scope_id",
	"floc",
}

// FromTable reads event rows, silently dropping unknown columns.
func FromTable(t *table.Table) []Event {
	if t == nil {
		return nil
	}
	out := make([]Event, 0, t.Len())
	for _, r := range t.Rows {
		e := Event{
			Vendor:      table.CleanString(r["vendor"]),
			ScopeID:     table.CleanString(r["scope_id"]),
			Floc:        table.CleanString(r["floc"]),
			Key:         table.CleanString(r["scope_floc_key"]),
			Type:        table.CleanString(r["event_type"]),
			RunDate:     table.CleanString(r["run_date"]),
			RunID:       table.CleanString(r["run_id"]),
			SourceFile:  table.CleanString(r["source_file_saved"]),
			SourceSheet: table.CleanString(r["source_sheet"]),
			VisitNo:     table.CleanString(r["visit_no"]),
		}
		if d, ok := table.ParseDate(r["event_effective_date"]); ok {
			e.EffectiveDate = d
		}
		out = append(out, e)
	}
	return out
}

// ToTable renders events using the fixed column allow-list.
func ToTable(events []Event) *table.Table {
	t := table.New(Columns...)
	for _, e := range events {
		t.Append(table.Row{
			"vendor":               e.Vendor,
			"scope_floc_key":       e.Key,
			"event_type":           e.Type,
			"event_effective_date": table.FormatDate(e.EffectiveDate),
			"run_date":             e.RunDate,
			"run_id":               e.RunID,
			"source_file_saved":    e.SourceFile,
			"source_sheet":         e.SourceSheet,
			"visit_no":             e.VisitNo,
			"scope_id":             e.ScopeID,
			"floc":                 e.Floc,
		})
	}
	return t
}
