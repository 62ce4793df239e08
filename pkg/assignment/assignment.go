// Package assignment resolves which inspection method currently covers each
// business key. It merges the drone and helo current snapshots (helo wins
// where both exist) and then overlays the collapsed scope event, producing
// at most one row per (vendor, key, asset class).
package assignment

import (
	"fmt"
	"sort"
	"time"

	"github.com/gridscope/gridscope/pkg/events"
	"github.com/gridscope/gridscope/pkg/table"
)

// Inspection methods.
const (
	MethodDrone = "DRONE"
	MethodHelo  = "HELO"
)

// Assignment statuses.
const (
	StatusActiveDrone = "ACTIVE_DRONE"
	StatusActiveHelo  = "ACTIVE_HELO"
	StatusRemoved     = "REMOVED"
	StatusMovedToHelo = "MOVED_TO_HELO"
	StatusInactive    = "INACTIVE"
)

// Asset classes.
const (
	AssetDistribution = "Distribution"
	AssetTransmission = "Transmission"
)

// UnknownAssetClassError reports an asset class outside the recognized set.
type UnknownAssetClassError struct {
	Value string
}

func (e *UnknownAssetClassError) Error() string {
	return fmt.Sprintf("unknown asset class %q (expected %s or %s)", e.Value, AssetDistribution, AssetTransmission)
}

// ValidateAssetClass checks v against the fixed enumeration.
func ValidateAssetClass(v string) error {
	if v != AssetDistribution && v != AssetTransmission {
		return &UnknownAssetClassError{Value: v}
	}
	return nil
}

// Assignment is one resolved row per (vendor, key, asset class).
type Assignment struct {
	Vendor        string
	ScopeID       string
	Floc          string
	Key           string
	AssetClass    string
	Method        string
	SourceDataset string
	BaseActive    bool

	// Set by ApplyEvents.
	Active          bool
	Status          string
	LatestEventType string
	LatestEventDate time.Time

	// Descriptive passthrough consumed by eligibility and pricing.
	ObjectType string
	Voltage    string
	VisitNo    string
}

// FromSilverLine normalizes a current silver line table into assignment
// rows for the given method. Helo rows are always base-active; drone rows
// use their removal-derived is_active flag (missing column defaults to
// active).
func FromSilverLine(t *table.Table, method, vendor, assetClass, sourceDataset string) ([]Assignment, error) {
	if err := ValidateAssetClass(assetClass); err != nil {
		return nil, err
	}
	if err := t.Require(sourceDataset, vendor, "floc", "scope_id", "scope_floc_key"); err != nil {
		return nil, err
	}
	hasActive := t.HasCol("is_active")
	out := make([]Assignment, 0, t.Len())
	for _, r := range t.Rows {
		a := Assignment{
			Vendor:        table.CleanString(r["vendor"]),
			ScopeID:       table.CleanString(r["scope_id"]),
			Floc:          table.CleanString(r["floc"]),
			Key:           table.CleanString(r["scope_floc_key"]),
			AssetClass:    assetClass,
			Method:        method,
			SourceDataset: sourceDataset,
			BaseActive:    true,
			ObjectType:    table.CleanString(r["object_type"]),
			Voltage:       table.CleanString(r["voltage"]),
			VisitNo:       table.CleanString(r["visit_no"]),
		}
		if a.Vendor == "" {
			a.Vendor = vendor
		}
		if method != MethodHelo && hasActive {
			a.BaseActive = table.ParseBool(r["is_active"])
		}
		out = append(out, a)
	}
	return out, nil
}

// ChoosePreferred reduces to one row per (vendor, key), preferring helo
// over drone. This is a priority reduction, never a blend of fields.
func ChoosePreferred(all []Assignment) []Assignment {
	type vk struct{ vendor, key string }
	best := make(map[vk]Assignment, len(all))
	for _, a := range all {
		id := vk{a.Vendor, a.Key}
		cur, ok := best[id]
		if !ok || methodPriority(a.Method) > methodPriority(cur.Method) {
			best[id] = a
		}
	}
	out := make([]Assignment, 0, len(best))
	for _, a := range best {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Vendor != out[j].Vendor {
			return out[i].Vendor < out[j].Vendor
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func methodPriority(method string) int {
	switch method {
	case MethodHelo:
		return 2
	case MethodDrone:
		return 1
	}
	return 0
}

// ApplyEvents overlays the collapsed latest events onto the preferred
// assignments and fills Active and Status. Row-wise transform: no row is
// ever multiplied or dropped.
func ApplyEvents(assignments []Assignment, latest []events.Event) []Assignment {
	type vk struct{ vendor, key string }
	byKey := make(map[vk]events.Event, len(latest))
	for _, e := range latest {
		byKey[vk{e.Vendor, e.Key}] = e
	}

	out := make([]Assignment, len(assignments))
	for i, a := range assignments {
		a.Active = a.BaseActive
		if e, ok := byKey[vk{a.Vendor, a.Key}]; ok && e.Type != "" {
			a.LatestEventType = e.Type
			a.LatestEventDate = e.EffectiveDate
		}
		switch a.LatestEventType {
		case events.TypeRemoval:
			a.Active = false
			a.Status = StatusRemoved
		case events.TypeMoveToHelo:
			if a.Method == MethodHelo {
				a.Active = true
				a.Status = StatusActiveHelo
			} else {
				// Drone evidence is stale once the unit moved.
				a.Active = false
				a.Status = StatusMovedToHelo
			}
		default:
			switch {
			case !a.Active:
				a.Status = StatusInactive
			case a.Method == MethodHelo:
				a.Status = StatusActiveHelo
			default:
				a.Status = StatusActiveDrone
			}
		}
		out[i] = a
	}
	return out
}

// Resolve is the full pipeline: prefer helo, then overlay events.
func Resolve(all []Assignment, latest []events.Event) []Assignment {
	return ApplyEvents(ChoosePreferred(all), latest)
}

// Columns of the persisted gold assignment dataset.
var Columns = []string{
	"vendor",
	"floc",
	"scope_id",
	"scope_floc_key",
	"asset_class",
	"assignment_method",
	"source_dataset",
	"base_is_active",
	"is_active_assignment",
	"assignment_status",
	"latest_event_type",
	"latest_event_effective_date",
	"object_type",
	"voltage",
	"visit_no",
	"gold_run_date",
	"gold_run_id",
}

// ToTable renders resolved assignments with run lineage stamped on.
func ToTable(assignments []Assignment, runDate, runID string) *table.Table {
	t := table.New(Columns...)
	for _, a := range assignments {
		t.Append(table.Row{
			"vendor":                      a.Vendor,
			"floc":                        a.Floc,
			"scope_id":                    a.ScopeID,
			"scope_floc_key":              a.Key,
			"asset_class":                 a.AssetClass,
			"assignment_method":           a.Method,
			"source_dataset":              a.SourceDataset,
			"base_is_active":              table.FormatBool(a.BaseActive),
			"is_active_assignment":        table.FormatBool(a.Active),
			"assignment_status":           a.Status,
			"latest_event_type":           a.LatestEventType,
			"latest_event_effective_date": table.FormatDate(a.LatestEventDate),
			"object_type":                 a.ObjectType,
			"voltage":                     a.Voltage,
			"visit_no":                    a.VisitNo,
			"gold_run_date":               runDate,
			"gold_run_id":                 runID,
		})
	}
	return t
}

// FromTable reads a persisted gold assignment dataset back.
func FromTable(t *table.Table) []Assignment {
	if t == nil {
		return nil
	}
	out := make([]Assignment, 0, t.Len())
	for _, r := range t.Rows {
		a := Assignment{
			Vendor:          table.CleanString(r["vendor"]),
			Floc:            table.CleanString(r["floc"]),
			ScopeID:         table.CleanString(r["scope_id"]),
			Key:             table.CleanString(r["scope_floc_key"]),
			AssetClass:      table.CleanString(r["asset_class"]),
			Method:          table.CleanString(r["assignment_method"]),
			SourceDataset:   table.CleanString(r["source_dataset"]),
			BaseActive:      table.ParseBool(r["base_is_active"]),
			Active:          table.ParseBool(r["is_active_assignment"]),
			Status:          table.CleanString(r["assignment_status"]),
			LatestEventType: table.CleanString(r["latest_event_type"]),
			ObjectType:      table.CleanString(r["object_type"]),
			Voltage:         table.CleanString(r["voltage"]),
			VisitNo:         table.CleanString(r["visit_no"]),
		}
		if d, ok := table.ParseDate(r["latest_event_effective_date"]); ok {
			a.LatestEventDate = d
		}
		out = append(out, a)
	}
	return out
}
