package intake

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gridscope/gridscope/pkg/table"
)

// inspectExportPrefix is the staging prefix the inspect-app warehouse
// export prepends to every column name.
const inspectExportPrefix = "inspections_all_"

var inspectionMapping = table.Mapping{
	"floc":                        {"FLOC", "functional_location"},
	"object_type":                 {"OBJECT_TYPE"},
	"created_at":                  {"CREATED_AT", "created"},
	"aerial_measurement_document": {"AERIAL_MEASUREMENT_DOCUMENT", "aerial_doc"},
	"ground_measurement_document": {"GROUND_MEASUREMENT_DOCUMENT", "ground_doc"},
}

// StripInspectPrefix removes the warehouse staging prefix from column
// names so the alias mapping can match them.
func StripInspectPrefix(raw *table.Table) *table.Table {
	out := &table.Table{}
	for _, c := range raw.Cols {
		out.Cols = append(out.Cols, strings.TrimPrefix(strings.TrimSpace(c), inspectExportPrefix))
	}
	for _, r := range raw.Rows {
		nr := make(table.Row, len(r))
		for k, v := range r {
			nr[strings.TrimPrefix(strings.TrimSpace(k), inspectExportPrefix)] = v
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// InspectionColumns is the per-floc rollup schema consumed by the
// eligibility evaluator.
var InspectionColumns = []string{
	"floc",
	"has_any_mdoc",
	"has_aerial_mdoc",
	"has_ground_mdoc",
	"aerial_measurement_documents",
	"ground_measurement_documents",
	"created_at_min",
	"created_at_max",
	"row_count",
	"object_type_count",
}

// RollupInspections reduces the inspect-app export to one line per floc.
// Document names are deduplicated and ;-joined in sorted order; timestamps
// collapse to a min/max span. The export carries no vendor field, which is
// why this rollup keys on floc alone.
func RollupInspections(raw *table.Table) (*table.Table, error) {
	t := inspectionMapping.Canonicalize(StripInspectPrefix(raw))
	if err := t.Require("inspections", "", "floc"); err != nil {
		return nil, err
	}

	type agg struct {
		aerial      map[string]struct{}
		ground      map[string]struct{}
		objectTypes map[string]struct{}
		minAt       time.Time
		maxAt       time.Time
		rows        int
	}
	aggs := make(map[string]*agg)
	var flocs []string
	for _, r := range t.Rows {
		floc := table.CleanString(r["floc"])
		if floc == "" {
			continue
		}
		a, ok := aggs[floc]
		if !ok {
			a = &agg{
				aerial:      make(map[string]struct{}),
				ground:      make(map[string]struct{}),
				objectTypes: make(map[string]struct{}),
			}
			aggs[floc] = a
			flocs = append(flocs, floc)
		}
		a.rows++
		if doc := table.CleanString(r["aerial_measurement_document"]); doc != "" {
			a.aerial[doc] = struct{}{}
		}
		if doc := table.CleanString(r["ground_measurement_document"]); doc != "" {
			a.ground[doc] = struct{}{}
		}
		if ot := table.CleanString(r["object_type"]); ot != "" {
			a.objectTypes[ot] = struct{}{}
		}
		if at, ok := table.ParseDate(r["created_at"]); ok {
			if a.minAt.IsZero() || at.Before(a.minAt) {
				a.minAt = at
			}
			if at.After(a.maxAt) {
				a.maxAt = at
			}
		}
	}
	sort.Strings(flocs)

	out := table.New(InspectionColumns...)
	for _, floc := range flocs {
		a := aggs[floc]
		aerial := joinSorted(a.aerial)
		ground := joinSorted(a.ground)
		out.Append(table.Row{
			"floc":                         floc,
			"has_any_mdoc":                 table.FormatBool(aerial != "" || ground != ""),
			"has_aerial_mdoc":              table.FormatBool(aerial != ""),
			"has_ground_mdoc":              table.FormatBool(ground != ""),
			"aerial_measurement_documents": aerial,
			"ground_measurement_documents": ground,
			"created_at_min":               table.FormatDateTime(a.minAt),
			"created_at_max":               table.FormatDateTime(a.maxAt),
			"row_count":                    strconv.Itoa(a.rows),
			"object_type_count":            strconv.Itoa(len(a.objectTypes)),
		})
	}
	return out, nil
}

func joinSorted(set map[string]struct{}) string {
	if len(set) == 0 {
		return ""
	}
	items := make([]string, 0, len(set))
	for s := range set {
		items = append(items, s)
	}
	sort.Strings(items)
	return strings.Join(items, ";")
}
