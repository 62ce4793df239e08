package intake

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gridscope/gridscope/pkg/table"
)

// ScopeMasterColumns is the silver schema for one official scope list.
var ScopeMasterColumns = []string{
	"floc",
	"object_type",
	"asset_class",
	"scope_list",
	"source_file",
	"run_date",
	"run_id",
}

// The management sheets spell the equipment type column inconsistently
// from release to release.
var masterMapping = table.Mapping{
	"floc":        {"FLOC", "FLOC_ID", "FLOCID"},
	"object_type": {"Eq_OjType", "Eq_ObjType", "EqObjType", "Eq_Oj_Type", "EqOjType", "EqType"},
}

// NormalizeScopeMaster converts one official scope list into the silver
// master shape. Rows without a floc are dropped.
func NormalizeScopeMaster(raw *table.Table, assetClass, scopeList, sourceFile, runDate, runID string) (*table.Table, error) {
	t := masterMapping.Canonicalize(raw)
	if err := t.Require("scope_master", "", "floc", "object_type"); err != nil {
		return nil, err
	}

	out := table.New(ScopeMasterColumns...)
	for _, r := range t.Rows {
		floc := table.CleanString(r["floc"])
		if floc == "" {
			continue
		}
		out.Append(table.Row{
			"floc":        floc,
			"object_type": table.CleanString(r["object_type"]),
			"asset_class": assetClass,
			"scope_list":  scopeList,
			"source_file": sourceFile,
			"run_date":    runDate,
			"run_id":      runID,
		})
	}
	return out, nil
}

// FlocDimColumns is the consolidated floc to object type table joined by
// the eligibility builder when an assignment carries no object type.
var FlocDimColumns = []string{
	"floc",
	"object_type",
	"object_type_values",
	"scope_lists",
	"asset_classes",
	"row_count",
}

// objectTypePrecedence breaks ties when a floc appears on several lists
// with different object types. EZ_POLE wins because it forces the
// non-billable override downstream.
var objectTypePrecedence = []string{"EZ_POLE", "ET_POLE", "ED_POLE"}

// BuildFlocObjectTypeDim unions the silver master lists into one row per
// floc. Joined value sets keep first-seen order; the output is sorted by
// floc.
func BuildFlocObjectTypeDim(lists ...*table.Table) *table.Table {
	type agg struct {
		objectTypes []string
		scopeLists  []string
		assetClass  []string
		seen        map[string]bool
		rows        int
	}
	aggs := make(map[string]*agg)
	var flocs []string
	for _, t := range lists {
		if t == nil {
			continue
		}
		for _, r := range t.Rows {
			floc := table.CleanString(r["floc"])
			if floc == "" {
				continue
			}
			a, ok := aggs[floc]
			if !ok {
				a = &agg{seen: make(map[string]bool)}
				aggs[floc] = a
				flocs = append(flocs, floc)
			}
			a.rows++
			a.objectTypes = appendUnique(a.objectTypes, a.seen, "ot:", table.CleanString(r["object_type"]))
			a.scopeLists = appendUnique(a.scopeLists, a.seen, "sl:", table.CleanString(r["scope_list"]))
			a.assetClass = appendUnique(a.assetClass, a.seen, "ac:", table.CleanString(r["asset_class"]))
		}
	}
	sort.Strings(flocs)

	out := table.New(FlocDimColumns...)
	for _, floc := range flocs {
		a := aggs[floc]
		out.Append(table.Row{
			"floc":               floc,
			"object_type":        pickObjectType(a.objectTypes),
			"object_type_values": strings.Join(a.objectTypes, ";"),
			"scope_lists":        strings.Join(a.scopeLists, ";"),
			"asset_classes":      strings.Join(a.assetClass, ";"),
			"row_count":          strconv.Itoa(a.rows),
		})
	}
	return out
}

func appendUnique(list []string, seen map[string]bool, ns, v string) []string {
	if v == "" || seen[ns+v] {
		return list
	}
	seen[ns+v] = true
	return append(list, v)
}

func pickObjectType(values []string) string {
	for _, want := range objectTypePrecedence {
		for _, v := range values {
			if v == want {
				return want
			}
		}
	}
	if len(values) > 0 {
		return values[0]
	}
	return ""
}
