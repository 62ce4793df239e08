// Package intake standardizes raw vendor exports into the canonical silver
// shapes the engines consume. All header aliasing, null cleaning and
// key derivation happens here, exactly once; downstream packages only see
// canonical columns.
package intake

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/gridscope/gridscope/pkg/scopekey"
	"github.com/gridscope/gridscope/pkg/table"
)

// ScopeColumns is the canonical silver scope-line schema shared by the
// drone release sheets and the helo snapshots.
var ScopeColumns = []string{
	"vendor",
	"scope_id",
	"floc",
	"scope_floc_key",
	"is_active",
	"scope_removal_date",
	"object_type",
	"voltage",
	"visit_no",
	"source_sheet",
}

var distScopeMapping = table.Mapping{
	"floc":               {"FLOC", "functional_location", "Functional Location"},
	"scope_id":           {"SCOPE_ID", "scope", "Scope ID"},
	"scope_removal_date": {"SCOPE_REMOVAL_DATE", "removal_date", "Removal Date"},
	"object_type":        {"OBJECT_TYPE", "Object Type"},
	"voltage":            {"VOLTAGE", "Voltage"},
}

// NormalizeDistributionScope converts one distribution release sheet into
// silver scope lines. A blank scope id means the compliance bucket; a unit
// is active unless its removal date parses.
func NormalizeDistributionScope(raw *table.Table, vendor, sourceSheet string) (*table.Table, error) {
	t := distScopeMapping.Canonicalize(raw)
	if err := t.Require("scope_distribution", vendor, "floc", "scope_id"); err != nil {
		return nil, err
	}
	norm := scopekey.NewNormalizer(scopekey.PolicyBlankIsCompliance)

	out := table.New(ScopeColumns...)
	for _, r := range t.Rows {
		floc := table.CleanString(r["floc"])
		if floc == "" {
			continue
		}
		scope, floc, key, keep := norm.Normalize(table.CleanString(r["scope_id"]), floc)
		if !keep {
			continue
		}
		removal := table.CleanString(r["scope_removal_date"])
		_, removed := table.ParseDate(removal)
		out.Append(table.Row{
			"vendor":             vendor,
			"scope_id":           scope,
			"floc":               floc,
			"scope_floc_key":     key,
			"is_active":          table.FormatBool(!removed),
			"scope_removal_date": removal,
			"object_type":        table.CleanString(r["object_type"]),
			"voltage":            table.CleanString(r["voltage"]),
			"visit_no":           "",
			"source_sheet":       sourceSheet,
		})
	}
	return out, nil
}

var packageSlotRe = regexp.MustCompile(`(?i)^scope\s*package\s*#?\s*(\d+)$`)

// NormalizeTransmissionScope converts the transmission release sheet, where
// each row carries the scope id per visit in wide `Scope Package #N`
// columns, into one silver line per filled slot. Blank slots are
// placeholders and are dropped; the slot number becomes visit_no.
func NormalizeTransmissionScope(raw *table.Table, vendor, sourceSheet string) (*table.Table, error) {
	t := distScopeMapping.Canonicalize(raw)
	if err := t.Require("scope_transmission", vendor, "floc"); err != nil {
		return nil, err
	}

	type slot struct {
		col string
		no  int
	}
	var slots []slot
	for _, c := range t.Cols {
		if m := packageSlotRe.FindStringSubmatch(c); m != nil {
			n, _ := strconv.Atoi(m[1])
			slots = append(slots, slot{col: c, no: n})
		}
	}
	if len(slots) == 0 {
		return nil, &table.SchemaError{Dataset: "scope_transmission", Vendor: vendor, Missing: []string{"Scope Package #1"}}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].no < slots[j].no })

	norm := scopekey.NewNormalizer(scopekey.PolicyBlankIsPlaceholder)
	out := table.New(ScopeColumns...)
	for _, r := range t.Rows {
		floc := table.CleanString(r["floc"])
		if floc == "" {
			continue
		}
		for _, s := range slots {
			scope, floc, key, keep := norm.Normalize(table.CleanString(r[s.col]), floc)
			if !keep {
				continue
			}
			out.Append(table.Row{
				"vendor":             vendor,
				"scope_id":           scope,
				"floc":               floc,
				"scope_floc_key":     key,
				"is_active":          table.FormatBool(true),
				"scope_removal_date": "",
				"object_type":        table.CleanString(r["object_type"]),
				"voltage":            table.CleanString(r["voltage"]),
				"visit_no":           strconv.Itoa(s.no),
				"source_sheet":       sourceSheet,
			})
		}
	}
	return out, nil
}
