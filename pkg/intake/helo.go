package intake

import (
	"github.com/gridscope/gridscope/pkg/scopekey"
	"github.com/gridscope/gridscope/pkg/table"
)

var heloMapping = table.Mapping{
	"floc":        {"FLOC", "functional_location", "Functional Location"},
	"scope_id":    {"SCOPE_ID", "scope", "Scope ID"},
	"object_type": {"OBJECT_TYPE", "Object Type"},
	"voltage":     {"VOLTAGE", "Voltage"},
	"visit_no":    {"VISIT_NO", "Visit", "Visit #"},
}

// NormalizeHelo converts a helo scope snapshot into silver scope lines.
// Helo sheets carry no removal dates, so every kept line is active; rows
// missing either key field are dropped.
func NormalizeHelo(raw *table.Table, vendor, sourceSheet string) (*table.Table, error) {
	t := heloMapping.Canonicalize(raw)
	if err := t.Require("scope_helo", vendor, "floc", "scope_id"); err != nil {
		return nil, err
	}
	norm := scopekey.NewNormalizer(scopekey.PolicyBlankIsPlaceholder)

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
		out.Append(table.Row{
			"vendor":             vendor,
			"scope_id":           scope,
			"floc":               floc,
			"scope_floc_key":     key,
			"is_active":          table.FormatBool(true),
			"scope_removal_date": "",
			"object_type":        table.CleanString(r["object_type"]),
			"voltage":            table.CleanString(r["voltage"]),
			"visit_no":           table.CleanString(r["visit_no"]),
			"source_sheet":       sourceSheet,
		})
	}
	return out, nil
}
