package eligibility

import (
	"sort"
	"strconv"

	"github.com/gridscope/gridscope/pkg/table"
)

// Summary rolls eligibility lines up to (asset class, vendor, scope id).
type Summary struct {
	AssetClass    string
	Vendor        string
	ScopeID       string
	FlocCount     int
	ApprovedCount int
	BlockedCount  int
	ApprovedRate  float64
}

// Summarize aggregates lines; output sorted by (asset class, vendor,
// scope id).
func Summarize(lines []Line) []Summary {
	type sk struct{ asset, vendor, scope string }
	counts := make(map[sk]*Summary)
	for _, l := range lines {
		id := sk{l.AssetClass, l.Vendor, l.ScopeID}
		s, ok := counts[id]
		if !ok {
			s = &Summary{AssetClass: l.AssetClass, Vendor: l.Vendor, ScopeID: l.ScopeID}
			counts[id] = s
		}
		s.FlocCount++
		if l.Approved {
			s.ApprovedCount++
		}
	}
	out := make([]Summary, 0, len(counts))
	for _, s := range counts {
		s.BlockedCount = s.FlocCount - s.ApprovedCount
		if s.FlocCount > 0 {
			s.ApprovedRate = float64(s.ApprovedCount) / float64(s.FlocCount)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AssetClass != b.AssetClass {
			return a.AssetClass < b.AssetClass
		}
		if a.Vendor != b.Vendor {
			return a.Vendor < b.Vendor
		}
		return a.ScopeID < b.ScopeID
	})
	return out
}

// SummariesToTable renders the scope summary output.
func SummariesToTable(summaries []Summary, runDate, runID, sourceSystem string) *table.Table {
	t := table.New(
		"asset_class",
		"vendor",
		"scope_id",
		"floc_count",
		"approved_count",
		"blocked_count",
		"approved_rate",
		"eligibility_run_date",
		"eligibility_run_id",
		"eligibility_source_system",
	)
	for _, s := range summaries {
		t.Append(table.Row{
			"asset_class":               s.AssetClass,
			"vendor":                    s.Vendor,
			"scope_id":                  s.ScopeID,
			"floc_count":                itoa(s.FlocCount),
			"approved_count":            itoa(s.ApprovedCount),
			"blocked_count":             itoa(s.BlockedCount),
			"approved_rate":             strconv.FormatFloat(s.ApprovedRate, 'f', 4, 64),
			"eligibility_run_date":      runDate,
			"eligibility_run_id":        runID,
			"eligibility_source_system": sourceSystem,
		})
	}
	return t
}

func itoa(n int) string { return strconv.Itoa(n) }
