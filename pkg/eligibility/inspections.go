package eligibility

import (
	"time"

	"github.com/gridscope/gridscope/pkg/table"
)

// FlocEvidence is the inspect-app document evidence rolled up per floc.
// The export carries no vendor field, which is why eligibility can only
// join it on floc (see FlocJoinMethod on Line).
type FlocEvidence struct {
	Floc            string
	HasAnyMdoc      bool
	HasAerialMdoc   bool
	HasGroundMdoc   bool
	AerialDocuments string // ;-joined unique document names
	GroundDocuments string
	CreatedAtMin    time.Time
	CreatedAtMax    time.Time
	RowCount        int
	ObjectTypeCount int
}

// FlocEvidenceFromTable reads a persisted floc rollup, deduplicating on
// floc (first row wins; the rollup writer already guarantees uniqueness).
func FlocEvidenceFromTable(t *table.Table) []FlocEvidence {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool, t.Len())
	out := make([]FlocEvidence, 0, t.Len())
	for _, r := range t.Rows {
		floc := table.CleanString(r["floc"])
		if floc == "" || seen[floc] {
			continue
		}
		seen[floc] = true
		ev := FlocEvidence{
			Floc:            floc,
			HasAnyMdoc:      table.ParseBool(r["has_any_mdoc"]),
			HasAerialMdoc:   table.ParseBool(r["has_aerial_mdoc"]),
			HasGroundMdoc:   table.ParseBool(r["has_ground_mdoc"]),
			AerialDocuments: table.CleanString(r["aerial_measurement_documents"]),
			GroundDocuments: table.CleanString(r["ground_measurement_documents"]),
			RowCount:        table.ParseInt(r["row_count"]),
			ObjectTypeCount: table.ParseInt(r["object_type_count"]),
		}
		if d, ok := table.ParseDate(r["created_at_min"]); ok {
			ev.CreatedAtMin = d
		}
		if d, ok := table.ParseDate(r["created_at_max"]); ok {
			ev.CreatedAtMax = d
		}
		out = append(out, ev)
	}
	return out
}
