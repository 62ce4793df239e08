package eligibility

import (
	"github.com/gridscope/gridscope/pkg/assignment"
	"github.com/gridscope/gridscope/pkg/table"
)

// Unmatched reasons.
const (
	ReasonKeyNotInAssignments  = "VENDOR_SCOPE_KEY_NOT_IN_ASSIGNMENTS"
	ReasonFlocNotInAssignments = "FLOC_NOT_IN_DISTRIBUTION_ASSIGNMENTS"
)

// UnmatchedDeliveries anti-joins delivery aggregates against assignments on
// (vendor, key): evidence with no assignment anywhere. Purely diagnostic;
// never feeds the eligibility decision.
func UnmatchedDeliveries(aggs []DeliveryAgg, assignments []assignment.Assignment) []DeliveryAgg {
	type vk struct{ vendor, key string }
	known := make(map[vk]struct{}, len(assignments))
	for _, a := range assignments {
		known[vk{a.Vendor, a.Key}] = struct{}{}
	}
	var out []DeliveryAgg
	for _, agg := range aggs {
		if _, ok := known[vk{agg.Vendor, agg.Key}]; !ok {
			out = append(out, agg)
		}
	}
	return out
}

// UnmatchedFlocEvidence anti-joins document evidence against distribution
// assignments on floc alone (the evidence source is distribution-only and
// vendor-unaware).
func UnmatchedFlocEvidence(docs []FlocEvidence, distAssignments []assignment.Assignment) []FlocEvidence {
	known := make(map[string]struct{}, len(distAssignments))
	for _, a := range distAssignments {
		known[a.Floc] = struct{}{}
	}
	var out []FlocEvidence
	for _, d := range docs {
		if _, ok := known[d.Floc]; !ok {
			out = append(out, d)
		}
	}
	return out
}

// UnmatchedDeliveriesToTable renders the delivery forensics output.
func UnmatchedDeliveriesToTable(aggs []DeliveryAgg, assetClass, runDate, runID, sourceSystem string) *table.Table {
	t := table.New(
		"asset_class",
		"vendor",
		"scope_id",
		"floc",
		"scope_floc_key",
		"image_count_total",
		"folder_count",
		"has_delivery",
		"has_min_images",
		"unmatched_reason",
		"eligibility_run_date",
		"eligibility_run_id",
		"eligibility_source_system",
	)
	for _, a := range aggs {
		t.Append(table.Row{
			"asset_class":               assetClass,
			"vendor":                    a.Vendor,
			"scope_id":                  a.ScopeID,
			"floc":                      a.Floc,
			"scope_floc_key":            a.Key,
			"image_count_total":         itoa(a.ImageCountTotal),
			"folder_count":              itoa(a.FolderCount),
			"has_delivery":              table.FormatBool(a.HasDelivery),
			"has_min_images":            table.FormatBool(a.HasMinImages),
			"unmatched_reason":          ReasonKeyNotInAssignments,
			"eligibility_run_date":      runDate,
			"eligibility_run_id":        runID,
			"eligibility_source_system": sourceSystem,
		})
	}
	return t
}

// UnmatchedFlocEvidenceToTable renders the document forensics output.
func UnmatchedFlocEvidenceToTable(docs []FlocEvidence, runDate, runID, sourceSystem string) *table.Table {
	t := table.New(
		"asset_class",
		"floc",
		"has_any_mdoc",
		"has_ground_mdoc",
		"has_aerial_mdoc",
		"ground_measurement_documents",
		"aerial_measurement_documents",
		"created_at_max",
		"row_count",
		"object_type_count",
		"unmatched_reason",
		"eligibility_run_date",
		"eligibility_run_id",
		"eligibility_source_system",
	)
	for _, d := range docs {
		t.Append(table.Row{
			"asset_class":                  "distribution",
			"floc":                         d.Floc,
			"has_any_mdoc":                 table.FormatBool(d.HasAnyMdoc),
			"has_ground_mdoc":              table.FormatBool(d.HasGroundMdoc),
			"has_aerial_mdoc":              table.FormatBool(d.HasAerialMdoc),
			"ground_measurement_documents": d.GroundDocuments,
			"aerial_measurement_documents": d.AerialDocuments,
			"created_at_max":               table.FormatDateTime(d.CreatedAtMax),
			"row_count":                    itoa(d.RowCount),
			"object_type_count":            itoa(d.ObjectTypeCount),
			"unmatched_reason":             ReasonFlocNotInAssignments,
			"eligibility_run_date":         runDate,
			"eligibility_run_id":           runID,
			"eligibility_source_system":    sourceSystem,
		})
	}
	return t
}
