// Package eligibility decides which inspection work is approved for
// invoicing. It joins resolved assignments against delivery evidence and
// inspection documents, classifies each row into a program bucket, derives
// the bucket's evidence requirements, and computes the approval decision
// plus itemized block reasons.
//
// Work completion (evidence) and billability (policy) are independent
// booleans; the final decision is their AND, never a conflation. Missing
// evidence is coalesced to false before any boolean combination so an
// unmatched join can never silently count as met.
package eligibility

import (
	"strings"

	"github.com/gridscope/gridscope/pkg/assignment"
	"github.com/gridscope/gridscope/pkg/scopekey"
	"github.com/gridscope/gridscope/pkg/table"
)

// Program buckets.
const (
	BucketDistDrone = "DIST_DRONE"
	BucketDistHelo  = "DIST_HELO"
	BucketDistComp  = "DIST_COMP"
	BucketDistOther = "DIST_OTHER"
	BucketTrans     = "TRANS"
)

// Program acronyms per bucket.
var programAcronyms = map[string]string{
	BucketDistDrone: "D360",
	BucketDistComp:  "ODI",
	BucketDistHelo:  "HELO",
	BucketDistOther: BucketDistOther,
	BucketTrans:     "ATI",
}

// BillingNonBillable is the billing bucket for hard-excluded rows.
const BillingNonBillable = "NON_BILLABLE"

// ObjectTypeEZPole is never billable on distribution, regardless of bucket.
const ObjectTypeEZPole = "EZ_POLE"

// FlocJoinOnly marks rows whose document evidence was joined on floc alone.
// The inspect-app export has no vendor field, so a vendor-aware join is not
// possible; the marker keeps the weaker join visible downstream.
const FlocJoinOnly = "FLOC_ONLY"

// Block reason flags, in emission order.
const (
	BlockInactiveAssignment = "BLOCK_INACTIVE_ASSIGNMENT"
	BlockMissingMinImages   = "BLOCK_MISSING_DELIVERY_MIN_IMAGES"
	BlockMissingAerialMdoc  = "BLOCK_MISSING_AERIAL_MDOC"
	BlockMissingGroundMdoc  = "BLOCK_MISSING_GROUND_MDOC"
	BlockEZPoleNotBillable  = "BLOCK_EZ_POLE_DIST_NOT_BILLABLE"
)

// Line is one eligibility record per (asset class, vendor, key). Recomputed
// in full on every run, never incrementally updated.
type Line struct {
	AssetClass     string // "distribution" | "transmission"
	ProgramBucket  string
	ProgramAcronym string
	BillingBucket  string
	WorkComplete   bool
	Billable       bool

	Vendor     string
	ScopeID    string
	Floc       string
	Key        string
	ObjectType string
	Voltage    string

	Method string
	Status string
	Active bool

	ImageCountTotal int
	FolderCount     int
	HasAerialMdoc   bool
	HasGroundMdoc   bool
	HasAnyMdoc      bool
	FlocJoinMethod  string

	Approved     bool
	BlockReasons string
	NeedsReview  bool
}

// requirements declares, per bucket, which evidence kinds apply.
type requirements struct {
	images     bool
	aerialMdoc bool
	groundMdoc bool
}

func distributionRequirements(bucket string) requirements {
	switch bucket {
	case BucketDistDrone:
		return requirements{images: true, aerialMdoc: true, groundMdoc: true}
	case BucketDistHelo:
		return requirements{images: true}
	case BucketDistComp:
		// Compliance needs ground documents only, no aerial images.
		return requirements{groundMdoc: true}
	}
	return requirements{}
}

// distributionBucket classifies one assignment row. Precedence is fixed:
// the method-derived bucket first, then the COMP override, which always
// wins.
func distributionBucket(a assignment.Assignment) string {
	bucket := BucketDistOther
	switch a.Status {
	case assignment.StatusActiveHelo:
		bucket = BucketDistHelo
	case assignment.StatusActiveDrone:
		bucket = BucketDistDrone
	}
	if a.ScopeID == scopekey.ComplianceScope {
		bucket = BucketDistComp
	}
	return bucket
}

// EvaluateDistribution computes eligibility lines for the distribution
// asset class. Delivery evidence joins on (vendor, key); document evidence
// joins on floc only.
func EvaluateDistribution(assignments []assignment.Assignment, deliveries []DeliveryAgg, docs []FlocEvidence, minImages int) []Line {
	type vk struct{ vendor, key string }
	deliveryByKey := make(map[vk]DeliveryAgg, len(deliveries))
	for _, d := range deliveries {
		deliveryByKey[vk{d.Vendor, d.Key}] = d
	}
	docsByFloc := make(map[string]FlocEvidence, len(docs))
	for _, d := range docs {
		docsByFloc[d.Floc] = d
	}

	out := make([]Line, 0, len(assignments))
	for _, a := range assignments {
		line := Line{
			AssetClass:     "distribution",
			Vendor:         a.Vendor,
			ScopeID:        a.ScopeID,
			Floc:           a.Floc,
			Key:            a.Key,
			ObjectType:     a.ObjectType,
			Voltage:        a.Voltage,
			Method:         a.Method,
			Status:         a.Status,
			Active:         a.Active,
			FlocJoinMethod: FlocJoinOnly,
		}
		if d, ok := deliveryByKey[vk{a.Vendor, a.Key}]; ok {
			line.ImageCountTotal = d.ImageCountTotal
			line.FolderCount = d.FolderCount
		}
		if doc, ok := docsByFloc[a.Floc]; ok {
			line.HasAerialMdoc = doc.HasAerialMdoc
			line.HasGroundMdoc = doc.HasGroundMdoc
			line.HasAnyMdoc = doc.HasAnyMdoc
		}

		line.ProgramBucket = distributionBucket(a)
		line.ProgramAcronym = programAcronyms[line.ProgramBucket]
		line.BillingBucket = line.ProgramAcronym

		req := distributionRequirements(line.ProgramBucket)
		meetsImages := !req.images || line.ImageCountTotal >= minImages
		meetsAerial := !req.aerialMdoc || line.HasAerialMdoc
		meetsGround := !req.groundMdoc || line.HasGroundMdoc
		line.WorkComplete = meetsImages && meetsAerial && meetsGround

		line.Billable = line.Active && line.ProgramAcronym != BucketDistOther

		ezPole := line.ObjectType == ObjectTypeEZPole
		if ezPole {
			line.BillingBucket = BillingNonBillable
			line.Billable = false
		}

		line.Approved = line.WorkComplete && line.Billable
		line.BlockReasons = joinReasons([]reason{
			{BlockInactiveAssignment, !line.Active},
			{BlockMissingMinImages, req.images && line.ImageCountTotal < minImages},
			{BlockMissingAerialMdoc, req.aerialMdoc && !line.HasAerialMdoc},
			{BlockMissingGroundMdoc, req.groundMdoc && !line.HasGroundMdoc},
			{BlockEZPoleNotBillable, ezPole},
		})
		line.NeedsReview = !line.Approved

		out = append(out, line)
	}
	return out
}

// EvaluateTransmission computes eligibility lines for the transmission
// asset class: aerial image evidence only, no document requirements.
func EvaluateTransmission(assignments []assignment.Assignment, deliveries []DeliveryAgg, minImages int) []Line {
	type vk struct{ vendor, key string }
	deliveryByKey := make(map[vk]DeliveryAgg, len(deliveries))
	for _, d := range deliveries {
		deliveryByKey[vk{d.Vendor, d.Key}] = d
	}

	out := make([]Line, 0, len(assignments))
	for _, a := range assignments {
		line := Line{
			AssetClass:     "transmission",
			ProgramBucket:  BucketTrans,
			ProgramAcronym: programAcronyms[BucketTrans],
			BillingBucket:  programAcronyms[BucketTrans],
			Vendor:         a.Vendor,
			ScopeID:        a.ScopeID,
			Floc:           a.Floc,
			Key:            a.Key,
			ObjectType:     a.ObjectType,
			Voltage:        a.Voltage,
			Method:         a.Method,
			Status:         a.Status,
			Active:         a.Active,
		}
		if d, ok := deliveryByKey[vk{a.Vendor, a.Key}]; ok {
			line.ImageCountTotal = d.ImageCountTotal
			line.FolderCount = d.FolderCount
		}

		line.WorkComplete = line.ImageCountTotal >= minImages
		line.Billable = line.Active
		line.Approved = line.WorkComplete && line.Billable
		line.BlockReasons = joinReasons([]reason{
			{BlockInactiveAssignment, !line.Active},
			{BlockMissingMinImages, line.ImageCountTotal < minImages},
		})
		line.NeedsReview = !line.Approved

		out = append(out, line)
	}
	return out
}

type reason struct {
	name string
	hit  bool
}

// joinReasons emits only flags that are literally true.
func joinReasons(reasons []reason) string {
	var hits []string
	for _, r := range reasons {
		if r.hit {
			hits = append(hits, r.name)
		}
	}
	return strings.Join(hits, ";")
}

// Columns of the persisted eligibility line dataset (fixed keep-list).
var LineColumns = []string{
	"asset_class",
	"program_bucket",
	"program_acronym",
	"billing_bucket",
	"is_work_complete",
	"is_billable",
	"vendor",
	"scope_id",
	"floc",
	"scope_floc_key",
	"object_type",
	"voltage",
	"assignment_method",
	"assignment_status",
	"is_active_assignment",
	"image_count_total",
	"folder_count",
	"has_aerial_mdoc",
	"has_ground_mdoc",
	"has_any_mdoc",
	"floc_join_method",
	"approved_to_invoice",
	"block_reasons",
	"needs_review",
	"eligibility_run_date",
	"eligibility_run_id",
	"eligibility_source_system",
}

// LinesToTable renders eligibility lines with run lineage stamped on.
func LinesToTable(lines []Line, runDate, runID, sourceSystem string) *table.Table {
	t := table.New(LineColumns...)
	for _, l := range lines {
		t.Append(table.Row{
			"asset_class":               l.AssetClass,
			"program_bucket":            l.ProgramBucket,
			"program_acronym":           l.ProgramAcronym,
			"billing_bucket":            l.BillingBucket,
			"is_work_complete":          table.FormatBool(l.WorkComplete),
			"is_billable":               table.FormatBool(l.Billable),
			"vendor":                    l.Vendor,
			"scope_id":                  l.ScopeID,
			"floc":                      l.Floc,
			"scope_floc_key":            l.Key,
			"object_type":               l.ObjectType,
			"voltage":                   l.Voltage,
			"assignment_method":         l.Method,
			"assignment_status":         l.Status,
			"is_active_assignment":      table.FormatBool(l.Active),
			"image_count_total":         itoa(l.ImageCountTotal),
			"folder_count":              itoa(l.FolderCount),
			"has_aerial_mdoc":           table.FormatBool(l.HasAerialMdoc),
			"has_ground_mdoc":           table.FormatBool(l.HasGroundMdoc),
			"has_any_mdoc":              table.FormatBool(l.HasAnyMdoc),
			"floc_join_method":          l.FlocJoinMethod,
			"approved_to_invoice":       table.FormatBool(l.Approved),
			"block_reasons":             l.BlockReasons,
			"needs_review":              table.FormatBool(l.NeedsReview),
			"eligibility_run_date":      runDate,
			"eligibility_run_id":        runID,
			"eligibility_source_system": sourceSystem,
		})
	}
	return t
}
