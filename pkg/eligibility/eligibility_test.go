package eligibility

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridscope/gridscope/pkg/assignment"
)

const minImages = 8

func activeDrone(vendor, scope, floc string) assignment.Assignment {
	return assignment.Assignment{
		Vendor:     vendor,
		ScopeID:    scope,
		Floc:       floc,
		Key:        scope + "|" + floc,
		AssetClass: assignment.AssetDistribution,
		Method:     assignment.MethodDrone,
		Status:     assignment.StatusActiveDrone,
		Active:     true,
	}
}

func delivery(vendor, scope, floc string, images int) DeliveryAgg {
	return DeliveryAgg{
		Vendor:          vendor,
		ScopeID:         scope,
		Floc:            floc,
		Key:             scope + "|" + floc,
		ImageCountTotal: images,
		HasDelivery:     images > 0,
		HasMinImages:    images >= minImages,
	}
}

func evidence(floc string, aerial, ground bool) FlocEvidence {
	return FlocEvidence{
		Floc:          floc,
		HasAerialMdoc: aerial,
		HasGroundMdoc: ground,
		HasAnyMdoc:    aerial || ground,
	}
}

func TestDistributionApprovedDrone(t *testing.T) {
	lines := EvaluateDistribution(
		[]assignment.Assignment{activeDrone("VendorA", "S1", "F1")},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 12)},
		[]FlocEvidence{evidence("F1", true, true)},
		minImages,
	)
	require.Len(t, lines, 1)
	l := lines[0]
	require.Equal(t, BucketDistDrone, l.ProgramBucket)
	require.Equal(t, "D360", l.ProgramAcronym)
	require.True(t, l.WorkComplete)
	require.True(t, l.Billable)
	require.True(t, l.Approved)
	require.Empty(t, l.BlockReasons)
	require.False(t, l.NeedsReview)
	require.Equal(t, FlocJoinOnly, l.FlocJoinMethod)
}

func TestDistributionBlockReasonsItemized(t *testing.T) {
	lines := EvaluateDistribution(
		[]assignment.Assignment{activeDrone("VendorA", "S1", "F1")},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 3)},
		nil,
		minImages,
	)
	l := lines[0]
	require.False(t, l.Approved)
	got := strings.Split(l.BlockReasons, ";")
	require.Equal(t, []string{BlockMissingMinImages, BlockMissingAerialMdoc, BlockMissingGroundMdoc}, got)
}

func TestDistributionCompOverride(t *testing.T) {
	a := activeDrone("VendorA", "COMP", "F1")
	lines := EvaluateDistribution(
		[]assignment.Assignment{a},
		nil,
		[]FlocEvidence{evidence("F1", false, true)},
		minImages,
	)
	l := lines[0]
	require.Equal(t, BucketDistComp, l.ProgramBucket)
	require.Equal(t, "ODI", l.ProgramAcronym)
	// Compliance needs ground docs only; no images were delivered and that
	// is fine.
	require.True(t, l.WorkComplete)
	require.True(t, l.Approved)
}

func TestDistributionHeloNeedsImagesOnly(t *testing.T) {
	a := activeDrone("VendorA", "S1", "F1")
	a.Method = assignment.MethodHelo
	a.Status = assignment.StatusActiveHelo
	lines := EvaluateDistribution(
		[]assignment.Assignment{a},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 20)},
		nil,
		minImages,
	)
	l := lines[0]
	require.Equal(t, BucketDistHelo, l.ProgramBucket)
	require.True(t, l.Approved)
}

func TestDistributionEZPoleNeverBillable(t *testing.T) {
	a := activeDrone("VendorA", "S1", "F1")
	a.ObjectType = ObjectTypeEZPole
	lines := EvaluateDistribution(
		[]assignment.Assignment{a},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 50)},
		[]FlocEvidence{evidence("F1", true, true)},
		minImages,
	)
	l := lines[0]
	require.True(t, l.WorkComplete, "evidence is complete, only billability is blocked")
	require.False(t, l.Billable)
	require.False(t, l.Approved)
	require.Equal(t, BillingNonBillable, l.BillingBucket)
	require.Contains(t, l.BlockReasons, BlockEZPoleNotBillable)
}

func TestDistributionInactiveBlocked(t *testing.T) {
	a := activeDrone("VendorA", "S1", "F1")
	a.Active = false
	a.Status = assignment.StatusRemoved
	lines := EvaluateDistribution(
		[]assignment.Assignment{a},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 50)},
		[]FlocEvidence{evidence("F1", true, true)},
		minImages,
	)
	l := lines[0]
	require.False(t, l.Approved)
	require.Contains(t, l.BlockReasons, BlockInactiveAssignment)
	// Bucket falls through to OTHER for a removed unit.
	require.Equal(t, BucketDistOther, l.ProgramBucket)
}

func TestDistributionMissingEvidenceIsFalse(t *testing.T) {
	lines := EvaluateDistribution(
		[]assignment.Assignment{activeDrone("VendorA", "S1", "F1")},
		nil,
		nil,
		minImages,
	)
	l := lines[0]
	require.False(t, l.WorkComplete)
	require.Zero(t, l.ImageCountTotal)
	require.False(t, l.HasAnyMdoc)
}

func TestTransmission(t *testing.T) {
	a := activeDrone("VendorA", "S1", "F1")
	a.AssetClass = assignment.AssetTransmission
	b := activeDrone("VendorA", "S1", "F2")
	b.AssetClass = assignment.AssetTransmission

	lines := EvaluateTransmission(
		[]assignment.Assignment{a, b},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 9)},
		minImages,
	)
	require.Len(t, lines, 2)
	require.Equal(t, "ATI", lines[0].ProgramAcronym)
	require.True(t, lines[0].Approved)
	require.False(t, lines[1].Approved)
	require.Equal(t, BlockMissingMinImages, lines[1].BlockReasons)
}

func TestApprovedMonotonicInEvidence(t *testing.T) {
	// Adding evidence may only flip lines toward approval, never away.
	a := activeDrone("VendorA", "S1", "F1")
	withLess := EvaluateDistribution([]assignment.Assignment{a},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 8)}, []FlocEvidence{evidence("F1", true, false)}, minImages)
	withMore := EvaluateDistribution([]assignment.Assignment{a},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 8)}, []FlocEvidence{evidence("F1", true, true)}, minImages)
	if withLess[0].Approved && !withMore[0].Approved {
		t.Fatal("more evidence must not revoke approval")
	}
}

func TestAggregateDeliveries(t *testing.T) {
	aggs := AggregateDeliveries([]DeliveryRecord{
		{Vendor: "VendorA", Key: "S1|F1", Floc: "F1", Folder: "f1", ImageCount: 5},
		{Vendor: "VendorA", Key: "S1|F1", Floc: "F1", Folder: "f2", ImageCount: 4},
		{Vendor: "VendorA", Key: "S1|F2", Floc: "F2", Folder: "f3", ImageCount: 0},
	}, minImages)
	require.Len(t, aggs, 2)
	require.Equal(t, 9, aggs[0].ImageCountTotal)
	require.Equal(t, 2, aggs[0].FolderCount)
	require.True(t, aggs[0].HasMinImages)
	require.False(t, aggs[1].HasDelivery)
}

func TestUnmatchedDeliveries(t *testing.T) {
	aggs := []DeliveryAgg{
		delivery("VendorA", "S1", "F1", 10),
		delivery("VendorA", "S9", "F9", 10),
	}
	orphans := UnmatchedDeliveries(aggs, []assignment.Assignment{activeDrone("VendorA", "S1", "F1")})
	require.Len(t, orphans, 1)
	require.Equal(t, "S9|F9", orphans[0].Key)
}

func TestUnmatchedFlocEvidence(t *testing.T) {
	docs := []FlocEvidence{evidence("F1", true, true), evidence("F9", false, true)}
	orphans := UnmatchedFlocEvidence(docs, []assignment.Assignment{activeDrone("VendorA", "S1", "F1")})
	require.Len(t, orphans, 1)
	require.Equal(t, "F9", orphans[0].Floc)
}

func TestSummarize(t *testing.T) {
	approved := EvaluateDistribution(
		[]assignment.Assignment{activeDrone("VendorA", "S1", "F1")},
		[]DeliveryAgg{delivery("VendorA", "S1", "F1", 12)},
		[]FlocEvidence{evidence("F1", true, true)},
		minImages,
	)
	blocked := EvaluateDistribution(
		[]assignment.Assignment{activeDrone("VendorA", "S1", "F2")},
		nil, nil, minImages,
	)
	summaries := Summarize(append(approved, blocked...))
	require.Len(t, summaries, 1)
	s := summaries[0]
	require.Equal(t, 2, s.FlocCount)
	require.Equal(t, 1, s.ApprovedCount)
	require.Equal(t, 1, s.BlockedCount)
	require.InDelta(t, 0.5, s.ApprovedRate, 1e-9)
}
