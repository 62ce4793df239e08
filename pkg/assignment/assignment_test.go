package assignment

import (
	"testing"
	"time"

	"github.com/gridscope/gridscope/pkg/events"
	"github.com/gridscope/gridscope/pkg/table"
)

func asg(vendor, key, method string, baseActive bool) Assignment {
	return Assignment{
		Vendor:     vendor,
		Key:        key,
		AssetClass: AssetDistribution,
		Method:     method,
		BaseActive: baseActive,
	}
}

func TestChoosePreferredHeloWins(t *testing.T) {
	got := ChoosePreferred([]Assignment{
		asg("VendorA", "S1|F1", MethodDrone, true),
		asg("VendorA", "S1|F1", MethodHelo, true),
		asg("VendorA", "S1|F2", MethodDrone, true),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Key != "S1|F1" || got[0].Method != MethodHelo {
		t.Fatalf("helo must win for S1|F1, got %+v", got[0])
	}
	if got[1].Method != MethodDrone {
		t.Fatalf("drone-only key must keep drone, got %+v", got[1])
	}
}

func TestApplyEventsRemoval(t *testing.T) {
	got := ApplyEvents(
		[]Assignment{asg("VendorA", "S1|F1", MethodDrone, true)},
		[]events.Event{{Vendor: "VendorA", Key: "S1|F1", Type: events.TypeRemoval, EffectiveDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}},
	)
	if got[0].Active || got[0].Status != StatusRemoved {
		t.Fatalf("removal must deactivate: %+v", got[0])
	}
	if got[0].LatestEventType != events.TypeRemoval || got[0].LatestEventDate.IsZero() {
		t.Fatalf("event passthrough lost: %+v", got[0])
	}
}

func TestApplyEventsMoveToHelo(t *testing.T) {
	move := []events.Event{{Vendor: "VendorA", Key: "S1|F1", Type: events.TypeMoveToHelo}}

	drone := ApplyEvents([]Assignment{asg("VendorA", "S1|F1", MethodDrone, true)}, move)
	if drone[0].Active || drone[0].Status != StatusMovedToHelo {
		t.Fatalf("drone row must become MOVED_TO_HELO: %+v", drone[0])
	}

	helo := ApplyEvents([]Assignment{asg("VendorA", "S1|F1", MethodHelo, true)}, move)
	if !helo[0].Active || helo[0].Status != StatusActiveHelo {
		t.Fatalf("helo row must stay active: %+v", helo[0])
	}
}

func TestApplyEventsNoEvent(t *testing.T) {
	got := ApplyEvents([]Assignment{
		asg("VendorA", "S1|F1", MethodDrone, true),
		asg("VendorA", "S1|F2", MethodHelo, true),
		asg("VendorA", "S1|F3", MethodDrone, false),
	}, nil)
	if got[0].Status != StatusActiveDrone || got[1].Status != StatusActiveHelo || got[2].Status != StatusInactive {
		t.Fatalf("unexpected statuses: %q %q %q", got[0].Status, got[1].Status, got[2].Status)
	}
}

func TestApplyEventsVendorScoped(t *testing.T) {
	got := ApplyEvents(
		[]Assignment{asg("VendorB", "S1|F1", MethodDrone, true)},
		[]events.Event{{Vendor: "VendorA", Key: "S1|F1", Type: events.TypeRemoval}},
	)
	if !got[0].Active {
		t.Fatal("an event for another vendor must not apply")
	}
}

func TestApplyEventsRowCountPreserved(t *testing.T) {
	in := []Assignment{
		asg("VendorA", "S1|F1", MethodDrone, true),
		asg("VendorA", "S1|F2", MethodDrone, true),
	}
	if got := ApplyEvents(in, nil); len(got) != len(in) {
		t.Fatalf("row count changed: %d -> %d", len(in), len(got))
	}
}

func TestFromSilverLine(t *testing.T) {
	tab := table.New("vendor", "scope_id", "floc", "scope_floc_key", "is_active", "object_type")
	tab.Append(table.Row{"vendor": "VendorA", "scope_id": "S1", "floc": "F1", "scope_floc_key": "S1|F1", "is_active": "false", "object_type": "POLE"})

	drone, err := FromSilverLine(tab, MethodDrone, "VendorA", AssetDistribution, "scope_drone_distribution")
	if err != nil {
		t.Fatal(err)
	}
	if drone[0].BaseActive {
		t.Fatal("drone row must honor is_active")
	}
	if drone[0].ObjectType != "POLE" {
		t.Fatalf("object_type passthrough lost: %+v", drone[0])
	}

	helo, err := FromSilverLine(tab, MethodHelo, "VendorA", AssetDistribution, "scope_helo_distribution")
	if err != nil {
		t.Fatal(err)
	}
	if !helo[0].BaseActive {
		t.Fatal("helo rows are always base-active")
	}
}

func TestFromSilverLineBadAssetClass(t *testing.T) {
	if _, err := FromSilverLine(table.New(), MethodDrone, "VendorA", "transmission", "x"); err == nil {
		t.Fatal("lowercase asset class must be rejected, not coerced")
	}
}

func TestValidateAssetClass(t *testing.T) {
	if err := ValidateAssetClass(AssetDistribution); err != nil {
		t.Fatal(err)
	}
	if err := ValidateAssetClass("Dist"); err == nil {
		t.Fatal("expected error for unknown asset class")
	}
}
