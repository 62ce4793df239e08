package intake

import (
	"testing"

	"github.com/gridscope/gridscope/pkg/events"
	"github.com/gridscope/gridscope/pkg/table"
)

func TestNormalizeEvents(t *testing.T) {
	raw := table.New("FLOC", "SCOPE_ID", "EVENT_TYPE", "EFFECTIVE_DATE")
	raw.Append(table.Row{"FLOC": "F1", "SCOPE_ID": "S1", "EVENT_TYPE": "Removed", "EFFECTIVE_DATE": "2024-05-01"})
	raw.Append(table.Row{"FLOC": "F2", "SCOPE_ID": "", "EVENT_TYPE": "Moved to Helo", "EFFECTIVE_DATE": ""})

	got, err := NormalizeEvents(raw, "VendorA", "events.csv", "sheet1", "2024-05-02", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != events.TypeRemoval || got[0].Key != "S1|F1" || got[0].EffectiveDate.IsZero() {
		t.Fatalf("event 0: %+v", got[0])
	}
	if got[1].Type != events.TypeMoveToHelo || got[1].Key != "COMP|F2" || !got[1].EffectiveDate.IsZero() {
		t.Fatalf("event 1: %+v", got[1])
	}
	if got[0].RunDate != "2024-05-02" || got[0].SourceSheet != "sheet1" {
		t.Fatalf("lineage lost: %+v", got[0])
	}
}

func TestNormalizeEventsRejectsUnknownType(t *testing.T) {
	raw := table.New("FLOC", "EVENT_TYPE")
	raw.Append(table.Row{"FLOC": "F1", "EVENT_TYPE": "retired"})
	if _, err := NormalizeEvents(raw, "VendorA", "f", "s", "2024-05-02", "r1"); err == nil {
		t.Fatal("unknown event types must fail the intake")
	}
}
