package events

import (
	"math/rand"
	"testing"
	"time"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func ev(vendor, key, typ, effective, runDate, runID string) Event {
	e := Event{Vendor: vendor, Key: key, Type: typ, RunDate: runDate, RunID: runID}
	if effective != "" {
		e.EffectiveDate = day(effective)
	}
	return e
}

func TestCollapseLatestEffectiveDateWins(t *testing.T) {
	got := Collapse([]Event{
		ev("VendorA", "S1|F1", TypeRemoval, "2024-05-01", "2024-05-02", "r1"),
		ev("VendorA", "S1|F1", TypeMoveToHelo, "2024-04-01", "2024-05-02", "r1"),
	})
	if len(got) != 1 || got[0].Type != TypeRemoval {
		t.Fatalf("expected the later removal to win, got %+v", got)
	}
}

func TestCollapseTypePriorityBreaksDateTie(t *testing.T) {
	got := Collapse([]Event{
		ev("VendorA", "S1|F1", TypeRemoval, "2024-05-01", "2024-05-02", "r1"),
		ev("VendorA", "S1|F1", TypeMoveToHelo, "2024-05-01", "2024-05-02", "r1"),
	})
	if got[0].Type != TypeMoveToHelo {
		t.Fatalf("move_to_helo must beat removal on a full tie, got %q", got[0].Type)
	}
}

func TestCollapseRunDateBeforeTypePriority(t *testing.T) {
	got := Collapse([]Event{
		ev("VendorA", "S1|F1", TypeMoveToHelo, "2024-05-01", "2024-05-02", "r1"),
		ev("VendorA", "S1|F1", TypeRemoval, "2024-05-01", "2024-05-09", "r1"),
	})
	if got[0].Type != TypeRemoval {
		t.Fatalf("newer run date must win before type priority, got %q", got[0].Type)
	}
}

func TestCollapseNullDatesLast(t *testing.T) {
	got := Collapse([]Event{
		ev("VendorA", "S1|F1", TypeMoveToHelo, "", "2024-05-02", "r2"),
		ev("VendorA", "S1|F1", TypeRemoval, "2020-01-01", "2024-05-02", "r1"),
	})
	if got[0].Type != TypeRemoval {
		t.Fatalf("an event with a date must beat one without, got %q", got[0].Type)
	}
}

func TestCollapseRunIDTieBreakDeterministic(t *testing.T) {
	a := ev("VendorA", "S1|F1", TypeRemoval, "2024-05-01", "2024-05-02", "r1")
	b := ev("VendorA", "S1|F1", TypeRemoval, "2024-05-01", "2024-05-02", "r2")
	first := Collapse([]Event{a, b})
	second := Collapse([]Event{b, a})
	if first[0].RunID != "r2" || second[0].RunID != "r2" {
		t.Fatalf("run id tie-break must be input-order independent: %q vs %q", first[0].RunID, second[0].RunID)
	}
}

func TestCollapseOnePerVendorKey(t *testing.T) {
	got := Collapse([]Event{
		ev("VendorA", "S1|F1", TypeRemoval, "2024-05-01", "2024-05-02", "r1"),
		ev("VendorB", "S1|F1", TypeMoveToHelo, "2024-05-01", "2024-05-02", "r1"),
		ev("VendorA", "S1|F2", TypeRemoval, "2024-05-01", "2024-05-02", "r1"),
	})
	if len(got) != 3 {
		t.Fatalf("expected 3 collapsed events, got %d", len(got))
	}
	// Output sorted by (vendor, key).
	if got[0].Key != "S1|F1" || got[0].Vendor != "VendorA" || got[2].Vendor != "VendorB" {
		t.Fatalf("unexpected output order: %+v", got)
	}
}

func TestTableRoundTripDropsUnknownColumns(t *testing.T) {
	in := []Event{ev("VendorA", "S1|F1", TypeRemoval, "2024-05-01", "2024-05-02", "r1")}
	tab := ToTable(in)
	tab.AddCol("stray")
	tab.Rows[0]["stray"] = "x"

	got := FromTable(tab)
	if len(got) != 1 || got[0].Key != "S1|F1" || !got[0].EffectiveDate.Equal(day("2024-05-01")) {
		t.Fatalf("round trip lost data: %+v", got)
	}
}

// rankAbove is an independent restatement of the collapse order used to
// cross-check Collapse on randomized logs: a ranks above b when its
// (effective date, run date, type priority, run id) tuple is larger,
// with missing values losing every comparison.
func rankAbove(a, b Event) bool {
	if !a.EffectiveDate.Equal(b.EffectiveDate) {
		if a.EffectiveDate.IsZero() {
			return false
		}
		if b.EffectiveDate.IsZero() {
			return true
		}
		return a.EffectiveDate.After(b.EffectiveDate)
	}
	if a.RunDate != b.RunDate {
		if a.RunDate == "" {
			return false
		}
		if b.RunDate == "" {
			return true
		}
		return a.RunDate > b.RunDate
	}
	if pa, pb := typePriority(a.Type), typePriority(b.Type); pa != pb {
		return pa > pb
	}
	if a.RunID != b.RunID {
		if a.RunID == "" {
			return false
		}
		if b.RunID == "" {
			return true
		}
		return a.RunID > b.RunID
	}
	return false
}

func TestCollapseRandomizedLogsPickMaximum(t *testing.T) {
	vendorsPool := []string{"VendorA", "VendorB"}
	keys := []string{"S1|F1", "S1|F2", "S2|F1"}
	effectives := []string{"", "2024-05-01", "2024-05-02"}
	runDates := []string{"", "2024-05-02", "2024-05-03"}
	types := []string{TypeRemoval, TypeMoveToHelo, "audit"}
	runIDs := []string{"", "r1", "r2"}

	rng := rand.New(rand.NewSource(20240617))
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(16)
		log := make([]Event, n)
		for i := range log {
			log[i] = ev(
				vendorsPool[rng.Intn(len(vendorsPool))],
				keys[rng.Intn(len(keys))],
				types[rng.Intn(len(types))],
				effectives[rng.Intn(len(effectives))],
				runDates[rng.Intn(len(runDates))],
				runIDs[rng.Intn(len(runIDs))],
			)
		}

		got := Collapse(log)

		type vk struct{ vendor, key string }
		want := make(map[vk]Event)
		for _, e := range log {
			id := vk{e.Vendor, e.Key}
			best, ok := want[id]
			if !ok || rankAbove(e, best) {
				want[id] = e
			}
		}

		if len(got) != len(want) {
			t.Fatalf("trial %d: %d collapsed events for %d groups", trial, len(got), len(want))
		}
		seen := make(map[vk]bool)
		for i, e := range got {
			id := vk{e.Vendor, e.Key}
			if seen[id] {
				t.Fatalf("trial %d: duplicate group %v", trial, id)
			}
			seen[id] = true
			if i > 0 {
				prev := got[i-1]
				if prev.Vendor > e.Vendor || (prev.Vendor == e.Vendor && prev.Key > e.Key) {
					t.Fatalf("trial %d: output not sorted at %d", trial, i)
				}
			}
			// The winner must tie the maximum on every ordering field;
			// beyond the full tuple the pick is arbitrary but stable.
			best := want[id]
			if rankAbove(best, e) || rankAbove(e, best) {
				t.Fatalf("trial %d group %v: got %+v, maximum is %+v", trial, id, e, best)
			}
		}

		// Input order must not matter.
		shuffled := append([]Event(nil), log...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again := Collapse(shuffled)
		for i := range got {
			if got[i] != again[i] {
				t.Fatalf("trial %d: collapse depends on input order at %d: %+v vs %+v", trial, i, got[i], again[i])
			}
		}
	}
}
