package scopekey

import "testing"

func TestNormalizeCompliancePolicy(t *testing.T) {
	n := NewNormalizer(PolicyBlankIsCompliance)

	scope, floc, key, keep := n.Normalize("  S-100 ", " F001 ")
	if !keep {
		t.Fatal("expected row to be kept")
	}
	if scope != "S-100" || floc != "F001" || key != "S-100|F001" {
		t.Fatalf("unexpected normalization: %q %q %q", scope, floc, key)
	}

	scope, _, key, keep = n.Normalize("   ", "F001")
	if !keep {
		t.Fatal("blank scope must be kept under the compliance policy")
	}
	if scope != ComplianceScope || key != "COMP|F001" {
		t.Fatalf("expected compliance sentinel, got %q key=%q", scope, key)
	}
}

func TestNormalizePlaceholderPolicy(t *testing.T) {
	n := NewNormalizer(PolicyBlankIsPlaceholder)

	if _, _, _, keep := n.Normalize("", "F001"); keep {
		t.Fatal("blank scope must be dropped under the placeholder policy")
	}
	if _, _, key, keep := n.Normalize("S-2", "F002"); !keep || key != "S-2|F002" {
		t.Fatalf("expected S-2|F002 kept, got %q keep=%t", key, keep)
	}
}

func TestJoin(t *testing.T) {
	if got := Join("S-1", "F-9"); got != "S-1|F-9" {
		t.Fatalf("unexpected key %q", got)
	}
}
