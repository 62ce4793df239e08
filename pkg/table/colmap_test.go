package table

import "testing"

func TestMappingResolve(t *testing.T) {
	m := Mapping{
		"floc":     {"FLOC", "Functional Location"},
		"scope_id": {"SCOPE_ID"},
	}
	resolved := m.Resolve([]string{" functional location ", "Scope_Id", "Extra"})

	if hit, ok := resolved.Col("floc"); !ok || hit != "functional location" {
		t.Fatalf("floc resolved to %q ok=%t", hit, ok)
	}
	if hit, ok := resolved.Col("scope_id"); !ok || hit != "Scope_Id" {
		t.Fatalf("scope_id resolved to %q ok=%t", hit, ok)
	}
	if missing := resolved.Missing("floc", "scope_id", "voltage"); len(missing) != 1 || missing[0] != "voltage" {
		t.Fatalf("unexpected missing %v", missing)
	}
}

func TestCanonicalize(t *testing.T) {
	m := Mapping{"floc": {"Functional Location"}}
	raw := New("Functional Location", "Extra")
	raw.Append(Row{"Functional Location": "F1", "Extra": "x"})

	got := m.Canonicalize(raw)
	if !got.HasCol("floc") || got.HasCol("Functional Location") {
		t.Fatalf("columns not canonicalized: %v", got.Cols)
	}
	if got.Rows[0]["floc"] != "F1" || got.Rows[0]["Extra"] != "x" {
		t.Fatalf("row values lost: %v", got.Rows[0])
	}
}

func TestRequire(t *testing.T) {
	tab := New("floc")
	err := tab.Require("scope", "VendorA", "floc", "scope_id", "voltage")
	se, ok := err.(*SchemaError)
	if !ok {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(se.Missing) != 2 {
		t.Fatalf("expected both missing columns reported, got %v", se.Missing)
	}
}
