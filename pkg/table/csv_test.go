package table

import (
	"strings"
	"testing"
)

func TestReadCSVFromRaggedRows(t *testing.T) {
	in := "a,b,c\n1,2,3\n4,5\n"
	got, err := ReadCSVFrom(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Len())
	}
	if got.Rows[1]["b"] != "5" || got.Rows[1]["c"] != "" {
		t.Fatalf("short row not padded with nulls: %v", got.Rows[1])
	}
}

func TestWriteCSVTo(t *testing.T) {
	tab := New("a", "b")
	tab.Append(Row{"a": "1", "b": "2"})
	var sb strings.Builder
	if err := WriteCSVTo(tab, &sb); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "a,b\n1,2\n" {
		t.Fatalf("got %q", sb.String())
	}
}

func TestReadCSVFromEmpty(t *testing.T) {
	got, err := ReadCSVFrom(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected empty table, got %d rows", got.Len())
	}
}
