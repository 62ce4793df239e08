package table

import (
	"testing"
	"time"
)

func TestCleanString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello ", "hello"},
		{"NULL", ""},
		{"NaN", ""},
		{"NaT", ""},
		{"n/a", ""},
		{"None", ""},
		{"0", "0"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := CleanString(tc.in); got != tc.want {
			t.Fatalf("CleanString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-05", "03-05-2024", "3/5/2024", "20240305"} {
		got, ok := ParseDate(in)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", in)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDateGarbage(t *testing.T) {
	for _, in := range []string{"", "NaT", "not a date", "N"} {
		if _, ok := ParseDate(in); ok {
			t.Fatalf("ParseDate(%q) unexpectedly succeeded", in)
		}
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"TRUE", "true", " T ", "1", "Yes", "y"} {
		if !ParseBool(in) {
			t.Fatalf("ParseBool(%q) = false", in)
		}
	}
	for _, in := range []string{"", "FALSE", "0", "garbage", "NULL"} {
		if ParseBool(in) {
			t.Fatalf("ParseBool(%q) = true", in)
		}
	}
}

func TestParseInt(t *testing.T) {
	if got := ParseInt(" 12 "); got != 12 {
		t.Fatalf("got %d", got)
	}
	if got := ParseInt("12.0"); got != 12 {
		t.Fatalf("float coercion got %d", got)
	}
	if got := ParseInt("NaN"); got != 0 {
		t.Fatalf("null token got %d", got)
	}
}
