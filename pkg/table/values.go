package table

import (
	"strconv"
	"strings"
	"time"
)

// nullTokens are strings that the vendor exports use to mean "no value".
var nullTokens = map[string]struct{}{
	"":     {},
	"null": {},
	"none": {},
	"nan":  {},
	"nat":  {},
	"na":   {},
	"n/a":  {},
}

// CleanString trims a raw cell and collapses the exports' null tokens to "".
func CleanString(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := nullTokens[strings.ToLower(s)]; ok {
		return ""
	}
	return s
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01-02-2006",
	"1/2/2006 3:04:05PM",
	"1/2/2006",
	"20060102",
}

// ParseDate parses the date formats seen across the vendor exports. A blank
// or unparseable value returns ok=false; callers treat that as null.
func ParseDate(s string) (time.Time, bool) {
	s = CleanString(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a date for dataset output; the zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// FormatDateTime keeps the time component where the source carried one.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// ParseInt coerces a cell to an int, treating null tokens and garbage as 0.
func ParseInt(s string) int {
	s = CleanString(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// ParseBool understands the TRUE/FALSE strings of the inspect-app export as
// well as Go-style booleans. Anything else is false: missing evidence must
// never read as "met".
func ParseBool(s string) bool {
	switch strings.ToUpper(CleanString(s)) {
	case "TRUE", "T", "1", "YES", "Y":
		return true
	}
	return false
}

// FormatBool renders booleans the way the gold tables expect them.
func FormatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
