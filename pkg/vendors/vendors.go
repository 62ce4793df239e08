// Package vendors holds the fixed set of inspection vendors the lakehouse
// tracks. Vendor names end up in partition paths, so typos here would
// pollute CURRENT locations for good; every intake validates against this
// set first.
package vendors

import (
	"fmt"
	"sort"
	"strings"
)

var valid = map[string]struct{}{
	"VendorA": {},
	"VendorB": {},
	"VendorC": {},
	"VendorD": {},
}

// UnknownVendorError reports a vendor name outside the recognized set.
type UnknownVendorError struct {
	Vendor string
}

func (e *UnknownVendorError) Error() string {
	return fmt.Sprintf("unknown vendor %q (valid: %s)", e.Vendor, strings.Join(All(), ", "))
}

// All returns the valid vendor names, sorted.
func All() []string {
	out := make([]string, 0, len(valid))
	for v := range valid {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Normalize trims the raw value and validates it.
func Normalize(v string) (string, error) {
	v = strings.TrimSpace(v)
	if _, ok := valid[v]; !ok {
		return "", &UnknownVendorError{Vendor: v}
	}
	return v, nil
}

// IsValid reports whether v (trimmed) is a recognized vendor.
func IsValid(v string) bool {
	_, ok := valid[strings.TrimSpace(v)]
	return ok
}
