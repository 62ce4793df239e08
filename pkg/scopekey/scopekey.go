// Package scopekey derives the stable business key for an inspection unit:
// the (scope id, location id) pair joined as "scope|floc".
//
// The two source domains disagree on what a blank scope id means. The drone
// distribution sheet uses blank for the compliance bucket, while the
// transmission sheet's blank package slots are placeholders to discard.
// That asymmetry is a fixed business rule, so it is an explicit policy the
// caller picks at construction, never inferred from a dataset name.
package scopekey

import "strings"

// ComplianceScope is the sentinel scope id standing in for "no scope
// assigned" under PolicyBlankIsCompliance.
const ComplianceScope = "COMP"

// Separator joins scope id and floc. Neither field may contain it; no
// escaping is implemented (accepted limitation, the source formats forbid
// pipes in both fields).
const Separator = "|"

// Policy selects the blank-scope-id behavior for a source domain.
type Policy int

const (
	// PolicyBlankIsCompliance maps a blank scope id to ComplianceScope.
	PolicyBlankIsCompliance Policy = iota
	// PolicyBlankIsPlaceholder drops rows whose scope id is blank.
	PolicyBlankIsPlaceholder
)

// Normalizer builds business keys under one fixed policy.
type Normalizer struct {
	policy Policy
}

func NewNormalizer(p Policy) Normalizer {
	return Normalizer{policy: p}
}

// Normalize trims both fields, applies the blank-scope policy and returns
// the normalized scope id, floc and joined key. keep is false only under
// PolicyBlankIsPlaceholder with a blank scope id; such rows must not enter
// any snapshot.
func (n Normalizer) Normalize(scopeID, floc string) (scope, f, key string, keep bool) {
	scope = strings.TrimSpace(scopeID)
	f = strings.TrimSpace(floc)
	if scope == "" {
		if n.policy == PolicyBlankIsPlaceholder {
			return "", f, "", false
		}
		scope = ComplianceScope
	}
	return scope, f, Join(scope, f), true
}

// Join concatenates an already-normalized scope id and floc.
func Join(scopeID, floc string) string {
	return scopeID + Separator + floc
}
