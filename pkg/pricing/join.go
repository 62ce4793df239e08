package pricing

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/gridscope/gridscope/pkg/table"
)

// ObjectTypeTower is the only object type whose pricing is voltage-aware.
const ObjectTypeTower = "ET_TOWER"

// Match statuses.
const (
	StatusMatched    = "MATCHED"
	StatusNoMatch    = "NO_MATCH"
	StatusMultiMatch = "MULTI_MATCH"
)

// Priced is the result of attaching a unit price to one accrual row.
type Priced struct {
	UnitPrice   decimal.Decimal
	HasPrice    bool
	MatchCount  int
	MatchStatus string
	RuleName    string
}

// AttachUnitPrice resolves the unit price for an accrual row described by
// (vendor, billing bucket, object type, voltage).
//
// Candidate rules share the vendor and billing bucket; a candidate matches
// when its object type is empty or equal, and its voltage is empty or
// equal. Voltage is tower-only pricing: for non-tower rows both sides of
// the voltage comparison are nulled out, so voltage-specific rules neither
// match nor block. Among matches the most specific rule wins (declared
// object type and voltage each count), then highest priority, then rule
// name for determinism.
func AttachUnitPrice(rules []Rule, vendor, billingBucket, objectType, voltage string) Priced {
	rowVoltage := voltage
	if objectType != ObjectTypeTower {
		rowVoltage = ""
	}

	var matches []Rule
	for _, r := range rules {
		if r.Vendor != vendor || r.BillingBucket != billingBucket {
			continue
		}
		ruleVoltage := r.Voltage
		if r.ObjectType != ObjectTypeTower {
			ruleVoltage = ""
		}
		if r.ObjectType != "" && r.ObjectType != objectType {
			continue
		}
		if ruleVoltage != "" && ruleVoltage != rowVoltage {
			continue
		}
		matches = append(matches, r)
	}

	out := Priced{MatchCount: len(matches)}
	switch len(matches) {
	case 0:
		out.MatchStatus = StatusNoMatch
		return out
	case 1:
		out.MatchStatus = StatusMatched
	default:
		out.MatchStatus = StatusMultiMatch
	}

	sort.SliceStable(matches, func(i, j int) bool {
		si, sj := specificity(matches[i]), specificity(matches[j])
		if si != sj {
			return si > sj
		}
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority > matches[j].Priority
		}
		return matches[i].RuleName < matches[j].RuleName
	})
	best := matches[0]
	out.UnitPrice = best.UnitPrice
	out.HasPrice = true
	out.RuleName = best.RuleName
	return out
}

func specificity(r Rule) int {
	s := 0
	if r.ObjectType != "" {
		s++
	}
	if r.Voltage != "" {
		s++
	}
	return s
}

// AttachToTable prices every row of an accrual table in place, adding
// unit_price, pricing_match_count, pricing_match_status and
// pricing_rule_name columns. Rows without a match keep a null price.
func AttachToTable(t *table.Table, rules []Rule) {
	t.AddCol("unit_price")
	t.AddCol("pricing_match_count")
	t.AddCol("pricing_match_status")
	t.AddCol("pricing_rule_name")
	for _, r := range t.Rows {
		priced := AttachUnitPrice(
			rules,
			table.CleanString(r["vendor"]),
			table.CleanString(r["billing_bucket"]),
			table.CleanString(r["object_type"]),
			table.CleanString(r["voltage"]),
		)
		if priced.HasPrice {
			r["unit_price"] = priced.UnitPrice.String()
		} else {
			r["unit_price"] = ""
		}
		r["pricing_match_count"] = strconv.Itoa(priced.MatchCount)
		r["pricing_match_status"] = priced.MatchStatus
		r["pricing_rule_name"] = priced.RuleName
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
