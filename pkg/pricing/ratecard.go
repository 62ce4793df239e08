// Package pricing normalizes the finance rate card and attaches unit
// prices to invoice-eligible rows. Prices are decimals end to end; float64
// never touches money.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridscope/gridscope/pkg/table"
)

// DefaultUOM is the unit of measure assumed when the rate card omits one.
const DefaultUOM = "FLOC"

// Rule is one normalized rate card row. Empty ObjectType or Voltage means
// "applies to any".
type Rule struct {
	Vendor         string
	BillingBucket  string
	ObjectType     string
	Voltage        string
	UOM            string
	UnitPrice      decimal.Decimal
	EffectiveStart time.Time
	EffectiveEnd   time.Time
	Priority       int
	RuleName       string
}

// rateCardMapping maps whatever finance calls a column to the canonical
// name, resolved once per intake.
var rateCardMapping = table.Mapping{
	"vendor":               {"contractor", "vendor_name"},
	"billing_bucket":       {"program", "program_acronym", "bucket"},
	"object_type":          {"eq_objtype", "eq_obj_type", "object"},
	"voltage":              {"kv", "voltage_kv"},
	"unit_price":           {"price", "rate", "unit rate", "unit_rate"},
	"uom":                  {"unit", "unit_of_measure"},
	"effective_start_date": {"start_date", "effective_start"},
	"effective_end_date":   {"end_date", "effective_end"},
	"priority":             {"rule_priority"},
	"rule_name":            {"rule", "rate_name", "pricing_rule"},
}

// NormalizeRateCard canonicalizes a raw rate card export. Rows missing
// vendor, billing bucket or a parseable price are dropped; a missing
// priority column defaults to a specificity-based priority (base 10, +10
// for a declared object type, +10 for a declared voltage).
func NormalizeRateCard(raw *table.Table) ([]Rule, error) {
	t := rateCardMapping.Canonicalize(raw)
	if err := t.Require("pricing_rate_card", "", "vendor", "billing_bucket", "unit_price"); err != nil {
		return nil, err
	}
	hasPriority := t.HasCol("priority")

	out := make([]Rule, 0, t.Len())
	for _, r := range t.Rows {
		rule := Rule{
			Vendor:        table.CleanString(r["vendor"]),
			BillingBucket: table.CleanString(r["billing_bucket"]),
			ObjectType:    table.CleanString(r["object_type"]),
			Voltage:       table.CleanString(r["voltage"]),
			UOM:           table.CleanString(r["uom"]),
			RuleName:      table.CleanString(r["rule_name"]),
		}
		price, err := decimal.NewFromString(table.CleanString(r["unit_price"]))
		if err != nil || rule.Vendor == "" || rule.BillingBucket == "" {
			continue
		}
		rule.UnitPrice = price
		if rule.UOM == "" {
			rule.UOM = DefaultUOM
		}
		if d, ok := table.ParseDate(r["effective_start_date"]); ok {
			rule.EffectiveStart = d
		}
		if d, ok := table.ParseDate(r["effective_end_date"]); ok {
			rule.EffectiveEnd = d
		}
		if hasPriority {
			rule.Priority = table.ParseInt(r["priority"])
		} else {
			rule.Priority = 10
			if rule.ObjectType != "" {
				rule.Priority += 10
			}
			if rule.Voltage != "" {
				rule.Priority += 10
			}
		}
		out = append(out, rule)
	}
	return out, nil
}

// RulesToTable renders normalized rules with run lineage.
func RulesToTable(rules []Rule, runDate, runID, sourceSystem string) *table.Table {
	t := table.New(
		"vendor",
		"billing_bucket",
		"object_type",
		"voltage",
		"uom",
		"unit_price",
		"effective_start_date",
		"effective_end_date",
		"priority",
		"rule_name",
		"rate_run_date",
		"rate_run_id",
		"rate_source_system",
	)
	for _, r := range rules {
		t.Append(table.Row{
			"vendor":               r.Vendor,
			"billing_bucket":       r.BillingBucket,
			"object_type":          r.ObjectType,
			"voltage":              r.Voltage,
			"uom":                  r.UOM,
			"unit_price":           r.UnitPrice.String(),
			"effective_start_date": table.FormatDate(r.EffectiveStart),
			"effective_end_date":   table.FormatDate(r.EffectiveEnd),
			"priority":             itoa(r.Priority),
			"rule_name":            r.RuleName,
			"rate_run_date":        runDate,
			"rate_run_id":          runID,
			"rate_source_system":   sourceSystem,
		})
	}
	return t
}

// RulesFromTable reads a persisted rate card back.
func RulesFromTable(t *table.Table) []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, 0, t.Len())
	for _, r := range t.Rows {
		price, err := decimal.NewFromString(table.CleanString(r["unit_price"]))
		if err != nil {
			continue
		}
		rule := Rule{
			Vendor:        table.CleanString(r["vendor"]),
			BillingBucket: table.CleanString(r["billing_bucket"]),
			ObjectType:    table.CleanString(r["object_type"]),
			Voltage:       table.CleanString(r["voltage"]),
			UOM:           table.CleanString(r["uom"]),
			UnitPrice:     price,
			Priority:      table.ParseInt(r["priority"]),
			RuleName:      table.CleanString(r["rule_name"]),
		}
		if d, ok := table.ParseDate(r["effective_start_date"]); ok {
			rule.EffectiveStart = d
		}
		if d, ok := table.ParseDate(r["effective_end_date"]); ok {
			rule.EffectiveEnd = d
		}
		out = append(out, rule)
	}
	return out
}
