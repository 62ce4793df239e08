package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gridscope/gridscope/pkg/table"
)

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rule(vendor, bucket, objectType, voltage, unitPrice, name string) Rule {
	return Rule{
		Vendor:        vendor,
		BillingBucket: bucket,
		ObjectType:    objectType,
		Voltage:       voltage,
		UnitPrice:     price(unitPrice),
		RuleName:      name,
	}
}

func TestNormalizeRateCardAliases(t *testing.T) {
	raw := table.New("Contractor", "Program", "Rate", "eq_objtype")
	raw.Append(table.Row{"Contractor": "VendorA", "Program": "D360", "Rate": "185.50", "eq_objtype": "POLE"})
	raw.Append(table.Row{"Contractor": "VendorA", "Program": "", "Rate": "1.00"})
	raw.Append(table.Row{"Contractor": "VendorA", "Program": "ODI", "Rate": "not a price"})

	rules, err := NormalizeRateCard(raw)
	require.NoError(t, err)
	require.Len(t, rules, 1, "rows missing bucket or price are dropped")
	r := rules[0]
	require.Equal(t, "VendorA", r.Vendor)
	require.Equal(t, "D360", r.BillingBucket)
	require.True(t, r.UnitPrice.Equal(price("185.50")))
	require.Equal(t, DefaultUOM, r.UOM)
	require.Equal(t, 20, r.Priority, "specificity default: base 10 + object type")
}

func TestNormalizeRateCardMissingColumns(t *testing.T) {
	raw := table.New("vendor")
	_, err := NormalizeRateCard(raw)
	require.Error(t, err)
}

func TestAttachSingleMatch(t *testing.T) {
	rules := []Rule{rule("VendorA", "D360", "", "", "100", "base")}
	got := AttachUnitPrice(rules, "VendorA", "D360", "POLE", "")
	require.Equal(t, StatusMatched, got.MatchStatus)
	require.True(t, got.HasPrice)
	require.True(t, got.UnitPrice.Equal(price("100")))
}

func TestAttachNoMatch(t *testing.T) {
	rules := []Rule{rule("VendorA", "D360", "", "", "100", "base")}
	got := AttachUnitPrice(rules, "VendorB", "D360", "POLE", "")
	require.Equal(t, StatusNoMatch, got.MatchStatus)
	require.False(t, got.HasPrice)
	require.Zero(t, got.MatchCount)
}

func TestAttachSpecificityWins(t *testing.T) {
	rules := []Rule{
		rule("VendorA", "ATI", "", "", "100", "generic"),
		rule("VendorA", "ATI", "ET_TOWER", "230", "250", "tower-230kv"),
	}
	got := AttachUnitPrice(rules, "VendorA", "ATI", "ET_TOWER", "230")
	require.Equal(t, StatusMultiMatch, got.MatchStatus)
	require.Equal(t, 2, got.MatchCount)
	require.Equal(t, "tower-230kv", got.RuleName)
	require.True(t, got.UnitPrice.Equal(price("250")))
}

func TestAttachVoltageIgnoredForNonTower(t *testing.T) {
	rules := []Rule{rule("VendorA", "D360", "POLE", "230", "100", "pole")}
	// The rule declares a voltage but the object type is not a tower, so
	// the voltage must neither match nor block.
	got := AttachUnitPrice(rules, "VendorA", "D360", "POLE", "999")
	require.Equal(t, StatusMatched, got.MatchStatus)
}

func TestAttachVoltageFiltersTowers(t *testing.T) {
	rules := []Rule{rule("VendorA", "ATI", "ET_TOWER", "230", "250", "tower-230kv")}
	got := AttachUnitPrice(rules, "VendorA", "ATI", "ET_TOWER", "500")
	require.Equal(t, StatusNoMatch, got.MatchStatus)
}

func TestAttachRuleNameBreaksTies(t *testing.T) {
	rules := []Rule{
		rule("VendorA", "D360", "", "", "100", "beta"),
		rule("VendorA", "D360", "", "", "200", "alpha"),
	}
	got := AttachUnitPrice(rules, "VendorA", "D360", "", "")
	require.Equal(t, "alpha", got.RuleName)
}

func TestAttachToTable(t *testing.T) {
	rules := []Rule{rule("VendorA", "D360", "", "", "185.50", "base")}
	tab := table.New("vendor", "billing_bucket", "object_type", "voltage")
	tab.Append(table.Row{"vendor": "VendorA", "billing_bucket": "D360"})
	tab.Append(table.Row{"vendor": "VendorA", "billing_bucket": "UNKNOWN"})

	AttachToTable(tab, rules)
	require.Equal(t, "185.5", tab.Rows[0]["unit_price"])
	require.Equal(t, StatusMatched, tab.Rows[0]["pricing_match_status"])
	require.Equal(t, "", tab.Rows[1]["unit_price"])
	require.Equal(t, StatusNoMatch, tab.Rows[1]["pricing_match_status"])
}

func TestRateCardTableRoundTrip(t *testing.T) {
	in := []Rule{rule("VendorA", "ATI", "ET_TOWER", "230", "250.00", "tower-230kv")}
	out := RulesFromTable(RulesToTable(in, "2024-05-01", "r1", "gridscope"))
	require.Len(t, out, 1)
	require.Equal(t, in[0].RuleName, out[0].RuleName)
	require.True(t, in[0].UnitPrice.Equal(out[0].UnitPrice))
}
