package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/pricing"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Attach rate card unit prices to the current eligibility lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "price", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return buildBillingLines(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().String("asset", "distribution", "Asset class: distribution or transmission")
}

func buildBillingLines(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	assetClass, err := assetClassFlag(cmd)
	if err != nil {
		return err
	}
	slug := assetSlug(assetClass)

	lines, err := lay.ReadCurrent(lakehouse.ZoneGold, dsEligibility+"_"+slug, "")
	if err != nil {
		return fmt.Errorf("read eligibility (run the eligibility pipeline first): %w", err)
	}
	rateCard, err := lay.ReadCurrent(lakehouse.ZoneSilver, dsRateCard, "")
	if err != nil {
		return fmt.Errorf("read rate card (run ingest-ratecard first): %w", err)
	}
	rules := pricing.RulesFromTable(rateCard)
	if len(rules) == 0 {
		return fmt.Errorf("rate card is empty")
	}

	pricing.AttachToTable(lines, rules)
	if err := writeVersioned(lay, lakehouse.ZoneGold, dsBillingLines+"_"+slug, nil, run, lines); err != nil {
		return err
	}

	matchCounts := map[string]int{}
	for _, r := range lines.Rows {
		matchCounts[r["pricing_match_status"]]++
	}
	run.Metrics["lines"] = lines.Len()
	run.Metrics["rules"] = len(rules)
	for status, n := range matchCounts {
		run.Metrics["pricing_"+status] = n
	}
	return nil
}
