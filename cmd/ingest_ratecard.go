package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/pricing"
	"github.com/gridscope/gridscope/pkg/table"
)

var ingestRateCardCmd = &cobra.Command{
	Use:   "ingest-ratecard",
	Short: "Ingest the contract rate card",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "ingest-ratecard", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return ingestRateCard(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestRateCardCmd)
	ingestRateCardCmd.Flags().String("input", "", "Path to the rate card CSV")
	ingestRateCardCmd.MarkFlagRequired("input")
}

func ingestRateCard(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	input, _ := cmd.Flags().GetString("input")
	raw, err := table.ReadCSV(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	if _, err := lakehouse.WriteDataset(raw, lay.Dir(lakehouse.ZoneBronze, dsRateCard, lakehouse.History, run.Partitions()...)); err != nil {
		return fmt.Errorf("write bronze: %w", err)
	}

	rules, err := pricing.NormalizeRateCard(raw)
	if err != nil {
		return err
	}
	out := pricing.RulesToTable(rules, run.RunDate, run.RunID, sourceSystem)
	if err := writeVersioned(lay, lakehouse.ZoneSilver, dsRateCard, nil, run, out); err != nil {
		return err
	}

	run.Metrics["rows_raw"] = raw.Len()
	run.Metrics["rules"] = len(rules)
	return nil
}
