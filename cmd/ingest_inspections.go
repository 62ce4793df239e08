package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/intake"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
)

var ingestInspectionsCmd = &cobra.Command{
	Use:   "ingest-inspections",
	Short: "Ingest the inspect-app document export and roll it up per floc",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "ingest-inspections", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return ingestInspections(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestInspectionsCmd)
	ingestInspectionsCmd.Flags().String("input", "", "Path to the inspect-app export CSV")
	ingestInspectionsCmd.MarkFlagRequired("input")
}

func ingestInspections(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	input, _ := cmd.Flags().GetString("input")
	raw, err := table.ReadCSV(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	// The export carries no vendor field, so this dataset has no vendor
	// partition; it joins downstream on floc alone.
	if _, err := lakehouse.WriteDataset(raw, lay.Dir(lakehouse.ZoneBronze, dsInspections, lakehouse.History, run.Partitions()...)); err != nil {
		return fmt.Errorf("write bronze: %w", err)
	}

	rollup, err := intake.RollupInspections(raw)
	if err != nil {
		return err
	}
	if err := writeVersioned(lay, lakehouse.ZoneSilver, dsInspections, nil, run, rollup); err != nil {
		return err
	}

	run.Metrics["rows_raw"] = raw.Len()
	run.Metrics["flocs"] = rollup.Len()
	return nil
}
