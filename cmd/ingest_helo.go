package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/intake"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
	"github.com/gridscope/gridscope/pkg/vendors"
)

var ingestHeloCmd = &cobra.Command{
	Use:   "ingest-helo",
	Short: "Ingest a helo scope snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "ingest-helo", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return ingestHelo(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestHeloCmd)
	ingestHeloCmd.Flags().String("vendor", "", "Vendor the snapshot belongs to")
	ingestHeloCmd.Flags().String("asset", "distribution", "Asset class: distribution or transmission")
	ingestHeloCmd.Flags().String("input", "", "Path to the snapshot CSV")
	ingestHeloCmd.Flags().String("sheet", "", "Source sheet label for lineage")
	ingestHeloCmd.MarkFlagRequired("vendor")
	ingestHeloCmd.MarkFlagRequired("input")
}

func ingestHelo(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	vendorFlag, _ := cmd.Flags().GetString("vendor")
	vendor, err := vendors.Normalize(vendorFlag)
	if err != nil {
		return err
	}
	assetClass, err := assetClassFlag(cmd)
	if err != nil {
		return err
	}
	input, _ := cmd.Flags().GetString("input")
	sheet, _ := cmd.Flags().GetString("sheet")
	if sheet == "" {
		sheet = filepath.Base(input)
	}

	raw, err := table.ReadCSV(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	dataset := dsScopeHelo + "_" + assetSlug(assetClass)
	vendorParts := []lakehouse.Partition{lakehouse.Vendor(vendor)}

	bronzeParts := append(vendorParts, run.Partitions()...)
	if _, err := lakehouse.WriteDataset(raw, lay.Dir(lakehouse.ZoneBronze, dataset, lakehouse.History, bronzeParts...)); err != nil {
		return fmt.Errorf("write bronze: %w", err)
	}

	silver, err := intake.NormalizeHelo(raw, vendor, sheet)
	if err != nil {
		return err
	}
	if err := writeVersioned(lay, lakehouse.ZoneSilver, dataset, vendorParts, run, silver); err != nil {
		return err
	}

	run.Metrics["rows_raw"] = raw.Len()
	run.Metrics["rows_silver"] = silver.Len()
	run.Metrics["rows_dropped"] = raw.Len() - silver.Len()
	return nil
}
