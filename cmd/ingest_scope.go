package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/assignment"
	"github.com/gridscope/gridscope/pkg/delta"
	"github.com/gridscope/gridscope/pkg/intake"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
	"github.com/gridscope/gridscope/pkg/vendors"
)

var ingestScopeCmd = &cobra.Command{
	Use:   "ingest-scope",
	Short: "Ingest a drone scope release and diff it against the prior snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "ingest-scope", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return ingestScope(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestScopeCmd)
	ingestScopeCmd.Flags().String("vendor", "", "Vendor the release belongs to")
	ingestScopeCmd.Flags().String("asset", "distribution", "Asset class: distribution or transmission")
	ingestScopeCmd.Flags().String("input", "", "Path to the release CSV")
	ingestScopeCmd.Flags().String("sheet", "", "Source sheet label for lineage")
	ingestScopeCmd.MarkFlagRequired("vendor")
	ingestScopeCmd.MarkFlagRequired("input")
}

func ingestScope(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
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

	dataset := dsScopeDrone + "_" + assetSlug(assetClass)
	vendorParts := []lakehouse.Partition{lakehouse.Vendor(vendor)}

	// Raw copy to bronze before any transformation.
	bronzeParts := append(vendorParts, run.Partitions()...)
	if _, err := lakehouse.WriteDataset(raw, lay.Dir(lakehouse.ZoneBronze, dataset, lakehouse.History, bronzeParts...)); err != nil {
		return fmt.Errorf("write bronze: %w", err)
	}

	var silver *table.Table
	switch assetClass {
	case assignment.AssetDistribution:
		silver, err = intake.NormalizeDistributionScope(raw, vendor, sheet)
	case assignment.AssetTransmission:
		silver, err = intake.NormalizeTransmissionScope(raw, vendor, sheet)
	}
	if err != nil {
		return err
	}

	// Resolve the prior snapshot before publishing this run's, and exclude
	// this run's own history dir so a rerun never diffs against itself.
	opts := delta.Options{
		Dataset:    dataset,
		Vendor:     vendor,
		KeyCols:    []string{"scope_id", "floc"},
		RemovalCol: "scope_removal_date",
	}
	priorDir, found, err := lay.LatestPriorSnapshot(lakehouse.ZoneSilver, dataset, vendor, run.RunID)
	if err != nil {
		return err
	}
	cs := delta.Skipped(opts)
	if found {
		previous, err := lakehouse.ReadDataset(priorDir)
		if err != nil {
			return fmt.Errorf("read prior snapshot %s: %w", priorDir, err)
		}
		if cs, err = delta.Diff(silver, previous, opts); err != nil {
			return err
		}
	}

	if err := writeVersioned(lay, lakehouse.ZoneSilver, dataset, vendorParts, run, silver); err != nil {
		return err
	}
	changes := dsScopeChanges + "_" + assetSlug(assetClass)
	parts := []struct {
		suffix string
		t      *table.Table
	}{
		{"added", cs.Added},
		{"removed", cs.Removed},
		{"updated", cs.Updated},
	}
	for _, p := range parts {
		if err := writeVersioned(lay, lakehouse.ZoneSilver, changes+"_"+p.suffix, vendorParts, run, p.t); err != nil {
			return err
		}
	}

	run.Metrics["rows_raw"] = raw.Len()
	run.Metrics["rows_silver"] = silver.Len()
	run.Metrics["previous_found"] = cs.Metrics.PreviousFound
	run.Metrics["added"] = cs.Metrics.AddedRows
	run.Metrics["reactivated"] = cs.Metrics.ReactivatedRows
	run.Metrics["removed_soft"] = cs.Metrics.RemovedSoftRows
	run.Metrics["removed_missing"] = cs.Metrics.RemovedMissingRows
	run.Metrics["updated"] = cs.Metrics.UpdatedRows
	return nil
}
