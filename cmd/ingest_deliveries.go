package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/intake"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
	"github.com/gridscope/gridscope/pkg/vendors"
)

var ingestDeliveriesCmd = &cobra.Command{
	Use:   "ingest-deliveries",
	Short: "Ingest delivery evidence (CSV export and/or JSON folder manifests)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "ingest-deliveries", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return ingestDeliveries(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestDeliveriesCmd)
	ingestDeliveriesCmd.Flags().String("vendor", "", "Vendor the deliveries belong to")
	ingestDeliveriesCmd.Flags().String("input", "", "Path to the delivery export CSV")
	ingestDeliveriesCmd.Flags().StringSlice("manifest", nil, "JSON folder manifest path (repeatable)")
	ingestDeliveriesCmd.MarkFlagRequired("vendor")
}

func ingestDeliveries(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	vendorFlag, _ := cmd.Flags().GetString("vendor")
	vendor, err := vendors.Normalize(vendorFlag)
	if err != nil {
		return err
	}
	input, _ := cmd.Flags().GetString("input")
	manifests, _ := cmd.Flags().GetStringSlice("manifest")
	if input == "" && len(manifests) == 0 {
		return fmt.Errorf("nothing to ingest: pass --input and/or --manifest")
	}

	batch := table.New(intake.DeliveryColumns...)
	if input != "" {
		raw, err := table.ReadCSV(input)
		if err != nil {
			return fmt.Errorf("read %s: %w", input, err)
		}
		lines, err := intake.NormalizeDeliveriesCSV(raw, vendor, run.RunDate, run.RunID)
		if err != nil {
			return err
		}
		batch.Rows = append(batch.Rows, lines.Rows...)
	}
	for _, path := range manifests {
		lines, err := intake.ReadDeliveryManifest(path, vendor, run.RunDate, run.RunID)
		if err != nil {
			return err
		}
		batch.Rows = append(batch.Rows, lines.Rows...)
	}

	vendorParts := []lakehouse.Partition{lakehouse.Vendor(vendor)}
	histParts := append(vendorParts, run.Partitions()...)
	histDir := lay.Dir(lakehouse.ZoneSilver, dsDeliveries, lakehouse.History, histParts...)
	if _, err := lakehouse.WriteDataset(batch, histDir); err != nil {
		return fmt.Errorf("write delivery batch: %w", err)
	}

	// Canonical deliveries are rebuilt from the whole accumulated history,
	// keeping the newest line per (vendor, floc, folder).
	history, err := lay.ReadAllHistory(lakehouse.ZoneSilver, dsDeliveries, vendor)
	if err != nil {
		return fmt.Errorf("read delivery history: %w", err)
	}
	canonical := intake.CanonicalDeliveries(history)
	currentDir := lay.Dir(lakehouse.ZoneSilver, dsDeliveriesCanon, lakehouse.Current, vendorParts...)
	if _, err := lakehouse.WriteDataset(canonical, currentDir); err != nil {
		return fmt.Errorf("write canonical deliveries: %w", err)
	}

	run.Metrics["rows_batch"] = batch.Len()
	run.Metrics["rows_history"] = history.Len()
	run.Metrics["rows_canonical"] = canonical.Len()
	return nil
}
