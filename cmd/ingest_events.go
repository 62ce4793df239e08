package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/events"
	"github.com/gridscope/gridscope/pkg/intake"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
	"github.com/gridscope/gridscope/pkg/vendors"
)

var ingestEventsCmd = &cobra.Command{
	Use:   "ingest-events",
	Short: "Ingest a scope event sheet and rebuild the collapsed latest-event dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "ingest-events", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return ingestEvents(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestEventsCmd)
	ingestEventsCmd.Flags().String("vendor", "", "Vendor the events belong to")
	ingestEventsCmd.Flags().String("input", "", "Path to the event CSV")
	ingestEventsCmd.Flags().String("sheet", "", "Source sheet label for lineage")
	ingestEventsCmd.MarkFlagRequired("vendor")
	ingestEventsCmd.MarkFlagRequired("input")
}

func ingestEvents(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	vendorFlag, _ := cmd.Flags().GetString("vendor")
	vendor, err := vendors.Normalize(vendorFlag)
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

	vendorParts := []lakehouse.Partition{lakehouse.Vendor(vendor)}
	bronzeParts := append(vendorParts, run.Partitions()...)
	if _, err := lakehouse.WriteDataset(raw, lay.Dir(lakehouse.ZoneBronze, dsScopeEvents, lakehouse.History, bronzeParts...)); err != nil {
		return fmt.Errorf("write bronze: %w", err)
	}

	batch, err := intake.NormalizeEvents(raw, vendor, filepath.Base(input), sheet, run.RunDate, run.RunID)
	if err != nil {
		return err
	}

	// The event log is append-only; each batch lands in its own HISTORY
	// partition and the collapsed CURRENT is rebuilt from the full log.
	histDir := lay.Dir(lakehouse.ZoneSilver, dsScopeEvents, lakehouse.History, bronzeParts...)
	if _, err := lakehouse.WriteDataset(events.ToTable(batch), histDir); err != nil {
		return fmt.Errorf("write event batch: %w", err)
	}

	history, err := lay.ReadAllHistory(lakehouse.ZoneSilver, dsScopeEvents, vendor)
	if err != nil {
		return fmt.Errorf("read event history: %w", err)
	}
	latest := events.Collapse(events.FromTable(history))
	currentDir := lay.Dir(lakehouse.ZoneSilver, dsEventsLatest, lakehouse.Current, vendorParts...)
	if _, err := lakehouse.WriteDataset(events.ToTable(latest), currentDir); err != nil {
		return fmt.Errorf("write collapsed events: %w", err)
	}

	run.Metrics["rows_raw"] = raw.Len()
	run.Metrics["events_batch"] = len(batch)
	run.Metrics["events_total"] = history.Len()
	run.Metrics["events_latest"] = len(latest)
	return nil
}
