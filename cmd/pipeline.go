package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridscope/gridscope/internal/utils"
	"github.com/gridscope/gridscope/pkg/assignment"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
)

// Silver and gold dataset names. These end up in partition paths, so they
// are fixed here rather than derived from user input.
const (
	dsScopeDrone      = "scope_drone"
	dsScopeHelo       = "scope_helo"
	dsScopeChanges    = "scope_changes"
	dsScopeEvents     = "scope_events"
	dsEventsLatest    = "scope_events_latest"
	dsDeliveries      = "deliveries"
	dsDeliveriesCanon = "deliveries_canonical"
	dsInspections     = "inspections_floc"
	dsRateCard        = "rate_card"
	dsAssignments     = "assignments"
	dsEligibility     = "eligibility"
	dsEligSummary     = "eligibility_summary"
	dsUnmatchedDeliv  = "unmatched_deliveries"
	dsUnmatchedFloc   = "unmatched_floc_evidence"
	dsBillingLines    = "billing_lines"
	dsScopeMaster     = "scope_master"
	dsFlocDim         = "floc_object_type_dim"
	dsInvoiceHeader   = "vendor_invoice_header"
	dsInvoiceLine     = "vendor_invoice_line"
)

// sourceSystem is stamped on gold outputs for lineage.
const sourceSystem = "gridscope"

func lakeLayout(cmd *cobra.Command) lakehouse.Layout {
	root, _ := cmd.Flags().GetString("lake")
	if root == "" {
		root = viper.GetString("lakehouse.root")
	}
	return lakehouse.Layout{Root: root}
}

// runPipeline wraps a pipeline body with the run registry lifecycle: a run
// row is opened before the body and closed as SUCCESS or FAILED after it,
// so a crash mid-run is visible as a stuck RUNNING row.
func runPipeline(cmd *cobra.Command, pipeline string, body func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	lay := lakeLayout(cmd)

	registry, err := lakehouse.OpenRunLog(lay.RunsDBPath())
	if err != nil {
		return fmt.Errorf("open run registry: %w", err)
	}
	defer registry.Close()

	run, err := registry.Start(ctx, pipeline)
	if err != nil {
		return err
	}
	log := utils.Log.WithField("pipeline", pipeline).WithField("run_id", run.RunID)
	log.Info("run started")

	if err := body(ctx, lay, run); err != nil {
		log.WithError(err).Error("run failed")
		if ferr := registry.Fail(ctx, run, err.Error()); ferr != nil {
			log.WithError(ferr).Error("could not record run failure")
		}
		return err
	}
	if err := registry.Succeed(ctx, run, ""); err != nil {
		return fmt.Errorf("record run success: %w", err)
	}
	log.Info("run succeeded")
	return nil
}

// writeVersioned writes one dataset to its HISTORY partition for this run
// and then replaces CURRENT. HISTORY first: if the CURRENT write fails the
// run is FAILED and the durable lineage copy already exists.
func writeVersioned(lay lakehouse.Layout, zone, dataset string, vendorParts []lakehouse.Partition, run *lakehouse.Run, t *table.Table) error {
	histParts := append(append([]lakehouse.Partition(nil), vendorParts...), run.Partitions()...)
	if _, err := lakehouse.WriteDataset(t, lay.Dir(zone, dataset, lakehouse.History, histParts...)); err != nil {
		return fmt.Errorf("write %s history: %w", dataset, err)
	}
	if _, err := lakehouse.WriteDataset(t, lay.Dir(zone, dataset, lakehouse.Current, vendorParts...)); err != nil {
		return fmt.Errorf("write %s current: %w", dataset, err)
	}
	return nil
}

// assetClassFlag parses the --asset flag into a canonical asset class.
func assetClassFlag(cmd *cobra.Command) (string, error) {
	raw, _ := cmd.Flags().GetString("asset")
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "distribution", "dist":
		return assignment.AssetDistribution, nil
	case "transmission", "trans":
		return assignment.AssetTransmission, nil
	}
	return "", fmt.Errorf("invalid --asset %q (want distribution or transmission)", raw)
}

// assetSlug is the lowercase dataset-name suffix for an asset class.
func assetSlug(assetClass string) string {
	return strings.ToLower(assetClass)
}
