package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridscope/gridscope/internal/utils"
	"github.com/gridscope/gridscope/pkg/assignment"
	"github.com/gridscope/gridscope/pkg/eligibility"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
	"github.com/gridscope/gridscope/pkg/vendors"
)

var eligibilityCmd = &cobra.Command{
	Use:   "eligibility",
	Short: "Evaluate billing eligibility for the current assignments",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "eligibility", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return buildEligibility(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(eligibilityCmd)
	eligibilityCmd.Flags().String("asset", "distribution", "Asset class: distribution or transmission")
	eligibilityCmd.Flags().Int("min-images", 0, "Minimum delivered images per unit (default from config)")
}

func buildEligibility(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	assetClass, err := assetClassFlag(cmd)
	if err != nil {
		return err
	}
	slug := assetSlug(assetClass)
	minImages, _ := cmd.Flags().GetInt("min-images")
	if minImages <= 0 {
		minImages = viper.GetInt("eligibility.min_images")
	}

	t, err := lay.ReadCurrent(lakehouse.ZoneGold, dsAssignments+"_"+slug, "")
	if err != nil {
		return fmt.Errorf("read assignments (run the assignments pipeline first): %w", err)
	}
	assignments := assignment.FromTable(t)

	// The official master lists are authoritative for object type; fill
	// the gaps the vendor releases left blank.
	dim, err := lay.ReadCurrent(lakehouse.ZoneSilver, dsFlocDim, "")
	if err != nil && !errors.Is(err, lakehouse.ErrNotFound) {
		return err
	}
	backfilled := backfillObjectTypes(assignments, dim)
	run.Metrics["object_type_backfilled"] = backfilled

	var records []eligibility.DeliveryRecord
	for _, vendor := range vendors.All() {
		dt, err := lay.ReadCurrent(lakehouse.ZoneSilver, dsDeliveriesCanon, vendor)
		if errors.Is(err, lakehouse.ErrNotFound) {
			utils.Log.WithField("vendor", vendor).Debug("no canonical deliveries")
			continue
		}
		if err != nil {
			return err
		}
		records = append(records, eligibility.DeliveryRecordsFromTable(dt)...)
	}
	aggs := eligibility.AggregateDeliveries(records, minImages)

	var lines []eligibility.Line
	var docs []eligibility.FlocEvidence
	switch assetClass {
	case assignment.AssetDistribution:
		it, err := lay.ReadCurrent(lakehouse.ZoneSilver, dsInspections, "")
		if err != nil && !errors.Is(err, lakehouse.ErrNotFound) {
			return err
		}
		docs = eligibility.FlocEvidenceFromTable(it)
		lines = eligibility.EvaluateDistribution(assignments, aggs, docs, minImages)
	case assignment.AssetTransmission:
		lines = eligibility.EvaluateTransmission(assignments, aggs, minImages)
	}

	out := eligibility.LinesToTable(lines, run.RunDate, run.RunID, sourceSystem)
	if err := writeVersioned(lay, lakehouse.ZoneGold, dsEligibility+"_"+slug, nil, run, out); err != nil {
		return err
	}

	summary := eligibility.SummariesToTable(eligibility.Summarize(lines), run.RunDate, run.RunID, sourceSystem)
	if err := writeVersioned(lay, lakehouse.ZoneGold, dsEligSummary+"_"+slug, nil, run, summary); err != nil {
		return err
	}

	// Forensics: evidence that matched nothing in the assignments.
	orphanDeliv := eligibility.UnmatchedDeliveriesToTable(
		eligibility.UnmatchedDeliveries(aggs, assignments), assetClass, run.RunDate, run.RunID, sourceSystem)
	if err := writeVersioned(lay, lakehouse.ZoneGold, dsUnmatchedDeliv+"_"+slug, nil, run, orphanDeliv); err != nil {
		return err
	}
	if assetClass == assignment.AssetDistribution {
		orphanDocs := eligibility.UnmatchedFlocEvidenceToTable(
			eligibility.UnmatchedFlocEvidence(docs, assignments), run.RunDate, run.RunID, sourceSystem)
		if err := writeVersioned(lay, lakehouse.ZoneGold, dsUnmatchedFloc, nil, run, orphanDocs); err != nil {
			return err
		}
	}

	approved := 0
	for _, l := range lines {
		if l.Approved {
			approved++
		}
	}
	run.Metrics["assignments"] = len(assignments)
	run.Metrics["delivery_units"] = len(aggs)
	run.Metrics["lines"] = len(lines)
	run.Metrics["approved"] = approved
	run.Metrics["min_images"] = minImages
	return nil
}

// backfillObjectTypes fills blank assignment object types from the floc
// dimension and reports how many it touched.
func backfillObjectTypes(assignments []assignment.Assignment, dim *table.Table) int {
	if dim == nil {
		return 0
	}
	byFloc := make(map[string]string, dim.Len())
	for _, r := range dim.Rows {
		if floc, ot := table.CleanString(r["floc"]), table.CleanString(r["object_type"]); floc != "" && ot != "" {
			byFloc[floc] = ot
		}
	}
	n := 0
	for i := range assignments {
		if assignments[i].ObjectType != "" {
			continue
		}
		if ot, ok := byFloc[assignments[i].Floc]; ok {
			assignments[i].ObjectType = ot
			n++
		}
	}
	return n
}
