package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/internal/utils"
	"github.com/gridscope/gridscope/pkg/assignment"
	"github.com/gridscope/gridscope/pkg/events"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/vendors"
)

var assignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "Resolve per-unit vendor/method assignments from the current scope snapshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "assignments", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return buildAssignments(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(assignmentsCmd)
	assignmentsCmd.Flags().String("asset", "distribution", "Asset class: distribution or transmission")
}

func buildAssignments(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	assetClass, err := assetClassFlag(cmd)
	if err != nil {
		return err
	}
	slug := assetSlug(assetClass)

	var all []assignment.Assignment
	var latest []events.Event
	for _, vendor := range vendors.All() {
		for dataset, method := range map[string]string{
			dsScopeDrone + "_" + slug: assignment.MethodDrone,
			dsScopeHelo + "_" + slug:  assignment.MethodHelo,
		} {
			t, err := lay.ReadCurrent(lakehouse.ZoneSilver, dataset, vendor)
			if errors.Is(err, lakehouse.ErrNotFound) {
				utils.Log.WithField("vendor", vendor).WithField("dataset", dataset).Debug("no current snapshot")
				continue
			}
			if err != nil {
				return err
			}
			lines, err := assignment.FromSilverLine(t, method, vendor, assetClass, dataset)
			if err != nil {
				return err
			}
			all = append(all, lines...)
		}

		t, err := lay.ReadCurrent(lakehouse.ZoneSilver, dsEventsLatest, vendor)
		if errors.Is(err, lakehouse.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		latest = append(latest, events.FromTable(t)...)
	}
	if len(all) == 0 {
		return fmt.Errorf("no current scope snapshots found for asset %s", assetClass)
	}

	resolved := assignment.Resolve(all, latest)
	out := assignment.ToTable(resolved, run.RunDate, run.RunID)
	if err := writeVersioned(lay, lakehouse.ZoneGold, dsAssignments+"_"+slug, nil, run, out); err != nil {
		return err
	}

	statusCounts := map[string]int{}
	active := 0
	for _, a := range resolved {
		statusCounts[a.Status]++
		if a.Active {
			active++
		}
	}
	run.Metrics["candidates"] = len(all)
	run.Metrics["resolved"] = len(resolved)
	run.Metrics["active"] = active
	for status, n := range statusCounts {
		run.Metrics["status_"+status] = n
	}
	return nil
}
