package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/intake"
	"github.com/gridscope/gridscope/pkg/lakehouse"
	"github.com/gridscope/gridscope/pkg/table"
)

var ingestMasterCmd = &cobra.Command{
	Use:   "ingest-master",
	Short: "Ingest the official scope master lists and rebuild the floc dimension",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPipeline(cmd, "ingest-master", func(ctx context.Context, lay lakehouse.Layout, run *lakehouse.Run) error {
			return ingestMaster(cmd, lay, run)
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestMasterCmd)
	ingestMasterCmd.Flags().String("trans-hf", "", "Transmission high-fire list CSV")
	ingestMasterCmd.Flags().String("dist-hf", "", "Distribution high-fire list CSV")
	ingestMasterCmd.Flags().String("dist-nhf", "", "Distribution non-high-fire list CSV")
	ingestMasterCmd.MarkFlagRequired("trans-hf")
	ingestMasterCmd.MarkFlagRequired("dist-hf")
	ingestMasterCmd.MarkFlagRequired("dist-nhf")
}

func ingestMaster(cmd *cobra.Command, lay lakehouse.Layout, run *lakehouse.Run) error {
	lists := []struct {
		flag       string
		label      string
		assetClass string
		scopeList  string
	}{
		{"trans-hf", "transmission_high_fire", "transmission", "HIGH_FIRE"},
		{"dist-hf", "distribution_high_fire", "distribution", "HIGH_FIRE"},
		{"dist-nhf", "distribution_non_high_fire", "distribution", "NON_HIGH_FIRE"},
	}

	silvers := make([]*table.Table, 0, len(lists))
	for _, l := range lists {
		input, _ := cmd.Flags().GetString(l.flag)
		raw, err := table.ReadCSV(input)
		if err != nil {
			return fmt.Errorf("read %s: %w", input, err)
		}
		dataset := dsScopeMaster + "_" + l.label

		if _, err := lakehouse.WriteDataset(raw, lay.Dir(lakehouse.ZoneBronze, dataset, lakehouse.History, run.Partitions()...)); err != nil {
			return fmt.Errorf("write bronze: %w", err)
		}

		silver, err := intake.NormalizeScopeMaster(raw, l.assetClass, l.scopeList, filepath.Base(input), run.RunDate, run.RunID)
		if err != nil {
			return err
		}
		if err := writeVersioned(lay, lakehouse.ZoneSilver, dataset, nil, run, silver); err != nil {
			return err
		}
		silvers = append(silvers, silver)
		run.Metrics["rows_"+l.label] = silver.Len()
	}

	dim := intake.BuildFlocObjectTypeDim(silvers...)
	if err := writeVersioned(lay, lakehouse.ZoneSilver, dsFlocDim, nil, run, dim); err != nil {
		return err
	}
	run.Metrics["dim_rows"] = dim.Len()
	return nil
}
