package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridscope/gridscope/pkg/lakehouse"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent pipeline runs (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		lay := lakeLayout(cmd)
		if _, err := os.Stat(lay.RunsDBPath()); err != nil {
			return fmt.Errorf("run registry not found: %s", lay.RunsDBPath())
		}
		registry, err := lakehouse.OpenRunLog(lay.RunsDBPath())
		if err != nil {
			return err
		}
		defer registry.Close()
		records, err := registry.Recent(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, r := range records {
			ts := r.StartedAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  %-20s  %s  %s\n", ts, r.Status, r.Pipeline, r.RunID, r.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", 50, "Number of recent runs to show")
}
