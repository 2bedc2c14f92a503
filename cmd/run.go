package main

import (
	"github.com/spf13/cobra"
)

var (
	runDataDir      string
	runWarehouseDir string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: etl, features, quality",
	Long:  "Runs the three stages in order. Each stage fully materializes its artifact before the next begins.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDirOverrides(runDataDir, runWarehouseDir)

		ctx := cmd.Context()
		if err := runETL(ctx); err != nil {
			return err
		}
		if err := runFeatures(ctx); err != nil {
			return err
		}
		return runQuality(ctx)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "directory containing the source CSV files")
	runCmd.Flags().StringVar(&runWarehouseDir, "warehouse-dir", "", "directory for warehouse artifacts")
	rootCmd.AddCommand(runCmd)
}
