package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/pipeline"
	"github.com/carveworks/fabline/internal/source"
	"github.com/carveworks/fabline/internal/store"
)

var (
	etlDataDir      string
	etlWarehouseDir string
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Integrate and clean the five source tables into the warehouse",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDirOverrides(etlDataDir, etlWarehouseDir)
		return runETL(cmd.Context())
	},
}

func runETL(ctx context.Context) error {
	runID := uuid.New().String()
	zap.L().Info("etl: starting", zap.String("run_id", runID), zap.String("data_dir", cfg.Data.Dir))

	src, err := source.Load(ctx, cfg.Data.Dir)
	if err != nil {
		return eris.Wrap(err, "etl: load sources")
	}

	integrated, counts := pipeline.Integrate(src)
	if err := pipeline.Clean(integrated); err != nil {
		return err
	}

	wh, err := openWarehouse(ctx)
	if err != nil {
		return eris.Wrap(err, "etl: open warehouse")
	}
	defer wh.Close()

	if err := wh.WriteIntegrated(ctx, runID, integrated); err != nil {
		return eris.Wrap(err, "etl: write integrated table")
	}

	summary := pipeline.Summarize(runID, integrated, counts)
	if err := store.WriteJSONArtifact(cfg.Warehouse.Dir, store.FileETLSummary, summary); err != nil {
		return eris.Wrap(err, "etl: write summary")
	}

	zap.L().Info("etl: complete",
		zap.String("run_id", runID),
		zap.Int("rows", summary.RowCount),
		zap.Float64("merge_success_rate", summary.MergeSuccessRate),
	)
	return nil
}

func init() {
	etlCmd.Flags().StringVar(&etlDataDir, "data-dir", "", "directory containing the source CSV files")
	etlCmd.Flags().StringVar(&etlWarehouseDir, "warehouse-dir", "", "directory for warehouse artifacts")
	rootCmd.AddCommand(etlCmd)
}
