package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/pipeline"
	"github.com/carveworks/fabline/internal/store"
)

var featuresWarehouseDir string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Derive the engineered ratio metrics from the integrated table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDirOverrides("", featuresWarehouseDir)
		return runFeatures(cmd.Context())
	},
}

func runFeatures(ctx context.Context) error {
	runID := uuid.New().String()

	wh, err := openWarehouse(ctx)
	if err != nil {
		return eris.Wrap(err, "features: open warehouse")
	}
	defer wh.Close()

	integrated, err := wh.ReadIntegrated(ctx)
	if err != nil {
		if eris.Is(err, store.ErrNoArtifact) {
			return eris.Wrap(err, "features: integrated table not found, run `fabline etl` first")
		}
		return eris.Wrap(err, "features: read integrated table")
	}

	features := pipeline.EngineerFeatures(integrated)
	if err := wh.WriteFeatures(ctx, runID, features); err != nil {
		return eris.Wrap(err, "features: write feature table")
	}

	summary := pipeline.FeatureSummary{
		RunID:          runID,
		RecordCount:    len(features.Records),
		FeatureColumns: features.Columns,
	}
	if err := store.WriteJSONArtifact(cfg.Warehouse.Dir, store.FileFeatureSummary, summary); err != nil {
		return eris.Wrap(err, "features: write summary")
	}

	zap.L().Info("features: complete",
		zap.String("run_id", runID),
		zap.Int("rows", summary.RecordCount),
	)
	return nil
}

func init() {
	featuresCmd.Flags().StringVar(&featuresWarehouseDir, "warehouse-dir", "", "directory for warehouse artifacts")
	rootCmd.AddCommand(featuresCmd)
}
