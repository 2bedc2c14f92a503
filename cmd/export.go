package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/export"
	"github.com/carveworks/fabline/internal/store"
)

var (
	exportWarehouseDir string
	exportOut          string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the feature table to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDirOverrides("", exportWarehouseDir)
		return runExport(cmd.Context())
	},
}

func runExport(ctx context.Context) error {
	wh, err := openWarehouse(ctx)
	if err != nil {
		return eris.Wrap(err, "export: open warehouse")
	}
	defer wh.Close()

	features, err := wh.ReadFeatures(ctx, store.FeatureFilter{})
	if err != nil {
		if eris.Is(err, store.ErrNoArtifact) {
			return eris.Wrap(err, "export: feature table not found, run `fabline features` first")
		}
		return eris.Wrap(err, "export: read feature table")
	}

	if err := export.FeaturesXLSX(features, exportOut); err != nil {
		return err
	}

	zap.L().Info("export: complete", zap.String("path", exportOut), zap.Int("rows", len(features.Records)))
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportWarehouseDir, "warehouse-dir", "", "directory for warehouse artifacts")
	exportCmd.Flags().StringVar(&exportOut, "out", "features.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
