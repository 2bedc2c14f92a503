package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/quality"
	"github.com/carveworks/fabline/internal/store"
)

var (
	qualityWarehouseDir string
	qualityPrintJSON    bool
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Compute the data-quality report over the integrated table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDirOverrides("", qualityWarehouseDir)
		return runQuality(cmd.Context())
	},
}

func runQuality(ctx context.Context) error {
	wh, err := openWarehouse(ctx)
	if err != nil {
		return eris.Wrap(err, "quality: open warehouse")
	}
	defer wh.Close()

	integrated, err := wh.ReadIntegrated(ctx)
	if err != nil {
		if eris.Is(err, store.ErrNoArtifact) {
			return eris.Wrap(err, "quality: integrated table not found, run `fabline etl` first")
		}
		return eris.Wrap(err, "quality: read integrated table")
	}

	qcfg := qualityConfig()
	report := quality.Assemble(integrated, qcfg)

	if err := store.WriteJSONArtifact(cfg.Warehouse.Dir, store.FileQualityReport, report); err != nil {
		return eris.Wrap(err, "quality: write report")
	}

	quality.PrintSummary(os.Stdout, report, qcfg)
	if qualityPrintJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "quality: marshal report")
		}
		fmt.Println(string(data))
	}

	zap.L().Info("quality: complete", zap.Int("records", report.RecordCount))
	return nil
}

// qualityConfig starts from the built-in lookup tables and applies any
// overrides from the config file.
func qualityConfig() quality.Config {
	qcfg := quality.DefaultConfig()
	if len(cfg.Quality.ToolCatalog) > 0 {
		qcfg.ToolCatalog = cfg.Quality.ToolCatalog
	}
	if cfg.Quality.OutlierSigma > 0 {
		qcfg.OutlierSigma = cfg.Quality.OutlierSigma
	}
	if cfg.Quality.MinCompleteness > 0 {
		qcfg.MinCompleteness = cfg.Quality.MinCompleteness
	}
	return qcfg
}

func init() {
	qualityCmd.Flags().StringVar(&qualityWarehouseDir, "warehouse-dir", "", "directory for warehouse artifacts")
	qualityCmd.Flags().BoolVar(&qualityPrintJSON, "json", false, "print the report JSON to stdout")
	rootCmd.AddCommand(qualityCmd)
}
