package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fabline",
	Short: "Stone-fabrication warehouse pipeline",
	Long:  "Integrates toolpath, telemetry, inspection, cost, and operator tables into a per-job warehouse, derives ratio metrics, and maintains a standing data-quality report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
